package audio

import (
	"errors"
	"sync/atomic"

	"github.com/cwbudde/algo-frame/dsp/core"
	"github.com/cwbudde/algo-frame/dsp/frame"
)

// ParamFunc returns the parameter automation for frames [start, start+frames).
type ParamFunc func(start, frames int) map[string][]float64

// Source renders a node block by block on demand and hands the result out as
// interleaved stereo. A mono node is duplicated to both sides; channels past
// the second are dropped.
type Source struct {
	node      *frame.Adapter
	params    ParamFunc
	channels  int
	blockSize int

	bus     [][]float64
	pending []float32
	offset  int
	frame   int

	finished atomic.Bool
	drained  atomic.Bool
	err      atomic.Pointer[error]
}

// NewSource creates a source rendering channels output channels in blocks of
// blockSize frames. params may be nil.
func NewSource(node *frame.Adapter, channels, blockSize int, params ParamFunc) *Source {
	if blockSize <= 0 {
		blockSize = core.DefaultProcessorConfig().BlockSize
	}

	return &Source{
		node:      node,
		params:    params,
		channels:  max(channels, 0),
		blockSize: blockSize,
		pending:   make([]float32, 0, 2*blockSize),
	}
}

// Process implements SampleSource. Once the node stops, the rest of dst is
// silence.
func (s *Source) Process(dst []float32) {
	for len(dst) > 0 {
		if s.offset == len(s.pending) {
			if s.finished.Load() {
				clear(dst)
				break
			}
			s.render()
		}

		n := copy(dst, s.pending[s.offset:])
		s.offset += n
		dst = dst[n:]
	}

	if s.finished.Load() && s.offset == len(s.pending) {
		s.drained.Store(true)
	}
}

// Finished implements FinishingSource. It may be called from any goroutine.
func (s *Source) Finished() bool {
	return s.drained.Load()
}

// Err returns the error that ended playback, if any. A node that finished or
// was stopped ends without error.
func (s *Source) Err() error {
	if p := s.err.Load(); p != nil {
		return *p
	}
	return nil
}

func (s *Source) render() {
	s.bus = core.EnsureBus(s.bus, s.channels, s.blockSize)

	var params map[string][]float64
	if s.params != nil {
		params = s.params(s.frame, s.blockSize)
	}

	keep, err := s.node.Process(nil, s.bus, params)
	s.frame += s.blockSize

	if err != nil {
		if !(s.node.Done() && errors.Is(err, frame.ErrContractViolation)) {
			s.err.Store(&err)
		}
		s.finished.Store(true)
		s.pending = s.pending[:0]
		s.offset = 0

		return
	}

	if !keep {
		s.finished.Store(true)
	}

	s.pending = s.pending[:2*s.blockSize]
	s.offset = 0

	switch len(s.bus) {
	case 0:
		clear(s.pending)
	case 1:
		for i, v := range s.bus[0] {
			s.pending[2*i] = float32(v)
			s.pending[2*i+1] = float32(v)
		}
	default:
		core.Interleave(s.pending, s.bus[:2], 2)
	}
}
