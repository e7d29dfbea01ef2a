// Package render drives a frame node offline, block by block, the way a
// real-time audio host would, and collects what it produces.
package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/cwbudde/algo-vecmath"
	"go.uber.org/zap"

	"github.com/cwbudde/algo-frame/dsp/core"
	"github.com/cwbudde/algo-frame/dsp/frame"
	"github.com/cwbudde/algo-frame/internal/config"
)

// ErrUnknownProcessor is returned by NewNode for names missing from the
// registry.
var ErrUnknownProcessor = errors.New("render: unknown processor")

// Option configures Run.
type Option func(*options)

type options struct {
	input [][]float64
	log   *zap.Logger
}

// WithInput feeds channels to the node's input bus. Channels missing from
// input, and frames past its end, are silent.
func WithInput(input [][]float64) Option {
	return func(o *options) {
		o.input = input
	}
}

// WithLogger sets the logger for session summaries.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// Result holds everything a session produced.
type Result struct {
	Channels   [][]float64
	SampleRate float64
	// Blocks counts successful Process calls.
	Blocks int
	// Finished is set when the node completed on its own.
	Finished bool
	// Stopped is set when the session sent "stop".
	Stopped bool
	// Released is set when a process-only node asked to be released.
	Released bool
}

// NodeOptions translates a session into node construction options.
func NodeOptions(s *config.Session) []frame.Option {
	return []frame.Option{
		frame.WithSampleRate(s.SampleRate),
		frame.WithBlockSize(s.BlockSize),
		frame.WithInputChannels(s.InputChannels),
		frame.WithOutputChannels(s.OutputChannels),
		frame.WithProcessOnly(s.ProcessOnly),
	}
}

// NewNode instantiates the session's processor from r. opts are applied
// after the session's own options.
func NewNode(r *frame.Registry, s *config.Session, port frame.Port, opts ...frame.Option) (*frame.Adapter, error) {
	def := r.Lookup(s.Processor)
	if def == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProcessor, s.Processor)
	}

	all := append(NodeOptions(s), opts...)

	return def.New(port, all...), nil
}

// Run processes up to s.Blocks blocks. It ends early when the node finishes,
// when a process-only node is released, or after s.StopAfterBlocks blocks,
// when it sends "stop" and makes one more call so the node reports done.
func Run(ctx context.Context, node *frame.Adapter, s *config.Session, opts ...Option) (*Result, error) {
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	res := &Result{
		Channels:   make([][]float64, s.OutputChannels),
		SampleRate: s.SampleRate,
	}
	for ch := range res.Channels {
		res.Channels[ch] = make([]float64, 0, s.Frames())
	}

	auto := NewAutomation(s)

	var in, out [][]float64

	for b := 0; b < s.Blocks; b++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if s.StopAfterBlocks > 0 && b == s.StopAfterBlocks {
			node.HandleMessage(frame.MessageStop)
			res.Stopped = true
		}

		start := b * s.BlockSize
		in = fillInput(in, o.input, s.InputChannels, start, s.BlockSize)
		out = core.EnsureBus(out, s.OutputChannels, s.BlockSize)

		keep, err := node.Process(in, out, auto.Block(start, s.BlockSize))
		if err != nil {
			if res.Stopped && errors.Is(err, frame.ErrContractViolation) {
				break
			}
			return res, fmt.Errorf("render: block %d: %w", b, err)
		}

		res.Blocks++
		for ch := range out {
			res.Channels[ch] = append(res.Channels[ch], out[ch]...)
		}

		if !keep {
			if node.Done() {
				res.Finished = true
			} else {
				res.Released = true
			}
			break
		}
	}

	o.log.Info("render: session complete",
		zap.String("processor", s.Processor),
		zap.Int("blocks", res.Blocks),
		zap.Bool("finished", res.Finished),
		zap.Bool("stopped", res.Stopped),
		zap.Bool("released", res.Released),
	)

	return res, nil
}

// Frames returns the rendered length per channel.
func (r *Result) Frames() int {
	if len(r.Channels) == 0 {
		return 0
	}
	return len(r.Channels[0])
}

// Mixdown averages every channel into one.
func (r *Result) Mixdown() []float64 {
	mix := make([]float64, r.Frames())
	if len(r.Channels) == 0 {
		return mix
	}

	for _, ch := range r.Channels {
		vecmath.AddBlockInPlace(mix, ch[:len(mix)])
	}
	vecmath.ScaleBlock(mix, mix, 1/float64(len(r.Channels)))

	return mix
}

// Interleaved returns the channels interleaved frame by frame as float32.
func (r *Result) Interleaved() []float32 {
	dst := make([]float32, r.Frames()*len(r.Channels))
	core.Interleave(dst, r.Channels, len(r.Channels))
	return dst
}

func fillInput(in, source [][]float64, channels, start, frames int) [][]float64 {
	if channels == 0 {
		return nil
	}

	in = core.EnsureBus(in, channels, frames)
	for ch := range in {
		if ch < len(source) && start < len(source[ch]) {
			core.CopyInto(in[ch], source[ch][start:])
		}
	}

	return in
}
