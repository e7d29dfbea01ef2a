// Package audio turns a frame node into a pull-based float32 stream for
// real-time playback devices.
package audio

import (
	"encoding/binary"
	"io"
	"math"
	"sync"
)

// SampleSource fills dst with interleaved stereo float32 samples.
type SampleSource interface {
	Process(dst []float32)
}

// FinishingSource is a SampleSource that can signal when playback has ended.
// Once Finished returns true the stream returns io.EOF after the current read.
type FinishingSource interface {
	SampleSource
	Finished() bool
}

// StreamReader exposes a SampleSource as little-endian float32 stereo bytes.
type StreamReader struct {
	mu     sync.Mutex
	source SampleSource
	buf    []float32
}

// NewStreamReader wraps source.
func NewStreamReader(source SampleSource) *StreamReader {
	return &StreamReader{source: source}
}

// Read fills p with whole stereo frames.
func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}

	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]

	r.source.Process(r.buf)
	for i, v := range r.buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	}

	n := frames * 8
	if fs, ok := r.source.(FinishingSource); ok && fs.Finished() {
		return n, io.EOF
	}

	return n, nil
}

// Close implements io.Closer.
func (r *StreamReader) Close() error { return nil }
