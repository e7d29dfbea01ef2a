package frame

import (
	"sync"
)

const testBlock = 8

// recordingPort collects every posted message.
type recordingPort struct {
	mu   sync.Mutex
	msgs []any
}

func (p *recordingPort) PostMessage(msg any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.msgs = append(p.msgs, msg)

	return nil
}

func (p *recordingPort) count(msg any) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, m := range p.msgs {
		if m == msg {
			n++
		}
	}

	return n
}

// passthrough returns its first input channel.
func passthrough(ctx *Context) Output {
	return Sample(ctx.InputAt(0))
}

// counter is a Stateful instance that emits the number of frames it has seen
// and finishes after limit frames when limit > 0.
type counter struct {
	frames int
	limit  int
	closed int
}

func (c *counter) Next(_ *Context) Output {
	if c.limit > 0 && c.frames == c.limit {
		return Finished()
	}
	c.frames++

	return Sample(float64(c.frames))
}

func (c *counter) Close() error {
	c.closed++
	return nil
}

// notAdvancer has no Next method.
type notAdvancer struct{}

// countingResumer emits 1, 2, 3, ... per resume and finishes after limit
// resumes when limit > 0.
type countingResumer struct {
	resumes int
	limit   int
	closed  int
}

func (r *countingResumer) Resume(_ *Context) Output {
	if r.limit > 0 && r.resumes == r.limit {
		return Finished()
	}
	r.resumes++

	return Sample(float64(r.resumes))
}

func (r *countingResumer) Close() error {
	r.closed++
	return nil
}
