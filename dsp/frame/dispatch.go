package frame

import (
	"fmt"
	"io"
	"iter"
)

// dispatcher resolves an Implementation into a single per-frame callable on
// the first frame and owns whatever state that creates.
type dispatcher struct {
	impl    Implementation
	step    func(ctx *Context) Output
	cleanup func() error
	closed  bool
}

// resolve binds step and returns the output of frame 0.
func (d *dispatcher) resolve(ctx *Context) (Output, error) {
	switch d.impl.kind {
	case KindPure:
		if d.impl.pure == nil {
			return Output{}, d.reject("nil function", nil)
		}
		d.step = d.impl.pure

		return d.step(ctx), nil

	case KindStateful:
		return d.resolveStateful(ctx)

	case KindCoroutine:
		if d.impl.seq != nil {
			return d.resolveGenerator(ctx)
		}

		return d.resolveCoroutine(ctx)

	default:
		return Output{}, d.reject("not a pure, stateful or coroutine implementation", nil)
	}
}

func (d *dispatcher) resolveStateful(ctx *Context) (Output, error) {
	if d.impl.construct == nil {
		return Output{}, d.reject("nil constructor", nil)
	}

	inst, err := d.impl.construct(ctx)
	if err != nil {
		return Output{}, d.reject("constructor failed", err)
	}

	adv, ok := inst.(Advancer)
	if !ok {
		return Output{}, d.reject(fmt.Sprintf("instance %T has no Next method", inst), nil)
	}

	if c, ok := inst.(io.Closer); ok {
		d.cleanup = c.Close
	}

	d.step = adv.Next

	return d.step(ctx), nil
}

// resolveCoroutine starts the computation without resuming it. Frame 0 is
// silence; the first resume belongs to frame 1.
func (d *dispatcher) resolveCoroutine(ctx *Context) (Output, error) {
	if d.impl.start == nil {
		return Output{}, d.reject("nil start function", nil)
	}

	co := d.impl.start(ctx)
	if co == nil {
		return Output{}, d.reject("start returned nil", nil)
	}

	if c, ok := co.(io.Closer); ok {
		d.cleanup = c.Close
	}

	d.step = co.Resume

	return Output{}, nil
}

func (d *dispatcher) resolveGenerator(ctx *Context) (Output, error) {
	seq := d.impl.seq(ctx)
	if seq == nil {
		return Output{}, d.reject("start returned nil sequence", nil)
	}

	next, stop := iter.Pull(seq)
	d.step = func(*Context) Output {
		out, ok := next()
		if !ok {
			return Finished()
		}
		return out
	}
	d.cleanup = func() error {
		stop()
		return nil
	}

	return Output{}, nil
}

func (d *dispatcher) reject(reason string, err error) error {
	return &InitError{Kind: d.impl.kind, Reason: reason, Err: err}
}

// close releases the implementation's state. Only the first call has effect.
func (d *dispatcher) close() error {
	if d.closed || d.cleanup == nil {
		return nil
	}
	d.closed = true

	return d.cleanup()
}
