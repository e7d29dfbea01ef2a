package frame

import "iter"

// Kind identifies the call contract of an Implementation.
type Kind uint8

const (
	// KindNone is the zero Implementation, which no adapter accepts.
	KindNone Kind = iota
	KindPure
	KindStateful
	KindCoroutine
)

func (k Kind) String() string {
	switch k {
	case KindPure:
		return "pure"
	case KindStateful:
		return "stateful"
	case KindCoroutine:
		return "coroutine"
	default:
		return "unknown"
	}
}

// PureFunc computes one frame from the frame context alone. It must not keep
// mutable state between calls: the same function may back several nodes.
type PureFunc func(ctx *Context) Output

// Advancer is the frame-advance capability a Stateful instance must expose.
type Advancer interface {
	Next(ctx *Context) Output
}

// Resumer is an explicit suspend/resume computation. Each Resume runs the
// computation up to its next suspension point and returns the value produced
// there. A Resumer that also implements io.Closer is closed when the node
// terminates before the computation finished on its own.
type Resumer interface {
	Resume(ctx *Context) Output
}

// Implementation is a closed union over the three supported call contracts.
// Build one with Pure, Stateful, Coroutine or Generator; the zero value is
// rejected on the first frame.
type Implementation struct {
	kind        Kind
	pure        PureFunc
	construct   func(ctx *Context) (any, error)
	start       func(ctx *Context) Resumer
	seq         func(ctx *Context) iter.Seq[Output]
	descriptors []ParameterDescriptor
}

// Pure wraps a memoryless per-frame function.
func Pure(fn PureFunc) Implementation {
	return Implementation{kind: KindPure, pure: fn}
}

// Stateful wraps a constructor that runs once per node, on its first frame,
// with the frame context available. The returned instance must implement
// Advancer; if it also implements io.Closer it is closed on termination.
func Stateful(construct func(ctx *Context) (any, error)) Implementation {
	return Implementation{kind: KindStateful, construct: construct}
}

// Coroutine wraps a function that starts an explicit suspend/resume
// computation for a node.
func Coroutine(start func(ctx *Context) Resumer) Implementation {
	return Implementation{kind: KindCoroutine, start: start}
}

// Generator wraps a function returning an iterator as a coroutine. Each frame
// pulls one value from the sequence; an exhausted sequence finishes the node.
// The sequence is stopped if the node terminates first.
func Generator(start func(ctx *Context) iter.Seq[Output]) Implementation {
	return Implementation{kind: KindCoroutine, seq: start}
}

// Kind reports the call contract of i.
func (i Implementation) Kind() Kind {
	return i.kind
}

// WithParameterDescriptors returns a copy of i that declares its own
// parameters. Declared descriptors take precedence over the ones supplied
// through WithParameterDescriptors options.
func (i Implementation) WithParameterDescriptors(descriptors ...ParameterDescriptor) Implementation {
	i.descriptors = append([]ParameterDescriptor(nil), descriptors...)
	return i
}

// ParameterDescriptors returns the descriptors declared by i, if any.
func (i Implementation) ParameterDescriptors() []ParameterDescriptor {
	return i.descriptors
}
