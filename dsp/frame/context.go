package frame

// Env describes the processing environment of the current block.
type Env struct {
	// OutputChannels is the channel count of the output bus passed to the
	// current Process call, which may differ from the construction value.
	OutputChannels int
	SampleRate     float64
}

// Context is the frame state handed to an implementation on every call.
//
// The adapter passes the same *Context on every frame for its whole lifetime
// and only mutates its contents: Params and Input are rewritten in place for
// each frame, never replaced by new values. Read them on every call. A value
// copied out of Params once goes stale as soon as that parameter is automated
// per frame.
//
// Implementations must not retain the Context beyond the adapter's lifetime
// or mutate it.
type Context struct {
	// Input holds one sample per live input channel for the current frame.
	Input []float64

	// Params holds the current frame's value of every parameter seen so far.
	Params map[string]float64

	Env Env

	// Port is the control channel of the node. It may be nil.
	Port Port
}

// Param returns the current frame's value of the named parameter, or 0.
func (c *Context) Param(name string) float64 {
	return c.Params[name]
}

// InputAt returns the current frame's sample of input channel ch, or 0 when
// the channel is not connected.
func (c *Context) InputAt(ch int) float64 {
	if ch < 0 || ch >= len(c.Input) {
		return 0
	}
	return c.Input[ch]
}

func newContext(cfg config, descriptors []ParameterDescriptor, port Port) *Context {
	params := make(map[string]float64, len(descriptors))
	for _, d := range descriptors {
		params[d.Name] = d.DefaultValue
	}

	return &Context{
		Input:  make([]float64, 0, cfg.proc.InputChannels),
		Params: params,
		Env: Env{
			OutputChannels: cfg.proc.OutputChannels,
			SampleRate:     cfg.proc.SampleRate,
		},
		Port: port,
	}
}
