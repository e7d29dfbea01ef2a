package frame

// Output is the value an implementation produces for one frame.
//
// A nil Channels slice makes the output a scalar: Value is written to every
// output channel. A non-nil Channels slice is a per-channel frame; see
// [Adapter.Process] for how it is fitted to the output bus. Done reports that
// the implementation has finished; the accompanying values are discarded.
type Output struct {
	Value    float64
	Channels []float64
	Done     bool
}

// Sample returns a scalar Output broadcast to every output channel.
func Sample(v float64) Output {
	return Output{Value: v}
}

// Frame returns a per-channel Output. The slice is read during the call that
// returns it, so implementations can reuse one slice across frames.
func Frame(channels []float64) Output {
	if channels == nil {
		channels = []float64{}
	}
	return Output{Channels: channels}
}

// Finished returns an Output that terminates the node.
func Finished() Output {
	return Output{Done: true}
}

// writeTo shapes o into frame i of out.
//
// Sequences at least as long as the bus are copied positionally, shorter
// sequences broadcast their first entry (an empty one broadcasts silence),
// scalars are broadcast.
func (o Output) writeTo(out [][]float64, i int) {
	if o.Channels == nil {
		for _, ch := range out {
			ch[i] = o.Value
		}
		return
	}

	if len(o.Channels) >= len(out) {
		for c, ch := range out {
			ch[i] = o.Channels[c]
		}
		return
	}

	var v float64
	if len(o.Channels) > 0 {
		v = o.Channels[0]
	}
	for _, ch := range out {
		ch[i] = v
	}
}
