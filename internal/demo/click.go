package demo

import "github.com/cwbudde/algo-frame/dsp/frame"

// Click returns an explicit coroutine emitting a one-frame impulse at the
// "bpm" rate for "beats" beats. It finishes on the frame after the last
// click. A "beats" of zero runs until stopped.
func Click() frame.Implementation {
	return frame.Coroutine(newMetronome).WithParameterDescriptors(
		frame.ParameterDescriptor{Name: "bpm", MinValue: 1, MaxValue: 600, DefaultValue: 120, AutomationRate: frame.KRate},
		frame.ParameterDescriptor{Name: "beats", MinValue: 0, MaxValue: 1 << 20, DefaultValue: 0, AutomationRate: frame.KRate},
	)
}

// metronome counts frames until the next beat.
type metronome struct {
	untilBeat float64
	beats     int
	closed    bool
}

func newMetronome(*frame.Context) frame.Resumer {
	return &metronome{}
}

func (m *metronome) Resume(ctx *frame.Context) frame.Output {
	if m.closed {
		return frame.Finished()
	}

	if limit := int(ctx.Params["beats"]); limit > 0 && m.beats >= limit {
		return frame.Finished()
	}

	bpm := ctx.Params["bpm"]
	if bpm <= 0 {
		bpm = 120
	}

	click := m.untilBeat <= 0
	if click {
		m.untilBeat += ctx.Env.SampleRate * 60 / bpm
		m.beats++
	}
	m.untilBeat--

	if click {
		return frame.Sample(1)
	}

	return frame.Sample(0)
}

// Close ends the metronome early.
func (m *metronome) Close() error {
	m.closed = true
	return nil
}
