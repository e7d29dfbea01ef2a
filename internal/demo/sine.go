package demo

import (
	"math"

	"github.com/cwbudde/algo-frame/dsp/core"
	"github.com/cwbudde/algo-frame/dsp/frame"
)

// Sine returns a stateful oscillator driven by the "frequency" and
// "amplitude" parameters. With "spread" above zero the right channel is
// detuned by that many Hz, so the output is a two-channel frame.
func Sine() frame.Implementation {
	return frame.Stateful(newOscillator).WithParameterDescriptors(
		frame.ParameterDescriptor{Name: "frequency", MinValue: 0, MaxValue: 20000, DefaultValue: 440, AutomationRate: frame.ARate},
		frame.ParameterDescriptor{Name: "amplitude", MinValue: 0, MaxValue: 1, DefaultValue: 0.2, AutomationRate: frame.ARate},
		frame.ParameterDescriptor{Name: "spread", MinValue: 0, MaxValue: 50, DefaultValue: 0, AutomationRate: frame.KRate},
	)
}

type oscillator struct {
	phase [2]float64
	out   [2]float64
}

func newOscillator(*frame.Context) (any, error) {
	return &oscillator{}, nil
}

func (o *oscillator) Next(ctx *frame.Context) frame.Output {
	amp := core.Clamp(ctx.Params["amplitude"], 0, 1)
	freq := ctx.Params["frequency"]
	spread := ctx.Params["spread"]

	o.out[0] = amp * math.Sin(o.phase[0])
	o.out[1] = amp * math.Sin(o.phase[1])

	o.phase[0] = advance(o.phase[0], freq, ctx.Env.SampleRate)
	o.phase[1] = advance(o.phase[1], freq+spread, ctx.Env.SampleRate)

	if spread <= 0 {
		return frame.Sample(o.out[0])
	}

	return frame.Frame(o.out[:])
}

func advance(phase, freq, sampleRate float64) float64 {
	if sampleRate <= 0 {
		return phase
	}

	phase += 2 * math.Pi * freq / sampleRate
	if phase > math.Pi {
		phase -= 2 * math.Pi
	}

	return phase
}
