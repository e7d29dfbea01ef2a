package demo

import (
	"iter"
	"math"

	"github.com/cwbudde/algo-frame/dsp/frame"
)

// Pluck returns a coroutine that plays one enveloped tone and then finishes
// the node. "frequency" may be automated while the tone rings; "decay" sets
// the tone length in seconds.
func Pluck() frame.Implementation {
	return frame.Generator(pluck).WithParameterDescriptors(
		frame.ParameterDescriptor{Name: "frequency", MinValue: 20, MaxValue: 20000, DefaultValue: 220, AutomationRate: frame.ARate},
		frame.ParameterDescriptor{Name: "decay", MinValue: 0.01, MaxValue: 10, DefaultValue: 0.5, AutomationRate: frame.KRate},
	)
}

const pluckAttackSeconds = 0.005

func pluck(ctx *frame.Context) iter.Seq[frame.Output] {
	return func(yield func(frame.Output) bool) {
		phase := 0.0
		for age := 0; ; age++ {
			sr := ctx.Env.SampleRate
			attack := max(1, int(pluckAttackSeconds*sr))
			decay := max(attack+1, int(ctx.Params["decay"]*sr))
			if age >= decay {
				return
			}

			v := envelope(age, attack, decay) * math.Sin(phase)
			if !yield(frame.Sample(v)) {
				return
			}

			phase = advance(phase, ctx.Params["frequency"], sr)
		}
	}
}

// envelope is an exponential attack followed by an exponential decay.
func envelope(age, attack, decay int) float64 {
	const start = 0.0001
	const peak = 0.5
	const end = 0.0001

	if age < attack {
		t := float64(age) / float64(attack)
		return start * math.Pow(peak/start, t)
	}

	t := float64(age-attack) / float64(decay-attack)

	return peak * math.Pow(end/peak, t)
}
