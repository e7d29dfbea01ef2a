package demo

import "github.com/cwbudde/algo-frame/dsp/frame"

// Gain returns a memoryless processor that averages every connected input
// channel and scales the result by the "gain" parameter.
func Gain() frame.Implementation {
	return frame.Pure(gainFrame).WithParameterDescriptors(frame.ParameterDescriptor{
		Name:           "gain",
		MinValue:       0,
		MaxValue:       4,
		DefaultValue:   1,
		AutomationRate: frame.ARate,
	})
}

func gainFrame(ctx *frame.Context) frame.Output {
	if len(ctx.Input) == 0 {
		return frame.Sample(0)
	}

	sum := 0.0
	for _, v := range ctx.Input {
		sum += v
	}

	return frame.Sample(sum / float64(len(ctx.Input)) * ctx.Params["gain"])
}
