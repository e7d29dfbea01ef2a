package render

import (
	"github.com/cwbudde/algo-frame/dsp/core"
	"github.com/cwbudde/algo-frame/internal/config"
)

// Automation produces the per-block parameter map for a session. Constant
// params are sent k-rate; ramps are sent a-rate and override a constant of
// the same name.
type Automation struct {
	params map[string][]float64
	ramps  []ramp
	total  int
}

type ramp struct {
	config.Ramp
	values []float64
}

// NewAutomation prepares the parameter stream for s.
func NewAutomation(s *config.Session) *Automation {
	a := &Automation{
		params: make(map[string][]float64, len(s.Params)+len(s.Automation)),
		total:  s.Frames(),
	}

	for name, v := range s.Params {
		a.params[name] = []float64{v}
	}

	for _, r := range s.Automation {
		a.ramps = append(a.ramps, ramp{Ramp: r, values: make([]float64, s.BlockSize)})
	}

	return a
}

// Block returns the parameters for frames [start, start+frames). The
// returned map and its arrays are reused by the next call.
func (a *Automation) Block(start, frames int) map[string][]float64 {
	for i := range a.ramps {
		r := &a.ramps[i]
		if cap(r.values) < frames {
			r.values = make([]float64, frames)
		}
		r.values = r.values[:frames]

		if r.From == r.To {
			core.Fill(r.values, r.From)
		} else {
			for f := range r.values {
				r.values[f] = r.at(start+f, a.total)
			}
		}

		a.params[r.Name] = r.values
	}

	return a.params
}

func (r *ramp) at(frame, total int) float64 {
	if total <= 1 {
		return r.From
	}
	return r.From + (r.To-r.From)*float64(frame)/float64(total-1)
}
