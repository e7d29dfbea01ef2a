package testutil

import (
	"math"

	"github.com/cwbudde/algo-frame/dsp/core"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// DC generates a constant-valued signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	core.Fill(out, value)
	return out
}

// Ramp generates start, start+step, start+2*step, ...
func Ramp(start, step float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

// Bus returns channels constant channels of the given length.
func Bus(channels, length int, value float64) [][]float64 {
	bus := make([][]float64, channels)
	for ch := range bus {
		bus[ch] = DC(value, length)
	}
	return bus
}
