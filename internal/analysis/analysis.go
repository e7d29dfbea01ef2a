// Package analysis summarizes rendered audio: level and dominant frequency.
package analysis

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-frame/dsp/core"
	"github.com/cwbudde/algo-frame/dsp/window"
)

const (
	minFFTSize = 16
	maxFFTSize = 1 << 16
)

// ErrTooShort is returned when a signal is too short for spectral analysis.
var ErrTooShort = errors.New("analysis: signal too short")

// Summary describes one channel.
type Summary struct {
	Peak      float64
	RMS       float64
	PeakDB    float64
	RMSDB     float64
	Frequency float64
}

// Analyze measures level and, when the signal is long enough, the dominant
// frequency of samples. A signal too short for an FFT reports Frequency 0.
func Analyze(samples []float64, sampleRate float64) (Summary, error) {
	s := Summary{
		Peak: Peak(samples),
		RMS:  RMS(samples),
	}
	s.PeakDB = core.LinearToDB(s.Peak)
	s.RMSDB = core.LinearToDB(s.RMS)

	freq, err := DominantFrequency(samples, sampleRate)
	if err != nil && !errors.Is(err, ErrTooShort) {
		return s, err
	}
	s.Frequency = freq

	return s, nil
}

// Peak returns the largest absolute sample value.
func Peak(samples []float64) float64 {
	peak := 0.0
	for _, v := range samples {
		peak = max(peak, math.Abs(v))
	}
	return peak
}

// RMS returns the root mean square of samples.
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range samples {
		sum += v * v
	}

	return math.Sqrt(sum / float64(len(samples)))
}

// Spectrum returns the single-sided amplitude spectrum of the first
// power-of-two run of samples after a periodic Hann window. A full-scale sine
// centred on a bin reads close to its amplitude.
func Spectrum(samples []float64) ([]float64, error) {
	re, im, gain, err := transform(samples)
	if err != nil {
		return nil, err
	}

	mag := make([]float64, len(re))
	vecmath.Magnitude(mag, re, im)
	vecmath.ScaleBlock(mag, mag, 2/gain)

	return mag, nil
}

// DominantFrequency returns the frequency in Hz of the strongest non-DC
// spectral peak, refined by parabolic interpolation of the log power.
func DominantFrequency(samples []float64, sampleRate float64) (float64, error) {
	if sampleRate <= 0 {
		return 0, fmt.Errorf("analysis: invalid sample rate %g", sampleRate)
	}

	re, im, _, err := transform(samples)
	if err != nil {
		return 0, err
	}

	power := make([]float64, len(re))
	vecmath.Power(power, re, im)

	best := 1
	for k := 2; k < len(power); k++ {
		if power[k] > power[best] {
			best = k
		}
	}

	if power[best] == 0 {
		return 0, nil
	}

	bin := float64(best)
	if best > 0 && best < len(power)-1 {
		bin += parabolicOffset(power[best-1], power[best], power[best+1])
	}

	fftSize := 2 * (len(power) - 1)

	return bin * sampleRate / float64(fftSize), nil
}

// transform windows and transforms samples, returning the real and imaginary
// parts of bins 0..N/2 and the window's coherent gain sum.
func transform(samples []float64) (re, im []float64, gain float64, err error) {
	n := fftSize(len(samples))
	if n < minFFTSize {
		return nil, nil, 0, fmt.Errorf("%w: %d samples", ErrTooShort, len(samples))
	}

	win := window.Generate(window.TypeHann, n, window.WithPeriodic())
	windowed := make([]float64, n)
	vecmath.MulBlock(windowed, samples[:n], win)
	gain = window.CoherentGain(win)

	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("analysis: fft plan: %w", err)
	}

	in := make([]complex128, n)
	for i, v := range windowed {
		in[i] = complex(v, 0)
	}

	out := make([]complex128, n)

	err = plan.Forward(out, in)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("analysis: fft forward: %w", err)
	}

	bins := n/2 + 1
	re = make([]float64, bins)
	im = make([]float64, bins)

	for k := range bins {
		re[k] = real(out[k])
		im[k] = imag(out[k])
	}

	return re, im, gain, nil
}

func fftSize(length int) int {
	if length < minFFTSize {
		return 0
	}

	n := 1
	for n*2 <= length && n*2 <= maxFFTSize {
		n *= 2
	}

	return n
}

func parabolicOffset(left, centre, right float64) float64 {
	const floor = 1e-300

	a := math.Log(max(left, floor))
	b := math.Log(max(centre, floor))
	c := math.Log(max(right, floor))

	den := a - 2*b + c
	if core.NearlyEqual(den, 0, 0) {
		return 0
	}

	return core.Clamp(0.5*(a-c)/den, -0.5, 0.5)
}
