package core

// EnsureLen returns a slice with the requested length, reusing buf capacity if possible.
func EnsureLen(buf []float64, n int) []float64 {
	if n <= 0 {
		return buf[:0]
	}
	if cap(buf) >= n {
		return buf[:n]
	}
	grown := make([]float64, n)
	copy(grown, buf)
	return grown
}

// Zero sets all values in buf to 0.
func Zero(buf []float64) {
	for i := range buf {
		buf[i] = 0
	}
}

// Fill sets all values in buf to v.
func Fill(buf []float64, v float64) {
	for i := range buf {
		buf[i] = v
	}
}

// CopyInto copies src into dst and returns the number of copied elements.
func CopyInto(dst, src []float64) int {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	copy(dst[:n], src[:n])
	return n
}

// EnsureBus returns a channels x frames bus, reusing the channel slices of
// bus where their capacity allows. Reused channels are zeroed.
func EnsureBus(bus [][]float64, channels, frames int) [][]float64 {
	if channels < 0 {
		channels = 0
	}
	if cap(bus) >= channels {
		bus = bus[:channels]
	} else {
		grown := make([][]float64, channels)
		copy(grown, bus)
		bus = grown
	}
	for ch := range bus {
		bus[ch] = EnsureLen(bus[ch], frames)
		Zero(bus[ch])
	}
	return bus
}

// Interleave writes frames of bus into dst as interleaved float32 samples
// with the given channel stride and returns the number of frames written.
// Missing bus channels are written as silence.
func Interleave(dst []float32, bus [][]float64, stride int) int {
	if stride <= 0 {
		return 0
	}
	frames := len(dst) / stride
	for ch := 0; ch < stride; ch++ {
		if ch >= len(bus) {
			for i := 0; i < frames; i++ {
				dst[i*stride+ch] = 0
			}
			continue
		}
		src := bus[ch]
		for i := 0; i < frames; i++ {
			var v float64
			if i < len(src) {
				v = src[i]
			}
			dst[i*stride+ch] = float32(v)
		}
	}
	return frames
}
