package render

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// ErrNoChannels is returned when writing a result without output channels.
var ErrNoChannels = errors.New("render: result has no output channels")

// EncodeWAVFloat32LE encodes interleaved samples as a 32-bit float WAV file.
func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4

	out := make([]byte, 44+dataSize)
	copy(out[0:], "RIFF")
	binary.LittleEndian.PutUint32(out[4:], uint32(36+dataSize))
	copy(out[8:], "WAVE")
	copy(out[12:], "fmt ")
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], "data")
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))

	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}

	return out
}

// WriteWAV writes r to w as a 32-bit float WAV file.
func (r *Result) WriteWAV(w io.Writer) error {
	if len(r.Channels) == 0 {
		return ErrNoChannels
	}

	_, err := w.Write(EncodeWAVFloat32LE(r.Interleaved(), int(r.SampleRate), len(r.Channels)))

	return err
}
