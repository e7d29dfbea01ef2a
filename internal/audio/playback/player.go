// Package playback plays an audio stream on the default output device.
package playback

import (
	"fmt"
	"io"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"

	"github.com/cwbudde/algo-frame/internal/audio"
)

// Player owns one device stream.
type Player struct {
	player *ebitaudio.Player
	reader io.ReadCloser
}

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})

	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("playback: audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}

	return audioContext, nil
}

// New creates a paused player pulling from source.
func New(sampleRate int, source audio.SampleSource) (*Player, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}

	reader := audio.NewStreamReader(source)

	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, fmt.Errorf("playback: %w", err)
	}

	return &Player{player: pl, reader: reader}, nil
}

// Play starts or resumes playback.
func (p *Player) Play() { p.player.Play() }

// IsPlaying reports whether the device is still consuming the stream.
func (p *Player) IsPlaying() bool { return p.player.IsPlaying() }

// Position returns the playback position the listener hears.
func (p *Player) Position() time.Duration { return p.player.Position() }

// Close stops playback and releases the stream.
func (p *Player) Close() error {
	p.player.Pause()

	if err := p.player.Close(); err != nil {
		return fmt.Errorf("playback: %w", err)
	}

	return p.reader.Close()
}
