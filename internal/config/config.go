// Package config loads render and playback sessions from YAML files.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults applied to fields a session file leaves out.
const (
	DefaultSampleRate     = 48000
	DefaultBlockSize      = 128
	DefaultBlocks         = 375
	DefaultOutputChannels = 2
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid session")

// Session describes one run of a registered processor.
type Session struct {
	Processor       string             `yaml:"processor"`
	SampleRate      float64            `yaml:"sample_rate"`
	BlockSize       int                `yaml:"block_size"`
	Blocks          int                `yaml:"blocks"`
	InputChannels   int                `yaml:"input_channels"`
	OutputChannels  int                `yaml:"output_channels"`
	ProcessOnly     bool               `yaml:"process_only"`
	StopAfterBlocks int                `yaml:"stop_after_blocks"`
	Params          map[string]float64 `yaml:"params"`
	Automation      []Ramp             `yaml:"automation"`
}

// Ramp moves a parameter linearly from From to To across the whole session,
// one value per frame.
type Ramp struct {
	Name string  `yaml:"name"`
	From float64 `yaml:"from"`
	To   float64 `yaml:"to"`
}

// Default returns a session with every default filled in and no processor.
func Default() Session {
	return Session{
		SampleRate:     DefaultSampleRate,
		BlockSize:      DefaultBlockSize,
		Blocks:         DefaultBlocks,
		OutputChannels: DefaultOutputChannels,
	}
}

// Load reads a YAML session file, expands environment variables and
// validates the result.
func Load(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("cannot read config file %q: %w", path, err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return s, nil
}

// Parse decodes a session from YAML. Fields absent from data keep their
// Default value.
func Parse(data []byte) (*Session, error) {
	s := Default()

	err := yaml.Unmarshal([]byte(ExpandEnv(string(data))), &s)
	if err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	err = s.Validate()
	if err != nil {
		return nil, err
	}

	return &s, nil
}

// Validate reports the first field that cannot drive a run.
func (s *Session) Validate() error {
	switch {
	case s.Processor == "":
		return fmt.Errorf("%w: processor is required", ErrInvalid)
	case s.SampleRate <= 0:
		return fmt.Errorf("%w: sample_rate must be positive, got %g", ErrInvalid, s.SampleRate)
	case s.BlockSize <= 0:
		return fmt.Errorf("%w: block_size must be positive, got %d", ErrInvalid, s.BlockSize)
	case s.Blocks <= 0:
		return fmt.Errorf("%w: blocks must be positive, got %d", ErrInvalid, s.Blocks)
	case s.InputChannels < 0:
		return fmt.Errorf("%w: input_channels must not be negative", ErrInvalid)
	case s.OutputChannels < 0:
		return fmt.Errorf("%w: output_channels must not be negative", ErrInvalid)
	case s.StopAfterBlocks < 0:
		return fmt.Errorf("%w: stop_after_blocks must not be negative", ErrInvalid)
	}

	for i, r := range s.Automation {
		if r.Name == "" {
			return fmt.Errorf("%w: automation[%d] has no name", ErrInvalid, i)
		}
	}

	return nil
}

// Frames returns the session length in frames.
func (s *Session) Frames() int {
	return s.Blocks * s.BlockSize
}
