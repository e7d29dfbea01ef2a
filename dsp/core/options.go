package core

// ProcessorConfig defines the host-facing processing settings of a node.
type ProcessorConfig struct {
	SampleRate     float64
	BlockSize      int
	InputChannels  int
	OutputChannels int
}

// ProcessorOption mutates a ProcessorConfig.
type ProcessorOption func(*ProcessorConfig)

// DefaultProcessorConfig returns the defaults of a Web Audio style render
// quantum: 48 kHz, 128-frame blocks, stereo in and out.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		SampleRate:     48000,
		BlockSize:      128,
		InputChannels:  2,
		OutputChannels: 2,
	}
}

// WithSampleRate sets the processing sample rate.
func WithSampleRate(sampleRate float64) ProcessorOption {
	return func(cfg *ProcessorConfig) {
		if sampleRate > 0 {
			cfg.SampleRate = sampleRate
		}
	}
}

// WithBlockSize sets the processing block size.
func WithBlockSize(blockSize int) ProcessorOption {
	return func(cfg *ProcessorConfig) {
		if blockSize > 0 {
			cfg.BlockSize = blockSize
		}
	}
}

// WithInputChannels sets the expected input channel count. Zero is valid
// and describes a source node with nothing connected.
func WithInputChannels(channels int) ProcessorOption {
	return func(cfg *ProcessorConfig) {
		if channels >= 0 {
			cfg.InputChannels = channels
		}
	}
}

// WithOutputChannels sets the output channel count known at construction.
func WithOutputChannels(channels int) ProcessorOption {
	return func(cfg *ProcessorConfig) {
		if channels >= 0 {
			cfg.OutputChannels = channels
		}
	}
}

// ApplyProcessorOptions applies zero or more options to the default config.
func ApplyProcessorOptions(opts ...ProcessorOption) ProcessorConfig {
	cfg := DefaultProcessorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
