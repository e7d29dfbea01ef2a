package frame

import (
	"go.uber.org/zap"

	"github.com/cwbudde/algo-frame/dsp/core"
)

type config struct {
	proc        core.ProcessorConfig
	procOpts    []core.ProcessorOption
	processOnly bool
	descriptors []ParameterDescriptor
	onMessage   func(msg any)
	registerAs  string
	registry    *Registry
	logger      *zap.Logger
}

// Option configures a Definition or an Adapter.
type Option func(*config)

func applyOptions(opts []Option) config {
	var cfg config
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	cfg.proc = core.ApplyProcessorOptions(cfg.procOpts...)
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	return cfg
}

// WithProcessOnly makes Process report that the node may be released once
// its input bus is disconnected.
func WithProcessOnly(processOnly bool) Option {
	return func(cfg *config) {
		cfg.processOnly = processOnly
	}
}

// WithParameterDescriptors sets the descriptors forwarded to the host. They
// are ignored when the implementation declares its own.
func WithParameterDescriptors(descriptors ...ParameterDescriptor) Option {
	return func(cfg *config) {
		cfg.descriptors = append([]ParameterDescriptor(nil), descriptors...)
	}
}

// WithOnMessage installs a listener that receives every inbound control
// message after the stop check. It cannot prevent a stop.
func WithOnMessage(fn func(msg any)) Option {
	return func(cfg *config) {
		cfg.onMessage = fn
	}
}

// WithRegisterAs registers the Definition under name when it is defined.
func WithRegisterAs(name string) Option {
	return func(cfg *config) {
		cfg.registerAs = name
	}
}

// WithRegistry selects the registry used by WithRegisterAs instead of
// DefaultRegistry.
func WithRegistry(r *Registry) Option {
	return func(cfg *config) {
		cfg.registry = r
	}
}

// WithSampleRate sets the sample rate until the host calls SetSampleRate.
func WithSampleRate(sampleRate float64) Option {
	return func(cfg *config) {
		cfg.procOpts = append(cfg.procOpts, core.WithSampleRate(sampleRate))
	}
}

// WithBlockSize sets the block length used when a Process call carries
// neither input nor output channels.
func WithBlockSize(blockSize int) Option {
	return func(cfg *config) {
		cfg.procOpts = append(cfg.procOpts, core.WithBlockSize(blockSize))
	}
}

// WithInputChannels sizes the preallocated Context.Input.
func WithInputChannels(channels int) Option {
	return func(cfg *config) {
		cfg.procOpts = append(cfg.procOpts, core.WithInputChannels(channels))
	}
}

// WithOutputChannels sets the output channel count reported in Context.Env
// before the first block.
func WithOutputChannels(channels int) Option {
	return func(cfg *config) {
		cfg.procOpts = append(cfg.procOpts, core.WithOutputChannels(channels))
	}
}

// WithLogger sets the logger for lifecycle events. Nothing is logged per frame.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}
