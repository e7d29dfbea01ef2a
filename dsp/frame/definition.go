package frame

// Definition is a block-processor type: an implementation together with the
// options every node built from it starts with.
type Definition struct {
	impl Implementation
	opts []Option
	cfg  config
}

// Define creates a Definition. With WithRegisterAs it is also registered,
// in the WithRegistry registry or DefaultRegistry.
func Define(impl Implementation, opts ...Option) (*Definition, error) {
	d := &Definition{
		impl: impl,
		opts: append([]Option(nil), opts...),
		cfg:  applyOptions(opts),
	}

	if name := d.cfg.registerAs; name != "" {
		reg := d.cfg.registry
		if reg == nil {
			reg = DefaultRegistry
		}

		err := reg.Register(name, d)
		if err != nil {
			return nil, err
		}
	}

	return d, nil
}

// Name returns the name the definition was registered under, if any.
func (d *Definition) Name() string {
	return d.cfg.registerAs
}

// Kind reports the call contract of the definition's implementation.
func (d *Definition) Kind() Kind {
	return d.impl.kind
}

// ParameterDescriptors returns the descriptors to hand to the host.
func (d *Definition) ParameterDescriptors() []ParameterDescriptor {
	return resolveDescriptors(d.impl, d.cfg)
}

// New instantiates one node. opts are applied after the definition's own.
func (d *Definition) New(port Port, opts ...Option) *Adapter {
	all := make([]Option, 0, len(d.opts)+len(opts))
	all = append(all, d.opts...)
	all = append(all, opts...)

	return New(d.impl, port, all...)
}

func resolveDescriptors(impl Implementation, cfg config) []ParameterDescriptor {
	if len(impl.descriptors) > 0 {
		return impl.descriptors
	}
	return cfg.descriptors
}
