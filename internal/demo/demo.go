// Package demo provides one small processor per implementation shape. They
// exist to exercise hosts and tooling, not as signal-processing building
// blocks.
package demo

import (
	"fmt"

	"github.com/cwbudde/algo-frame/dsp/frame"
)

// Processor names registered by Register.
const (
	NameGain  = "gain"
	NameSine  = "sine"
	NamePluck = "pluck"
	NameClick = "click"
)

// Register defines every demo processor in r. opts are applied to each
// definition before its name.
func Register(r *frame.Registry, opts ...frame.Option) error {
	impls := []struct {
		name string
		impl frame.Implementation
	}{
		{NameGain, Gain()},
		{NameSine, Sine()},
		{NamePluck, Pluck()},
		{NameClick, Click()},
	}

	for _, entry := range impls {
		all := append(append([]frame.Option(nil), opts...),
			frame.WithRegistry(r),
			frame.WithRegisterAs(entry.name),
		)

		_, err := frame.Define(entry.impl, all...)
		if err != nil {
			return fmt.Errorf("demo: define %s: %w", entry.name, err)
		}
	}

	return nil
}

// NewRegistry returns a registry holding every demo processor.
func NewRegistry(opts ...frame.Option) (*frame.Registry, error) {
	r := frame.NewRegistry()
	if err := Register(r, opts...); err != nil {
		return nil, err
	}
	return r, nil
}
