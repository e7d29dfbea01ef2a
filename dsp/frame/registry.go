package frame

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrEmptyName is returned when registering under an empty name.
	ErrEmptyName = errors.New("frame: empty processor name")
	// ErrNilDefinition is returned when registering a nil Definition.
	ErrNilDefinition = errors.New("frame: nil definition")
	// ErrDuplicate is returned when a name is already registered.
	ErrDuplicate = errors.New("frame: duplicate processor name")
)

// DefaultRegistry receives definitions registered with WithRegisterAs when no
// WithRegistry option is given.
var DefaultRegistry = NewRegistry()

// Registry maps processor names to their definitions.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds def under name.
func (r *Registry) Register(name string, def *Definition) error {
	if name == "" {
		return ErrEmptyName
	}

	if def == nil {
		return fmt.Errorf("%w: %s", ErrNilDefinition, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}

	r.defs[name] = def

	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(name string, def *Definition) {
	err := r.Register(name, def)
	if err != nil {
		panic("frame registry: " + err.Error())
	}
}

// Lookup returns the definition registered under name, or nil.
func (r *Registry) Lookup(name string) *Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.defs[name]
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
