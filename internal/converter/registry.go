package converter

import (
	"fmt"
	"sync"
)

// Registry keeps the available backends in registration order.
type Registry struct {
	mu       sync.RWMutex
	order    []string
	entries  map[string]Converter
	disabled map[string]bool
}

func NewRegistry() *Registry {
	return &Registry{
		entries:  make(map[string]Converter),
		disabled: make(map[string]bool),
	}
}

// Register registers a converter, replacing one with the same name
func (r *Registry) Register(c Converter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[c.Name()]; !ok {
		r.order = append(r.order, c.Name())
	}
	r.entries[c.Name()] = c
}

// Get retrieves a converter by name
func (r *Registry) Get(name string) (Converter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.entries[name]
	return c, ok
}

// List returns all registered converters
func (r *Registry) List() []Converter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	converters := make([]Converter, 0, len(r.order))
	for _, name := range r.order {
		converters = append(converters, r.entries[name])
	}
	return converters
}

// ListInfo returns information about all registered converters
func (r *Registry) ListInfo() []ConverterInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]ConverterInfo, 0, len(r.order))
	for _, name := range r.order {
		infos = append(infos, ConverterInfo{Name: name, Enabled: !r.disabled[name]})
	}
	return infos
}

// Resolve returns the named converter when it is registered and enabled.
// With an empty name the first enabled converter is used.
func (r *Registry) Resolve(name string) (Converter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name != "" {
		c, ok := r.entries[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s is not registered", ErrNoConverter, name)
		}
		if r.disabled[name] {
			return nil, fmt.Errorf("%w: %s is disabled", ErrNoConverter, name)
		}
		return c, nil
	}

	for _, n := range r.order {
		if !r.disabled[n] {
			return r.entries[n], nil
		}
	}
	return nil, ErrNoConverter
}

// Enable enables a converter by name
func (r *Registry) Enable(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[name]; !ok {
		return fmt.Errorf("converter not found: %s", name)
	}

	delete(r.disabled, name)
	return nil
}

// Disable disables a converter by name
func (r *Registry) Disable(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[name]; !ok {
		return fmt.Errorf("converter not found: %s", name)
	}

	r.disabled[name] = true
	return nil
}

// IsEnabled checks if a converter is enabled
func (r *Registry) IsEnabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok && !r.disabled[name]
}
