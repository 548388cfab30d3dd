package llm

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrUnknownProvider is returned when resolving a name nobody registered.
var ErrUnknownProvider = errors.New("unknown provider")

// Registry holds the providers available to a process, by name. Configuration
// updates pick an ordered subset of it.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Provider
	order  []string
}

// NewRegistry creates a registry holding providers in registration order.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{byName: make(map[string]Provider)}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds p, replacing any provider registered under the same name.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[p.Name()]; !ok {
		r.order = append(r.order, p.Name())
	}
	r.byName[p.Name()] = p
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byName[name]
	return p, ok
}

// Names lists registered provider names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Resolve maps names to providers, keeping the given order.
func (r *Registry) Resolve(names []string) ([]Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Provider, 0, len(names))
	for _, name := range names {
		p, ok := r.byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
		}
		out = append(out, p)
	}
	return out, nil
}

// Close closes every registered provider that holds resources.
func (r *Registry) Close() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for _, name := range r.order {
		if c, ok := r.byName[name].(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", name, err))
			}
		}
	}
	return errors.Join(errs...)
}
