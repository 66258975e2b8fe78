package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry maps backend names to factories.
type Registry[C any, T Provider] struct {
	mu        sync.RWMutex
	factories map[string]Factory[C, T]
}

// NewRegistry creates an empty Registry.
func NewRegistry[C any, T Provider]() *Registry[C, T] {
	return &Registry[C, T]{factories: make(map[string]Factory[C, T])}
}

// RegisterFactory registers factory under name, replacing any earlier one.
func (r *Registry[C, T]) RegisterFactory(name string, factory Factory[C, T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Has reports whether a factory is registered under name.
func (r *Registry[C, T]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Create builds the backend registered under name.
func (r *Registry[C, T]) Create(ctx context.Context, name string, cfg C) (T, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("provider %q not registered (available: %v)", name, r.List())
	}
	return factory(ctx, cfg)
}

// List returns the registered names, sorted.
func (r *Registry[C, T]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
