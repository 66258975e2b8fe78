package component

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/audiotranscriber/logger"
)

// DefaultStopTimeout bounds each component's Stop call.
const DefaultStopTimeout = 10 * time.Second

type componentEntry struct {
	component Component
	started   bool
}

// Registry manages component lifecycle with deterministic ordering.
// Components are started in registration order and stopped in reverse order.
type Registry struct {
	entries     []*componentEntry
	lookup      map[string]*componentEntry
	stopTimeout time.Duration
	mu          sync.RWMutex
}

// NewRegistry creates a new component registry.
func NewRegistry() *Registry {
	return &Registry{
		entries:     make([]*componentEntry, 0),
		lookup:      make(map[string]*componentEntry),
		stopTimeout: DefaultStopTimeout,
	}
}

// Register adds a component. Register dependencies first.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if _, exists := r.lookup[name]; exists {
		return fmt.Errorf("component %s already registered", name)
	}

	entry := &componentEntry{component: c}
	r.entries = append(r.entries, entry)
	r.lookup[name] = entry

	logger.Debug("Component registered", logger.Fields("component", name))
	return nil
}

// StartAll starts all components in registration order. On failure the
// components already started are stopped again before the error returns.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	logger.Info("Starting all components", logger.Fields("count", len(r.entries)))

	var startErr error
	for _, entry := range r.entries {
		name := entry.component.Name()
		logger.Debug("Starting component", logger.Fields("component", name))
		if err := entry.component.Start(ctx); err != nil {
			logger.Error("Component start failed", logger.Fields("component", name, logger.FieldError, err.Error()))
			startErr = fmt.Errorf("failed to start %s: %w", name, err)
			break
		}
		entry.started = true
	}
	r.mu.Unlock()

	if startErr != nil {
		_ = r.StopAll(context.WithoutCancel(ctx))
		return startErr
	}
	logger.Info("All components started successfully")
	return nil
}

// StopAll stops started components in reverse registration order.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for i := len(r.entries) - 1; i >= 0; i-- {
		entry := r.entries[i]
		if !entry.started {
			continue
		}

		name := entry.component.Name()
		stopCtx, cancel := context.WithTimeout(ctx, r.stopTimeout)
		if err := entry.component.Stop(stopCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop %s: %w", name, err))
			logger.Error("Component stop failed", logger.Fields("component", name, logger.FieldError, err.Error()))
		} else {
			logger.Info("Component stopped", logger.Fields("component", name))
		}
		entry.started = false
		cancel()
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// HealthAll returns health status for all registered components.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]Health, 0, len(r.entries))
	for _, entry := range r.entries {
		results = append(results, entry.component.Health(ctx))
	}
	return results
}

// Get returns a registered component by name, or nil if not found.
func (r *Registry) Get(name string) Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if entry, exists := r.lookup[name]; exists {
		return entry.component
	}
	return nil
}

// All returns all registered components in registration order.
func (r *Registry) All() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Component, 0, len(r.entries))
	for _, entry := range r.entries {
		result = append(result, entry.component)
	}
	return result
}
