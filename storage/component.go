package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/audiotranscriber/component"
	"github.com/kbukum/audiotranscriber/logger"
)

// healthProbeKey is looked up by Health; it need not exist.
const healthProbeKey = ".health"

// Component wraps Storage and implements component.Component for lifecycle management.
type Component struct {
	cfg     Config
	log     *logger.Logger
	mu      sync.RWMutex
	storage Storage
}

var _ component.Component = (*Component)(nil)

// NewComponent creates a storage component for use with the component registry.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{
		cfg: cfg,
		log: log.WithComponent("storage"),
	}
}

// Storage returns the archive, or nil if not started or disabled.
func (c *Component) Storage() Storage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.storage
}

// Name returns the component name.
func (c *Component) Name() string { return "storage" }

// Start initializes the storage backend.
func (c *Component) Start(_ context.Context) error {
	if !c.cfg.Enabled {
		c.log.Info("storage component is disabled")
		return nil
	}

	s, err := New(c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("storage start: %w", err)
	}
	c.mu.Lock()
	c.storage = s
	c.mu.Unlock()
	return nil
}

// Stop releases the backend.
func (c *Component) Stop(_ context.Context) error {
	c.mu.Lock()
	c.storage = nil
	c.mu.Unlock()
	return nil
}

// Health probes the backend with an existence check.
func (c *Component) Health(ctx context.Context) component.Health {
	if !c.cfg.Enabled {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusHealthy,
			Message: "disabled",
		}
	}

	s := c.Storage()
	if s == nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: "storage not initialized",
		}
	}

	if _, err := s.Exists(ctx, healthProbeKey); err != nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: fmt.Sprintf("health probe failed: %v", err),
		}
	}

	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

// Describe returns infrastructure summary info for the bootstrap display.
func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("provider=%s", c.cfg.Provider)
	switch c.cfg.Provider {
	case ProviderS3:
		details += fmt.Sprintf(" bucket=%s", c.cfg.Bucket)
	case ProviderLocal:
		details += fmt.Sprintf(" path=%s", c.cfg.BasePath)
	}
	if c.cfg.Prefix != "" {
		details += fmt.Sprintf(" prefix=%s", c.cfg.Prefix)
	}
	return component.Description{
		Name:    "Audio archive",
		Type:    "storage",
		Details: details,
	}
}
