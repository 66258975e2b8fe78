package redis

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/audiotranscriber/component"
	"github.com/kbukum/audiotranscriber/logger"
)

// Component wraps Client and implements component.Component for lifecycle management.
type Component struct {
	cfg    Config
	log    *logger.Logger
	mu     sync.RWMutex
	client *Client
}

var _ component.Component = (*Component)(nil)

// NewComponent creates a Redis component for use with the component registry.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{
		cfg: cfg,
		log: log.WithComponent("redis"),
	}
}

// Client returns the underlying *Client, or nil if not started.
func (c *Component) Client() *Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// Name returns the component name.
func (c *Component) Name() string { return "redis" }

// Start initializes the Redis client and verifies connectivity.
func (c *Component) Start(ctx context.Context) error {
	client, err := New(c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("redis start: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return fmt.Errorf("redis start ping: %w", err)
	}

	c.mu.Lock()
	c.client = client
	c.mu.Unlock()
	c.log.Info("Redis component started")
	return nil
}

// Stop closes the Redis connection.
func (c *Component) Stop(_ context.Context) error {
	c.mu.Lock()
	client := c.client
	c.client = nil
	c.mu.Unlock()
	if client == nil {
		return nil
	}
	return client.Close()
}

// Health pings Redis.
func (c *Component) Health(ctx context.Context) component.Health {
	client := c.Client()
	if client == nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: "redis not initialized",
		}
	}

	if err := client.Ping(ctx); err != nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: fmt.Sprintf("ping failed: %v", err),
		}
	}

	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

// Describe returns infrastructure summary info for the bootstrap display.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Dedupe store",
		Type:    "redis",
		Details: fmt.Sprintf("%s db=%d ttl=%s", c.cfg.Addr, c.cfg.DB, c.cfg.TTL),
	}
}
