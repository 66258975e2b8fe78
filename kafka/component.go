package kafka

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kbukum/audiotranscriber/component"
	"github.com/kbukum/audiotranscriber/logger"
)

// Closer is satisfied by the producer.
type Closer interface {
	Close() error
}

// Component ties the Kafka clients to the process lifecycle. The record
// source is closed by the pipeline that drains it; the producer is closed
// here, after the pipeline has stopped emitting.
type Component struct {
	cfg      Config
	log      *logger.Logger
	producer Closer
	consumes bool
	mu       sync.Mutex
	running  bool
}

var _ component.Component = (*Component)(nil)

// NewComponent creates the Kafka lifecycle component.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("kafka")}
}

// SetProducer registers the producer to close on Stop.
func (c *Component) SetProducer(p Closer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.producer = p
}

// SetConsuming marks the component as feeding the pipeline, for the summary.
func (c *Component) SetConsuming(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consumes = v
}

func (c *Component) Name() string { return "kafka" }

func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	c.log.Info("Kafka component started")
	return nil
}

// Stop closes the producer, flushing pending writes.
func (c *Component) Stop(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil
	}
	c.running = false
	if c.producer != nil {
		if err := c.producer.Close(); err != nil {
			return fmt.Errorf("close producer: %w", err)
		}
	}
	return nil
}

// Health dials the first broker and reads cluster metadata.
func (c *Component) Health(ctx context.Context) component.Health {
	c.mu.Lock()
	running := c.running
	cfg := c.cfg
	c.mu.Unlock()

	h := component.Health{Name: c.Name(), Status: component.StatusUnhealthy}
	if !running {
		h.Message = "kafka not started"
		return h
	}
	dialer, err := NewDialer(&cfg)
	if err != nil {
		h.Message = fmt.Sprintf("dialer: %v", err)
		return h
	}
	conn, err := dialer.DialContext(ctx, "tcp", cfg.Brokers[0])
	if err != nil {
		h.Message = fmt.Sprintf("broker unreachable: %v", err)
		return h
	}
	defer conn.Close()

	if _, err := conn.Brokers(); err != nil {
		h.Status = component.StatusDegraded
		h.Message = fmt.Sprintf("broker metadata: %v", err)
		return h
	}
	h.Status = component.StatusHealthy
	return h
}

// Describe reports brokers and topics for the startup summary.
func (c *Component) Describe() component.Description {
	c.mu.Lock()
	defer c.mu.Unlock()

	details := "brokers=" + strings.Join(c.cfg.Brokers, ",")
	if c.consumes {
		details += fmt.Sprintf(" group=%s topics=%s", c.cfg.GroupID, strings.Join(c.cfg.Topics, ","))
	}
	if c.producer != nil {
		details += " producer=yes"
	}
	return component.Description{Name: "Kafka", Type: "kafka", Details: details}
}
