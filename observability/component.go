package observability

import (
	"context"
	"errors"
	"fmt"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/audiotranscriber/component"
	"github.com/kbukum/audiotranscriber/logger"
)

// Component owns the tracer and meter providers.
type Component struct {
	cfg         Config
	service     string
	version     string
	environment string
	log         *logger.Logger
	tp          *sdktrace.TracerProvider
	mp          *sdkmetric.MeterProvider
}

var _ component.Component = (*Component)(nil)

// NewComponent creates the observability component.
func NewComponent(cfg Config, service, version, environment string, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{
		cfg:         cfg,
		service:     service,
		version:     version,
		environment: environment,
		log:         log.WithComponent("observability"),
	}
}

func (c *Component) Name() string { return "observability" }

// Start installs the OTLP tracer and meter providers when enabled.
func (c *Component) Start(ctx context.Context) error {
	if !c.cfg.Enabled {
		c.log.Debug("observability exporters disabled")
		return nil
	}
	tp, err := InitTracer(ctx, TracerConfig{
		ServiceName:    c.service,
		ServiceVersion: c.version,
		Environment:    c.environment,
		Endpoint:       c.cfg.Endpoint,
		Insecure:       c.cfg.Insecure,
		SampleRate:     c.cfg.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("observability start: %w", err)
	}
	mp, err := InitMeter(ctx, MeterConfig{
		ServiceName:    c.service,
		ServiceVersion: c.version,
		Environment:    c.environment,
		Endpoint:       c.cfg.Endpoint,
		Insecure:       c.cfg.Insecure,
		Interval:       c.cfg.Interval,
	})
	if err != nil {
		_ = tp.Shutdown(ctx)
		return fmt.Errorf("observability start: %w", err)
	}
	c.tp, c.mp = tp, mp
	return nil
}

// Stop flushes and shuts down both providers.
func (c *Component) Stop(ctx context.Context) error {
	var errs []error
	if c.mp != nil {
		errs = append(errs, c.mp.Shutdown(ctx))
		c.mp = nil
	}
	if c.tp != nil {
		errs = append(errs, c.tp.Shutdown(ctx))
		c.tp = nil
	}
	return errors.Join(errs...)
}

func (c *Component) Health(_ context.Context) component.Health {
	msg := "exporters disabled"
	if c.cfg.Enabled {
		msg = "exporting to " + c.cfg.Endpoint
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy, Message: msg}
}

func (c *Component) Describe() component.Description {
	details := "disabled"
	if c.cfg.Enabled {
		details = fmt.Sprintf("otlp=%s sample=%.2f interval=%s", c.cfg.Endpoint, c.cfg.SampleRate, c.cfg.Interval)
	}
	return component.Description{Name: "Telemetry", Type: "otel", Details: details}
}
