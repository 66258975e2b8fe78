package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/audiotranscriber/coordinator"
	"github.com/kbukum/audiotranscriber/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName: serviceName,
		Environment: "development",
		Endpoint:    "localhost:4318",
		Insecure:    true,
		Interval:    15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider and installs it
// globally. The provider must be shut down on exit to flush the last export.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(ctx, config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metric names.
const (
	MetricRecordsTotal    = "records.total"
	MetricRecordDuration  = "record.duration"
	MetricEngineCalls     = "engine.calls"
	MetricEngineDuration  = "engine.duration"
	MetricRequestTotal    = "request.total"
	MetricRequestDuration = "request.duration"
	MetricRequestActive   = "request.active"
)

// Metrics holds the pipeline's metric instruments. It satisfies
// coordinator.Metrics.
type Metrics struct {
	recordsTotal    metric.Int64Counter
	recordDuration  metric.Float64Histogram
	engineCalls     metric.Int64Counter
	engineDuration  metric.Float64Histogram
	requestTotal    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestActive   metric.Int64UpDownCounter
}

var _ coordinator.Metrics = (*Metrics)(nil)

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	recordsTotal, err := meter.Int64Counter(MetricRecordsTotal,
		metric.WithDescription("Records finished, by final state and error kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricRecordsTotal, err)
	}

	recordDuration, err := meter.Float64Histogram(MetricRecordDuration,
		metric.WithDescription("Time from admission to final state"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricRecordDuration, err)
	}

	engineCalls, err := meter.Int64Counter(MetricEngineCalls,
		metric.WithDescription("Transcription and transcode engine invocations"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricEngineCalls, err)
	}

	engineDuration, err := meter.Float64Histogram(MetricEngineDuration,
		metric.WithDescription("Duration of engine invocations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricEngineDuration, err)
	}

	requestTotal, err := meter.Int64Counter(MetricRequestTotal,
		metric.WithDescription("Total number of ingest requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricRequestTotal, err)
	}

	requestDuration, err := meter.Float64Histogram(MetricRequestDuration,
		metric.WithDescription("Duration of ingest requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricRequestDuration, err)
	}

	requestActive, err := meter.Int64UpDownCounter(MetricRequestActive,
		metric.WithDescription("Number of in-flight ingest requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s gauge: %w", MetricRequestActive, err)
	}

	return &Metrics{
		recordsTotal:    recordsTotal,
		recordDuration:  recordDuration,
		engineCalls:     engineCalls,
		engineDuration:  engineDuration,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestActive:   requestActive,
	}, nil
}

// RecordOutcome counts one finished record.
func (m *Metrics) RecordOutcome(ctx context.Context, state, kind string, elapsed time.Duration) {
	m.recordsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrState, state),
		attribute.String(AttrErrorKind, kind),
	))
	m.recordDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String(AttrState, state),
	))
}

// RecordEngineCall counts one engine invocation.
func (m *Metrics) RecordEngineCall(ctx context.Context, engine string, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.engineCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrEngine, engine),
		attribute.String(AttrStatus, status),
	))
	m.engineDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String(AttrEngine, engine),
	))
}

// RecordRequestStart increments the active request count.
func (m *Metrics) RecordRequestStart(ctx context.Context) {
	m.requestActive.Add(ctx, 1)
}

// RecordRequestEnd decrements active requests and records the completed request.
func (m *Metrics) RecordRequestEnd(ctx context.Context, route, status string, duration time.Duration) {
	m.requestActive.Add(ctx, -1)
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrRoute, route),
		attribute.String(AttrStatus, status),
	))
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(AttrRoute, route),
	))
}
