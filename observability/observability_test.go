package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/audiotranscriber/component"
	"github.com/kbukum/audiotranscriber/logger"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// sumOf returns the int64 counter total for name, filtered by attrs.
func sumOf(t *testing.T, reader *sdkmetric.ManualReader, name string, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s is %T", name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				if hasAll(dp.Attributes, attrs) {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func hasAll(set attribute.Set, attrs []attribute.KeyValue) bool {
	for _, kv := range attrs {
		v, ok := set.Value(kv.Key)
		if !ok || v != kv.Value {
			return false
		}
	}
	return true
}

func TestMetrics_RecordOutcome(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordOutcome(ctx, "Emitted", "", 500*time.Millisecond)
	m.RecordOutcome(ctx, "Emitted", "", time.Second)
	m.RecordOutcome(ctx, "Dropped", "TRANSCRIPTION_ERROR", time.Second)

	if got := sumOf(t, reader, MetricRecordsTotal); got != 3 {
		t.Errorf("records.total = %d, want 3", got)
	}
	if got := sumOf(t, reader, MetricRecordsTotal, attribute.String(AttrState, "Emitted")); got != 2 {
		t.Errorf("emitted = %d, want 2", got)
	}
	if got := sumOf(t, reader, MetricRecordsTotal, attribute.String(AttrErrorKind, "TRANSCRIPTION_ERROR")); got != 1 {
		t.Errorf("transcription errors = %d, want 1", got)
	}
}

func TestMetrics_RecordEngineCall(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordEngineCall(ctx, "mlx", time.Second, nil)
	m.RecordEngineCall(ctx, "mlx", time.Second, errors.New("exit 1"))
	m.RecordEngineCall(ctx, "ffmpeg", time.Second, nil)

	if got := sumOf(t, reader, MetricEngineCalls, attribute.String(AttrEngine, "mlx")); got != 2 {
		t.Errorf("mlx calls = %d, want 2", got)
	}
	if got := sumOf(t, reader, MetricEngineCalls, attribute.String(AttrStatus, "error")); got != 1 {
		t.Errorf("failed calls = %d, want 1", got)
	}
}

func TestOperationContext_RecordsRequest(t *testing.T) {
	m, reader := newTestMetrics(t)
	oc := NewOperationContext("audiotranscriber", "POST /v1/records", "req-1", m)
	oc.Subject = "ingest-bot"

	ctx, span := oc.StartSpanForOperation(context.Background(), SpanHTTPRequest)
	if got := sumOf(t, reader, MetricRequestActive); got != 1 {
		t.Errorf("active during request = %d", got)
	}
	oc.EndOperation(ctx, span, "200", nil)

	if got := sumOf(t, reader, MetricRequestActive); got != 0 {
		t.Errorf("active after request = %d", got)
	}
	if got := sumOf(t, reader, MetricRequestTotal, attribute.String(AttrRoute, "POST /v1/records")); got != 1 {
		t.Errorf("request.total = %d", got)
	}
}

func TestOperationContext_SpanAttributes(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	oc := NewOperationContext("audiotranscriber", "POST /v1/records", "req-1", nil)
	ctx, span := oc.StartSpanForOperation(context.Background(), SpanHTTPRequest)
	SetSpanAttribute(ctx, AttrRecords, 3)
	oc.EndOperation(ctx, span, "500", errors.New("boom"))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("spans = %d", len(spans))
	}
	got := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes {
		got[kv.Key] = kv.Value
	}
	if got[AttrRequestID].AsString() != "req-1" || got[AttrStatus].AsString() != "500" {
		t.Errorf("attributes = %v", got)
	}
	if got[AttrRecords].AsInt64() != 3 {
		t.Errorf("records attribute = %v", got[AttrRecords])
	}
	if got[AttrErrorMessage].AsString() != "boom" {
		t.Errorf("error attribute = %v", got[AttrErrorMessage])
	}
}

func TestOperationContextFromContext(t *testing.T) {
	if OperationContextFromContext(context.Background()) != nil {
		t.Error("expected nil when operation context not set")
	}
	oc := NewOperationContext("svc", "op", "req-1", nil)
	ctx := WithOperationContext(context.Background(), oc)
	if OperationContextFromContext(ctx) != oc {
		t.Error("operation context not retrieved")
	}
}

func TestSetSpanHelpers_NoSpan(t *testing.T) {
	ctx := context.Background()
	SetSpanAttribute(ctx, "key", "value")
	SetSpanError(ctx, errors.New("no span"))
}

func TestServiceHealth_AddComponents(t *testing.T) {
	sh := NewServiceHealth("audiotranscriber", "1.0.0")
	sh.AddComponents([]component.Health{
		{Name: "kafka", Status: component.StatusHealthy},
		{Name: "redis", Status: component.StatusDegraded},
	})
	if sh.Status != HealthStatusDegraded {
		t.Errorf("status = %s, want degraded", sh.Status)
	}
	sh.AddComponents([]component.Health{{Name: "database", Status: component.StatusUnhealthy, Message: "ping failed"}})
	if sh.Status != HealthStatusDown {
		t.Errorf("status = %s, want down", sh.Status)
	}
	sh.AddComponent(Health{Name: "late", Status: HealthStatusDegraded})
	if sh.Status != HealthStatusDown {
		t.Error("degraded must not override down")
	}
	if len(sh.Components) != 4 || sh.Components[2].Message != "ping failed" {
		t.Errorf("components = %+v", sh.Components)
	}
}

func TestConfig(t *testing.T) {
	var c Config
	c.ApplyDefaults()
	if c.Endpoint != "localhost:4318" || c.SampleRate != 1.0 || c.Interval != 15*time.Second {
		t.Errorf("defaults = %+v", c)
	}
	c.Enabled = true
	c.SampleRate = 1.5
	if err := c.Validate(); err == nil {
		t.Error("expected sample rate error")
	}
}

func TestComponent_Disabled(t *testing.T) {
	c := NewComponent(Config{}, "audiotranscriber", "dev", "test", logger.NewNop())
	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if h := c.Health(ctx); h.Status != component.StatusHealthy || h.Message != "exporters disabled" {
		t.Errorf("health = %+v", h)
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestSampler(t *testing.T) {
	if d := sampler(0).Description(); d != "AlwaysOffSampler" {
		t.Errorf("sampler(0) = %s", d)
	}
	if d := sampler(1).Description(); d == "AlwaysOffSampler" {
		t.Errorf("sampler(1) = %s", d)
	}
}
