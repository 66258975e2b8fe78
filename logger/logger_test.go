package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected a log line, got none")
	}
	if idx := strings.LastIndex(line, "\n"); idx >= 0 {
		line = line[idx+1:]
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("invalid JSON log line %q: %v", line, err)
	}
	return m
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.Service() != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.Service())
	}
}

func TestNewInvalidLevel(t *testing.T) {
	l := New(&Config{Level: "invalid-level", Format: FormatJSON, Output: "stdout"}, "test")
	if l == nil {
		t.Fatal("expected logger to be created even with invalid level")
	}
}

func TestNewWithWriter_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "debug", "transcriber")

	l.WithComponent("coordinator").Warn("record dropped", Fields(
		FieldAudioID, "/a/audio.mp3",
		FieldErrorKind, "TRANSCRIPTION_ERROR",
	))

	m := decodeLine(t, &buf)
	if m["message"] != "record dropped" {
		t.Errorf("unexpected message %v", m["message"])
	}
	if m[FieldComponent] != "coordinator" {
		t.Errorf("expected component field, got %v", m[FieldComponent])
	}
	if m[FieldAudioID] != "/a/audio.mp3" {
		t.Errorf("expected audio_id field, got %v", m[FieldAudioID])
	}
	if m[FieldService] != "transcriber" {
		t.Errorf("expected service field, got %v", m[FieldService])
	}
	if m["level"] != "warn" {
		t.Errorf("expected warn level, got %v", m["level"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "warn", "svc")
	l.Info("hidden")
	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected info/debug to be filtered, got %q", buf.String())
	}
	l.Error("shown")
	if buf.Len() == 0 {
		t.Error("expected error line")
	}
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info", "svc")

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithRecordID(ctx, "rec-9")
	l.WithContext(ctx).Info("hello")

	m := decodeLine(t, &buf)
	if m[FieldRequestID] != "req-1" {
		t.Errorf("expected request_id, got %v", m[FieldRequestID])
	}
	if m[FieldRecordID] != "rec-9" {
		t.Errorf("expected record_id, got %v", m[FieldRecordID])
	}
	if _, ok := m[FieldTraceID]; ok {
		t.Error("trace_id should be absent when not set")
	}
	if RequestIDFromContext(ctx) != "req-1" {
		t.Error("RequestIDFromContext mismatch")
	}
}

func TestWithErrorAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info", "svc")
	l.WithFields(map[string]interface{}{"k": "v"}).WithError(errors.New("boom")).Error("failed")

	m := decodeLine(t, &buf)
	if m["k"] != "v" {
		t.Errorf("expected k=v, got %v", m["k"])
	}
	if m["error"] != "boom" {
		t.Errorf("expected error=boom, got %v", m["error"])
	}
}

func TestNop(t *testing.T) {
	l := NewNop()
	l.Info("nothing")
	l.WithComponent("x").Error("nothing")
}

func TestFieldsHelpers(t *testing.T) {
	f := Fields("a", 1, "b")
	if len(f) != 1 || f["a"] != 1 {
		t.Errorf("unexpected fields %v", f)
	}

	ef := ErrorFields("stage", errors.New("disk full"))
	if ef[FieldOperation] != "stage" || ef[FieldError] != "disk full" {
		t.Errorf("unexpected error fields %v", ef)
	}

	df := DurationFields("transcribe", 1500*time.Millisecond)
	if df[FieldDuration] != int64(1500) {
		t.Errorf("expected 1500ms, got %v", df[FieldDuration])
	}
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	if cfg.Level != "info" || cfg.Format != FormatJSON || cfg.Output != "stderr" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}

	cfg.Level = "loud"
	if err := cfg.Validate(); err == nil {
		t.Error("expected invalid level error")
	}
	cfg.Level = "info"
	cfg.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Error("expected invalid format error")
	}
}

func TestRegistry(t *testing.T) {
	var buf bytes.Buffer
	named := NewWithWriter(&buf, "info", "svc")
	Register("kafka-test", named)
	if Get("kafka-test") != named {
		t.Error("expected registered logger")
	}
	if Get("unregistered-component") == nil {
		t.Error("expected fallback logger")
	}
}

func TestInitSetsGlobal(t *testing.T) {
	prev := GetGlobalLogger()
	defer SetGlobalLogger(prev)

	l := Init(&Config{Format: FormatJSON, Output: "stderr"}, "init-svc")
	if GetGlobalLogger() != l {
		t.Error("expected Init to install the global logger")
	}
	if l.Service() != "init-svc" {
		t.Errorf("expected service init-svc, got %q", l.Service())
	}
}
