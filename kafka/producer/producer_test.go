package producer

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/audiotranscriber/coordinator"
	"github.com/kbukum/audiotranscriber/errors"
	"github.com/kbukum/audiotranscriber/kafka"
	"github.com/kbukum/audiotranscriber/record"
	"github.com/kbukum/audiotranscriber/resilience"
)

type fakeWriter struct {
	mu       sync.Mutex
	failures []error
	calls    int
	written  []kafkago.Message
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return err
	}
	f.written = append(f.written, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, BackoffFactor: 1}
}

func header(m kafkago.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestEmitter_WritesRecordToTagTopic(t *testing.T) {
	w := &fakeWriter{}
	e := &Emitter{Producer: NewWithWriter(w, fastRetry(), nil)}

	rec := record.FromPairs("path", "/a/b.mp3", "transcription", "こんにちは", "segments_count", 1)
	if err := e.Emit(context.Background(), "audio.transcribed", rec); err != nil {
		t.Fatal(err)
	}
	if len(w.written) != 1 {
		t.Fatalf("written = %d", len(w.written))
	}
	m := w.written[0]
	if m.Topic != "audio.transcribed" || string(m.Key) != "/a/b.mp3" {
		t.Errorf("topic = %q key = %q", m.Topic, m.Key)
	}
	if string(m.Value) != `{"path":"/a/b.mp3","transcription":"こんにちは","segments_count":1}` {
		t.Errorf("value = %s", m.Value)
	}
	if header(m, "content-type") != "application/json" {
		t.Errorf("headers = %v", m.Headers)
	}
}

func TestProducer_RetriesTransientErrors(t *testing.T) {
	w := &fakeWriter{failures: []error{stderrors.New("leader not available"), stderrors.New("request timed out")}}
	p := NewWithWriter(w, fastRetry(), nil)

	if err := p.WriteJSON(context.Background(), "t", "k", map[string]int{"a": 1}); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if w.calls != 3 {
		t.Errorf("calls = %d", w.calls)
	}
}

func TestProducer_PermanentErrorIsEmitError(t *testing.T) {
	w := &fakeWriter{failures: []error{stderrors.New("message too large")}}
	p := NewWithWriter(w, fastRetry(), nil)

	err := p.WriteJSON(context.Background(), "t", "k", "v")
	if errors.KindOf(err) != errors.ErrCodeEmit {
		t.Fatalf("expected EMIT_ERROR, got %v", err)
	}
	if errors.IsRetryable(err) {
		t.Error("message too large is not retryable")
	}
	if w.calls != 1 {
		t.Errorf("calls = %d, permanent errors must not be retried", w.calls)
	}
}

func TestProducer_Closed(t *testing.T) {
	w := &fakeWriter{}
	p := NewWithWriter(w, fastRetry(), nil)
	if err := p.Close(); err != nil || !w.closed {
		t.Fatal("Close should close the writer")
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
	if err := p.WriteJSON(context.Background(), "t", "k", "v"); errors.KindOf(err) != errors.ErrCodeServiceUnavailable {
		t.Errorf("write after close = %v", err)
	}
}

func TestDeadLetter(t *testing.T) {
	w := &fakeWriter{}
	cfg := kafka.Config{}
	cfg.ApplyDefaults()
	d := &DeadLetter{Producer: NewWithWriter(w, fastRetry(), nil), Config: cfg}

	letter := coordinator.Letter{
		Tag:      "audio.transcribed",
		AudioID:  "/a/b.mp3",
		Kind:     errors.ErrCodeTranscription,
		Reason:   "engine failed",
		Record:   record.FromPairs("path", "/a/b.mp3"),
		FailedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if err := d.DeadLetter(context.Background(), letter); err != nil {
		t.Fatal(err)
	}
	m := w.written[0]
	if m.Topic != "audio.transcribed.dead" || string(m.Key) != "/a/b.mp3" {
		t.Errorf("topic = %q key = %q", m.Topic, m.Key)
	}
	if header(m, "error-kind") != "TRANSCRIPTION_ERROR" {
		t.Errorf("headers = %v", m.Headers)
	}

	var decoded struct {
		Kind   string         `json:"kind"`
		Record map[string]any `json:"record"`
	}
	if err := json.Unmarshal(m.Value, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Kind != "TRANSCRIPTION_ERROR" || decoded.Record["path"] != "/a/b.mp3" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestNew_Disabled(t *testing.T) {
	if _, err := New(kafka.Config{}, nil); errors.KindOf(err) != errors.ErrCodeConfiguration {
		t.Errorf("expected CONFIGURATION_ERROR, got %v", err)
	}
}
