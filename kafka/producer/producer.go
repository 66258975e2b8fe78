// Package producer writes finished and dead-lettered records to Kafka.
package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/audiotranscriber/coordinator"
	"github.com/kbukum/audiotranscriber/errors"
	"github.com/kbukum/audiotranscriber/kafka"
	"github.com/kbukum/audiotranscriber/logger"
	"github.com/kbukum/audiotranscriber/record"
	"github.com/kbukum/audiotranscriber/resilience"
)

const contentTypeJSON = "application/json"

// Writer is the subset of *kafkago.Writer the Producer uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Producer writes messages with retries on transient broker errors.
type Producer struct {
	writer Writer
	retry  resilience.RetryConfig
	log    *logger.Logger
	mu     sync.RWMutex
	closed bool
}

// New creates a producer for cfg. Topics are set per message.
func New(cfg kafka.Config, log *logger.Logger) (*Producer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Configuration(fmt.Sprintf("kafka producer: %v", err))
	}
	if !cfg.Enabled {
		return nil, errors.Configuration("kafka producer: kafka is disabled")
	}
	transport, err := kafka.NewTransport(&cfg)
	if err != nil {
		return nil, errors.Configuration(fmt.Sprintf("kafka producer transport: %v", err))
	}

	plog := log.WithComponent("kafka.producer")
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Transport:              transport,
		Balancer:               &kafkago.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchBytes:             int64(cfg.MaxMessageBytes),
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafkago.RequiredAcks(cfg.RequiredAcks),
		Compression:            kafka.Compression(cfg.Compression),
		WriteTimeout:           cfg.WriteTimeout,
		MaxAttempts:            1,
		AllowAutoTopicCreation: true,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			plog.Error("writer: " + fmt.Sprintf(msg, args...))
		}),
	}
	plog.Info("Kafka producer initialized", logger.Fields(
		"brokers", cfg.Brokers,
		"compression", cfg.Compression,
	))

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Retries
	return NewWithWriter(w, retry, log), nil
}

// NewWithWriter wraps an existing writer.
func NewWithWriter(w Writer, retry resilience.RetryConfig, log *logger.Logger) *Producer {
	if log == nil {
		log = logger.NewNop()
	}
	retry.RetryIf = kafka.IsRetryableError
	return &Producer{writer: w, retry: retry, log: log.WithComponent("kafka.producer")}
}

// Write sends msgs, retrying transient failures. Failures are EMIT_ERROR.
func (p *Producer) Write(ctx context.Context, topic string, msgs ...kafkago.Message) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return errors.ServiceUnavailable("kafka producer")
	}

	for i := range msgs {
		msgs[i].Topic = topic
	}
	err := resilience.RetryFunc(ctx, p.retry, func() error {
		return p.writer.WriteMessages(ctx, msgs...)
	})
	if err != nil {
		return kafka.EmitError(topic, err)
	}
	return nil
}

// WriteJSON marshals value and writes it to topic under key.
func (p *Producer) WriteJSON(ctx context.Context, topic, key string, value any, headers ...kafkago.Header) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Emit(topic, fmt.Errorf("marshal JSON: %w", err))
	}
	msg := kafkago.Message{
		Key:     []byte(key),
		Value:   data,
		Time:    time.Now(),
		Headers: append([]kafkago.Header{{Key: "content-type", Value: []byte(contentTypeJSON)}}, headers...),
	}
	return p.Write(ctx, topic, msg)
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.log.Info("Kafka producer closing")
	return p.writer.Close()
}

// Emitter publishes finished records to the topic named by their tag.
type Emitter struct {
	Producer *Producer
	// KeyField names the record field used as message key, "path" by default.
	KeyField string
}

var _ coordinator.Emitter = (*Emitter)(nil)

// Emit writes rec as JSON. Binary fields are base64 encoded.
func (e *Emitter) Emit(ctx context.Context, tag string, rec *record.Record) error {
	return e.Producer.WriteJSON(ctx, tag, messageKey(rec, e.KeyField), rec)
}

// DeadLetter publishes dropped records to <tag><suffix>.
type DeadLetter struct {
	Producer *Producer
	Config   kafka.Config
}

var _ coordinator.DeadLetter = (*DeadLetter)(nil)

// DeadLetter writes the letter as JSON with the error kind as a header.
func (d *DeadLetter) DeadLetter(ctx context.Context, l coordinator.Letter) error {
	topic := d.Config.DeadLetterTopic(l.Tag)
	return d.Producer.WriteJSON(ctx, topic, l.AudioID, l,
		kafkago.Header{Key: "error-kind", Value: []byte(l.Kind)},
	)
}

func messageKey(rec *record.Record, field string) string {
	if field == "" {
		field = "path"
	}
	if s, ok := rec.GetString(field); ok {
		return s
	}
	return ""
}
