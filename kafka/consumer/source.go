// Package consumer reads pipeline records from Kafka.
package consumer

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/audiotranscriber/errors"
	"github.com/kbukum/audiotranscriber/kafka"
	"github.com/kbukum/audiotranscriber/logger"
	"github.com/kbukum/audiotranscriber/record"
)

const maxBackoff = 30 * time.Second

// Reader is the subset of *kafkago.Reader the Source uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

type pendingMessage struct {
	msg kafkago.Message
	// undecodable messages fetched after msg, committed with it
	trailing []kafkago.Message
}

// Source yields one record per JSON message. Offsets are committed by Ack,
// once per yielded record and in fetch order, so a record is redelivered
// unless its outcome was observed.
type Source struct {
	reader       Reader
	topics       []string
	groupID      string
	binaryFields []string
	log          *logger.Logger
	sleep        func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	pending  []*pendingMessage
	failures int
}

// NewSource creates a consumer-group reader over cfg.Topics. Fields named in
// binaryFields are base64-decoded into bytes.
func NewSource(cfg kafka.Config, binaryFields []string, log *logger.Logger) (*Source, error) {
	cfg.ApplyDefaults()
	if err := cfg.ValidateSource(); err != nil {
		return nil, errors.Configuration(fmt.Sprintf("kafka source: %v", err))
	}
	dialer, err := kafka.NewDialer(&cfg)
	if err != nil {
		return nil, errors.Configuration(fmt.Sprintf("kafka source dialer: %v", err))
	}

	clog := log.WithComponent("kafka.source")
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:           cfg.Brokers,
		GroupID:           cfg.GroupID,
		GroupTopics:       cfg.Topics,
		Dialer:            dialer,
		StartOffset:       kafkago.FirstOffset,
		MinBytes:          1,
		MaxBytes:          cfg.MaxMessageBytes,
		SessionTimeout:    cfg.SessionTimeout,
		HeartbeatInterval: cfg.HeartbeatInterval,
		RebalanceTimeout:  cfg.RebalanceTimeout,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			clog.Error("reader: "+fmt.Sprintf(msg, args...), logger.Fields("group_id", cfg.GroupID))
		}),
	})

	clog.Info("Kafka source initialized", logger.Fields(
		"topics", cfg.Topics,
		"group_id", cfg.GroupID,
		"brokers", cfg.Brokers,
	))
	return NewSourceFromReader(reader, cfg.Topics, cfg.GroupID, binaryFields, log), nil
}

// NewSourceFromReader wraps an existing reader.
func NewSourceFromReader(r Reader, topics []string, groupID string, binaryFields []string, log *logger.Logger) *Source {
	if log == nil {
		log = logger.NewNop()
	}
	return &Source{
		reader:       r,
		topics:       topics,
		groupID:      groupID,
		binaryFields: binaryFields,
		log:          log.WithComponent("kafka.source"),
		sleep:        sleepCtx,
	}
}

// Next fetches the next decodable record. Messages that are not JSON
// objects are logged and committed without being yielded. A closed reader
// ends the stream.
func (s *Source) Next(ctx context.Context) (*record.Record, bool, error) {
	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, false, ctx.Err()
			}
			if stderrors.Is(err, io.EOF) {
				return nil, false, nil
			}
			if err := s.backoff(ctx, err); err != nil {
				return nil, false, err
			}
			continue
		}
		s.resetFailures()

		rec, err := record.DecodeJSON(msg.Value, s.binaryFields...)
		if err != nil {
			s.log.Warn("Discarding undecodable message", logger.Fields(
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				logger.FieldError, err.Error(),
			))
			if err := s.skip(ctx, msg); err != nil {
				return nil, false, err
			}
			continue
		}

		s.mu.Lock()
		s.pending = append(s.pending, &pendingMessage{msg: msg})
		s.mu.Unlock()
		return rec, true, nil
	}
}

// skip commits msg now when nothing is pending, otherwise defers it to the
// newest pending record so offsets never move past an unfinished record.
func (s *Source) skip(ctx context.Context, msg kafkago.Message) error {
	s.mu.Lock()
	if n := len(s.pending); n > 0 {
		tail := s.pending[n-1]
		tail.trailing = append(tail.trailing, msg)
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	return s.reader.CommitMessages(ctx, msg)
}

// Ack commits the oldest yielded record.
func (s *Source) Ack(ctx context.Context) error {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return fmt.Errorf("kafka source: ack without pending message")
	}
	head := s.pending[0]
	s.pending = s.pending[1:]
	s.mu.Unlock()

	msgs := append([]kafkago.Message{head.msg}, head.trailing...)
	if err := s.reader.CommitMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("commit offset %d on %s: %w", head.msg.Offset, head.msg.Topic, err)
	}
	return nil
}

// Pending returns the number of yielded records not yet acknowledged.
func (s *Source) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Source) backoff(ctx context.Context, err error) error {
	s.mu.Lock()
	s.failures++
	failures := s.failures
	s.mu.Unlock()

	if failures <= 3 {
		s.log.Error("Kafka fetch error", logger.Fields(
			logger.FieldError, err.Error(),
			"failures", failures,
			"group_id", s.groupID,
		))
	}
	d := time.Duration(failures) * time.Second
	if d > maxBackoff {
		d = maxBackoff
	}
	return s.sleep(ctx, d)
}

func (s *Source) resetFailures() {
	s.mu.Lock()
	s.failures = 0
	s.mu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Topics returns the consumed topics.
func (s *Source) Topics() []string { return s.topics }

// GroupID returns the consumer group.
func (s *Source) GroupID() string { return s.groupID }

// Close closes the reader.
func (s *Source) Close() error {
	s.log.Info("Kafka source closing", logger.Fields("group_id", s.groupID))
	return s.reader.Close()
}
