package coordinator

import (
	"context"
	"io"
	"time"

	"github.com/kbukum/audiotranscriber/errors"
	"github.com/kbukum/audiotranscriber/record"
)

// Emitter delivers a finished record downstream under tag. A record is
// handed to Emit at most once and only when complete.
type Emitter interface {
	Emit(ctx context.Context, tag string, rec *record.Record) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, tag string, rec *record.Record) error

// Emit calls f.
func (f EmitterFunc) Emit(ctx context.Context, tag string, rec *record.Record) error {
	return f(ctx, tag, rec)
}

// Letter describes a dropped record.
type Letter struct {
	Tag      string           `json:"tag"`
	AudioID  string           `json:"audio_id"`
	Kind     errors.ErrorCode `json:"kind"`
	Reason   string           `json:"reason"`
	Record   *record.Record   `json:"record"`
	FailedAt time.Time        `json:"failed_at"`
}

// DeadLetter keeps failed records for inspection or replay.
type DeadLetter interface {
	DeadLetter(ctx context.Context, letter Letter) error
}

// Deduper remembers fingerprints of emitted records so redelivered input is
// skipped.
type Deduper interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

// Archive stores transcoded audio. storage.Storage satisfies it.
type Archive interface {
	Upload(ctx context.Context, path string, r io.Reader) error
}

// Metrics receives per-record and per-engine measurements.
type Metrics interface {
	RecordOutcome(ctx context.Context, state, kind string, elapsed time.Duration)
	RecordEngineCall(ctx context.Context, engine string, elapsed time.Duration, err error)
}
