package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"sync"

	"github.com/kbukum/audiotranscriber/coordinator"
	"github.com/kbukum/audiotranscriber/errors"
	"github.com/kbukum/audiotranscriber/record"
)

// lineEmitter writes each emitted record as one JSON line.
type lineEmitter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

var _ coordinator.Emitter = (*lineEmitter)(nil)

func newLineEmitter(w io.Writer) *lineEmitter {
	return &lineEmitter{enc: json.NewEncoder(w)}
}

type emittedLine struct {
	Tag    string         `json:"tag"`
	Record *record.Record `json:"record"`
}

func (e *lineEmitter) Emit(_ context.Context, tag string, rec *record.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enc.Encode(emittedLine{Tag: tag, Record: rec}); err != nil {
		return errors.Emit(tag, err)
	}
	return nil
}

// deadLetters delivers a letter to every sink. One failing sink does not
// stop the others.
type deadLetters []coordinator.DeadLetter

var _ coordinator.DeadLetter = deadLetters(nil)

func (d deadLetters) DeadLetter(ctx context.Context, l coordinator.Letter) error {
	var errs []error
	for _, sink := range d {
		if err := sink.DeadLetter(ctx, l); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// collapse returns nil for no sinks and the sink itself for one.
func (d deadLetters) collapse() coordinator.DeadLetter {
	switch len(d) {
	case 0:
		return nil
	case 1:
		return d[0]
	default:
		return d
	}
}
