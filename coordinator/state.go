package coordinator

import (
	"time"

	"github.com/kbukum/audiotranscriber/errors"
	"github.com/kbukum/audiotranscriber/record"
)

// State is a record's position in the processing state machine.
type State int

const (
	Received State = iota
	Staged
	Processed
	Emitted
	Failed
	Dropped
	Skipped
)

func (s State) String() string {
	switch s {
	case Received:
		return "received"
	case Staged:
		return "staged"
	case Processed:
		return "processed"
	case Emitted:
		return "emitted"
	case Failed:
		return "failed"
	case Dropped:
		return "dropped"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Outcome is the result of one record's traversal.
type Outcome struct {
	// Index is the record's position in its batch or stream.
	Index int `json:"index"`
	State State `json:"-"`
	// Record is the emitted record when Emitted, otherwise the untouched input.
	Record *record.Record `json:"-"`
	Err    error          `json:"-"`
	// Kind is the error code of Err, empty on success.
	Kind    errors.ErrorCode `json:"kind,omitempty"`
	AudioID string           `json:"audio_id"`
	// Reason explains a skip that carries no error, such as a duplicate.
	Reason  string        `json:"reason,omitempty"`
	Elapsed time.Duration `json:"-"`

	input *record.Record
}

// BatchReport summarizes ProcessBatch.
type BatchReport struct {
	Outcomes []Outcome `json:"outcomes"`
	Emitted  int       `json:"emitted"`
	Skipped  int       `json:"skipped"`
	Failed   int       `json:"failed"`
}

func (r *BatchReport) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.State {
	case Emitted:
		r.Emitted++
	case Skipped:
		r.Skipped++
	default:
		r.Failed++
	}
}
