package transcription

import (
	"context"
	"strings"

	"github.com/kbukum/audiotranscriber/provider"
)

// Transcriber turns an audio file into timed text segments.
type Transcriber interface {
	provider.Provider

	// Transcribe reads the audio at audioPath. Failures are returned as
	// TRANSCRIPTION_ERROR.
	Transcribe(ctx context.Context, audioPath string, cfg Config) (*Result, error)
}

// Segment is one timed piece of transcribed text.
type Segment struct {
	// Start is the segment start time in seconds.
	Start float64 `json:"start"`
	// End is the segment end time in seconds.
	End float64 `json:"end"`
	// Text is the transcribed text, possibly with surrounding whitespace.
	Text string `json:"text"`
}

// Result is the output of one transcription call.
type Result struct {
	// Segments are in time order. Never nil; empty for silent audio.
	Segments []Segment `json:"segments"`
	// Language is the detected or requested language.
	Language string `json:"language,omitempty"`
	// Duration is the end of the last segment, in seconds.
	Duration float64 `json:"duration,omitempty"`
}

// Texts returns each segment's text with surrounding whitespace removed.
func (r *Result) Texts() []string {
	out := make([]string, len(r.Segments))
	for i, s := range r.Segments {
		out[i] = strings.TrimSpace(s.Text)
	}
	return out
}

func newResult(segments []Segment, language string) *Result {
	if segments == nil {
		segments = []Segment{}
	}
	res := &Result{Segments: segments, Language: language}
	if n := len(segments); n > 0 {
		res.Duration = segments[n-1].End
	}
	return res
}
