// Package mutator applies processing results to records. The input record is
// never modified; every function returns an enriched clone.
package mutator

import (
	"time"

	"github.com/kbukum/audiotranscriber/record"
	"github.com/kbukum/audiotranscriber/transcode"
)

// Fields names the record keys read and written by the pipeline.
type Fields struct {
	InputContent        string `mapstructure:"input_content" validate:"required"`
	InputPath           string `mapstructure:"input_path" validate:"required"`
	OutputTranscription string `mapstructure:"output_transcription" validate:"required"`
	Model               string `mapstructure:"model_field"`
	Language            string `mapstructure:"language_field"`
	ProcessingTime      string `mapstructure:"processing_time_field"`
	SegmentsCount       string `mapstructure:"segments_count_field"`
	Size                string `mapstructure:"size_field"`
	Content             string `mapstructure:"content_field"`
}

// DefaultFields returns the standard field names.
func DefaultFields() Fields {
	return Fields{
		InputContent:        "content",
		InputPath:           "path",
		OutputTranscription: "transcription",
		Model:               "speech_recognition_model",
		Language:            "transcription_language",
		ProcessingTime:      "processing_time",
		SegmentsCount:       "segments_count",
		Size:                "size",
		Content:             "content",
	}
}

// WithDefaults fills empty names from DefaultFields.
func (f Fields) WithDefaults() Fields {
	d := DefaultFields()
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&f.InputContent, d.InputContent)
	fill(&f.InputPath, d.InputPath)
	fill(&f.OutputTranscription, d.OutputTranscription)
	fill(&f.Model, d.Model)
	fill(&f.Language, d.Language)
	fill(&f.ProcessingTime, d.ProcessingTime)
	fill(&f.SegmentsCount, d.SegmentsCount)
	fill(&f.Size, d.Size)
	fill(&f.Content, d.Content)
	return f
}

// TranscriptionOutcome is what a successful transcription contributes.
type TranscriptionOutcome struct {
	Text         string
	ModelID      string
	Language     string
	SegmentCount int
	Elapsed      time.Duration
}

// ApplyTranscription removes the raw audio content, then sets the text and
// model metadata. With includeMetrics the processing time in seconds and the
// segment count are added too. Existing keys are overwritten in place.
func ApplyTranscription(rec *record.Record, out TranscriptionOutcome, fields Fields, includeMetrics bool) *record.Record {
	r := rec.Clone()
	r.Delete(fields.InputContent)
	r.Set(fields.OutputTranscription, out.Text)
	if fields.Model != "" {
		r.Set(fields.Model, out.ModelID)
	}
	if fields.Language != "" {
		r.Set(fields.Language, out.Language)
	}
	if includeMetrics {
		if fields.ProcessingTime != "" {
			r.Set(fields.ProcessingTime, out.Elapsed.Seconds())
		}
		if fields.SegmentsCount != "" {
			r.Set(fields.SegmentsCount, out.SegmentCount)
		}
	}
	return r
}

// ApplyTranscode replaces the audio-bearing fields with the transcoder's
// output. Every other field passes through.
func ApplyTranscode(rec *record.Record, res *transcode.Result, fields Fields) *record.Record {
	r := rec.Clone()
	r.Set(fields.InputPath, res.Path)
	r.Set(fields.Size, res.Size)
	r.Set(fields.Content, res.Content)
	return r
}
