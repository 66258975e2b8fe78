package mutator

import (
	"bytes"
	"reflect"
	"testing"
	"time"

	"github.com/kbukum/audiotranscriber/record"
	"github.com/kbukum/audiotranscriber/transcode"
)

func sample() *record.Record {
	return record.FromPairs(
		"path", "/path/to/audio.mp3",
		"content", []byte("MOCK_AUDIO_BINARY_DATA"),
		"additional_field", "value",
	)
}

func TestApplyTranscription(t *testing.T) {
	in := sample()
	out := ApplyTranscription(in, TranscriptionOutcome{
		Text:         "This is a test transcription\nSecond line of transcription",
		ModelID:      "mlx-community/whisper-large-v3-turbo",
		Language:     "ja",
		SegmentCount: 2,
		Elapsed:      1500 * time.Millisecond,
	}, DefaultFields(), true)

	want := []string{"path", "additional_field", "transcription", "speech_recognition_model",
		"transcription_language", "processing_time", "segments_count"}
	if got := out.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v\nwant %v", got, want)
	}
	if s, _ := out.GetString("transcription"); s != "This is a test transcription\nSecond line of transcription" {
		t.Errorf("transcription = %q", s)
	}
	if v, _ := out.Get("processing_time"); v != 1.5 {
		t.Errorf("processing_time = %v", v)
	}
	if v, _ := out.Get("segments_count"); v != 2 {
		t.Errorf("segments_count = %v", v)
	}
	if v, _ := out.GetString("additional_field"); v != "value" {
		t.Errorf("extra field changed: %q", v)
	}

	if !in.Has("content") || in.Has("transcription") {
		t.Error("input record was mutated")
	}
}

func TestApplyTranscription_NoMetrics(t *testing.T) {
	out := ApplyTranscription(sample(), TranscriptionOutcome{Text: "x"}, DefaultFields(), false)
	if out.Has("processing_time") || out.Has("segments_count") {
		t.Error("metrics fields should be omitted")
	}
}

func TestApplyTranscription_OverwritesInPlace(t *testing.T) {
	in := record.FromPairs("transcription", "old", "path", "/a.wav", "content", []byte("x"))
	out := ApplyTranscription(in, TranscriptionOutcome{Text: "new"}, DefaultFields(), false)
	if out.Keys()[0] != "transcription" {
		t.Errorf("existing output key should keep its position, got %v", out.Keys())
	}
	if s, _ := out.GetString("transcription"); s != "new" {
		t.Errorf("transcription = %q", s)
	}
}

func TestApplyTranscription_CustomFields(t *testing.T) {
	f := Fields{InputContent: "audio", OutputTranscription: "text"}.WithDefaults()
	in := record.FromPairs("audio", []byte("x"), "content", "keep")
	out := ApplyTranscription(in, TranscriptionOutcome{Text: "t"}, f, false)
	if out.Has("audio") || !out.Has("content") || !out.Has("text") {
		t.Errorf("unexpected keys %v", out.Keys())
	}
}

func TestApplyTranscode(t *testing.T) {
	in := record.FromPairs("path", "/in/test.wav", "tag_extra", 7, "content", []byte("orig"))
	res := &transcode.Result{Path: "/buf/test.wav.mp3", Size: 3, Content: []byte("enc")}
	out := ApplyTranscode(in, res, DefaultFields())

	if got := out.Keys(); !reflect.DeepEqual(got, []string{"path", "tag_extra", "content", "size"}) {
		t.Errorf("Keys() = %v", got)
	}
	if p, _ := out.GetString("path"); p != "/buf/test.wav.mp3" {
		t.Errorf("path = %q", p)
	}
	if b, _ := out.GetBytes("content"); !bytes.Equal(b, []byte("enc")) {
		t.Errorf("content = %q", b)
	}
	if v, _ := out.Get("size"); v != int64(3) {
		t.Errorf("size = %v", v)
	}
	if p, _ := in.GetString("path"); p != "/in/test.wav" {
		t.Error("input record was mutated")
	}
}
