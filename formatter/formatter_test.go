package formatter

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/audiotranscriber/transcription"
)

func segs(texts ...string) []transcription.Segment {
	out := make([]transcription.Segment, len(texts))
	for i, t := range texts {
		out[i] = transcription.Segment{Start: float64(i), End: float64(i + 1), Text: t}
	}
	return out
}

func TestFormat_Plain(t *testing.T) {
	got := Format(segs(" This is a test transcription ", "Second line of transcription\n"), Options{})
	want := "This is a test transcription\nSecond line of transcription"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormat_KeepsDuplicatesAndOrder(t *testing.T) {
	got := Format(segs("b", "a", "b"), Options{})
	if got != "b\na\nb" {
		t.Errorf("got %q", got)
	}
}

func TestFormat_Banner(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)
	got := Format(segs("こんにちは"), Options{
		IncludeBanner: true,
		SourceLabel:   "meeting.wav",
		ModelID:       "mlx-community/whisper-large-v3-turbo",
		Timestamp:     ts,
	})
	want := strings.Join([]string{
		"=== 文字起こし結果: meeting.wav - 2024-03-09 14:05:07 ===",
		"=== 使用モデル: mlx-community/whisper-large-v3-turbo ===",
		"こんにちは",
		"=== 文字起こし終了: meeting.wav ===",
	}, "\n")
	if got != want {
		t.Errorf("got\n%s\nwant\n%s", got, want)
	}
}

func TestFormat_EmptySegments(t *testing.T) {
	if got := Format(nil, Options{}); got != "" {
		t.Errorf("expected empty body, got %q", got)
	}
	got := Format(nil, Options{IncludeBanner: true, SourceLabel: "x.wav", ModelID: "m"})
	if n := len(strings.Split(got, "\n")); n != 3 {
		t.Errorf("banner should still have 3 lines, got %d: %q", n, got)
	}
}

func TestLines_RoundTrip(t *testing.T) {
	inputs := [][]string{
		{"  one ", "two", " three\t"},
		{"same", "same"},
		{"漢字 ", " カタカナ"},
		{},
	}
	for _, texts := range inputs {
		want := make([]string, len(texts))
		for i, s := range texts {
			want[i] = strings.TrimSpace(s)
		}
		for _, banner := range []bool{false, true} {
			text := Format(segs(texts...), Options{IncludeBanner: banner, SourceLabel: "a.wav", ModelID: "m", Timestamp: time.Unix(0, 0)})
			if got := Lines(text); !reflect.DeepEqual(got, want) {
				t.Errorf("banner=%v: Lines() = %q, want %q", banner, got, want)
			}
		}
	}
}
