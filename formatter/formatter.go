// Package formatter assembles transcription segments into the text stored on
// an outgoing record.
package formatter

import (
	"strings"
	"time"

	"github.com/kbukum/audiotranscriber/transcription"
)

// TimestampLayout is the banner timestamp format.
const TimestampLayout = "2006-01-02 15:04:05"

const (
	headerPrefix  = "=== 文字起こし結果: "
	modelPrefix   = "=== 使用モデル: "
	trailerPrefix = "=== 文字起こし終了: "
	bannerSuffix  = " ==="
)

// Options controls the banner. The timestamp is supplied by the caller so
// output is deterministic.
type Options struct {
	IncludeBanner bool
	SourceLabel   string
	ModelID       string
	Timestamp     time.Time
}

// Format strips every segment's text and joins them with newlines, keeping
// segment order and duplicates. With IncludeBanner the body is wrapped in
// header, model and trailer lines; the banner appears even with no segments.
func Format(segments []transcription.Segment, opts Options) string {
	lines := make([]string, 0, len(segments)+3)
	if opts.IncludeBanner {
		lines = append(lines,
			headerPrefix+opts.SourceLabel+" - "+opts.Timestamp.Format(TimestampLayout)+bannerSuffix,
			modelPrefix+opts.ModelID+bannerSuffix,
		)
	}
	for _, s := range segments {
		lines = append(lines, strings.TrimSpace(s.Text))
	}
	if opts.IncludeBanner {
		lines = append(lines, trailerPrefix+opts.SourceLabel+bannerSuffix)
	}
	return strings.Join(lines, "\n")
}

// Lines splits formatted text back into stripped segment texts, dropping
// banner lines.
func Lines(text string) []string {
	if text == "" {
		return []string{}
	}
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if isBanner(p) {
			continue
		}
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func isBanner(line string) bool {
	if !strings.HasSuffix(line, bannerSuffix) {
		return false
	}
	return strings.HasPrefix(line, headerPrefix) ||
		strings.HasPrefix(line, modelPrefix) ||
		strings.HasPrefix(line, trailerPrefix)
}
