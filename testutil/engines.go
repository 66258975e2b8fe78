package testutil

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kbukum/audiotranscriber/errors"
	"github.com/kbukum/audiotranscriber/transcode"
	"github.com/kbukum/audiotranscriber/transcription"
)

// Segments builds segments with one-second spacing.
func Segments(texts ...string) []transcription.Segment {
	out := make([]transcription.Segment, len(texts))
	for i, t := range texts {
		out[i] = transcription.Segment{Start: float64(i), End: float64(i + 1), Text: t}
	}
	return out
}

// TranscribeCall records one Transcribe invocation.
type TranscribeCall struct {
	AudioPath string
	Audio     []byte
	Config    transcription.Config
}

// FakeTranscriber returns fixed segments and records what it was asked to
// transcribe, including the staged file's bytes at call time.
type FakeTranscriber struct {
	Segments []transcription.Segment
	Err      error
	// FailOn makes calls whose audio contains this substring fail.
	FailOn string
	// PanicOn makes calls whose audio contains this substring panic.
	PanicOn string
	// Hook runs inside every call before the result is returned.
	Hook func(ctx context.Context, audioPath string)

	mu    sync.Mutex
	calls []TranscribeCall
}

func (f *FakeTranscriber) Name() string                     { return "fake" }
func (f *FakeTranscriber) IsAvailable(context.Context) bool { return true }

func (f *FakeTranscriber) Transcribe(ctx context.Context, audioPath string, cfg transcription.Config) (*transcription.Result, error) {
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, errors.Transcription("fake", err)
	}
	f.mu.Lock()
	f.calls = append(f.calls, TranscribeCall{AudioPath: audioPath, Audio: data, Config: cfg})
	f.mu.Unlock()

	if f.Hook != nil {
		f.Hook(ctx, audioPath)
	}
	if f.PanicOn != "" && strings.Contains(string(data), f.PanicOn) {
		panic("fake transcriber crashed")
	}
	if f.Err != nil {
		return nil, f.Err
	}
	if f.FailOn != "" && strings.Contains(string(data), f.FailOn) {
		return nil, errors.Transcription("fake", os.ErrInvalid)
	}
	segs := append([]transcription.Segment{}, f.Segments...)
	return &transcription.Result{Segments: segs, Language: cfg.Language}, nil
}

// Calls returns the recorded invocations.
func (f *FakeTranscriber) Calls() []TranscribeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]TranscribeCall(nil), f.calls...)
}

// FakeTranscoder writes "<prefix><input>" to the deterministic output path.
// With Prefix empty the output is a byte-for-byte copy.
type FakeTranscoder struct {
	Prefix string
	Err    error
	// Empty makes the transcoder produce a zero-size output.
	Empty bool
}

func (f *FakeTranscoder) Name() string                     { return "fake-transcoder" }
func (f *FakeTranscoder) IsAvailable(context.Context) bool { return true }

func (f *FakeTranscoder) Transcode(_ context.Context, audioPath string, cfg transcode.Config) (*transcode.Result, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	in, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, errors.Transcode(audioPath, err)
	}
	out := []byte(f.Prefix + string(in))
	if f.Empty {
		out = nil
	}
	if len(out) == 0 {
		return nil, errors.Transcode(audioPath, os.ErrInvalid)
	}
	path := transcode.OutputPath(audioPath, cfg)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, errors.Transcode(audioPath, err)
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return nil, errors.Transcode(audioPath, err)
	}
	return &transcode.Result{Path: path, Size: int64(len(out)), Content: out}, nil
}
