// Package stager materializes audio payloads as files for the duration of one
// processing call.
//
// Engines read audio from the filesystem, so an in-memory payload is written
// to a uniquely named temporary file and removed when the call's scope exits,
// whatever path it exits through. A record that already points at a file on
// disk is passed through without a copy.
package stager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/kbukum/audiotranscriber/errors"
)

const filePrefix = "audio-"

// StagedAudio is a file holding one record's audio. Owned files were created
// by the Stager and are removed by Close; pass-through files are never
// touched.
type StagedAudio struct {
	Path  string
	Size  int64
	Owned bool

	once sync.Once
	err  error
}

// Close removes the staged file if the Stager created it. It is safe to call
// more than once.
func (s *StagedAudio) Close() error {
	if s == nil || !s.Owned {
		return nil
	}
	s.once.Do(func() {
		if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
			s.err = fmt.Errorf("remove staged audio %s: %w", s.Path, err)
		}
	})
	return s.err
}

// Stager writes payloads under Dir. The zero value uses os.TempDir().
type Stager struct {
	Dir string
}

// New creates a Stager writing to dir, creating it if needed. An empty dir
// means the system temp directory.
func New(dir string) (*Stager, error) {
	if dir == "" {
		return &Stager{}, nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Staging(dir, err)
	}
	return &Stager{Dir: dir}, nil
}

func (s *Stager) dir() string {
	if s == nil || s.Dir == "" {
		return os.TempDir()
	}
	return s.Dir
}

// Stage writes data to a new temporary file. An empty payload produces a
// zero-length file. Callers must Close the result; prefer With.
func (s *Stager) Stage(data []byte) (*StagedAudio, error) {
	path := filepath.Join(s.dir(), filePrefix+uuid.NewString())

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, errors.Staging(path, err)
	}
	n, writeErr := f.Write(data)
	closeErr := f.Close()
	if writeErr == nil && n != len(data) {
		writeErr = fmt.Errorf("short write: %d of %d bytes", n, len(data))
	}
	if writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		_ = os.Remove(path)
		return nil, errors.Staging(path, writeErr)
	}
	return &StagedAudio{Path: path, Size: int64(n), Owned: true}, nil
}

// StagePath wraps an existing file without copying it. A missing file is a
// MISSING_AUDIO error.
func (s *Stager) StagePath(path string) (*StagedAudio, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.MissingAudio("path", path)
		}
		return nil, errors.Staging(path, err)
	}
	if info.IsDir() {
		return nil, errors.MissingAudio("path", path)
	}
	return &StagedAudio{Path: path, Size: info.Size()}, nil
}

// With stages data, runs fn with the staged file and removes the file when fn
// returns or panics. A panic is re-raised after cleanup.
func (s *Stager) With(ctx context.Context, data []byte, fn func(ctx context.Context, audio *StagedAudio) error) error {
	audio, err := s.Stage(data)
	if err != nil {
		return err
	}
	return run(ctx, audio, fn)
}

// WithPath runs fn with an existing file. Nothing is removed afterwards.
func (s *Stager) WithPath(ctx context.Context, path string, fn func(ctx context.Context, audio *StagedAudio) error) error {
	audio, err := s.StagePath(path)
	if err != nil {
		return err
	}
	return run(ctx, audio, fn)
}

func run(ctx context.Context, audio *StagedAudio, fn func(ctx context.Context, audio *StagedAudio) error) (err error) {
	defer func() {
		if closeErr := audio.Close(); closeErr != nil && err == nil {
			err = errors.Staging(audio.Path, closeErr)
		}
	}()
	return fn(ctx, audio)
}
