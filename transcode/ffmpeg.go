package transcode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/kbukum/audiotranscriber/errors"
	"github.com/kbukum/audiotranscriber/logger"
	"github.com/kbukum/audiotranscriber/process"
)

// EngineFFmpeg is the registered name of the ffmpeg transcoder.
const EngineFFmpeg = "ffmpeg"

const lockRetryDelay = 50 * time.Millisecond

// FFmpegConfig configures the ffmpeg adapter.
type FFmpegConfig struct {
	// Binary is the ffmpeg executable. Defaults to "ffmpeg" on PATH.
	Binary  string         `mapstructure:"ffmpeg_path"`
	Process process.Config `mapstructure:"process"`
	Logger  *logger.Logger `mapstructure:"-"`
}

// FFmpeg transcodes by running the ffmpeg binary.
type FFmpeg struct {
	binary string
	runner *process.Runner
	log    *logger.Logger
}

// NewFFmpeg checks that the binary resolves. A missing binary is a
// CONFIGURATION_ERROR.
func NewFFmpeg(cfg FFmpegConfig) (*FFmpeg, error) {
	binary := cfg.Binary
	if binary == "" {
		binary = "ffmpeg"
	}
	if !process.Available(binary) {
		return nil, errors.Configuration("ffmpeg binary not found: " + binary)
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	log = log.WithComponent("transcode.ffmpeg")
	return &FFmpeg{
		binary: binary,
		runner: process.NewRunner(EngineFFmpeg, cfg.Process, log),
		log:    log,
	}, nil
}

// Name returns "ffmpeg".
func (f *FFmpeg) Name() string { return EngineFFmpeg }

// IsAvailable reports whether the binary still resolves.
func (f *FFmpeg) IsAvailable(_ context.Context) bool {
	return process.Available(f.binary)
}

// Transcode runs ffmpeg on audioPath and reads the output back. Writers to
// the same output path are serialized through a lock file.
func (f *FFmpeg) Transcode(ctx context.Context, audioPath string, cfg Config) (*Result, error) {
	opts, err := SplitOptions(cfg.Options)
	if err != nil {
		return nil, errors.Transcode(audioPath, err)
	}
	if err := os.MkdirAll(cfg.BufferDir, 0o750); err != nil {
		return nil, errors.Transcode(audioPath, fmt.Errorf("create buffer dir: %w", err))
	}
	out := OutputPath(audioPath, cfg)

	lock := flock.New(filepath.Join(cfg.BufferDir, "."+filepath.Base(out)+".lock"))
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		if err == nil {
			err = fmt.Errorf("output %s is locked", out)
		}
		return nil, errors.Transcode(audioPath, err)
	}
	defer func() { _ = lock.Unlock() }()

	args := make([]string, 0, len(opts)+8)
	args = append(args, "-y", "-hide_banner", "-loglevel", "error", "-i", audioPath)
	args = append(args, opts...)
	args = append(args, out)

	if _, err := f.runner.Run(ctx, process.Command{Binary: f.binary, Args: args}); err != nil {
		return nil, errors.Transcode(audioPath, err)
	}

	content, err := os.ReadFile(out)
	if err != nil {
		return nil, errors.Transcode(audioPath, fmt.Errorf("read output: %w", err))
	}
	if len(content) == 0 {
		return nil, errors.Transcode(audioPath, fmt.Errorf("ffmpeg produced empty output %s", out))
	}
	return &Result{Path: out, Size: int64(len(content)), Content: content}, nil
}
