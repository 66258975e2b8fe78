// Package transcode is the port to an external audio transcoder.
//
// Output files are named deterministically from the input: transcoding
// test.wav with extension mp3 writes <buffer>/test.wav.mp3.
package transcode

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/kbukum/audiotranscriber/provider"
	"github.com/kbukum/audiotranscriber/validation"
)

// Config holds the transcode parameters shared by all records.
type Config struct {
	// Options are encoder directives, split shell-style.
	Options string `mapstructure:"transcode_options"`
	// OutputExtension is appended to the input basename.
	OutputExtension string `mapstructure:"output_extension" validate:"required,excludesall=/"`
	// BufferDir receives transcoder output.
	BufferDir string `mapstructure:"buffer_path" validate:"required"`
}

// DefaultConfig returns mono 16 kHz mp3 output under ./buffer.
func DefaultConfig() Config {
	return Config{
		Options:         "-ar 16000 -ac 1",
		OutputExtension: "mp3",
		BufferDir:       "./buffer",
	}
}

// Validate checks the config. Failures are CONFIGURATION_ERROR.
func (c Config) Validate() error {
	return validation.Config(c)
}

// Result is a transcoded audio file, read back into memory.
type Result struct {
	Path    string
	Size    int64
	Content []byte
}

// Transcoder re-encodes an audio file. Failures are TRANSCODE_ERROR.
type Transcoder interface {
	provider.Provider
	Transcode(ctx context.Context, audioPath string, cfg Config) (*Result, error)
}

// OutputPath returns where the transcoder writes the output for input.
func OutputPath(input string, cfg Config) string {
	ext := strings.TrimPrefix(cfg.OutputExtension, ".")
	return filepath.Join(cfg.BufferDir, filepath.Base(input)+"."+ext)
}
