package transcode

import (
	"bytes"
	"context"
	"crypto/sha256"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/kbukum/audiotranscriber/errors"
)

const fakeFFmpeg = `#!/bin/sh
in=""
prev=""
for a in "$@"; do
  if [ "$prev" = "-i" ]; then in="$a"; fi
  prev="$a"
  out="$a"
done
case " $* " in
  *" -empty "*) : > "$out"; exit 0 ;;
  *" -fail "*) echo "Invalid argument" >&2; exit 1 ;;
esac
{ printf 'ENC['; cat "$in"; printf ']'; } > "$out"
`

func newFakeFFmpeg(t *testing.T) *FFmpeg {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(bin, []byte(fakeFFmpeg), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := NewFFmpeg(FFmpegConfig{Binary: bin})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func writeInput(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestOutputPath(t *testing.T) {
	cfg := Config{OutputExtension: "mp3", BufferDir: "/var/buffer"}
	if got := OutputPath("/data/in/test.wav", cfg); got != "/var/buffer/test.wav.mp3" {
		t.Errorf("OutputPath = %s", got)
	}
	cfg.OutputExtension = ".ogg"
	if got := OutputPath("rec.mp3", cfg); got != "/var/buffer/rec.mp3.ogg" {
		t.Errorf("leading dot should be trimmed, got %s", got)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	bad := DefaultConfig()
	bad.OutputExtension = "../mp3"
	if !errors.IsFatal(bad.Validate()) {
		t.Error("extension with a path separator should be rejected")
	}
	bad = DefaultConfig()
	bad.BufferDir = ""
	if !errors.IsFatal(bad.Validate()) {
		t.Error("empty buffer dir should be rejected")
	}
}

func TestSplitOptions(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"  -ar 16000   -ac 1 ", []string{"-ar", "16000", "-ac", "1"}},
		{`-af "highpass=f=200, lowpass=f=3000"`, []string{"-af", "highpass=f=200, lowpass=f=3000"}},
		{`-metadata 'title=It"s'`, []string{"-metadata", `title=It"s`}},
		{`a\ b "c\"d" ''`, []string{"a b", `c"d`, ""}},
	}
	for _, tt := range tests {
		got, err := SplitOptions(tt.in)
		if err != nil {
			t.Errorf("SplitOptions(%q): %v", tt.in, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitOptions(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	for _, in := range []string{`-af "unterminated`, `-x 'open`, `trailing\`} {
		if _, err := SplitOptions(in); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}

func TestNewFFmpeg_MissingBinary(t *testing.T) {
	_, err := NewFFmpeg(FFmpegConfig{Binary: filepath.Join(t.TempDir(), "ffmpeg")})
	if !errors.IsFatal(err) {
		t.Fatalf("expected CONFIGURATION_ERROR, got %v", err)
	}
}

func TestTranscode_NamingAndSize(t *testing.T) {
	f := newFakeFFmpeg(t)
	in := writeInput(t, "test.wav", []byte("RIFF....WAVE"))
	cfg := Config{Options: "-codec copy", OutputExtension: "mp3", BufferDir: filepath.Join(t.TempDir(), "buf")}

	res, err := f.Transcode(context.Background(), in, cfg)
	if err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	if filepath.Base(res.Path) != "test.wav.mp3" {
		t.Errorf("basename = %s", filepath.Base(res.Path))
	}
	if filepath.Dir(res.Path) != cfg.BufferDir {
		t.Errorf("output written outside buffer dir: %s", res.Path)
	}
	if res.Size != int64(len(res.Content)) || res.Size == 0 {
		t.Errorf("size %d does not match content length %d", res.Size, len(res.Content))
	}
	if !bytes.Equal(res.Content, []byte("ENC[RIFF....WAVE]")) {
		t.Errorf("content = %q", res.Content)
	}
}

func TestTranscode_EmptyOutput(t *testing.T) {
	f := newFakeFFmpeg(t)
	in := writeInput(t, "a.wav", []byte("x"))
	_, err := f.Transcode(context.Background(), in, Config{Options: "-empty", OutputExtension: "mp3", BufferDir: t.TempDir()})
	if errors.KindOf(err) != errors.ErrCodeTranscode {
		t.Fatalf("expected TRANSCODE_ERROR, got %v", err)
	}
}

func TestTranscode_ProcessFailure(t *testing.T) {
	f := newFakeFFmpeg(t)
	in := writeInput(t, "a.wav", []byte("x"))
	_, err := f.Transcode(context.Background(), in, Config{Options: "-fail", OutputExtension: "mp3", BufferDir: t.TempDir()})
	if errors.KindOf(err) != errors.ErrCodeTranscode {
		t.Fatalf("expected TRANSCODE_ERROR, got %v", err)
	}
}

func TestTranscode_BadOptions(t *testing.T) {
	f := newFakeFFmpeg(t)
	_, err := f.Transcode(context.Background(), "a.wav", Config{Options: `"open`, OutputExtension: "mp3", BufferDir: t.TempDir()})
	if errors.KindOf(err) != errors.ErrCodeTranscode {
		t.Fatalf("expected TRANSCODE_ERROR, got %v", err)
	}
}

func TestTranscode_ConcurrentSameOutput(t *testing.T) {
	f := newFakeFFmpeg(t)
	in := writeInput(t, "same.wav", []byte("payload"))
	cfg := Config{OutputExtension: "mp3", BufferDir: t.TempDir()}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.Transcode(context.Background(), in, cfg)
			if err != nil {
				t.Error(err)
				return
			}
			if string(res.Content) != "ENC[payload]" {
				t.Errorf("torn output %q", res.Content)
			}
		}()
	}
	wg.Wait()
}

// Exercises the real encoder when it is installed.
func TestFFmpeg_CopyAndLossyShape(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	src := filepath.Join(t.TempDir(), "tone.wav")
	gen := exec.Command("ffmpeg", "-y", "-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", "sine=frequency=440:duration=1", src)
	if out, err := gen.CombinedOutput(); err != nil {
		t.Skipf("cannot generate test tone: %v: %s", err, out)
	}
	input, _ := os.ReadFile(src)

	f, err := NewFFmpeg(FFmpegConfig{})
	if err != nil {
		t.Fatal(err)
	}

	copied, err := f.Transcode(context.Background(), src, Config{Options: "-c copy", OutputExtension: "wav", BufferDir: t.TempDir()})
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	if copied.Size == 0 {
		t.Error("copy transcode produced empty output")
	}

	lossy, err := f.Transcode(context.Background(), src, Config{Options: "-af volume=0.5", OutputExtension: "wav", BufferDir: t.TempDir()})
	if err != nil {
		t.Fatalf("lossy: %v", err)
	}
	if sha256.Sum256(lossy.Content) == sha256.Sum256(input) {
		t.Error("lossy filter should change the content hash")
	}
}
