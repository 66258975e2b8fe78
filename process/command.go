// Package process runs external engine binaries (python, ffmpeg) as child
// processes with captured output, process-group termination and a
// concurrency gate.
package process

import (
	"io"
	"time"
)

// Command describes one subprocess invocation.
type Command struct {
	// Binary is the executable path or a name resolved via PATH.
	Binary string
	// Args are the command-line arguments.
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env holds extra key=value pairs appended to the parent environment.
	Env []string
	// Stdin feeds the process. May be nil.
	Stdin io.Reader
	// GracePeriod is the wait between SIGTERM and SIGKILL on cancellation.
	// Defaults to 5 seconds.
	GracePeriod time.Duration
}

// Result holds the output of a finished subprocess.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int // -1 when killed by a signal
	Duration time.Duration
}
