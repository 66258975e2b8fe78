package process_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/audiotranscriber/process"
)

func TestRunner_RunsCommand(t *testing.T) {
	r := process.NewRunner("ffmpeg", process.Config{}, nil)
	res, err := r.Run(context.Background(), process.Command{Binary: "echo", Args: []string{"ok"}})
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(res.Stdout)) != "ok" {
		t.Errorf("stdout = %q", res.Stdout)
	}
	if r.InUse() != 0 {
		t.Errorf("InUse() = %d", r.InUse())
	}
}

func TestRunner_Timeout(t *testing.T) {
	r := process.NewRunner("mlx", process.Config{Timeout: 50 * time.Millisecond, GracePeriod: 100 * time.Millisecond}, nil)
	start := time.Now()
	_, err := r.Run(context.Background(), process.Command{Binary: "sleep", Args: []string{"10"}})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("timeout not enforced: %v", time.Since(start))
	}
}

func TestRunner_SerializesByDefault(t *testing.T) {
	r := process.NewRunner("mlx", process.Config{MaxConcurrent: 1}, nil)

	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Run(context.Background(), process.Command{Binary: "sleep", Args: []string{"0.05"}}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("three serialized runs finished in %v", elapsed)
	}
}
