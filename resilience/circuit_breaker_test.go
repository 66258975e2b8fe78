package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"
)

var errSidecar = errors.New("sidecar returned 503")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(cfg CircuitBreakerConfig) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	cb := NewCircuitBreaker(cfg)
	cb.now = clock.Now
	return cb, clock
}

func failN(cb *CircuitBreaker, n int) {
	for i := 0; i < n; i++ {
		_ = cb.Execute(func() error { return errSidecar })
	}
}

func TestCircuitBreaker_StartsClosed(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("whisper"))
	if cb.State() != StateClosed {
		t.Errorf("expected closed, got %s", cb.State())
	}
	called := false
	if err := cb.Execute(func() error { called = true; return nil }); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Error("fn was not called")
	}
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{Name: "whisper", MaxFailures: 3, Timeout: time.Minute})
	failN(cb, 3)

	if cb.State() != StateOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}
	err := cb.Execute(func() error {
		t.Error("fn must not run while open")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{MaxFailures: 3})
	failN(cb, 2)
	_ = cb.Execute(func() error { return nil })
	if cb.Failures() != 0 {
		t.Errorf("Failures() = %d", cb.Failures())
	}
	failN(cb, 2)
	if cb.State() != StateClosed {
		t.Error("circuit should still be closed")
	}
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	cb, clock := newTestBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: 10 * time.Second})
	failN(cb, 1)

	clock.Advance(9 * time.Second)
	if cb.State() != StateOpen {
		t.Fatalf("expected open before cool-down, got %s", cb.State())
	}
	clock.Advance(time.Second)
	if cb.State() != StateHalfOpen {
		t.Fatalf("expected half-open, got %s", cb.State())
	}

	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	if cb.State() != StateClosed {
		t.Errorf("successful probe should close, got %s", cb.State())
	}
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	cb, clock := newTestBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Second})
	failN(cb, 1)
	clock.Advance(time.Second)

	failN(cb, 1)
	if cb.State() != StateOpen {
		t.Errorf("failed probe should reopen, got %s", cb.State())
	}
}

func TestCircuitBreaker_IsFailureFilter(t *testing.T) {
	badInput := errors.New("400 bad request")
	cb, _ := newTestBreaker(CircuitBreakerConfig{
		MaxFailures: 1,
		IsFailure:   func(err error) bool { return !errors.Is(err, badInput) },
	})

	err := cb.Execute(func() error { return badInput })
	if !errors.Is(err, badInput) {
		t.Fatalf("error should pass through, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Error("ignored errors must not open the circuit")
	}
}

func TestCircuitBreaker_StateChangeCallback(t *testing.T) {
	var transitions []string
	cb, clock := newTestBreaker(CircuitBreakerConfig{
		Name:        "whisper",
		MaxFailures: 1,
		Timeout:     time.Second,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
	})
	failN(cb, 1)
	clock.Advance(time.Second)
	_ = cb.Execute(func() error { return nil })

	want := []string{"whisper:closed->open", "whisper:open->half-open", "whisper:half-open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v", transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, transitions[i], want[i])
		}
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{MaxFailures: 1})
	failN(cb, 1)
	cb.Reset()
	if cb.State() != StateClosed || cb.Failures() != 0 {
		t.Errorf("after Reset: state=%s failures=%d", cb.State(), cb.Failures())
	}
}

func TestCircuitBreaker_ConcurrentState(t *testing.T) {
	cb, clock := newTestBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Millisecond})
	failN(cb, 1)
	clock.Advance(time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = cb.State()
		}()
	}
	wg.Wait()
	if cb.State() != StateHalfOpen {
		t.Errorf("expected half-open, got %s", cb.State())
	}
}
