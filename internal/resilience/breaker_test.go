package resilience

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func failingBreaker(t *testing.T, cooldown time.Duration) *Breaker {
	t.Helper()
	b := NewBreaker(BreakerConfig{
		Name:             "test",
		FailureThreshold: 3,
		Cooldown:         cooldown,
		ProbeBudget:      2,
	})
	for i := 0; i < 3; i++ {
		if err := b.Do(func() error { return errBoom }); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: err = %v, want errBoom", i, err)
		}
	}
	return b
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := failingBreaker(t, time.Hour)

	if got := b.State(); got != BreakerOpen {
		t.Fatalf("state = %v, want open", got)
	}
	if err := b.Do(func() error { return nil }); !errors.Is(err, ErrOpen) {
		t.Fatalf("err = %v, want ErrOpen", err)
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 3})

	for i := 0; i < 10; i++ {
		_ = b.Do(func() error { return errBoom })
		_ = b.Do(func() error { return errBoom })
		if err := b.Do(func() error { return nil }); err != nil {
			t.Fatalf("success call failed: %v", err)
		}
	}
	if got := b.State(); got != BreakerClosed {
		t.Fatalf("state = %v, want closed", got)
	}
}

func TestBreaker_HalfOpenClosesAfterProbes(t *testing.T) {
	b := failingBreaker(t, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	if got := b.State(); got != BreakerHalfOpen {
		t.Fatalf("state = %v, want half-open", got)
	}
	// ProbeBudget is 2: two successful probes close the breaker.
	for i := 0; i < 2; i++ {
		if err := b.Do(func() error { return nil }); err != nil {
			t.Fatalf("probe %d failed: %v", i, err)
		}
	}
	if got := b.State(); got != BreakerClosed {
		t.Fatalf("state = %v, want closed", got)
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := failingBreaker(t, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	if err := b.Do(func() error { return errBoom }); !errors.Is(err, errBoom) {
		t.Fatalf("probe err = %v, want errBoom", err)
	}
	if got := b.State(); got != BreakerOpen {
		t.Fatalf("state = %v, want open", got)
	}
}

func TestBreaker_Reset(t *testing.T) {
	b := failingBreaker(t, time.Hour)
	b.Reset()

	if got := b.State(); got != BreakerClosed {
		t.Fatalf("state = %v, want closed", got)
	}
	if err := b.Do(func() error { return nil }); err != nil {
		t.Fatalf("call after reset failed: %v", err)
	}
}
