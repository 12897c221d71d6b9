package resilience

import (
	"errors"
	"testing"
	"time"
)

var errStore = errors.New("store unavailable")

func TestBreakerClosedPassesThrough(t *testing.T) {
	b := NewBreaker(3, time.Second)

	called := false
	err := b.Execute(func() error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !called {
		t.Fatal("fn was not called")
	}
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := NewBreaker(3, time.Second)

	for i := 0; i < 3; i++ {
		_ = b.Execute(func() error { return errStore })
	}

	err := b.Execute(func() error {
		t.Fatal("open breaker must not call fn")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Execute = %v, want ErrCircuitOpen", err)
	}
}

func TestBreakerProbesAfterCooldown(t *testing.T) {
	now := time.Now()
	b := NewBreaker(2, time.Second)
	b.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		_ = b.Execute(func() error { return errStore })
	}
	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Execute before cooldown = %v, want ErrCircuitOpen", err)
	}

	now = now.Add(2 * time.Second)

	// The probe goes through, and its success closes the breaker.
	called := false
	if err := b.Execute(func() error {
		called = true
		return nil
	}); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if !called {
		t.Fatal("probe was not called")
	}
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("Execute after successful probe: %v", err)
	}
}

func TestBreakerProbeFailureReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker(2, time.Second)
	b.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		_ = b.Execute(func() error { return errStore })
	}
	now = now.Add(2 * time.Second)

	// A single failed probe re-opens for a full cooldown.
	_ = b.Execute(func() error { return errStore })
	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Execute after failed probe = %v, want ErrCircuitOpen", err)
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(3, time.Second)

	_ = b.Execute(func() error { return errStore })
	_ = b.Execute(func() error { return errStore })
	_ = b.Execute(func() error { return nil })
	_ = b.Execute(func() error { return errStore })
	_ = b.Execute(func() error { return errStore })

	// Only two consecutive failures since the success: still closed.
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}
