package model

import (
	"errors"
	"testing"
	"time"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := NewBreaker(3, time.Minute)
	fail := func() error { return errors.New("down") }

	for i := 0; i < 3; i++ {
		if err := b.Call(fail); err == nil {
			t.Fatal("expected failure")
		}
	}
	if !b.IsOpen() {
		t.Fatal("breaker should open after threshold failures")
	}
	if err := b.Call(fail); err != ErrBreakerOpen {
		t.Errorf("open breaker should reject without calling, got %v", err)
	}
}

func TestBreakerRecovers(t *testing.T) {
	b := NewBreaker(1, time.Minute)
	if err := b.Call(func() error { return errors.New("down") }); err == nil {
		t.Fatal("expected failure")
	}
	if !b.IsOpen() {
		t.Fatal("breaker should be open")
	}

	// Age the failure past the recovery timeout.
	b.mu.Lock()
	b.lastFailure = time.Now().Add(-2 * time.Minute)
	b.mu.Unlock()

	ok := func() error { return nil }
	if err := b.Call(ok); err != nil {
		t.Fatalf("half-open test call should pass: %v", err)
	}
	if err := b.Call(ok); err != nil {
		t.Fatalf("second test call should pass: %v", err)
	}
	if b.State() != string(breakerClosed) {
		t.Errorf("breaker state = %s, want closed", b.State())
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(3, time.Minute)
	b.Call(func() error { return errors.New("down") })
	b.Call(func() error { return nil })
	b.Call(func() error { return errors.New("down") })
	b.Call(func() error { return errors.New("down") })
	if b.IsOpen() {
		t.Errorf("non-consecutive failures should not open the breaker")
	}
}
