package middleware

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker("test", 2, time.Hour)
	fail := func() error { return errors.New("boom") }

	_ = cb.Call(context.Background(), fail)
	_ = cb.Call(context.Background(), fail)

	if cb.GetState() != StateOpen {
		t.Fatalf("expected open state after %d failures", 2)
	}

	err := cb.Call(context.Background(), func() error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreakerRecovers(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, time.Millisecond)
	_ = cb.Call(context.Background(), func() error { return errors.New("boom") })
	if cb.GetState() != StateOpen {
		t.Fatalf("expected open state")
	}

	time.Sleep(5 * time.Millisecond)
	if err := cb.Call(context.Background(), func() error { return nil }); err != nil {
		t.Fatalf("expected half-open probe to pass: %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("expected closed state after successful probe")
	}
}
