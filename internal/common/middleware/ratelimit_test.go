package middleware

import (
	"context"
	"testing"
	"time"
)

func TestTokenBucketExhausts(t *testing.T) {
	tb := NewTokenBucket(2, 1)
	ctx := context.Background()

	if !tb.Allow(ctx) || !tb.Allow(ctx) {
		t.Fatalf("expected first %d requests allowed", 2)
	}
	if tb.Allow(ctx) {
		t.Fatalf("expected bucket exhausted")
	}
}

func TestSlidingWindowLimits(t *testing.T) {
	sw := NewSlidingWindow(time.Hour, 1)
	ctx := context.Background()

	if !sw.Allow(ctx) {
		t.Fatalf("expected first request allowed")
	}
	if sw.Allow(ctx) {
		t.Fatalf("expected second request rejected within window")
	}
}
