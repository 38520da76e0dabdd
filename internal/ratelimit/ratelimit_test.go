package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_UnlimitedNeverBlocks(t *testing.T) {
	l := New(0, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	for i := 0; i < 100; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("Wait() = %v on iteration %d", err, i)
		}
	}
}

func TestLimiter_BurstThenThrottle(t *testing.T) {
	l := New(1, 2)

	if !l.Allow() || !l.Allow() {
		t.Fatal("burst of 2 should be allowed")
	}
	if l.Allow() {
		t.Error("third immediate request should be throttled")
	}
}

func TestLimiter_WaitHonoursContext(t *testing.T) {
	l := New(0.1, 1)
	l.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx); err == nil {
		t.Error("Wait() should fail when the context expires first")
	}
}

func TestLimiter_NilIsUnlimited(t *testing.T) {
	var l *Limiter
	if err := l.Wait(context.Background()); err != nil {
		t.Errorf("nil Wait() = %v", err)
	}
}
