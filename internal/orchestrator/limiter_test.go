package orchestrator

import (
	"context"
	"testing"
	"time"
)

func TestNewLimiter_CoercesCapacity(t *testing.T) {
	for _, n := range []int{-3, 0, 1} {
		if got := cap(NewLimiter(n)); got != 1 {
			t.Errorf("cap(NewLimiter(%d)) = %d, want 1", n, got)
		}
	}
	if got := cap(NewLimiter(5)); got != 5 {
		t.Errorf("cap(NewLimiter(5)) = %d, want 5", got)
	}
}

func TestLimiter_AcquireRelease(t *testing.T) {
	lim := NewLimiter(2)
	ctx := context.Background()

	if err := lim.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := lim.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	// Third acquire blocks until a release.
	acquired := make(chan struct{})
	go func() {
		if err := lim.Acquire(ctx); err == nil {
			close(acquired)
		}
	}()

	select {
	case <-acquired:
		t.Fatal("third Acquire succeeded with no free slot")
	case <-time.After(20 * time.Millisecond):
	}

	lim.Release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("Acquire did not proceed after Release")
	}
}

func TestLimiter_AcquireCanceled(t *testing.T) {
	lim := NewLimiter(1)
	ctx := context.Background()
	if err := lim.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if err := lim.Acquire(canceled); err == nil {
		t.Fatal("Acquire on canceled context should fail")
	}
}
