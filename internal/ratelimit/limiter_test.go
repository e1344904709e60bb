package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLimiter_UnderBudgetDoesNotBlock(t *testing.T) {
	l := New(5, time.Minute)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("5 calls under budget took %v, want immediate", elapsed)
	}
}

func TestLimiter_BlocksUntilWindowRollsOver(t *testing.T) {
	window := 200 * time.Millisecond
	l := New(2, window)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 4; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
	// Four calls against a budget of two must span at least one window.
	if elapsed := time.Since(start); elapsed < window/2 {
		t.Errorf("4 calls took %v, want >= %v", elapsed, window/2)
	}
}

func TestLimiter_WindowResetAdmitsNewCalls(t *testing.T) {
	l := New(1, time.Minute)
	l.calls = 1
	l.windowStart = time.Now().Add(-2 * time.Minute)

	start := time.Now()
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("call after expired window took %v, want immediate", elapsed)
	}
	if l.calls != 1 {
		t.Errorf("calls = %d, want 1 after reset", l.calls)
	}
}

func TestLimiter_CancelledWhileStalled(t *testing.T) {
	l := New(1, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	if err := l.Wait(ctx); err != nil {
		t.Fatalf("first Wait() error = %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- l.Wait(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Errorf("Wait() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait() did not return after cancel")
	}
}

func TestLimiter_ConcurrentCallersNeverExceedBudget(t *testing.T) {
	window := 150 * time.Millisecond
	budget := 3
	l := New(budget, window)

	var mu sync.Mutex
	var stamps []time.Time

	var wg sync.WaitGroup
	for i := 0; i < budget*2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Wait(context.Background()); err != nil {
				t.Errorf("Wait() error = %v", err)
				return
			}
			mu.Lock()
			stamps = append(stamps, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	// No window-sized interval may contain more than budget admissions.
	// Allow a little slack at the boundary for timer wake-up jitter.
	slack := 20 * time.Millisecond
	for i := range stamps {
		count := 0
		for j := range stamps {
			d := stamps[j].Sub(stamps[i])
			if d >= 0 && d < window-slack {
				count++
			}
		}
		if count > budget {
			t.Fatalf("found %d admissions within one window, budget %d", count, budget)
		}
	}
}
