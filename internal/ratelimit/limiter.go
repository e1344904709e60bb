// Package ratelimit bounds outbound calls to the upstream data source.
//
// The limiter is a blocking fixed-window counter shared by all
// concurrent fetchers: once the per-window budget is spent, callers
// stall until the window rolls over instead of being rejected. Callers
// are background sync workers, so stalling is acceptable; they
// serialize only on the counter bookkeeping, never on the downstream
// call itself.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter admits at most maxCalls calls per rolling window.
type Limiter struct {
	mu          sync.Mutex
	maxCalls    int
	window      time.Duration
	calls       int
	windowStart time.Time

	now func() time.Time // test hook
}

// New creates a limiter with the given per-window call budget.
func New(maxCalls int, window time.Duration) *Limiter {
	if maxCalls < 1 {
		maxCalls = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		maxCalls: maxCalls,
		window:   window,
		now:      time.Now,
	}
}

// Wait blocks until the caller may issue one call. It returns early
// with the context error if ctx is cancelled while stalled.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.windowStart) > l.window {
		l.calls = 0
		l.windowStart = now
	}

	if l.calls >= l.maxCalls {
		stall := l.windowStart.Add(l.window).Sub(now)
		if stall > 0 {
			timer := time.NewTimer(stall)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
		l.calls = 0
		l.windowStart = l.now()
	}

	l.calls++
	return nil
}
