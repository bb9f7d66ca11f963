package service

import (
	"context"
	"sync"
	"time"

	"github.com/catrace/backend/internal/core/ports"
	"github.com/catrace/backend/internal/pkg/clock"
)

// FixedWindowLimiter is the in-process RateLimiter. A key's window opens on
// its first attempt and admits limit attempts until it closes.
type FixedWindowLimiter struct {
	limit  int
	window time.Duration
	clock  clock.Clock

	mu      sync.Mutex
	windows map[string]*fixedWindow
	sweepAt time.Time
}

type fixedWindow struct {
	start time.Time
	count int
}

func NewFixedWindowLimiter(limit int, window time.Duration, clk clock.Clock) *FixedWindowLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &FixedWindowLimiter{
		limit:   limit,
		window:  window,
		clock:   clk,
		windows: make(map[string]*fixedWindow),
	}
}

func (l *FixedWindowLimiter) Allow(_ context.Context, key string) (ports.RateDecision, error) {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)

	w, ok := l.windows[key]
	if !ok || !now.Before(w.start.Add(l.window)) {
		w = &fixedWindow{start: now}
		l.windows[key] = w
	}
	w.count++

	if w.count > l.limit {
		return ports.RateDecision{RetryAfter: w.start.Add(l.window).Sub(now)}, nil
	}
	return ports.RateDecision{Allowed: true}, nil
}

// sweep drops closed windows at most once per window length.
func (l *FixedWindowLimiter) sweep(now time.Time) {
	if now.Before(l.sweepAt) {
		return
	}
	for key, w := range l.windows {
		if !now.Before(w.start.Add(l.window)) {
			delete(l.windows, key)
		}
	}
	l.sweepAt = now.Add(l.window)
}

var _ ports.RateLimiter = (*FixedWindowLimiter)(nil)
