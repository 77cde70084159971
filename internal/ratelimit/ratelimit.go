// Package ratelimit implements a sliding-window limiter for calls to slow
// external sources. Requests over the limit block until capacity frees; none
// are dropped.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// SlidingWindow tracks request timestamps per key and blocks callers that
// exceed maxRequests within the window. Safe for concurrent use.
type SlidingWindow struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	requests    map[string][]time.Time

	now func() time.Time
}

func NewSlidingWindow(maxRequests int, window time.Duration) *SlidingWindow {
	if maxRequests < 1 {
		maxRequests = 1
	}
	return &SlidingWindow{
		maxRequests: maxRequests,
		window:      window,
		requests:    make(map[string][]time.Time),
		now:         time.Now,
	}
}

// Wait blocks until a request slot is available for key, then claims it.
// Returns early with the context error on cancellation.
func (l *SlidingWindow) Wait(ctx context.Context, key string) error {
	for {
		wait := l.tryClaim(key)
		if wait <= 0 {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// tryClaim claims a slot for key if the window has capacity, returning zero.
// Otherwise it returns how long until the oldest tracked request expires.
func (l *SlidingWindow) tryClaim(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	kept := l.requests[key][:0]
	for _, ts := range l.requests[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	l.requests[key] = kept

	if len(kept) < l.maxRequests {
		l.requests[key] = append(kept, now)
		return 0
	}
	return kept[0].Sub(cutoff)
}

// Pending reports how many requests are currently tracked for key.
func (l *SlidingWindow) Pending(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	n := 0
	for _, ts := range l.requests[key] {
		if ts.After(cutoff) {
			n++
		}
	}
	return n
}
