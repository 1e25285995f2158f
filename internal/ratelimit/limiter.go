// Package ratelimit bounds anonymous traffic on the public chat
// endpoint with a per-client sliding window.
package ratelimit

import (
	"sync"
	"time"
)

// Result of one admission check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// SlidingWindow counts requests per key over a rolling window. The
// window slides per request, so a burst straddling a boundary cannot
// double the effective limit.
type SlidingWindow struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string][]time.Time
}

func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		limit:   limit,
		window:  window,
		now:     time.Now,
		buckets: make(map[string][]time.Time),
	}
}

// Allow admits one request for key, recording it if admitted.
func (l *SlidingWindow) Allow(key string) Result {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	timestamps := l.buckets[key]
	kept := 0
	for ; kept < len(timestamps); kept++ {
		if timestamps[kept].After(cutoff) {
			break
		}
	}
	timestamps = timestamps[kept:]

	if len(timestamps) >= l.limit {
		l.buckets[key] = timestamps
		return Result{Allowed: false, Remaining: 0, ResetAt: timestamps[0].Add(l.window)}
	}

	timestamps = append(timestamps, now)
	l.buckets[key] = timestamps
	return Result{
		Allowed:   true,
		Remaining: l.limit - len(timestamps),
		ResetAt:   timestamps[0].Add(l.window),
	}
}

// Prune drops keys with no live entries. Call it periodically from a
// background goroutine; Allow never deletes idle keys on its own.
func (l *SlidingWindow) Prune() {
	cutoff := l.now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, timestamps := range l.buckets {
		live := timestamps[:0]
		for _, ts := range timestamps {
			if ts.After(cutoff) {
				live = append(live, ts)
			}
		}
		if len(live) == 0 {
			delete(l.buckets, key)
		} else {
			l.buckets[key] = live
		}
	}
}
