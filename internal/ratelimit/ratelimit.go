// Package ratelimit implements a fixed-window request limiter keyed by
// session identifier.
package ratelimit

import (
	"sync"
	"time"
)

// Result describes the outcome of a limiter check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

type window struct {
	start time.Time
	count int
}

// Limiter counts requests per key inside fixed windows. Once the count
// reaches the maximum, further requests are denied until the window rolls
// over.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	size    time.Duration
	max     int
	now     func() time.Time
}

// New creates a limiter allowing max requests per window of the given size.
func New(size time.Duration, max int) *Limiter {
	return &Limiter{
		windows: make(map[string]*window),
		size:    size,
		max:     max,
		now:     time.Now,
	}
}

// Check records a request for key and reports whether it is allowed.
// Denied requests do not consume quota in the next window.
func (l *Limiter) Check(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.size {
		w = &window{start: now}
		l.windows[key] = w
	}

	resetIn := l.size - now.Sub(w.start)
	if w.count >= l.max {
		return Result{Allowed: false, Remaining: 0, ResetIn: resetIn}
	}

	w.count++
	return Result{Allowed: true, Remaining: l.max - w.count, ResetIn: resetIn}
}

// Sweep drops windows that have already expired. Intended to run on a
// schedule to keep the map from accumulating idle keys.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, w := range l.windows {
		if now.Sub(w.start) >= l.size {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
