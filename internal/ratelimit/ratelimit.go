// Package ratelimit implements the fixed-window request counter guarding the
// public routes. Burstiness at window boundaries is an accepted tradeoff for
// keeping the bookkeeping to a map and a mutex.
package ratelimit

import (
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int
}

// Limiter counts requests per client key within fixed windows. Idle entries
// are dropped opportunistically so the map stays bounded.
type Limiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	windows map[string]*window
	lastGC  time.Time
	now     func() time.Time
}

func New(limit int, windowDur time.Duration) *Limiter {
	if limit <= 0 {
		limit = 60
	}
	if windowDur <= 0 {
		windowDur = time.Minute
	}
	return &Limiter{
		limit:   limit,
		window:  windowDur,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Check records one request for clientKey. When the request pushes the
// client past the limit it is denied and retryAfter reports how long until
// the current window rolls over.
func (l *Limiter) Check(clientKey string) (allowed bool, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	start := now.Truncate(l.window)

	if l.lastGC.IsZero() || now.Sub(l.lastGC) > 4*l.window {
		for k, w := range l.windows {
			if now.Sub(w.start) > 4*l.window {
				delete(l.windows, k)
			}
		}
		l.lastGC = now
	}

	w, ok := l.windows[clientKey]
	if !ok || w.start.Before(start) {
		l.windows[clientKey] = &window{start: start, count: 1}
		return true, 0
	}
	w.count++
	if w.count > l.limit {
		return false, start.Add(l.window).Sub(now)
	}
	return true, 0
}
