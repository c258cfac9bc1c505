// Package ratelimit bounds the outbound request rate with a sliding
// one-second window.
package ratelimit

import (
	"sync"
	"time"
)

// DefaultWindow is the span the limiter counts grants over.
const DefaultWindow = 1 * time.Second

// Limiter grants up to limit acquisitions per sliding window. It never
// blocks; a denied caller is expected to wait and try again. Safe for
// concurrent use.
type Limiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	stamps []time.Time
	now    func() time.Time
}

// New creates a limiter granting limit acquisitions per second.
func New(limit int) *Limiter {
	return newWithClock(limit, DefaultWindow, time.Now)
}

func newWithClock(limit int, window time.Duration, now func() time.Time) *Limiter {
	return &Limiter{
		limit:  limit,
		window: window,
		now:    now,
	}
}

// TryAcquire reports whether the caller may proceed. A grant is recorded;
// a denial records nothing.
func (l *Limiter) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	// Evict grants strictly older than the window.
	i := 0
	for i < len(l.stamps) && l.stamps[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[i:]...)
	}

	if len(l.stamps) >= l.limit {
		return false
	}
	l.stamps = append(l.stamps, now)
	return true
}
