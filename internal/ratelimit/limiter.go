// Package ratelimit provides a process-local sliding-window limiter for
// checkout attempts, keyed by client IP.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter counts requests per key inside a sliding window. It is safe for
// concurrent use and must be constructed once at startup and injected, never
// reached through a global.
type Limiter struct {
	mu     sync.Mutex
	window time.Duration
	limit  int
	hits   map[string][]time.Time
	now    func() time.Time
	stop   chan struct{}
}

func New(window time.Duration, limit int) *Limiter {
	l := &Limiter{
		window: window,
		limit:  limit,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
		stop:   make(chan struct{}),
	}
	go l.sweep()
	return l
}

// Allow records an attempt for key and reports whether it is within the
// limit. When denied, the second return value is the wait until the oldest
// in-window attempt expires.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	kept := l.hits[key][:0]
	for _, t := range l.hits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.limit {
		l.hits[key] = kept
		return false, kept[0].Sub(cutoff)
	}

	l.hits[key] = append(kept, now)
	return true, 0
}

// Stop terminates the background sweep.
func (l *Limiter) Stop() {
	close(l.stop)
}

// sweep drops keys with no in-window hits so the map does not grow without
// bound across distinct client IPs.
func (l *Limiter) sweep() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.sweepOnce()
		}
	}
}

func (l *Limiter) sweepOnce() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	for key, times := range l.hits {
		live := false
		for _, t := range times {
			if t.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(l.hits, key)
		}
	}
}
