package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(window time.Duration, limit int) (*Limiter, *time.Time) {
	l := New(window, limit)
	current := time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return current }
	return l, &current
}

func TestLimiter_AllowsUpToLimit(t *testing.T) {
	l, _ := newTestLimiter(10*time.Minute, 20)
	defer l.Stop()

	for i := 0; i < 20; i++ {
		ok, _ := l.Allow("203.0.113.7")
		assert.True(t, ok, "attempt %d should be allowed", i+1)
	}

	ok, wait := l.Allow("203.0.113.7")
	assert.False(t, ok, "21st attempt within the window must be denied")
	assert.Positive(t, wait)
	assert.LessOrEqual(t, wait, 10*time.Minute)
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(10*time.Minute, 2)
	defer l.Stop()

	l.Allow("a")
	l.Allow("a")
	ok, _ := l.Allow("a")
	assert.False(t, ok)

	ok, _ = l.Allow("b")
	assert.True(t, ok, "a different key has its own window")
}

func TestLimiter_WindowSlides(t *testing.T) {
	l, current := newTestLimiter(10*time.Minute, 2)
	defer l.Stop()

	l.Allow("a")
	*current = current.Add(5 * time.Minute)
	l.Allow("a")

	ok, wait := l.Allow("a")
	assert.False(t, ok)
	// The oldest hit expires 10 minutes after it happened, i.e. 5 minutes
	// from the current fake clock.
	assert.Equal(t, 5*time.Minute, wait)

	*current = current.Add(5*time.Minute + time.Second)
	ok, _ = l.Allow("a")
	assert.True(t, ok, "attempts outside the window no longer count")
}

func TestLimiter_SweepDropsIdleKeys(t *testing.T) {
	l, current := newTestLimiter(time.Minute, 5)
	defer l.Stop()

	l.Allow("idle")
	l.Allow("fresh")
	*current = current.Add(2 * time.Minute)
	l.Allow("fresh")

	l.sweepOnce()

	l.mu.Lock()
	_, idleKept := l.hits["idle"]
	_, freshKept := l.hits["fresh"]
	l.mu.Unlock()

	assert.False(t, idleKept, "idle keys are swept")
	assert.True(t, freshKept, "keys with in-window hits survive")
}

func TestLimiter_ConcurrentAccess(t *testing.T) {
	l := New(time.Minute, 1000)
	defer l.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				l.Allow("shared")
			}
		}()
	}
	wg.Wait()

	ok, _ := l.Allow("shared")
	assert.False(t, ok, "exactly 1000 hits recorded under concurrency")
}
