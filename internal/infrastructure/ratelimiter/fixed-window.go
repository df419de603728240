package ratelimiter

import (
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// FixedWindowRateLimiter counts requests per client key inside fixed time
// windows. State for clients whose window has passed is dropped by a
// background sweep.
type FixedWindowRateLimiter struct {
	mu      sync.Mutex
	clients map[string]*window
	limit   int
	window  time.Duration

	cleanupTick *time.Ticker
	done        chan struct{}
}

func NewFixedWindowRateLimiter(limit int, windowLength time.Duration) *FixedWindowRateLimiter {
	rl := &FixedWindowRateLimiter{
		clients:     make(map[string]*window),
		limit:       limit,
		window:      windowLength,
		cleanupTick: time.NewTicker(windowLength),
		done:        make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

// Allow reports whether the client identified by key may proceed, and if
// not, how long until its window resets.
func (rl *FixedWindowRateLimiter) Allow(key string) (bool, time.Duration) {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.clients[key]
	if !ok || !now.Before(w.resetAt) {
		rl.clients[key] = &window{count: 1, resetAt: now.Truncate(rl.window).Add(rl.window)}
		return true, 0
	}

	if w.count >= rl.limit {
		return false, time.Until(w.resetAt)
	}
	w.count++
	return true, 0
}

func (rl *FixedWindowRateLimiter) startCleanup() {
	for {
		select {
		case <-rl.cleanupTick.C:
			rl.cleanup()
		case <-rl.done:
			return
		}
	}
}

func (rl *FixedWindowRateLimiter) cleanup() {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, w := range rl.clients {
		if now.After(w.resetAt) {
			delete(rl.clients, key)
		}
	}
}

func (rl *FixedWindowRateLimiter) Close() {
	close(rl.done)
	rl.cleanupTick.Stop()
}
