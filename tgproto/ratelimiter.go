package tgproto

import (
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter provides per-IP rate limiting of accepted connections,
// guarding against a scripted client flooding the daemon. Dispatcher.Serve
// asks it once per accepted connection; OPEN_SESSION requests on an
// already accepted connection are not counted (adapted from the
// teacher's mtglib.RateLimiter, which guards handshakes for the same
// reason).
type RateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	lastUsed map[string]time.Time

	r       rate.Limit
	b       int
	cleanup time.Duration
	stopCh  chan struct{}
}

// NewRateLimiter builds a limiter allowing r accepted connections per
// second per IP, with burst b. Stale per-IP limiters are reaped every
// cleanup interval.
func NewRateLimiter(r rate.Limit, b int, cleanup time.Duration) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		lastUsed: make(map[string]time.Time),
		r:        r,
		b:        b,
		cleanup:  cleanup,
		stopCh:   make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Allow reports whether a request from ip should proceed.
func (rl *RateLimiter) Allow(ip net.IP) bool {
	key := string(ip)

	rl.mu.RLock()
	limiter, exists := rl.limiters[key]
	rl.mu.RUnlock()

	if exists {
		return limiter.Allow()
	}

	rl.mu.Lock()
	limiter, exists = rl.limiters[key]

	if !exists {
		limiter = rate.NewLimiter(rl.r, rl.b)
		rl.limiters[key] = limiter
	}

	rl.lastUsed[key] = time.Now()
	rl.mu.Unlock()

	return limiter.Allow()
}

// Size returns the number of tracked IPs.
func (rl *RateLimiter) Size() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	return len(rl.limiters)
}

// Stop terminates the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanup)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.evictStale()
		}
	}
}

func (rl *RateLimiter) evictStale() {
	cutoff := time.Now().Add(-rl.cleanup)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, last := range rl.lastUsed {
		if last.Before(cutoff) {
			delete(rl.limiters, key)
			delete(rl.lastUsed, key)
		}
	}
}
