package http

import (
	"sync"
	"sync/atomic"
	"time"
)

// RateLimits tunes the per-client limiter on mutating requests. Zero
// fields fall back to the defaults (60 req/min, 10min staleness, 5min
// cleanup).
type RateLimits struct {
	PerMinute       int
	StaleAfter      time.Duration
	CleanupInterval time.Duration
}

func (l RateLimits) withDefaults() RateLimits {
	if l.PerMinute < 1 {
		l.PerMinute = 60
	}
	if l.StaleAfter <= 0 {
		l.StaleAfter = 10 * time.Minute
	}
	if l.CleanupInterval <= 0 {
		l.CleanupInterval = 5 * time.Minute
	}
	return l
}

// rateLimiter implements a simple in-memory rate limiter per client IP.
type rateLimiter struct {
	limits       RateLimits
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter(limits RateLimits) *rateLimiter {
	rl := &rateLimiter{
		limits:      limits.withDefaults(),
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

// startCleanup runs periodic cleanup to remove stale client entries.
func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(rl.limits.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries idle past the stale cutoff.
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-rl.limits.StaleAfter)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// stop gracefully shuts down the rate limiter cleanup goroutine.
func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

// allow checks if a request from the given IP should be allowed.
// Returns false once the client exceeds PerMinute requests within a
// one-minute window.
func (rl *rateLimiter) allow(clientIP string, metrics *securityMetrics) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	client.requests++
	client.lastRequest = now

	if client.requests > rl.limits.PerMinute {
		if metrics != nil {
			atomic.AddInt64(&metrics.rateLimitHits, 1)
		}
		return false
	}

	return true
}
