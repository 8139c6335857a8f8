package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter enforces a fixed-window request quota per key. State lives in
// process memory; like the session table, it is deliberately not durable.
type RateLimiter struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	counts    map[string]*windowCount
	lastPrune time.Time
}

type windowCount struct {
	start time.Time
	n     int
}

// NewRateLimiter allows max requests per key within each window.
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		max:    max,
		window: window,
		now:    time.Now,
		counts: make(map[string]*windowCount),
	}
}

// Allow records one request for key and reports whether it is within quota.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.pruneLocked(now)

	w, ok := l.counts[key]
	if !ok || now.Sub(w.start) >= l.window {
		l.counts[key] = &windowCount{start: now, n: 1}
		return l.max >= 1
	}
	w.n++
	return w.n <= l.max
}

// pruneLocked drops expired windows so the map does not grow with every IP
// ever seen. Runs at most once per window.
func (l *RateLimiter) pruneLocked(now time.Time) {
	if now.Sub(l.lastPrune) < l.window {
		return
	}
	l.lastPrune = now
	for key, w := range l.counts {
		if now.Sub(w.start) >= l.window {
			delete(l.counts, key)
		}
	}
}

// RateLimitMiddleware rejects requests from clients over their per-IP quota
// before they reach the execution gateway.
func RateLimitMiddleware(l *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}
