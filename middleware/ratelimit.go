package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Limiter decides whether a caller may make one more request. Swap the
// in-process implementation for a shared store when running more than one
// instance.
type Limiter interface {
	Allow(key string) bool
}

// FixedWindowLimiter counts requests per key in fixed windows.
type FixedWindowLimiter struct {
	mu       sync.Mutex
	requests map[string]*clientRequest
	limit    int
	window   time.Duration
	now      func() time.Time
}

type clientRequest struct {
	count     int
	resetTime time.Time
}

func NewFixedWindowLimiter(limit int, window time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		requests: make(map[string]*clientRequest),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

func (l *FixedWindowLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	client, exists := l.requests[key]
	if !exists || !now.Before(client.resetTime) {
		l.requests[key] = &clientRequest{count: 1, resetTime: now.Add(l.window)}
		return true
	}
	if client.count >= l.limit {
		return false
	}
	client.count++
	return true
}

// RunCleanup drops expired windows every interval until ctx is done.
func (l *FixedWindowLimiter) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

func (l *FixedWindowLimiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, client := range l.requests {
		if !now.Before(client.resetTime) {
			delete(l.requests, key)
		}
	}
}

// RateLimiter keys on the authenticated user when known, else the client IP.
func RateLimiter(l Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if userID := GetUserID(c); userID != "" {
			key = "user:" + userID
		}
		if !l.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "Rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
