package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/audiotranscriber/errors"
)

// RateLimitConfig configures the ingest rate limiter.
type RateLimitConfig struct {
	// RequestsPerMinute is the maximum number of requests allowed per minute per key.
	RequestsPerMinute int
	// KeyFunc extracts the rate limit key from a request. Defaults to SubjectKey.
	KeyFunc func(*gin.Context) string
}

// RateLimit returns a Gin middleware that applies per-key sliding-window
// rate limiting. Rejected requests get 429 with a retryable body.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = SubjectKey
	}

	rl := newRateLimiter(cfg.RequestsPerMinute)
	return func(c *gin.Context) {
		if !rl.allow(cfg.KeyFunc(c), time.Now()) {
			body := apperrors.New(apperrors.ErrCodeServiceUnavailable, "Rate limit exceeded.", http.StatusTooManyRequests)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, body.ToResponse())
			return
		}
		c.Next()
	}
}

// SubjectKey keys on the token subject when Auth ran, otherwise the client IP.
func SubjectKey(c *gin.Context) string {
	if claims := ClaimsFrom(c); claims != nil && claims.Subject != "" {
		return "sub:" + claims.Subject
	}
	return "ip:" + c.ClientIP()
}

type rateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	swept    time.Time
}

func newRateLimiter(limit int) *rateLimiter {
	return &rateLimiter{requests: make(map[string][]time.Time), limit: limit}
}

func (rl *rateLimiter) allow(key string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := now.Add(-time.Minute)
	if now.Sub(rl.swept) > 5*time.Minute {
		rl.sweep(cutoff)
		rl.swept = now
	}

	valid := filterByTime(rl.requests[key], cutoff)
	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}
	rl.requests[key] = append(valid, now)
	return true
}

// sweep drops keys with no requests inside the window. Caller holds mu.
func (rl *rateLimiter) sweep(cutoff time.Time) {
	for key, times := range rl.requests {
		valid := filterByTime(times, cutoff)
		if len(valid) == 0 {
			delete(rl.requests, key)
		} else {
			rl.requests[key] = valid
		}
	}
}

func filterByTime(times []time.Time, cutoff time.Time) []time.Time {
	var result []time.Time
	for _, t := range times {
		if t.After(cutoff) {
			result = append(result, t)
		}
	}
	return result
}
