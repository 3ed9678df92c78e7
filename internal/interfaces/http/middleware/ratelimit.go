package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/osmap/backend/internal/interfaces/http/dto"
)

// RateLimiter is a fixed-window request counter keyed by caller.
// Expired windows are swept while handling requests, so no background
// goroutine is needed.
type RateLimiter struct {
	mu        sync.Mutex
	windows   map[string]*rateWindow
	limit     int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type rateWindow struct {
	used    int
	resetAt time.Time
}

// RateDecision is the outcome of one Allow call
type RateDecision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// NewRateLimiter creates a limiter allowing limit requests per window
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		windows: make(map[string]*rateWindow),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Limit returns the number of requests allowed per window
func (rl *RateLimiter) Limit() int {
	return rl.limit
}

// Allow consumes one request for key
func (rl *RateLimiter) Allow(key string) RateDecision {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	w, ok := rl.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &rateWindow{resetAt: now.Add(rl.window)}
		rl.windows[key] = w
	}

	if w.used >= rl.limit {
		return RateDecision{RetryAfter: w.resetAt.Sub(now)}
	}
	w.used++
	return RateDecision{Allowed: true, Remaining: rl.limit - w.used}
}

// sweep drops expired windows at most once per window; callers hold mu
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.window {
		return
	}
	rl.lastSweep = now
	for key, w := range rl.windows {
		if !now.Before(w.resetAt) {
			delete(rl.windows, key)
		}
	}
}

// RateLimit limits requests per client IP. A nil limiter or a limit of 0
// disables the check.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return RateLimitByKey(limiter, func(c *gin.Context) string {
		return c.ClientIP()
	})
}

// RateLimitByKey limits requests per key returned by keyFunc
func RateLimitByKey(limiter *RateLimiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	if limiter == nil || limiter.limit <= 0 {
		return passThrough
	}
	return func(c *gin.Context) {
		decision := limiter.Allow(keyFunc(c))
		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

		if !decision.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(decision.RetryAfter.Seconds()))))
			c.Set(ErrorCodeKey, dto.ErrCodeRateLimited)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRateLimited,
				"Too many export requests, try again later",
				GetRequestID(c),
				nil,
			))
			return
		}

		c.Next()
	}
}
