package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newsblog-api/internal/metrics"
	"golang.org/x/time/rate"
)

// limiterIdle is how long an unused client limiter is kept
const limiterIdle = 10 * time.Minute

// rateLimiter holds one token bucket per client IP
type rateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	limit     rate.Limit
	burst     int
	lastSweep time.Time
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

func newRateLimiter(perSecond, burst int) *rateLimiter {
	if burst <= 0 {
		burst = perSecond
	}
	return &rateLimiter{
		limiters: make(map[string]*limiterEntry),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

// allow reports whether client may make a request now
func (rl *rateLimiter) allow(client string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) > limiterIdle {
		for key, e := range rl.limiters {
			if now.Sub(e.lastAccess) > limiterIdle {
				delete(rl.limiters, key)
			}
		}
		rl.lastSweep = now
	}

	e, ok := rl.limiters[client]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[client] = e
	}
	e.lastAccess = now
	return e.limiter.AllowN(now, 1)
}

// rateLimitMiddleware rejects clients exceeding their request rate
func rateLimitMiddleware(rl *rateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP(), time.Now()) {
			metrics.RateLimited.Inc()
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
