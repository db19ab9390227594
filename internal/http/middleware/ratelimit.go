package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type window struct {
	start time.Time
	count int
}

// memoryLimiter is a per-IP fixed-window counter used when Redis is not
// configured or unreachable. State resets on process restart.
type memoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
}

func newMemoryLimiter() *memoryLimiter {
	return &memoryLimiter{windows: make(map[string]*window)}
}

// hit counts one request for ident and returns the requests remaining in
// the current window plus the window reset time. remaining < 0 means the
// request is over the limit.
func (m *memoryLimiter) hit(ident string, max int, dur time.Duration) (remaining int, reset time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	w, ok := m.windows[ident]
	if !ok || now.Sub(w.start) > dur {
		w = &window{start: now, count: 0}
		m.windows[ident] = w
	}
	w.count++
	return max - w.count, w.start.Add(dur)
}

// RateLimit limits each client IP to maxRequests per window. Paths in
// bypass are exempt. Backed by Redis when available, otherwise by an
// in-process counter.
func RateLimit(maxRequests int, dur time.Duration, bypass []string) gin.HandlerFunc {
	exempt := make(map[string]struct{}, len(bypass))
	for _, p := range bypass {
		exempt[p] = struct{}{}
	}
	mem := newMemoryLimiter()

	return func(c *gin.Context) {
		if _, ok := exempt[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		ident := c.ClientIP()
		remaining, reset, ok := redisHit(c.Request.Context(), ident, maxRequests, dur)
		if !ok {
			remaining, reset = mem.hit(ident, maxRequests, dur)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		if remaining < 0 {
			c.Header("X-RateLimit-Remaining", "0")
		} else {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		}
		c.Header("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}
		RLRequests.WithLabelValues(endpoint).Inc()

		if remaining < 0 {
			RLBlocked.WithLabelValues(endpoint).Inc()
			retryAfter := int(time.Until(reset).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "RATE_LIMITED",
				"retryAfter": retryAfter,
			})
			return
		}

		c.Next()
	}
}
