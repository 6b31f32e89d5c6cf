// Package httpmiddleware holds the gin middleware shared by the API router.
package httpmiddleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// TokenBucket is a per-client-IP rate limiter kept in process memory.
type TokenBucket struct {
	capacity  float64
	perSecond float64
	maxKeys   int
	mu        sync.Mutex
	state     map[string]*bucket
	now       func() time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewTokenBucket allows bursts of capacity requests refilled at perMinute.
// A non-positive capacity defaults to perMinute.
func NewTokenBucket(capacity, perMinute int) *TokenBucket {
	if capacity <= 0 {
		capacity = perMinute
	}
	return &TokenBucket{
		capacity:  float64(capacity),
		perSecond: float64(perMinute) / 60,
		maxKeys:   10000,
		state:     make(map[string]*bucket),
		now:       time.Now,
	}
}

// GinMiddleware rejects clients that exhausted their bucket with 429.
func (l *TokenBucket) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		if !l.Allow(ip) {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, please try again later"})
			return
		}
		c.Next()
	}
}

// Allow takes one token from key's bucket if one is available.
func (l *TokenBucket) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	b, ok := l.state[key]
	if !ok {
		if len(l.state) >= l.maxKeys {
			l.sweepLocked(now)
		}
		b = &bucket{tokens: l.capacity, last: now}
		l.state[key] = b
	}
	b.tokens += now.Sub(b.last).Seconds() * l.perSecond
	if b.tokens > l.capacity {
		b.tokens = l.capacity
	}
	b.last = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// sweepLocked drops buckets that have refilled completely; they hold no
// state a fresh bucket would not.
func (l *TokenBucket) sweepLocked(now time.Time) {
	full := time.Duration(l.capacity / l.perSecond * float64(time.Second))
	for k, b := range l.state {
		if now.Sub(b.last) >= full {
			delete(l.state, k)
		}
	}
}
