package mw

import (
	"math"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyFunc picks the bucket a request is charged to.
type KeyFunc func(c *gin.Context) string

// UserOrIP charges requests carrying an X-User-ID header to that user and
// everything else to the client address.
func UserOrIP(c *gin.Context) string {
	if id := c.GetHeader("X-User-ID"); id != "" {
		return "user:" + id
	}
	return "ip:" + c.ClientIP()
}

// KeyedRateLimiter stores a rate limiter per key.
type KeyedRateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	r        rate.Limit
	b        int
}

// NewKeyedRateLimiter creates a limiter allowing r events per second per key
// with bursts of b.
func NewKeyedRateLimiter(r rate.Limit, b int) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		r:        r,
		b:        b,
	}
}

// Limiter returns the limiter for key, creating it on first use.
func (k *KeyedRateLimiter) Limiter(key string) *rate.Limiter {
	k.mu.RLock()
	limiter, exists := k.limiters[key]
	k.mu.RUnlock()
	if exists {
		return limiter
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	// Another request may have created it between the two locks.
	if limiter, exists = k.limiters[key]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(k.r, k.b)
	k.limiters[key] = limiter
	return limiter
}

// retryAfter is the whole number of seconds until one token is available.
func (k *KeyedRateLimiter) retryAfter() int {
	if k.r <= 0 {
		return 1
	}
	return int(math.Max(1, math.Ceil(1/float64(k.r))))
}

// RateLimiter is a middleware that rejects requests over the per-key rate
// with 429 and a Retry-After header.
func RateLimiter(r rate.Limit, b int, key KeyFunc) gin.HandlerFunc {
	limiter := NewKeyedRateLimiter(r, b)
	if key == nil {
		key = UserOrIP
	}
	return func(c *gin.Context) {
		if !limiter.Limiter(key(c)).Allow() {
			c.Header("Retry-After", strconv.Itoa(limiter.retryAfter()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
