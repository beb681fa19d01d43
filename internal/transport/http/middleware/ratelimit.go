package middleware

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"docuchat/internal/transport/http/response"
)

// RateLimit applies a per-user token bucket. Unauthenticated requests are
// bucketed by client IP. Limiters are kept in memory; a restart resets
// every bucket.
func RateLimit(perMinute, burst int) gin.HandlerFunc {
	if perMinute <= 0 {
		perMinute = 30
	}
	if burst <= 0 {
		burst = 5
	}
	limit := rate.Limit(float64(perMinute) / 60.0)

	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	limiterFor := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		if l, ok := limiters[key]; ok {
			return l
		}
		l := rate.NewLimiter(limit, burst)
		limiters[key] = l
		return l
	}

	return func(c *gin.Context) {
		key := c.ClientIP()
		if userIDAny, exists := c.Get(ContextUserIDKey); exists {
			if userID, ok := userIDAny.(uint); ok {
				key = "user:" + strconv.FormatUint(uint64(userID), 10)
			}
		}
		if !limiterFor(key).Allow() {
			response.Error(c, http.StatusTooManyRequests, response.CodeRateLimited, "rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}
