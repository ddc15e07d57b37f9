package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/citysmiles/dental-admin/pkg/httputil"
)

type RateLimiterConfig struct {
	Rate  rate.Limit
	Burst int
	// Idle is how long a client's limiter is kept after its last request.
	Idle time.Duration
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	config   RateLimiterConfig
	limiters *cache.Cache
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Idle <= 0 {
		config.Idle = 10 * time.Minute
	}
	return &RateLimiter{
		config:   config,
		limiters: cache.New(config.Idle, config.Idle),
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if l, ok := rl.limiters.Get(key); ok {
		rl.limiters.SetDefault(key, l)
		return l.(*rate.Limiter)
	}
	l := rate.NewLimiter(rl.config.Rate, rl.config.Burst)
	if err := rl.limiters.Add(key, l, cache.DefaultExpiration); err != nil {
		if existing, ok := rl.limiters.Get(key); ok {
			return existing.(*rate.Limiter)
		}
	}
	return l
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, httputil.Response{
				Status:  "error",
				Message: "rate limit exceeded",
				Code:    http.StatusTooManyRequests,
			})
			return
		}
		c.Next()
	}
}
