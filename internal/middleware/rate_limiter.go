package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

type RateLimiterConfig struct {
	Rate  rate.Limit
	Burst int
}

// RateLimiter throttles per client IP. Limiter state lives in an
// expiring cache so idle clients do not accumulate forever.
type RateLimiter struct {
	config   RateLimiterConfig
	limiters *gocache.Cache
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	return &RateLimiter{
		config:   config,
		limiters: gocache.New(10*time.Minute, 15*time.Minute),
	}
}

func (rl *RateLimiter) limiterFor(clientIP string) *rate.Limiter {
	if cached, ok := rl.limiters.Get(clientIP); ok {
		return cached.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(rl.config.Rate, rl.config.Burst)
	rl.limiters.SetDefault(clientIP, limiter)
	return limiter
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiterFor(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
