package api

import (
	"net/http"

	"Mimic_1.0/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware 在请求进入聊天管线之前应用令牌桶限流。
func RateLimitMiddleware(limiter ratelimiter.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
