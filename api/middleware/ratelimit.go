package middleware

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit 令牌桶限流中间件
// 所有客户端共享同一个令牌桶，令牌耗尽时直接返回429
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			HandleError(c, NewRateLimitError("Too many requests, please retry later"))
			c.Abort()
			return
		}
		c.Next()
	}
}
