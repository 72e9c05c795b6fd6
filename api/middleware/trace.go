package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TraceIDHeader 请求和响应中携带追踪ID的头
const TraceIDHeader = "X-Trace-ID"

const traceIDKey = "TraceID"

// SetTraceID 沿用客户端传入的追踪ID，没有则生成一个
func SetTraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(TraceIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(traceIDKey, id)
		c.Header(TraceIDHeader, id)
		c.Next()
	}
}

// TraceID 当前请求的追踪ID，未经过SetTraceID时为空
func TraceID(c *gin.Context) string {
	return c.GetString(traceIDKey)
}
