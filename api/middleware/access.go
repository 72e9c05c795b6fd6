package middleware

import (
	"bytes"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// 调试日志中请求体最多保留的字节数
const maxBodyLog = 4096

// Logger 每个请求结束后写一条访问日志
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		fields := requestFields(c.Request.Method, path, TraceID(c))
		fields[FieldStatus] = c.Writer.Status()
		fields[FieldLatency] = time.Since(start).String()
		fields[FieldClientIP] = c.ClientIP()
		fields["user_agent"] = c.Request.UserAgent()
		log.WithFields(fields).Info("HTTP request")
	}
}

func debugEnabled() bool {
	return log.IsLevelEnabled(logrus.DebugLevel)
}

// RequestBodyLog debug级别下记录请求体，multipart上传只记录长度
func RequestBodyLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !debugEnabled() || c.Request.Body == nil {
			c.Next()
			return
		}

		entry := log.WithFields(requestFields(c.Request.Method, c.Request.URL.Path, TraceID(c)))
		if strings.HasPrefix(c.ContentType(), "multipart/") {
			entry.WithField("content_length", c.Request.ContentLength).Debug("Request body")
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		_ = c.Request.Body.Close()
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		if err == nil && len(body) > 0 {
			entry.WithField("body", string(truncate(body, maxBodyLog))).Debug("Request body")
		}
		c.Next()
	}
}

// ResponseLogger debug级别下记录响应体，原始文件下载除外
func ResponseLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !debugEnabled() || strings.HasPrefix(c.Request.URL.Path, "/raw_files/") {
			c.Next()
			return
		}

		tee := &teeWriter{ResponseWriter: c.Writer}
		c.Writer = tee
		c.Next()

		fields := requestFields(c.Request.Method, c.Request.URL.Path, TraceID(c))
		fields[FieldStatus] = tee.Status()
		fields["response"] = string(truncate(tee.buf.Bytes(), maxBodyLog))
		log.WithFields(fields).Debug("Response body")
	}
}

// teeWriter 在写出响应的同时保留一份副本
type teeWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *teeWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *teeWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
