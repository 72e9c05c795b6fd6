package middleware

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// 进程共享的日志实例，由ConfigureLogger在启动时调整
var log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	l.SetLevel(logrus.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// ConfigureLogger 设置日志级别和输出，无法解析的级别按info处理
func ConfigureLogger(level string, out io.Writer) *logrus.Logger {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	if out != nil {
		log.SetOutput(out)
	}
	return log
}

func GetLogger() *logrus.Logger {
	return log
}

// 日志字段名
const (
	FieldTraceID  = "trace_id"
	FieldPath     = "path"
	FieldMethod   = "method"
	FieldStatus   = "status_code"
	FieldLatency  = "latency"
	FieldClientIP = "client_ip"
	FieldError    = "error"
)

// requestFields 每条请求日志共有的字段
func requestFields(method, path, traceID string) logrus.Fields {
	return logrus.Fields{
		FieldMethod:  method,
		FieldPath:    path,
		FieldTraceID: traceID,
	}
}
