package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/fyerfyer/campusdoc-tutor/api/model"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// 错误类型，写入日志的error_type字段
const (
	ErrorTypeValidation = "VALIDATION_ERROR"
	ErrorTypeNotFound   = "NOT_FOUND_ERROR"
	ErrorTypeInternal   = "INTERNAL_ERROR"
	ErrorTypeRateLimit  = "RATE_LIMIT_ERROR"
)

// AppError 处理器返回给ErrorMiddleware的错误
// Message和Details会出现在响应中，Err只写日志
type AppError struct {
	Type    string
	Message string
	Details string
	Code    int // HTTP状态码
	Err     error
}

func (e AppError) Error() string {
	if e.Details == "" {
		return e.Type + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
}

func (e AppError) Unwrap() error {
	return e.Err
}

// clientMessage 响应中的message字段
func (e AppError) clientMessage() string {
	if e.Details == "" {
		return e.Message
	}
	return e.Message + ": " + e.Details
}

func newAppError(kind string, code int, message string) AppError {
	return AppError{Type: kind, Code: code, Message: message}
}

// NewValidationError 400，多个details以分号连接
func NewValidationError(message string, details ...string) AppError {
	e := newAppError(ErrorTypeValidation, http.StatusBadRequest, message)
	e.Details = strings.Join(details, "; ")
	return e
}

// NewNotFoundError 404
func NewNotFoundError(message string) AppError {
	return newAppError(ErrorTypeNotFound, http.StatusNotFound, message)
}

// NewInternalError 500，message会原样返回给客户端
func NewInternalError(message string, err error) AppError {
	e := newAppError(ErrorTypeInternal, http.StatusInternalServerError, message)
	e.Err = err
	return e
}

// NewRateLimitError 429
func NewRateLimitError(message string) AppError {
	return newAppError(ErrorTypeRateLimit, http.StatusTooManyRequests, message)
}

// asAppError 把任意错误归一为AppError，未知错误按500处理
func asAppError(err error) AppError {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var ptr *AppError
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr
	}

	msg := "Internal server error"
	if gin.Mode() == gin.DebugMode {
		msg = err.Error()
	}
	return NewInternalError(msg, err)
}

// ErrorMiddleware 把c.Errors中最后一个错误写成统一的错误响应，同时恢复panic
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer recoverPanic(c)
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		appErr := asAppError(c.Errors.Last().Err)

		entry := log.WithFields(logrus.Fields{
			FieldTraceID: TraceID(c),
			FieldPath:    c.Request.URL.Path,
			"error_type": appErr.Type,
		})
		if appErr.Err != nil {
			entry = entry.WithField(FieldError, appErr.Err.Error())
		}
		if appErr.Code >= http.StatusInternalServerError {
			entry.Error(appErr.Message)
		} else {
			entry.Warn(appErr.Message)
		}

		abortJSON(c, appErr.Code, appErr.clientMessage())
	}
}

func recoverPanic(c *gin.Context) {
	r := recover()
	if r == nil {
		return
	}
	log.WithFields(logrus.Fields{
		FieldError:   r,
		FieldPath:    c.Request.URL.Path,
		FieldTraceID: TraceID(c),
		"stack":      string(debug.Stack()),
	}).Error("Panic recovered in API request")

	msg := "An unexpected error occurred"
	if gin.Mode() == gin.DebugMode {
		msg = fmt.Sprintf("Panic: %v", r)
	}
	abortJSON(c, http.StatusInternalServerError, msg)
}

func abortJSON(c *gin.Context, status int, message string) {
	resp := model.NewErrorResponse(status, message)
	resp.TraceID = TraceID(c)
	c.AbortWithStatusJSON(status, resp)
}

// HandleError 把错误交给ErrorMiddleware处理
func HandleError(c *gin.Context, err error) {
	_ = c.Error(err)
}
