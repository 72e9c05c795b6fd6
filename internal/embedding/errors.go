package embedding

import (
	"errors"
	"fmt"
)

// EmbeddingError 嵌入错误类型
type EmbeddingError struct {
	Code    int    // 错误码
	Message string // 错误消息
}

// Error 实现error接口
func (e EmbeddingError) Error() string {
	return fmt.Sprintf("embedding error (code=%d): %s", e.Code, e.Message)
}

// 错误码常量
const (
	ErrCodeInvalidRequest    = 1002 // 无效的请求
	ErrCodeNetworkError      = 1003 // 网络连接错误
	ErrCodeServerError       = 1005 // 服务器错误
	ErrCodeTimeout           = 1006 // 请求超时
	ErrCodeEmptyInput        = 1007 // 输入为空
	ErrCodeDimensionMismatch = 1008 // 向量维度不一致
	ErrCodeInvalidResponse   = 1009 // 响应无法解析或向量为空
)

// 错误消息常量
const (
	ErrMsgInvalidRequest = "invalid request parameters"
	ErrMsgServerError    = "server error occurred"
	ErrMsgTimeout        = "request timed out"
	ErrMsgEmptyInput     = "input text cannot be empty"
	ErrMsgNetworkError   = "network connection error"
	ErrMsgEmptyVector    = "empty embedding returned"
)

// NewEmbeddingError 创建新的嵌入错误
func NewEmbeddingError(code int, message string) EmbeddingError {
	return EmbeddingError{
		Code:    code,
		Message: message,
	}
}

// IsEmbeddingError 判断err链中是否包含EmbeddingError
func IsEmbeddingError(err error) bool {
	var e EmbeddingError
	return errors.As(err, &e)
}
