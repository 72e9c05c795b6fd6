package llm

import (
	"errors"
	"fmt"
)

// LLMError 大模型调用错误类型
// 所有生成失败都以该类型返回
type LLMError struct {
	Code    int    // 错误码
	Message string // 错误消息
}

// Error 实现error接口
func (e LLMError) Error() string {
	return fmt.Sprintf("llm error (code=%d): %s", e.Code, e.Message)
}

// 错误码常量
const (
	ErrCodeInvalidRequest  = 1002 // 无效的请求
	ErrCodeNetworkError    = 1003 // 网络连接错误
	ErrCodeServerError     = 1005 // 服务器错误
	ErrCodeTimeout         = 1006 // 请求超时
	ErrCodeEmptyPrompt     = 1007 // 提示词为空
	ErrCodeModelNotFound   = 1011 // 模型不存在
	ErrCodeInvalidResponse = 1012 // 响应无法解析
)

// 错误消息常量
const (
	ErrMsgInvalidRequest = "invalid request parameters"
	ErrMsgServerError    = "server error occurred"
	ErrMsgTimeout        = "request timed out"
	ErrMsgEmptyPrompt    = "prompt cannot be empty"
	ErrMsgNetworkError   = "network connection error"
)

// NewLLMError 创建新的大模型错误
func NewLLMError(code int, message string) LLMError {
	return LLMError{
		Code:    code,
		Message: message,
	}
}

// WrapError 包装普通错误为LLM错误
func WrapError(err error, code int) LLMError {
	if err == nil {
		return LLMError{Code: code, Message: "unknown error"}
	}

	var llmErr LLMError
	if errors.As(err, &llmErr) {
		return llmErr
	}

	return LLMError{
		Code:    code,
		Message: err.Error(),
	}
}

// IsGenerationError 判断err链中是否包含LLMError
func IsGenerationError(err error) bool {
	var e LLMError
	return errors.As(err, &e)
}
