package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

// OllamaClient 调用Ollama /api/chat 接口的生成模型客户端
type OllamaClient struct {
	endpoint   string
	model      string
	httpClient *http.Client
	defaults   Sampling
}

// NewOllamaClient 创建Ollama客户端
func NewOllamaClient(cfg Config) (Client, error) {
	if cfg.BaseURL == "" {
		return nil, NewLLMError(ErrCodeInvalidRequest, "ollama base url is required")
	}
	if cfg.Model == "" {
		return nil, NewLLMError(ErrCodeInvalidRequest, "model is required")
	}

	return &OllamaClient{
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + "/api/chat",
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		defaults:   cfg.Defaults,
	}, nil
}

// Name 返回模型名称
func (c *OllamaClient) Name() string {
	return c.model
}

// Generate 单轮生成，System选项作为系统消息发送
func (c *OllamaClient) Generate(ctx context.Context, prompt string, opts ...CallOption) (*Response, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, NewLLMError(ErrCodeEmptyPrompt, ErrMsgEmptyPrompt)
	}

	sampling := Resolve(c.defaults, opts...)
	messages := make([]Message, 0, 2)
	if sampling.System != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: sampling.System})
	}
	messages = append(messages, Message{Role: RoleUser, Content: prompt})

	return c.chat(ctx, messages, sampling)
}

// Chat 多轮对话
func (c *OllamaClient) Chat(ctx context.Context, messages []Message, opts ...CallOption) (*Response, error) {
	if len(messages) == 0 {
		return nil, NewLLMError(ErrCodeEmptyPrompt, "messages cannot be empty")
	}
	return c.chat(ctx, messages, Resolve(c.defaults, opts...))
}

// chat 发送非流式聊天请求
func (c *OllamaClient) chat(ctx context.Context, messages []Message, sampling Sampling) (*Response, error) {
	reqBody := OllamaChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
		Options: &OllamaOptions{
			Temperature: sampling.Temperature,
			TopP:        sampling.TopP,
			NumPredict:  sampling.MaxTokens,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, NewLLMError(ErrCodeInvalidRequest, fmt.Sprintf("failed to marshal request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, NewLLMError(ErrCodeInvalidRequest, fmt.Sprintf("failed to create request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewLLMError(ErrCodeNetworkError, fmt.Sprintf("failed to read response: %v", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, respBody)
	}

	var result OllamaChatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, NewLLMError(ErrCodeInvalidResponse, fmt.Sprintf("failed to parse response: %v", err))
	}

	model := result.Model
	if model == "" {
		model = c.model
	}
	return &Response{
		Text:         result.Message.Content,
		TokenCount:   result.PromptEvalCount + result.EvalCount,
		ModelName:    model,
		FinishReason: result.DoneReason,
	}, nil
}

// statusError 将非200响应转换为LLMError
func statusError(status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	var errResp OllamaErrorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		msg = errResp.Error
	}

	code := ErrCodeServerError
	switch {
	case status == http.StatusNotFound:
		code = ErrCodeModelNotFound
	case status >= 400 && status < 500:
		code = ErrCodeInvalidRequest
	}
	return NewLLMError(code, fmt.Sprintf("status %d: %s", status, msg))
}

// transportError 将请求错误转换为LLMError
func transportError(ctx context.Context, err error) error {
	var netErr net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return NewLLMError(ErrCodeTimeout, fmt.Sprintf("%s: %v", ErrMsgTimeout, err))
	}
	return NewLLMError(ErrCodeNetworkError, fmt.Sprintf("%s: %v", ErrMsgNetworkError, err))
}

func init() {
	RegisterClient("ollama", NewOllamaClient)
}
