package embedding

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
	"sync"
)

// OllamaClient 调用Ollama /api/embeddings 接口的嵌入客户端
type OllamaClient struct {
	endpoint   string       // API端点
	model      string       // 模型名称
	httpClient *http.Client // HTTP客户端

	mu         sync.Mutex
	dimensions int // 向量维度，0表示尚未确定
}

// NewOllamaClient 创建新的Ollama嵌入客户端
func NewOllamaClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)

	if cfg.BaseURL == "" {
		return nil, NewEmbeddingError(ErrCodeInvalidRequest, "ollama base url is required")
	}
	if cfg.Model == "" {
		return nil, NewEmbeddingError(ErrCodeInvalidRequest, "embedding model is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &OllamaClient{
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + "/api/embeddings",
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		dimensions: cfg.Dimensions,
	}, nil
}

// Name 返回模型名称
func (c *OllamaClient) Name() string {
	return c.model
}

// Dimensions 返回当前已知的向量维度
func (c *OllamaClient) Dimensions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dimensions
}

// Embed 生成单条文本的向量表示
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, NewEmbeddingError(ErrCodeEmptyInput, ErrMsgEmptyInput)
	}

	body, err := json.Marshal(OllamaEmbeddingRequest{Model: c.model, Prompt: text})
	if err != nil {
		return nil, NewEmbeddingError(ErrCodeInvalidRequest, fmt.Sprintf("failed to marshal request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, NewEmbeddingError(ErrCodeInvalidRequest, fmt.Sprintf("failed to create request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewEmbeddingError(ErrCodeNetworkError, fmt.Sprintf("failed to read response: %v", err))
	}

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(respBody))
		var errResp OllamaErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			msg = errResp.Error
		}
		code := ErrCodeServerError
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			code = ErrCodeInvalidRequest
		}
		return nil, NewEmbeddingError(code, fmt.Sprintf("status %d: %s", resp.StatusCode, msg))
	}

	var result OllamaEmbeddingResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, NewEmbeddingError(ErrCodeInvalidResponse, fmt.Sprintf("failed to parse response: %v", err))
	}
	if len(result.Embedding) == 0 {
		return nil, NewEmbeddingError(ErrCodeInvalidResponse, ErrMsgEmptyVector)
	}

	if err := c.checkDimensions(len(result.Embedding)); err != nil {
		return nil, err
	}

	vector := make([]float32, len(result.Embedding))
	for i, v := range result.Embedding {
		vector[i] = float32(v)
	}
	return vector, nil
}

// EmbedBatch 逐条调用Embed，任何一条失败则整体失败
func (c *OllamaClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for i, text := range texts {
		vec, err := c.Embed(ctx, text)
		if err != nil {
			var embErr EmbeddingError
			if errors.As(err, &embErr) {
				embErr.Message = fmt.Sprintf("text %d: %s", i, embErr.Message)
				return nil, embErr
			}
			return nil, err
		}
		vectors = append(vectors, vec)
	}
	return vectors, nil
}

// checkDimensions 校验维度，未配置时记住首次响应的维度
func (c *OllamaClient) checkDimensions(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dimensions == 0 {
		c.dimensions = n
		return nil
	}
	if n != c.dimensions {
		return NewEmbeddingError(ErrCodeDimensionMismatch,
			fmt.Sprintf("expected %d dimensions, got %d", c.dimensions, n))
	}
	return nil
}

// transportError 将请求错误转换为EmbeddingError
func transportError(ctx context.Context, err error) error {
	var netErr net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return NewEmbeddingError(ErrCodeTimeout, fmt.Sprintf("%s: %v", ErrMsgTimeout, err))
	}
	return NewEmbeddingError(ErrCodeNetworkError, fmt.Sprintf("%s: %v", ErrMsgNetworkError, err))
}

func init() {
	RegisterClient("ollama", NewOllamaClient)
}
