package embedding

import (
	"context"
	"time"
)

// Client 把文本映射为定长向量
// EmbedBatch 返回的向量与输入一一对应，任何一条失败则整批失败
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
}

// Config 嵌入客户端配置
type Config struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	Dimensions int // 为0时以首次响应为准
}

// validate 校验与具体实现无关的字段
func (c Config) validate() error {
	if c.Dimensions < 0 {
		return NewEmbeddingError(ErrCodeInvalidRequest, "dimensions must not be negative")
	}
	return nil
}

type Option func(*Config)

func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) { c.Timeout = timeout }
}

// WithDimensions 固定向量维度，响应维度不一致时报错
func WithDimensions(n int) Option {
	return func(c *Config) { c.Dimensions = n }
}

// NewConfig 在本地Ollama的默认值上应用opts
func NewConfig(opts ...Option) Config {
	cfg := Config{
		BaseURL: "http://localhost:11434",
		Model:   "nomic-embed-text",
		Timeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Factory 按配置项构造客户端
type Factory func(opts ...Option) (Client, error)

var providers = map[string]Factory{}

// RegisterClient 注册嵌入实现，重复注册时后者覆盖前者
func RegisterClient(provider string, factory Factory) {
	providers[provider] = factory
}

// NewClient 按提供方名称创建客户端
func NewClient(provider string, opts ...Option) (Client, error) {
	if factory, ok := providers[provider]; ok {
		return factory(opts...)
	}
	return nil, NewEmbeddingError(ErrCodeInvalidRequest, "embedding provider not registered: "+provider)
}
