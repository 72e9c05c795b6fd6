package llm

import (
	"context"
	"time"
)

// Client 生成模型客户端
// 问答走Chat，推荐问题走Generate，两者共用同一个实例
type Client interface {
	Generate(ctx context.Context, prompt string, opts ...CallOption) (*Response, error)
	Chat(ctx context.Context, messages []Message, opts ...CallOption) (*Response, error)
	Name() string
}

// Sampling 单次调用的采样参数，指针为nil表示沿用客户端默认值
type Sampling struct {
	System      string // 仅Generate使用，作为系统消息发送
	MaxTokens   *int
	Temperature *float32
	TopP        *float32
}

// CallOption 调整单次调用的采样参数
type CallOption func(*Sampling)

// System 设置Generate的系统提示词
func System(prompt string) CallOption {
	return func(s *Sampling) { s.System = prompt }
}

// MaxTokens 限制生成长度
func MaxTokens(n int) CallOption {
	return func(s *Sampling) { s.MaxTokens = &n }
}

// Temperature 设置采样温度，0也会显式发送
func Temperature(t float32) CallOption {
	return func(s *Sampling) { s.Temperature = &t }
}

// TopP 设置核采样阈值
func TopP(p float32) CallOption {
	return func(s *Sampling) { s.TopP = &p }
}

// Resolve 在base之上依次应用opts
func Resolve(base Sampling, opts ...CallOption) Sampling {
	for _, opt := range opts {
		opt(&base)
	}
	return base
}

// Config 客户端配置
type Config struct {
	BaseURL  string        // 服务地址
	Model    string        // 模型名称
	Timeout  time.Duration // 单次请求超时
	Defaults Sampling      // 调用方未指定时使用的采样参数
}

// DefaultConfig 本地Ollama上的llama3，温度为0
func DefaultConfig() Config {
	return Config{
		BaseURL:  "http://localhost:11434",
		Model:    "llama3",
		Timeout:  120 * time.Second,
		Defaults: Resolve(Sampling{}, Temperature(0)),
	}
}

// Option 修改客户端配置
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

// WithDefaults 设置客户端级别的采样参数
func WithDefaults(opts ...CallOption) Option {
	return func(c *Config) { c.Defaults = Resolve(c.Defaults, opts...) }
}

// Factory 根据配置创建客户端
type Factory func(cfg Config) (Client, error)

var providers = make(map[string]Factory)

// RegisterClient 注册客户端实现
func RegisterClient(provider string, factory Factory) {
	providers[provider] = factory
}

// NewClient 按提供方名称创建客户端
func NewClient(provider string, opts ...Option) (Client, error) {
	factory, ok := providers[provider]
	if !ok {
		return nil, NewLLMError(ErrCodeInvalidRequest, "llm provider not registered: "+provider)
	}
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return factory(cfg)
}
