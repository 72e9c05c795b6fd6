package llm

import (
	"context"
	"strings"
	"unicode/utf8"
)

// NotFoundMessage 上下文中找不到答案时模型应返回的固定回复
const NotFoundMessage = "문서에서 찾을 수 없습니다."

// SystemPromptTemplate 问答系统提示词模板
// 包含变量：{{.Context}} - 检索的上下文
const SystemPromptTemplate = `You are a helpful assistant for CampusDoc Tutor.
Answer the user's question based ONLY on the following context.
If the answer is not in the context, say "` + NotFoundMessage + `" and do not invent an answer.

Context:
{{.Context}}
`

// SuggestionPromptTemplate 推荐问题提示词模板
const SuggestionPromptTemplate = `Based on the following text context, suggest 3 short, concise questions a user might ask to learn more about the content.
Do not number them. Return one question per line.
Keep questions under 10 words.
The questions must be in Korean.

Context:
{{.Context}}

Questions:
`

const (
	// MaxSuggestionContext 生成推荐问题时上下文的最大字符数
	MaxSuggestionContext = 2000
	// MaxSuggestions 最多保留的推荐问题数
	MaxSuggestions = 3
)

// ContextSeparator 拼接检索片段时使用的分隔符
const ContextSeparator = "\n\n"

// RAGConfig 检索增强生成配置
type RAGConfig struct {
	// 系统提示词模板
	Template string
	// 推荐问题提示词模板
	SuggestionTemplate string
	// 最大Token数，0表示由模型决定
	MaxTokens int
	// 推荐问题的温度参数，回答固定使用AnswerTemperature
	SuggestionTemperature float32
}

// AnswerTemperature 回答问题使用的温度，不受配置影响
const AnswerTemperature float32 = 0

// DefaultRAGConfig 默认RAG配置，回答使用确定性采样
func DefaultRAGConfig() *RAGConfig {
	return &RAGConfig{
		Template:           SystemPromptTemplate,
		SuggestionTemplate: SuggestionPromptTemplate,
	}
}

// RAGOption RAG配置选项函数类型
type RAGOption func(*RAGConfig)

// WithTemplate 设置系统提示词模板
func WithTemplate(template string) RAGOption {
	return func(c *RAGConfig) {
		c.Template = template
	}
}

// WithSuggestionTemplate 设置推荐问题提示词模板
func WithSuggestionTemplate(template string) RAGOption {
	return func(c *RAGConfig) {
		c.SuggestionTemplate = template
	}
}

// WithRAGMaxTokens 设置最大Token数
func WithRAGMaxTokens(tokens int) RAGOption {
	return func(c *RAGConfig) {
		c.MaxTokens = tokens
	}
}

// WithSuggestionTemperature 设置推荐问题的温度参数
func WithSuggestionTemperature(temp float32) RAGOption {
	return func(c *RAGConfig) {
		c.SuggestionTemperature = temp
	}
}

// RAGService 基于检索结果构造提示词并调用大模型
// 问答和推荐问题共用同一个Client
type RAGService struct {
	Client Client
	config *RAGConfig
}

// NewRAG 创建新的检索增强生成服务
func NewRAG(client Client, opts ...RAGOption) *RAGService {
	cfg := DefaultRAGConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &RAGService{
		Client: client,
		config: cfg,
	}
}

// Answer 根据检索片段回答问题，模型输出原样返回
func (r *RAGService) Answer(ctx context.Context, question string, contexts []string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", NewLLMError(ErrCodeEmptyPrompt, "question cannot be empty")
	}

	resp, err := r.Client.Chat(ctx, r.BuildMessages(question, contexts), r.callOptions()...)
	if err != nil {
		return "", WrapError(err, ErrCodeServerError)
	}
	return resp.Text, nil
}

// BuildMessages 构造系统消息和用户消息
func (r *RAGService) BuildMessages(question string, contexts []string) []Message {
	system := strings.ReplaceAll(r.config.Template, "{{.Context}}", FormatContext(contexts))
	return []Message{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: question},
	}
}

// Suggest 根据文本生成推荐问题
func (r *RAGService) Suggest(ctx context.Context, text string) ([]string, error) {
	prompt := strings.ReplaceAll(r.config.SuggestionTemplate, "{{.Context}}", truncateRunes(text, MaxSuggestionContext))

	resp, err := r.Client.Generate(ctx, prompt, Temperature(r.config.SuggestionTemperature))
	if err != nil {
		return nil, WrapError(err, ErrCodeServerError)
	}
	return ParseSuggestions(resp.Text), nil
}

func (r *RAGService) callOptions() []CallOption {
	opts := []CallOption{Temperature(AnswerTemperature)}
	if r.config.MaxTokens > 0 {
		opts = append(opts, MaxTokens(r.config.MaxTokens))
	}
	return opts
}

// FormatContext 按检索顺序拼接片段
func FormatContext(contexts []string) string {
	return strings.Join(contexts, ContextSeparator)
}

// ParseSuggestions 按行拆分模型输出，去掉空行，最多保留MaxSuggestions条
func ParseSuggestions(text string) []string {
	out := make([]string, 0, MaxSuggestions)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == MaxSuggestions {
			break
		}
	}
	return out
}

// truncateRunes 截取前n个字符
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
