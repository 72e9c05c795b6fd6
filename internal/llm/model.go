package llm

// MessageRole 消息角色类型
type MessageRole string

const (
	// RoleSystem 系统角色
	RoleSystem MessageRole = "system"
	// RoleUser 用户角色
	RoleUser MessageRole = "user"
	// RoleAssistant 助手角色
	RoleAssistant MessageRole = "assistant"
)

// Message 对话消息结构
type Message struct {
	Role    MessageRole `json:"role"`    // 角色
	Content string      `json:"content"` // 内容
}

// OllamaChatRequest Ollama /api/chat 请求结构
type OllamaChatRequest struct {
	Model    string         `json:"model"`             // 模型名称
	Messages []Message      `json:"messages"`          // 消息列表
	Stream   bool           `json:"stream"`            // 固定为false
	Options  *OllamaOptions `json:"options,omitempty"` // 采样参数
}

// OllamaOptions 采样参数
// Temperature使用指针，温度0也会显式发送
type OllamaOptions struct {
	Temperature *float32 `json:"temperature,omitempty"` // 采样温度
	TopP        *float32 `json:"top_p,omitempty"`       // 核采样概率阈值
	NumPredict  *int     `json:"num_predict,omitempty"` // 最大生成Token数
}

// OllamaChatResponse Ollama /api/chat 非流式响应结构
type OllamaChatResponse struct {
	Model           string  `json:"model"`             // 模型名称
	Message         Message `json:"message"`           // 回复消息
	Done            bool    `json:"done"`              // 是否结束
	DoneReason      string  `json:"done_reason"`       // 结束原因
	PromptEvalCount int     `json:"prompt_eval_count"` // 输入token数
	EvalCount       int     `json:"eval_count"`        // 输出token数
}

// OllamaErrorResponse Ollama错误响应
type OllamaErrorResponse struct {
	Error string `json:"error"`
}

// Response 生成结果
type Response struct {
	Text         string // 模型输出，不做任何修剪
	TokenCount   int    // 输入与输出token数之和
	ModelName    string // 实际响应的模型
	FinishReason string // 结束原因，例如stop或length
}
