package embedding

// OllamaEmbeddingRequest Ollama嵌入API请求结构
type OllamaEmbeddingRequest struct {
	Model  string `json:"model"`  // 模型名称
	Prompt string `json:"prompt"` // 需要嵌入的文本
}

// OllamaEmbeddingResponse Ollama嵌入API响应结构
type OllamaEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"` // 嵌入向量
}

// OllamaErrorResponse Ollama错误响应
type OllamaErrorResponse struct {
	Error string `json:"error"`
}
