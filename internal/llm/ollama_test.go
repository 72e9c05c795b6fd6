package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newChatServer 模拟Ollama聊天接口，记录收到的原始请求体
func newChatServer(t *testing.T, status int, reply any) (*httptest.Server, *[]byte) {
	t.Helper()
	var raw []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		raw, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(reply)
	}))
	t.Cleanup(srv.Close)
	return srv, &raw
}

func TestOllamaClientChat(t *testing.T) {
	srv, raw := newChatServer(t, http.StatusOK, OllamaChatResponse{
		Model:           "llama3",
		Message:         Message{Role: RoleAssistant, Content: "Paris"},
		Done:            true,
		PromptEvalCount: 10,
		EvalCount:       2,
	})

	client, err := NewClient("ollama", WithBaseURL(srv.URL), WithModel("llama3"))
	require.NoError(t, err)
	assert.Equal(t, "llama3", client.Name())

	resp, err := client.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "ctx"},
		{Role: RoleUser, Content: "What is the capital of France?"},
	}, Temperature(0))
	require.NoError(t, err)
	assert.Equal(t, "Paris", resp.Text)
	assert.Equal(t, 12, resp.TokenCount)
	assert.Equal(t, "llama3", resp.ModelName)

	var req map[string]any
	require.NoError(t, json.Unmarshal(*raw, &req))
	assert.Equal(t, "llama3", req["model"])
	assert.Equal(t, false, req["stream"])
	options := req["options"].(map[string]any)
	// 温度0必须显式发送
	assert.Equal(t, float64(0), options["temperature"])
	assert.NotContains(t, options, "num_predict")

	messages := req["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
}

func TestOllamaClientGenerate(t *testing.T) {
	srv, raw := newChatServer(t, http.StatusOK, OllamaChatResponse{
		Message: Message{Role: RoleAssistant, Content: "질문1\n질문2"},
	})

	client, err := NewClient("ollama", WithBaseURL(srv.URL), WithModel("llama3"), WithDefaults(MaxTokens(256), Temperature(0.3)))
	require.NoError(t, err)

	resp, err := client.Generate(context.Background(), "suggest questions", System("be brief"))
	require.NoError(t, err)
	assert.Equal(t, "질문1\n질문2", resp.Text)
	assert.Equal(t, "llama3", resp.ModelName)

	var req OllamaChatRequest
	require.NoError(t, json.Unmarshal(*raw, &req))
	require.Len(t, req.Messages, 2)
	assert.Equal(t, RoleSystem, req.Messages[0].Role)
	assert.Equal(t, "suggest questions", req.Messages[1].Content)
	require.NotNil(t, req.Options.NumPredict)
	assert.Equal(t, 256, *req.Options.NumPredict)
	require.NotNil(t, req.Options.Temperature)
	assert.InDelta(t, 0.3, *req.Options.Temperature, 1e-6)
}

func TestOllamaClientErrors(t *testing.T) {
	t.Run("empty prompt", func(t *testing.T) {
		client, err := NewClient("ollama")
		require.NoError(t, err)
		_, err = client.Generate(context.Background(), "  ")
		var llmErr LLMError
		require.ErrorAs(t, err, &llmErr)
		assert.Equal(t, ErrCodeEmptyPrompt, llmErr.Code)

		_, err = client.Chat(context.Background(), nil)
		assert.True(t, IsGenerationError(err))
	})

	t.Run("model not found", func(t *testing.T) {
		srv, _ := newChatServer(t, http.StatusNotFound, OllamaErrorResponse{Error: `model "x" not found`})
		client, err := NewClient("ollama", WithBaseURL(srv.URL), WithModel("x"))
		require.NoError(t, err)
		_, err = client.Generate(context.Background(), "hi")
		var llmErr LLMError
		require.ErrorAs(t, err, &llmErr)
		assert.Equal(t, ErrCodeModelNotFound, llmErr.Code)
		assert.Contains(t, llmErr.Message, "not found")
	})

	t.Run("server error", func(t *testing.T) {
		srv, _ := newChatServer(t, http.StatusInternalServerError, OllamaErrorResponse{Error: "boom"})
		client, err := NewClient("ollama", WithBaseURL(srv.URL))
		require.NoError(t, err)
		_, err = client.Generate(context.Background(), "hi")
		var llmErr LLMError
		require.ErrorAs(t, err, &llmErr)
		assert.Equal(t, ErrCodeServerError, llmErr.Code)
	})

	t.Run("invalid json", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer srv.Close()
		client, err := NewClient("ollama", WithBaseURL(srv.URL))
		require.NoError(t, err)
		_, err = client.Generate(context.Background(), "hi")
		var llmErr LLMError
		require.ErrorAs(t, err, &llmErr)
		assert.Equal(t, ErrCodeInvalidResponse, llmErr.Code)
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()
		client, err := NewClient("ollama", WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond))
		require.NoError(t, err)
		_, err = client.Generate(context.Background(), "hi")
		var llmErr LLMError
		require.ErrorAs(t, err, &llmErr)
		assert.Equal(t, ErrCodeTimeout, llmErr.Code)
	})

	t.Run("unknown client", func(t *testing.T) {
		_, err := NewClient("tongyi")
		assert.True(t, IsGenerationError(err))
	})
}
