package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newOllamaServer 模拟Ollama嵌入接口，向量由handler生成
func newOllamaServer(t *testing.T, embed func(req OllamaEmbeddingRequest) (int, any)) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/api/embeddings" || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req OllamaEmbeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		status, body := embed(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestOllamaClientEmbed(t *testing.T) {
	srv, _ := newOllamaServer(t, func(req OllamaEmbeddingRequest) (int, any) {
		assert.Equal(t, "nomic-embed-text", req.Model)
		assert.Equal(t, "hello", req.Prompt)
		return http.StatusOK, OllamaEmbeddingResponse{Embedding: []float64{0.1, 0.2, 0.3}}
	})

	client, err := NewClient("ollama", WithBaseURL(srv.URL+"/"), WithModel("nomic-embed-text"))
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text", client.Name())

	vec, err := client.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.1, 0.2, 0.3}, vec, 1e-6)
	assert.Equal(t, 3, client.(*OllamaClient).Dimensions())
}

func TestOllamaClientEmbedBatchKeepsOrder(t *testing.T) {
	srv, calls := newOllamaServer(t, func(req OllamaEmbeddingRequest) (int, any) {
		return http.StatusOK, OllamaEmbeddingResponse{Embedding: []float64{float64(len(req.Prompt)), 1}}
	})

	client, err := NewOllamaClient(WithBaseURL(srv.URL))
	require.NoError(t, err)

	vecs, err := client.EmbedBatch(context.Background(), []string{"a", "bbb", "cc"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, float32(1), vecs[0][0])
	assert.Equal(t, float32(3), vecs[1][0])
	assert.Equal(t, float32(2), vecs[2][0])
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))

	empty, err := client.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestOllamaClientDimensionMismatch(t *testing.T) {
	srv, _ := newOllamaServer(t, func(req OllamaEmbeddingRequest) (int, any) {
		if req.Prompt == "long" {
			return http.StatusOK, OllamaEmbeddingResponse{Embedding: []float64{1, 2, 3, 4}}
		}
		return http.StatusOK, OllamaEmbeddingResponse{Embedding: []float64{1, 2, 3}}
	})

	// 配置了维度时严格校验
	client, err := NewOllamaClient(WithBaseURL(srv.URL), WithDimensions(4))
	require.NoError(t, err)
	_, err = client.Embed(context.Background(), "short")
	var embErr EmbeddingError
	require.ErrorAs(t, err, &embErr)
	assert.Equal(t, ErrCodeDimensionMismatch, embErr.Code)

	// 未配置时以首次响应为准
	learned, err := NewOllamaClient(WithBaseURL(srv.URL))
	require.NoError(t, err)
	_, err = learned.Embed(context.Background(), "short")
	require.NoError(t, err)
	_, err = learned.Embed(context.Background(), "long")
	require.ErrorAs(t, err, &embErr)
	assert.Equal(t, ErrCodeDimensionMismatch, embErr.Code)
}

func TestOllamaClientErrors(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		client, err := NewOllamaClient()
		require.NoError(t, err)
		_, err = client.Embed(context.Background(), "   ")
		var embErr EmbeddingError
		require.ErrorAs(t, err, &embErr)
		assert.Equal(t, ErrCodeEmptyInput, embErr.Code)
	})

	t.Run("server error", func(t *testing.T) {
		srv, _ := newOllamaServer(t, func(req OllamaEmbeddingRequest) (int, any) {
			return http.StatusInternalServerError, OllamaErrorResponse{Error: "model crashed"}
		})
		client, err := NewOllamaClient(WithBaseURL(srv.URL))
		require.NoError(t, err)
		_, err = client.Embed(context.Background(), "hi")
		var embErr EmbeddingError
		require.ErrorAs(t, err, &embErr)
		assert.Equal(t, ErrCodeServerError, embErr.Code)
		assert.Contains(t, embErr.Message, "model crashed")
	})

	t.Run("model not found", func(t *testing.T) {
		srv, _ := newOllamaServer(t, func(req OllamaEmbeddingRequest) (int, any) {
			return http.StatusNotFound, OllamaErrorResponse{Error: "model not found"}
		})
		client, err := NewOllamaClient(WithBaseURL(srv.URL))
		require.NoError(t, err)
		_, err = client.EmbedBatch(context.Background(), []string{"a", "b"})
		var embErr EmbeddingError
		require.ErrorAs(t, err, &embErr)
		assert.Equal(t, ErrCodeInvalidRequest, embErr.Code)
		assert.Contains(t, embErr.Message, "text 0")
	})

	t.Run("empty vector", func(t *testing.T) {
		srv, _ := newOllamaServer(t, func(req OllamaEmbeddingRequest) (int, any) {
			return http.StatusOK, OllamaEmbeddingResponse{}
		})
		client, err := NewOllamaClient(WithBaseURL(srv.URL))
		require.NoError(t, err)
		vec, err := client.Embed(context.Background(), "hi")
		assert.Nil(t, vec)
		assert.True(t, IsEmbeddingError(err))
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()
		client, err := NewOllamaClient(WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond))
		require.NoError(t, err)
		_, err = client.Embed(context.Background(), "hi")
		var embErr EmbeddingError
		require.ErrorAs(t, err, &embErr)
		assert.Equal(t, ErrCodeTimeout, embErr.Code)
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		client, err := NewOllamaClient(WithBaseURL(url))
		require.NoError(t, err)
		_, err = client.Embed(context.Background(), "hi")
		var embErr EmbeddingError
		require.ErrorAs(t, err, &embErr)
		assert.Equal(t, ErrCodeNetworkError, embErr.Code)
	})
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient("unknown")
	assert.True(t, IsEmbeddingError(err))

	_, err = NewOllamaClient(WithBaseURL(""))
	assert.Error(t, err)

	_, err = NewOllamaClient(WithModel(""))
	assert.Error(t, err)

	_, err = NewOllamaClient(WithDimensions(-1))
	assert.Error(t, err)
}
