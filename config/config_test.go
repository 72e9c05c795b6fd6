package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp 切换到临时目录，避免读到仓库中的.env和config.yaml
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
	assert.Zero(t, cfg.Server.RateLimit)
	assert.Equal(t, 5, cfg.Server.RateBurst)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, "data/raw", cfg.Storage.Path)
	assert.Equal(t, "memory", cfg.VectorDB.Type)
	assert.Equal(t, "data/chroma/index.json", cfg.VectorDB.Path)
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.BaseURL)
	assert.Equal(t, "llama3", cfg.Ollama.Model)
	assert.Equal(t, "llama3", cfg.Ollama.EmbeddingModel())
	assert.Equal(t, float32(0), cfg.Ollama.Temperature)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 1000, cfg.Document.ChunkSize)
	assert.Equal(t, 200, cfg.Document.ChunkOverlap)
	assert.Equal(t, 3, cfg.Search.TopK)
	assert.Equal(t, "ollama", cfg.Embed.Provider)
}

func TestLoadFromFile(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
ollama:
  model: mistral
  embed_model: nomic-embed-text
  timeout: 30s
document:
  chunk_size: 500
  chunk_overlap: 50
vectordb:
  type: qdrant
  collection: lectures
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "mistral", cfg.Ollama.Model)
	assert.Equal(t, "nomic-embed-text", cfg.Ollama.EmbeddingModel())
	assert.Equal(t, 30*time.Second, cfg.Ollama.Timeout)
	assert.Equal(t, 500, cfg.Document.ChunkSize)
	assert.Equal(t, 50, cfg.Document.ChunkOverlap)
	assert.Equal(t, "qdrant", cfg.VectorDB.Type)
	assert.Equal(t, "lectures", cfg.VectorDB.Collection)
	// 未出现在文件中的配置项保留默认值
	assert.Equal(t, "data/raw", cfg.Storage.Path)
}

func TestEnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("SERVER_PORT", "7000")
	t.Setenv("CACHE_TYPE", "redis")
	t.Setenv("STORAGE_SECRET_KEY", "s3cr3t")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Cache.Type)
	assert.Equal(t, "s3cr3t", cfg.Storage.SecretKey)
}

func TestLegacyEnvAliases(t *testing.T) {
	chdirTemp(t)
	t.Setenv("OLLAMA_BASE_URL", "http://gpu-box:11434")
	t.Setenv("OLLAMA_MODEL", "qwen2")
	t.Setenv("CHROMA_PERSIST_DIRECTORY", "/var/lib/tutor")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://gpu-box:11434", cfg.Ollama.BaseURL)
	assert.Equal(t, "qwen2", cfg.Ollama.Model)
	assert.Equal(t, filepath.Join("/var/lib/tutor", "index.json"), cfg.VectorDB.Path)
}

func TestDotEnvFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("OLLAMA_MODEL=phi3\nSEARCH_TOP_K=6\n"), 0644))
	t.Cleanup(func() {
		_ = os.Unsetenv("OLLAMA_MODEL")
		_ = os.Unsetenv("SEARCH_TOP_K")
	})

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "phi3", cfg.Ollama.Model)
	assert.Equal(t, 6, cfg.Search.TopK)
}

func TestInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero chunk size", "document:\n  chunk_size: 0\n"},
		{"negative overlap", "document:\n  chunk_overlap: -1\n"},
		{"overlap not smaller than size", "document:\n  chunk_size: 100\n  chunk_overlap: 100\n"},
		{"bad port", "server:\n  port: 70000\n"},
		{"bad provider", "embed:\n  provider: openai\n"},
		{"bad storage", "storage:\n  type: s3\n"},
		{"zero top k", "search:\n  top_k: 0\n"},
		{"negative rate limit", "server:\n  rate_limit: -1\n"},
		{"rate limit without burst", "server:\n  rate_limit: 2\n  rate_burst: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := chdirTemp(t)
			path := filepath.Join(dir, "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestMalformedConfigFile(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
