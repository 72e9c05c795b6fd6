package vectordb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fyerfyer/campusdoc-tutor/internal/document"
	"github.com/fyerfyer/campusdoc-tutor/internal/embedding"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultTopK 默认检索数量
const DefaultTopK = 3

// VectorIndex 文本块的向量索引
type VectorIndex interface {
	// Add 向量化并写入文本块，要么全部成功要么全部失败
	Add(ctx context.Context, chunks []document.Document) error

	// Search 返回与查询最相似的k个文本块，按相似度降序
	Search(ctx context.Context, query string, k int) ([]document.Document, error)

	// Reset 不可逆地删除全部索引数据
	Reset(ctx context.Context) error

	// Count 返回已索引的文本块数量
	Count(ctx context.Context) (int, error)
}

// EmbeddingIndex 组合嵌入客户端和向量仓库实现VectorIndex
// Add与Reset互斥执行，Search不受影响
type EmbeddingIndex struct {
	mu       sync.Mutex
	embedder embedding.Client
	repo     Repository
	logger   *logrus.Logger
}

// IndexOption EmbeddingIndex配置选项
type IndexOption func(*EmbeddingIndex)

// WithIndexLogger 设置日志记录器
func WithIndexLogger(logger *logrus.Logger) IndexOption {
	return func(i *EmbeddingIndex) {
		i.logger = logger
	}
}

// NewEmbeddingIndex 创建向量索引
func NewEmbeddingIndex(embedder embedding.Client, repo Repository, opts ...IndexOption) *EmbeddingIndex {
	idx := &EmbeddingIndex{
		embedder: embedder,
		repo:     repo,
		logger:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Add 先为全部文本块生成向量，再一次性写入仓库
func (i *EmbeddingIndex) Add(ctx context.Context, chunks []document.Document) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for n, c := range chunks {
		texts[n] = c.Content
	}

	start := time.Now()
	vectors, err := i.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return &IndexError{Op: "embed", Err: err}
	}
	if len(vectors) != len(chunks) {
		return &IndexError{Op: "embed", Err: fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks))}
	}

	now := time.Now()
	docs := make([]Document, len(chunks))
	for n, c := range chunks {
		if len(vectors[n]) == 0 {
			return &IndexError{Op: "embed", Err: fmt.Errorf("chunk %d: %w", n, ErrEmptyVector)}
		}
		docs[n] = Document{
			ID:        uuid.New().String(),
			Source:    c.Source,
			Page:      c.Page,
			Position:  n,
			Text:      c.Content,
			Vector:    vectors[n],
			CreatedAt: now,
			Metadata:  copyMetadata(c.Meta),
		}
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.repo.AddBatch(docs); err != nil {
		return &IndexError{Op: "add", Err: err}
	}

	i.logger.WithFields(logrus.Fields{
		"chunks":   len(docs),
		"model":    i.embedder.Name(),
		"duration": time.Since(start).String(),
	}).Debug("Chunks indexed")
	return nil
}

// Search 向量化查询并检索最相似的k个文本块
func (i *EmbeddingIndex) Search(ctx context.Context, query string, k int) ([]document.Document, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	count, err := i.repo.Count()
	if err != nil {
		return nil, &IndexError{Op: "count", Err: err}
	}
	if count == 0 {
		return []document.Document{}, nil
	}

	vector, err := i.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &IndexError{Op: "embed", Err: err}
	}

	filter := DefaultSearchFilter()
	filter.MaxResults = k
	results, err := i.repo.Search(vector, filter)
	if err != nil {
		return nil, &IndexError{Op: "search", Err: err}
	}

	chunks := make([]document.Document, len(results))
	for n, r := range results {
		chunks[n] = document.Document{
			Content: r.Document.Text,
			Source:  r.Document.Source,
			Page:    r.Document.Page,
			Meta:    copyMetadata(r.Document.Metadata),
		}
	}
	return chunks, nil
}

// Reset 删除全部索引数据
func (i *EmbeddingIndex) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &IndexError{Op: "reset", Err: err}
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.repo.Reset(); err != nil {
		return &IndexError{Op: "reset", Err: err}
	}
	i.logger.Info("Vector index reset")
	return nil
}

// Count 返回已索引的文本块数量
func (i *EmbeddingIndex) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, &IndexError{Op: "count", Err: err}
	}
	n, err := i.repo.Count()
	if err != nil {
		return 0, &IndexError{Op: "count", Err: err}
	}
	return n, nil
}

// Close 关闭底层仓库
func (i *EmbeddingIndex) Close() error {
	return i.repo.Close()
}

func copyMetadata(meta map[string]string) map[string]string {
	if len(meta) == 0 {
		return nil
	}
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
