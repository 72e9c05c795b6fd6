package services

import (
	"context"
	"time"

	"github.com/fyerfyer/campusdoc-tutor/internal/document"
	"github.com/fyerfyer/campusdoc-tutor/internal/llm"
	"github.com/fyerfyer/campusdoc-tutor/internal/vectordb"
	"github.com/sirupsen/logrus"
)

// IngestResult 入库结果
type IngestResult struct {
	ChunkCount  int      // 写入索引的文本块数量
	Suggestions []string // 推荐问题，不会为nil
}

// IngestService 入库服务
// 依次执行加载、切分和写入索引，成功后根据第一个文本块生成推荐问题
type IngestService struct {
	loader   document.Loader      // PDF加载器
	splitter document.Splitter    // 文本分段器
	index    vectordb.VectorIndex // 向量索引
	rag      *llm.RAGService      // 推荐问题生成，为nil时不生成
	logger   *logrus.Logger       // 日志记录器
}

// IngestOption 入库服务配置选项
type IngestOption func(*IngestService)

// WithLoader 设置文档加载器
func WithLoader(loader document.Loader) IngestOption {
	return func(s *IngestService) {
		if loader != nil {
			s.loader = loader
		}
	}
}

// WithSplitter 设置文本分段器
func WithSplitter(splitter document.Splitter) IngestOption {
	return func(s *IngestService) {
		if splitter != nil {
			s.splitter = splitter
		}
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) IngestOption {
	return func(s *IngestService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewIngestService 创建入库服务
// 默认使用PDF加载器和1000/200的递归分段器
func NewIngestService(index vectordb.VectorIndex, rag *llm.RAGService, opts ...IngestOption) *IngestService {
	splitter, _ := document.NewRecursiveSplitter(document.DefaultSplitterConfig())
	srv := &IngestService{
		loader:   document.NewPDFLoader(),
		splitter: splitter,
		index:    index,
		rag:      rag,
		logger:   logrus.StandardLogger(),
	}

	// 应用配置选项
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

// Ingest 将文件写入索引
func (s *IngestService) Ingest(ctx context.Context, path string) (*IngestResult, error) {
	start := time.Now()
	log := s.logger.WithField("path", path)

	// 1. 按页加载
	pages, err := s.loader.Load(path)
	if err != nil {
		return nil, &IngestionError{Stage: StageLoad, Path: path, Err: err}
	}

	// 2. 切分文本块
	chunks, err := s.splitter.Split(pages)
	if err != nil {
		return nil, &IngestionError{Stage: StageSplit, Path: path, Err: err}
	}

	// 3. 向量化并写入索引
	if err := s.index.Add(ctx, chunks); err != nil {
		return nil, &IngestionError{Stage: StageAdd, Path: path, Err: err}
	}

	result := &IngestResult{
		ChunkCount:  len(chunks),
		Suggestions: []string{},
	}
	if len(chunks) > 0 {
		result.Suggestions = s.suggest(ctx, chunks[0].Content, log)
	}

	log.WithFields(logrus.Fields{
		"pages":       len(pages),
		"chunks":      result.ChunkCount,
		"suggestions": len(result.Suggestions),
		"duration":    time.Since(start).String(),
	}).Info("Document ingested")
	return result, nil
}

// suggest 生成推荐问题，失败时记录警告并返回空切片
func (s *IngestService) suggest(ctx context.Context, text string, log *logrus.Entry) []string {
	if s.rag == nil {
		return []string{}
	}
	suggestions, err := s.rag.Suggest(ctx, text)
	if err != nil {
		log.WithError(err).Warn("Failed to generate suggested questions")
		return []string{}
	}
	if suggestions == nil {
		return []string{}
	}
	return suggestions
}
