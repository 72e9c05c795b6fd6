package services

import (
	"context"
	"strings"
	"time"

	"github.com/fyerfyer/campusdoc-tutor/internal/document"
	"github.com/fyerfyer/campusdoc-tutor/internal/llm"
	"github.com/fyerfyer/campusdoc-tutor/internal/vectordb"
	"github.com/sirupsen/logrus"
)

// QAService 问答服务
// 负责协调向量检索和大模型生成答案
type QAService struct {
	index  vectordb.VectorIndex // 向量索引
	rag    *llm.RAGService      // RAG服务
	topK   int                  // 检索数量
	logger *logrus.Logger       // 日志记录器
}

// QAOption 问答服务配置选项
type QAOption func(*QAService)

// WithTopK 设置检索数量
func WithTopK(k int) QAOption {
	return func(s *QAService) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithQALogger 设置日志记录器
func WithQALogger(logger *logrus.Logger) QAOption {
	return func(s *QAService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewQAService 创建问答服务实例
func NewQAService(index vectordb.VectorIndex, rag *llm.RAGService, opts ...QAOption) *QAService {
	service := &QAService{
		index:  index,
		rag:    rag,
		topK:   vectordb.DefaultTopK,
		logger: logrus.StandardLogger(),
	}

	// 应用配置选项
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Answer 回答问题，返回答案和作为上下文的文本块
// 没有检索到任何文本块时直接返回llm.NotFoundMessage，不调用大模型
func (s *QAService) Answer(ctx context.Context, question string) (string, []document.Document, error) {
	if strings.TrimSpace(question) == "" {
		return "", nil, ErrEmptyQuestion
	}
	start := time.Now()

	// 1. 检索相关文本块
	chunks, err := s.index.Search(ctx, question, s.topK)
	if err != nil {
		return "", nil, err
	}
	if len(chunks) == 0 {
		s.logger.WithField("question_length", len(question)).Info("No context retrieved, returning not-found answer")
		return llm.NotFoundMessage, []document.Document{}, nil
	}

	// 2. 按检索顺序组织上下文
	contexts := make([]string, len(chunks))
	for i, c := range chunks {
		contexts[i] = c.Content
	}

	// 3. 生成答案
	answer, err := s.rag.Answer(ctx, question, contexts)
	if err != nil {
		return "", nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"chunks":   len(chunks),
		"duration": time.Since(start).String(),
	}).Info("Question answered")
	return answer, chunks, nil
}
