package vectordb

import (
	"errors"
	"fmt"
	"time"
)

// 常用错误定义
var (
	ErrEmptyVector      = errors.New("empty vector")
	ErrInvalidDimension = errors.New("vector dimension mismatch")
	ErrDocumentNotFound = errors.New("document not found")
)

// Document 向量库中的一条记录
// 由文本块、向量及其来源信息组成
type Document struct {
	ID        string            `json:"id"`         // 唯一标识符
	Source    string            `json:"source"`     // 源文件路径
	Page      int               `json:"page"`       // 页码，从0开始
	Position  int               `json:"position"`   // 在同一批次中的位置
	Text      string            `json:"text"`       // 原始文本内容
	Vector    []float32         `json:"vector"`     // 向量表示
	CreatedAt time.Time         `json:"created_at"` // 创建时间
	Metadata  map[string]string `json:"metadata"`   // 附加元数据
}

// DistanceType 相似度度量
type DistanceType string

const (
	// Cosine 余弦相似度
	Cosine DistanceType = "cosine"
	// DotProduct 点积
	DotProduct DistanceType = "dot"
	// Euclidean 欧几里得距离
	Euclidean DistanceType = "l2"
)

// SearchResult 搜索结果
type SearchResult struct {
	Document Document
	Score    float32 // 相似度得分，越大越相似
}

// SearchFilter 检索条件，零值表示不限制
type SearchFilter struct {
	Sources    []string // 按来源文件过滤
	MinScore   float32  // 最小相似度分数
	MaxResults int      // 最大返回结果数
}

// DefaultSearchFilter 取前3个结果
func DefaultSearchFilter() SearchFilter {
	return SearchFilter{
		MaxResults: 3,
	}
}

// Repository 向量存储后端
type Repository interface {
	// AddBatch 批量添加文档，要么全部写入要么全部失败
	AddBatch(docs []Document) error

	// Search 相似度搜索，结果按得分降序，得分相同时按写入顺序
	Search(vector []float32, filter SearchFilter) ([]SearchResult, error)

	// Count 获取文档总数
	Count() (int, error)

	// Reset 删除全部文档及其持久化文件
	Reset() error

	// GetDimension 返回向量维数，0表示尚未确定
	GetDimension() int

	// Close 关闭数据库连接
	Close() error
}

// Config 向量数据库配置
type Config struct {
	Type         string       // 数据库类型: "memory", "faiss", "qdrant"
	Path         string       // 持久化文件路径
	Dimension    int          // 向量维度，0表示由首次写入决定
	DistanceType DistanceType // 距离计算类型
	InMemory     bool         // 是否仅在内存中运行

	QdrantHost string // Qdrant服务地址
	QdrantPort int    // Qdrant gRPC端口
	Collection string // Qdrant集合名称
}

// Factory 按配置构造向量存储
type Factory func(config Config) (Repository, error)

// Backends 已注册的向量存储，键为配置中的type
var Backends = map[string]Factory{}

// RegisterRepository 注册向量存储实现
func RegisterRepository(name string, factory Factory) {
	Backends[name] = factory
}

// NewRepository 按config.Type创建向量存储，未注册的类型使用内存实现
func NewRepository(config Config) (Repository, error) {
	if factory, ok := Backends[config.Type]; ok {
		return factory(config)
	}
	return NewMemoryRepository(config)
}

// IndexError 向量索引操作错误
type IndexError struct {
	Op  string // 操作名称: embed, add, search, count, reset
	Err error  // 原始错误
}

// Error 实现error接口
func (e *IndexError) Error() string {
	return fmt.Sprintf("vector index %s: %v", e.Op, e.Err)
}

// Unwrap 返回原始错误
func (e *IndexError) Unwrap() error {
	return e.Err
}
