//go:build faiss

package vectordb

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/DataIntelligenceCrew/go-faiss"
)

// faissMeta 与索引文件配套保存的文档元数据
// Documents[i]对应Faiss索引中的第i个向量
type faissMeta struct {
	Dimension int        `json:"dimension"`
	Documents []Document `json:"documents"`
}

// FaissRepository 基于Faiss IndexFlat的向量仓库
type FaissRepository struct {
	mu        sync.RWMutex
	index     faiss.Index // 未确定维度前为nil
	documents []Document
	dimension int
	configDim int
	distType  DistanceType
	indexPath string
	metaPath  string
}

// NewFaissRepository 创建新的Faiss向量仓库
// 索引文件与元数据文件同时存在时从磁盘恢复
func NewFaissRepository(config Config) (Repository, error) {
	if config.Dimension < 0 {
		return nil, fmt.Errorf("vector dimension must not be negative")
	}

	distType := config.DistanceType
	if distType == "" {
		distType = Cosine
	}

	repo := &FaissRepository{
		documents: make([]Document, 0),
		dimension: config.Dimension,
		configDim: config.Dimension,
		distType:  distType,
	}
	if !config.InMemory && config.Path != "" {
		repo.indexPath = config.Path
		repo.metaPath = config.Path + ".meta.json"
	}

	if repo.indexPath != "" && fileExists(repo.indexPath) {
		if err := repo.load(); err != nil {
			return nil, err
		}
		return repo, nil
	}

	if repo.dimension > 0 {
		index, err := createFaissIndex(repo.dimension, distType)
		if err != nil {
			return nil, fmt.Errorf("failed to create Faiss index: %w", err)
		}
		repo.index = index
	}
	return repo, nil
}

// createFaissIndex 创建Faiss索引
// 余弦相似度使用归一化向量的内积
func createFaissIndex(dimension int, distType DistanceType) (faiss.Index, error) {
	metric := faiss.MetricInnerProduct
	if distType == Euclidean {
		metric = faiss.MetricL2
	}
	return faiss.NewIndexFlat(dimension, metric)
}

// load 读取索引文件和元数据
func (r *FaissRepository) load() error {
	index, err := faiss.ReadIndex(r.indexPath, 0)
	if err != nil {
		return fmt.Errorf("failed to read index file: %w", err)
	}

	var meta faissMeta
	if _, err := readJSON(r.metaPath, &meta); err != nil {
		index.Delete()
		return err
	}
	if int64(len(meta.Documents)) != index.Ntotal() {
		index.Delete()
		return fmt.Errorf("index has %d vectors but metadata has %d documents", index.Ntotal(), len(meta.Documents))
	}
	if r.configDim > 0 && index.D() != r.configDim {
		index.Delete()
		return fmt.Errorf("%w: index has %d, configured %d", ErrInvalidDimension, index.D(), r.configDim)
	}

	r.index = index
	r.dimension = index.D()
	r.documents = meta.Documents
	return nil
}

// AddBatch 批量添加文档，索引和元数据保存成功后才算写入
func (r *FaissRepository) AddBatch(docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dim, err := validateBatch(docs, r.dimension)
	if err != nil {
		return err
	}
	if r.index == nil {
		index, err := createFaissIndex(dim, r.distType)
		if err != nil {
			return fmt.Errorf("failed to create Faiss index: %w", err)
		}
		r.index = index
		r.dimension = dim
	}

	flat := make([]float32, 0, len(docs)*dim)
	prepared := make([]Document, len(docs))
	for i, doc := range docs {
		if r.distType == Cosine {
			doc.Vector = normalizeVector(doc.Vector)
		}
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = time.Now()
		}
		flat = append(flat, doc.Vector...)
		prepared[i] = doc
	}

	prev := r.documents
	if err := r.index.Add(flat); err != nil {
		return fmt.Errorf("failed to add vectors to index: %w", err)
	}
	r.documents = append(append(make([]Document, 0, len(prev)+len(prepared)), prev...), prepared...)

	if err := r.save(); err != nil {
		r.documents = prev
		if rbErr := r.rebuild(); rbErr != nil {
			return fmt.Errorf("%v (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	return nil
}

// rebuild 根据当前文档重建索引
func (r *FaissRepository) rebuild() error {
	if err := r.index.Reset(); err != nil {
		return err
	}
	if len(r.documents) == 0 {
		return nil
	}
	flat := make([]float32, 0, len(r.documents)*r.dimension)
	for _, doc := range r.documents {
		flat = append(flat, doc.Vector...)
	}
	return r.index.Add(flat)
}

// Search 相似度搜索
func (r *FaissRepository) Search(vector []float32, filter SearchFilter) ([]SearchResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.index == nil || len(r.documents) == 0 {
		return []SearchResult{}, nil
	}
	if err := ValidateVector(vector, r.dimension); err != nil {
		return nil, err
	}
	if r.distType == Cosine {
		vector = normalizeVector(vector)
	}

	total := int64(len(r.documents))
	limit := int64(filter.MaxResults)
	// 有过滤条件时需要扫描全部向量
	if limit <= 0 || limit > total || len(filter.Sources) > 0 || filter.MinScore > 0 {
		limit = total
	}

	distances, labels, err := r.index.Search(vector, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}

	type hit struct {
		pos    int64
		result SearchResult
	}
	hits := make([]hit, 0, len(labels))
	for i, label := range labels {
		if label < 0 || label >= total {
			continue
		}
		doc := r.documents[label]
		if !matchSources(doc.Source, filter.Sources) {
			continue
		}
		score := r.toScore(distances[i])
		if score < filter.MinScore {
			continue
		}
		hits = append(hits, hit{pos: label, result: SearchResult{Document: doc, Score: score}})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].result.Score != hits[j].result.Score {
			return hits[i].result.Score > hits[j].result.Score
		}
		return hits[i].pos < hits[j].pos
	})

	results := make([]SearchResult, len(hits))
	for i, h := range hits {
		results[i] = h.result
	}
	return limitResults(results, filter.MaxResults), nil
}

// toScore 将Faiss返回的距离转换为得分
func (r *FaissRepository) toScore(distance float32) float32 {
	if r.distType == Euclidean {
		// IndexFlatL2返回平方距离
		return float32(math.Exp(-math.Sqrt(float64(distance))))
	}
	return distance
}

// Count 获取文档总数
func (r *FaissRepository) Count() (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.documents), nil
}

// Reset 清空索引并删除索引文件和元数据文件
func (r *FaissRepository) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.index != nil {
		if err := r.index.Reset(); err != nil {
			return fmt.Errorf("failed to reset index: %w", err)
		}
		if r.configDim == 0 {
			r.index.Delete()
			r.index = nil
			r.dimension = 0
		}
	}
	r.documents = make([]Document, 0)
	return removeFiles(r.indexPath, r.metaPath)
}

// GetDimension 返回向量维数
func (r *FaissRepository) GetDimension() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dimension
}

// Close 释放Faiss索引占用的内存
func (r *FaissRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.index != nil {
		r.index.Delete()
		r.index = nil
	}
	return nil
}

// save 保存索引和元数据，调用方需持有写锁
func (r *FaissRepository) save() error {
	if r.indexPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(r.indexPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := faiss.WriteIndex(r.index, r.indexPath); err != nil {
		return fmt.Errorf("failed to write index to file: %w", err)
	}
	return writeJSONAtomic(r.metaPath, faissMeta{
		Dimension: r.dimension,
		Documents: r.documents,
	})
}

// fileExists 检查文件是否存在
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func init() {
	RegisterRepository("faiss", NewFaissRepository)
}
