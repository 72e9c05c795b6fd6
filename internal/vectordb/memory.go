package vectordb

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"
)

// 文档数低于该值时串行计算得分
const parallelThreshold = 256

// MemoryRepository 内存向量仓库实现
// 配置了Path时新文档追加到Path.log，日志超过文档总数一半时重写JSON快照
// 启动时先读快照再重放日志
type MemoryRepository struct {
	mu         sync.RWMutex
	dimension  int
	configDim  int // 配置的维度，Reset后恢复
	distType   DistanceType
	documents  []Document // 按写入顺序保存
	path       string     // 快照文件路径，为空表示不持久化
	logPath    string
	generation int // 当前快照的代数
	logged     int // 日志中的文档数
}

// NewMemoryRepository 创建内存向量仓库
func NewMemoryRepository(config Config) (Repository, error) {
	if config.Dimension < 0 {
		return nil, fmt.Errorf("vector dimension must not be negative")
	}

	distType := config.DistanceType
	if distType == "" {
		distType = Cosine
	}

	repo := &MemoryRepository{
		dimension: config.Dimension,
		configDim: config.Dimension,
		distType:  distType,
		documents: make([]Document, 0),
	}
	if !config.InMemory && config.Path != "" {
		repo.path = config.Path
		repo.logPath = config.Path + ".log"
		if err := repo.load(); err != nil {
			return nil, err
		}
	}
	return repo, nil
}

// load 从快照和日志恢复文档，存在日志时立即合并成新快照
func (r *MemoryRepository) load() error {
	var snap snapshot
	if _, err := readJSON(r.path, &snap); err != nil {
		return err
	}
	tail, err := readLog(r.logPath, snap.Generation)
	if err != nil {
		return err
	}
	docs := append(snap.Documents, tail...)

	dim := snap.Dimension
	if dim == 0 && len(docs) > 0 {
		dim = len(docs[0].Vector)
	}
	if r.dimension > 0 && dim > 0 && dim != r.dimension {
		return fmt.Errorf("%w: snapshot has %d, configured %d", ErrInvalidDimension, dim, r.dimension)
	}
	if dim > 0 {
		r.dimension = dim
	}
	if docs != nil {
		r.documents = docs
	}
	r.generation = snap.Generation

	if _, err := os.Stat(r.logPath); err == nil {
		return r.compact()
	}
	return nil
}

// AddBatch 批量添加文档
// 校验全部通过后才写入，快照保存失败时回滚
func (r *MemoryRepository) AddBatch(docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dim, err := validateBatch(docs, r.dimension)
	if err != nil {
		return err
	}

	prepared := make([]Document, len(docs))
	for i, doc := range docs {
		if r.distType == Cosine {
			doc.Vector = normalizeVector(doc.Vector)
		}
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = time.Now()
		}
		prepared[i] = doc
	}

	prevLen, prevDim := len(r.documents), r.dimension
	r.documents = append(r.documents, prepared...)
	r.dimension = dim

	if err := r.persist(prepared); err != nil {
		r.documents = r.documents[:prevLen]
		r.dimension = prevDim
		return err
	}
	return nil
}

// Search 相似度搜索
func (r *MemoryRepository) Search(vector []float32, filter SearchFilter) ([]SearchResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.documents) == 0 {
		return []SearchResult{}, nil
	}
	if err := ValidateVector(vector, r.dimension); err != nil {
		return nil, err
	}
	if r.distType == Cosine {
		vector = normalizeVector(vector)
	}

	scores := make([]float32, len(r.documents))
	threads := runtime.NumCPU()
	if len(r.documents) < parallelThreshold || threads <= 1 {
		r.scoreRange(vector, scores, 0, len(r.documents))
	} else {
		r.parallelScore(vector, scores, threads)
	}

	// scores按写入顺序排列，稳定排序保证同分时先写入的在前
	results := make([]SearchResult, 0, len(r.documents))
	for i, doc := range r.documents {
		if !matchSources(doc.Source, filter.Sources) || scores[i] < filter.MinScore {
			continue
		}
		results = append(results, SearchResult{Document: doc, Score: scores[i]})
	}
	SortSearchResults(results)
	return limitResults(results, filter.MaxResults), nil
}

// scoreRange 计算[start, end)范围内文档的得分
func (r *MemoryRepository) scoreRange(vector []float32, scores []float32, start, end int) {
	for i := start; i < end; i++ {
		doc := r.documents[i].Vector
		switch r.distType {
		case Cosine:
			// 写入时已归一化
			scores[i] = dot(vector, doc)
		default:
			scores[i], _ = ComputeScore(vector, doc, r.distType)
		}
	}
}

// parallelScore 将文档切分为若干段并发计算得分
func (r *MemoryRepository) parallelScore(vector []float32, scores []float32, threads int) {
	per := (len(r.documents) + threads - 1) / threads
	var wg sync.WaitGroup
	for start := 0; start < len(r.documents); start += per {
		end := start + per
		if end > len(r.documents) {
			end = len(r.documents)
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			r.scoreRange(vector, scores, start, end)
		}(start, end)
	}
	wg.Wait()
}

// Count 获取文档总数
func (r *MemoryRepository) Count() (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.documents), nil
}

// Reset 清空文档并删除快照和日志
func (r *MemoryRepository) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.documents = make([]Document, 0)
	r.dimension = r.configDim
	r.generation, r.logged = 0, 0
	if r.path != "" {
		if err := removeFiles(r.path, r.logPath); err != nil {
			return err
		}
	}
	return nil
}

// GetDimension 返回向量维数
func (r *MemoryRepository) GetDimension() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dimension
}

// Close 内存实现无需释放资源，数据在每次写入时已落盘
func (r *MemoryRepository) Close() error {
	return nil
}

// persist 把刚写入的batch落盘，调用方需持有写锁且batch已在r.documents中
func (r *MemoryRepository) persist(batch []Document) error {
	if r.path == "" {
		return nil
	}
	if r.logged+len(batch) > len(r.documents)/2 {
		return r.compact()
	}
	if err := appendLog(r.logPath, r.generation, batch); err != nil {
		return err
	}
	r.logged += len(batch)
	return nil
}

// compact 把全部文档写成新一代快照并删除日志
func (r *MemoryRepository) compact() error {
	next := r.generation + 1
	if err := writeJSONAtomic(r.path, snapshot{
		Generation: next,
		Dimension:  r.dimension,
		Documents:  r.documents,
	}); err != nil {
		return err
	}
	r.generation, r.logged = next, 0
	return removeFiles(r.logPath)
}

func init() {
	RegisterRepository("memory", NewMemoryRepository)
}
