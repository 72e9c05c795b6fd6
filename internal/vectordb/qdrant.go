package vectordb

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// 单次Qdrant请求的超时时间
const qdrantTimeout = 30 * time.Second

// payload中保留的字段名
const (
	payloadText       = "text"
	payloadSource     = "source"
	payloadPage       = "page"
	payloadPosition   = "position"
	payloadSeq        = "seq"
	payloadCreatedAt  = "created_at"
	payloadMetaPrefix = "meta_"
)

// QdrantRepository 基于Qdrant的远程向量仓库
// 每个点的payload记录写入序号，搜索同分时按序号排序
type QdrantRepository struct {
	mu         sync.Mutex
	client     *qdrant.Client
	collection string
	dimension  int
	configDim  int
	distType   DistanceType
	ready      bool  // 集合是否已存在
	seq        int64 // 下一个写入序号
}

// NewQdrantRepository 连接Qdrant并检查集合
func NewQdrantRepository(config Config) (Repository, error) {
	host := config.QdrantHost
	if host == "" {
		host = "localhost"
	}
	port := config.QdrantPort
	if port == 0 {
		port = 6334
	}
	collection := config.Collection
	if collection == "" {
		collection = "campusdoc"
	}
	distType := config.DistanceType
	if distType == "" {
		distType = Cosine
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	repo := &QdrantRepository{
		client:     client,
		collection: collection,
		dimension:  config.Dimension,
		configDim:  config.Dimension,
		distType:   distType,
	}

	ctx, cancel := context.WithTimeout(context.Background(), qdrantTimeout)
	defer cancel()

	exists, err := client.CollectionExists(ctx, collection)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		repo.ready = true
		info, err := client.GetCollectionInfo(ctx, collection)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to get collection info: %w", err)
		}
		size := int(info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize())
		if repo.configDim > 0 && size > 0 && size != repo.configDim {
			client.Close()
			return nil, fmt.Errorf("%w: collection has %d, configured %d", ErrInvalidDimension, size, repo.configDim)
		}
		if size > 0 {
			repo.dimension = size
		}
		count, err := repo.count(ctx)
		if err != nil {
			client.Close()
			return nil, err
		}
		repo.seq = int64(count)
	} else if repo.dimension > 0 {
		if err := repo.createCollection(ctx, repo.dimension); err != nil {
			client.Close()
			return nil, err
		}
	}
	return repo, nil
}

// createCollection 创建集合，调用方需持有锁或处于初始化阶段
func (r *QdrantRepository) createCollection(ctx context.Context, dim int) error {
	if err := r.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: r.collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(dim),
					Distance: qdrantDistance(r.distType),
				},
			},
		},
	}); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	r.ready = true
	r.dimension = dim
	return nil
}

// qdrantDistance 映射距离类型
func qdrantDistance(distType DistanceType) qdrant.Distance {
	switch distType {
	case DotProduct:
		return qdrant.Distance_Dot
	case Euclidean:
		return qdrant.Distance_Euclid
	default:
		return qdrant.Distance_Cosine
	}
}

// AddBatch 在一次Upsert请求中写入全部点
func (r *QdrantRepository) AddBatch(docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dim, err := validateBatch(docs, r.dimension)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), qdrantTimeout)
	defer cancel()

	if !r.ready {
		if err := r.createCollection(ctx, dim); err != nil {
			return err
		}
	}

	points := make([]*qdrant.PointStruct, len(docs))
	for i, doc := range docs {
		if doc.ID == "" {
			doc.ID = uuid.New().String()
		}
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = time.Now()
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(doc.ID),
			Vectors: qdrant.NewVectors(doc.Vector...),
			Payload: qdrant.NewValueMap(toPayload(doc, r.seq+int64(i))),
		}
	}

	if _, err := r.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: r.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	}); err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}
	r.seq += int64(len(docs))
	return nil
}

// Search 相似度搜索
func (r *QdrantRepository) Search(vector []float32, filter SearchFilter) ([]SearchResult, error) {
	r.mu.Lock()
	ready, dim := r.ready, r.dimension
	r.mu.Unlock()

	if !ready {
		return []SearchResult{}, nil
	}
	if err := ValidateVector(vector, dim); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), qdrantTimeout)
	defer cancel()

	query := &qdrant.QueryPoints{
		CollectionName: r.collection,
		Query:          qdrant.NewQuery(vector...),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if filter.MaxResults > 0 {
		// 多取一个结果，用于判断边界处是否存在同分项
		limit := uint64(filter.MaxResults + 1)
		query.Limit = &limit
	}
	if filter.MinScore > 0 {
		query.ScoreThreshold = qdrant.PtrOf(filter.MinScore)
	}
	if len(filter.Sources) > 0 {
		should := make([]*qdrant.Condition, 0, len(filter.Sources))
		for _, s := range filter.Sources {
			should = append(should, qdrant.NewMatch(payloadSource, s))
		}
		query.Filter = &qdrant.Filter{Should: should}
	}

	points, err := r.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}

	type hit struct {
		seq    int64
		result SearchResult
	}
	hits := make([]hit, 0, len(points))
	for _, p := range points {
		doc, seq := fromPayload(p.Payload)
		doc.ID = pointID(p.Id)
		hits = append(hits, hit{seq: seq, result: SearchResult{Document: doc, Score: p.Score}})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].result.Score != hits[j].result.Score {
			return hits[i].result.Score > hits[j].result.Score
		}
		return hits[i].seq < hits[j].seq
	})

	results := make([]SearchResult, len(hits))
	for i, h := range hits {
		results[i] = h.result
	}
	return limitResults(results, filter.MaxResults), nil
}

// Count 获取点总数
func (r *QdrantRepository) Count() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.ready {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), qdrantTimeout)
	defer cancel()
	return r.count(ctx)
}

func (r *QdrantRepository) count(ctx context.Context) (int, error) {
	n, err := r.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: r.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("count points: %w", err)
	}
	return int(n), nil
}

// Reset 删除集合，下次写入时重新创建
func (r *QdrantRepository) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), qdrantTimeout)
	defer cancel()

	if r.ready {
		if err := r.client.DeleteCollection(ctx, r.collection); err != nil {
			return fmt.Errorf("delete collection: %w", err)
		}
	}
	r.ready = false
	r.seq = 0
	r.dimension = r.configDim
	return nil
}

// GetDimension 返回向量维数
func (r *QdrantRepository) GetDimension() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dimension
}

// Close 关闭gRPC连接
func (r *QdrantRepository) Close() error {
	return r.client.Close()
}

// toPayload 将文档字段转换为payload
func toPayload(doc Document, seq int64) map[string]any {
	payload := map[string]any{
		payloadText:      doc.Text,
		payloadSource:    doc.Source,
		payloadPage:      int64(doc.Page),
		payloadPosition:  int64(doc.Position),
		payloadSeq:       seq,
		payloadCreatedAt: doc.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	for k, v := range doc.Metadata {
		payload[payloadMetaPrefix+k] = v
	}
	return payload
}

// fromPayload 从payload还原文档字段，返回写入序号
func fromPayload(payload map[string]*qdrant.Value) (Document, int64) {
	doc := Document{}
	var seq int64
	for key, v := range payload {
		switch key {
		case payloadText:
			doc.Text = v.GetStringValue()
		case payloadSource:
			doc.Source = v.GetStringValue()
		case payloadPage:
			doc.Page = int(integerValue(v))
		case payloadPosition:
			doc.Position = int(integerValue(v))
		case payloadSeq:
			seq = integerValue(v)
		case payloadCreatedAt:
			if t, err := time.Parse(time.RFC3339Nano, v.GetStringValue()); err == nil {
				doc.CreatedAt = t
			}
		default:
			if name, ok := strings.CutPrefix(key, payloadMetaPrefix); ok && name != "" {
				if doc.Metadata == nil {
					doc.Metadata = make(map[string]string)
				}
				doc.Metadata[name] = valueString(v)
			}
		}
	}
	return doc, seq
}

// integerValue 读取整数值，兼容以浮点数返回的情况
func integerValue(v *qdrant.Value) int64 {
	switch x := v.GetKind().(type) {
	case *qdrant.Value_IntegerValue:
		return x.IntegerValue
	case *qdrant.Value_DoubleValue:
		return int64(x.DoubleValue)
	}
	return 0
}

// valueString 将payload值转换为字符串
func valueString(v *qdrant.Value) string {
	switch x := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return x.StringValue
	case *qdrant.Value_IntegerValue:
		return strconv.FormatInt(x.IntegerValue, 10)
	case *qdrant.Value_DoubleValue:
		return strconv.FormatFloat(x.DoubleValue, 'f', -1, 64)
	case *qdrant.Value_BoolValue:
		return strconv.FormatBool(x.BoolValue)
	}
	return ""
}

// pointID 读取点ID
func pointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	switch x := id.PointIdOptions.(type) {
	case *qdrant.PointId_Uuid:
		return x.Uuid
	case *qdrant.PointId_Num:
		return strconv.FormatUint(x.Num, 10)
	}
	return ""
}

func init() {
	RegisterRepository("qdrant", NewQdrantRepository)
}
