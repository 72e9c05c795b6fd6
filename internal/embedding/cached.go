package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sync/atomic"
	"time"

	"github.com/fyerfyer/campusdoc-tutor/internal/cache"
	"github.com/sirupsen/logrus"
)

// 缓存键前缀
const cacheKeyPrefix = "emb"

// CacheStats 缓存命中统计
type CacheStats struct {
	Hits   int64
	Misses int64
}

// CachedClient 带缓存的嵌入客户端
// 键由模型名和文本的SHA-256组成，缓存故障只记录日志，不影响嵌入结果
type CachedClient struct {
	inner  Client
	cache  cache.Cache
	ttl    time.Duration
	logger *logrus.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachedClient 用缓存包装嵌入客户端，ttl为0时使用缓存的默认过期时间
func NewCachedClient(inner Client, c cache.Cache, ttl time.Duration, logger *logrus.Logger) *CachedClient {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CachedClient{
		inner:  inner,
		cache:  c,
		ttl:    ttl,
		logger: logger,
	}
}

// Name 返回内部模型名称
func (c *CachedClient) Name() string {
	return c.inner.Name()
}

// Embed 单条文本走批量路径
func (c *CachedClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch 一次读取全部缓存，只把未命中的文本交给内部客户端
// 同一批次中的重复文本只计算一次
func (c *CachedClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = c.Key(text)
	}

	cached, err := c.cache.GetMany(ctx, keys)
	if err != nil {
		c.logger.WithError(err).Warn("Embedding cache read failed")
		cached = nil
	}

	vectors := make([][]float32, len(texts))
	pending := make(map[string][]int)
	var missTexts []string
	hits := 0
	for i, key := range keys {
		if vec, ok := decodeVector(cached[key]); ok {
			vectors[i] = vec
			hits++
			continue
		}
		if _, seen := pending[key]; !seen {
			missTexts = append(missTexts, texts[i])
		}
		pending[key] = append(pending[key], i)
	}
	c.hits.Add(int64(hits))
	c.misses.Add(int64(len(texts) - hits))

	if len(missTexts) == 0 {
		return vectors, nil
	}

	fresh, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, NewEmbeddingError(ErrCodeInvalidResponse, "embedding count does not match input count")
	}

	entries := make(map[string][]byte, len(fresh))
	for j, vec := range fresh {
		key := c.Key(missTexts[j])
		for _, i := range pending[key] {
			vectors[i] = vec
		}
		entries[key] = encodeVector(vec)
	}
	if err := c.cache.SetMany(ctx, entries, c.ttl); err != nil {
		c.logger.WithError(err).Warn("Embedding cache write failed")
	}
	return vectors, nil
}

// Stats 返回累计的命中和未命中次数
func (c *CachedClient) Stats() CacheStats {
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// Key 返回文本对应的缓存键
func (c *CachedClient) Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return cache.Key(cacheKeyPrefix, c.inner.Name(), hex.EncodeToString(sum[:]))
}

// encodeVector 按小端序把float32写成定长字节
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

// decodeVector 解码缓存中的向量，长度不合法时视为未命中
func decodeVector(buf []byte) ([]float32, bool) {
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil, false
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec, true
}
