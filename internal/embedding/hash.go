package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// 默认的哈希向量维度
const defaultHashDimensions = 256

// HashClient 基于词哈希的本地嵌入客户端
// 不依赖模型服务，相同文本总是得到相同向量，适合离线开发和测试
type HashClient struct {
	dimensions int
}

// NewHashClient 创建本地哈希嵌入客户端
func NewHashClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	dim := cfg.Dimensions
	if dim == 0 {
		dim = defaultHashDimensions
	}
	return &HashClient{dimensions: dim}, nil
}

// Name 返回模型名称
func (c *HashClient) Name() string {
	return "hash"
}

// Embed 将文本中的每个词哈希到一个维度并归一化
func (c *HashClient) Embed(_ context.Context, text string) ([]float32, error) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil, NewEmbeddingError(ErrCodeEmptyInput, ErrMsgEmptyInput)
	}

	vec := make([]float32, c.dimensions)
	for _, tok := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[h.Sum32()%uint32(c.dimensions)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

// EmbedBatch 逐条生成向量
func (c *HashClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := c.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// tokenize 按非字母数字字符切词并转为小写
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func init() {
	RegisterClient("hash", NewHashClient)
}
