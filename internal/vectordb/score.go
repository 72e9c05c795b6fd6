package vectordb

import (
	"cmp"
	"fmt"
	"math"
	"slices"
)

// ComputeScore 两个向量的相似度，越大越相似
// 欧氏距离d换算为exp(-d)，落在(0, 1]区间
func ComputeScore(a, b []float32, dist DistanceType) (float32, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrInvalidDimension, len(a), len(b))
	}
	switch dist {
	case "", Cosine:
		na, nb := norm(a), norm(b)
		if na == 0 || nb == 0 {
			return 0, nil
		}
		return min(dot(a, b)/(na*nb), 1), nil
	case DotProduct:
		return dot(a, b), nil
	case Euclidean:
		var sq float64
		for i := range a {
			d := float64(a[i] - b[i])
			sq += d * d
		}
		return float32(math.Exp(-math.Sqrt(sq))), nil
	}
	return 0, fmt.Errorf("unsupported distance type: %s", dist)
}

func dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func norm(v []float32) float32 {
	return float32(math.Sqrt(float64(dot(v, v))))
}

// normalizeVector 返回单位长度的副本，零向量原样复制
func normalizeVector(v []float32) []float32 {
	out := slices.Clone(v)
	n := norm(v)
	if n == 0 {
		return out
	}
	for i := range out {
		out[i] /= n
	}
	return out
}

// SortSearchResults 按得分降序，同分保持原有顺序
func SortSearchResults(results []SearchResult) {
	slices.SortStableFunc(results, func(x, y SearchResult) int {
		return cmp.Compare(y.Score, x.Score)
	})
}

// ValidateVector 检查向量非空，expectedDim大于0时同时检查维度
func ValidateVector(vector []float32, expectedDim int) error {
	switch {
	case len(vector) == 0:
		return ErrEmptyVector
	case expectedDim > 0 && len(vector) != expectedDim:
		return fmt.Errorf("%w: expected %d, got %d", ErrInvalidDimension, expectedDim, len(vector))
	}
	return nil
}

// validateBatch 要求整批向量维度一致，返回该维度
// expectedDim为0时以第一条为准
func validateBatch(docs []Document, expectedDim int) (int, error) {
	dim := expectedDim
	for i, doc := range docs {
		if err := ValidateVector(doc.Vector, dim); err != nil {
			return 0, fmt.Errorf("document %d: %w", i, err)
		}
		dim = len(doc.Vector)
	}
	return dim, nil
}

// matchSources sources为空表示不过滤
func matchSources(source string, sources []string) bool {
	return len(sources) == 0 || slices.Contains(sources, source)
}

func limitResults(results []SearchResult, k int) []SearchResult {
	if k > 0 && len(results) > k {
		return results[:k]
	}
	return results
}
