package document

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultSeparators 默认的分隔符，粒度从段落、行、句子、单词到字符依次递减
var DefaultSeparators = []string{"\n\n", "\n", ". ", "? ", "! ", "。", " ", ""}

// SplitterConfig 分段器配置
type SplitterConfig struct {
	ChunkSize    int      // 分块大小（按字符数）
	ChunkOverlap int      // 分块重叠大小（字符数）
	Separators   []string // 分隔符列表，为空时使用DefaultSeparators
}

// DefaultSplitterConfig 返回默认分段器配置
func DefaultSplitterConfig() SplitterConfig {
	return SplitterConfig{
		ChunkSize:    1000,
		ChunkOverlap: 200,
		Separators:   DefaultSeparators,
	}
}

// Validate 检查分块参数
func (c SplitterConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("chunk overlap must not be negative, got %d", c.ChunkOverlap)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk overlap (%d) must be smaller than chunk size (%d)", c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}

// RecursiveSplitter 递归字符分段器
// 优先在粗粒度分隔符处切分，超长片段再用更细的分隔符继续切分
type RecursiveSplitter struct {
	config SplitterConfig
}

// NewRecursiveSplitter 创建新的递归分段器
func NewRecursiveSplitter(config SplitterConfig) (*RecursiveSplitter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if len(config.Separators) == 0 {
		config.Separators = DefaultSeparators
	}
	return &RecursiveSplitter{config: config}, nil
}

// Split 按默认分隔符切分文档
func Split(docs []Document, chunkSize, chunkOverlap int) ([]Document, error) {
	s, err := NewRecursiveSplitter(SplitterConfig{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
	})
	if err != nil {
		return nil, err
	}
	return s.Split(docs)
}

// Split 将每个文档切分为文本块，Source、Page和Meta复制到每个文本块
func (s *RecursiveSplitter) Split(docs []Document) ([]Document, error) {
	chunks := make([]Document, 0, len(docs))
	for _, doc := range docs {
		for _, text := range s.SplitText(doc.Content) {
			chunks = append(chunks, Document{
				Content: text,
				Source:  doc.Source,
				Page:    doc.Page,
				Meta:    copyMeta(doc.Meta),
			})
		}
	}
	return chunks, nil
}

// SplitText 切分单段文本，不会返回空字符串
func (s *RecursiveSplitter) SplitText(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.splitRecursive(text, s.config.Separators)
}

// splitRecursive 选择文本中出现的第一个分隔符切分，超长片段递归处理
func (s *RecursiveSplitter) splitRecursive(text string, separators []string) []string {
	separator := ""
	var rest []string
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var (
		final []string
		good  []string
	)
	for _, piece := range splitKeepSeparator(text, separator) {
		if runeLen(piece) <= s.config.ChunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			final = append(final, hardSplit(piece, s.config.ChunkSize)...)
			continue
		}
		final = append(final, s.splitRecursive(piece, rest)...)
	}
	if len(good) > 0 {
		final = append(final, s.merge(good)...)
	}
	return final
}

// merge 将小片段合并为不超过ChunkSize的文本块，相邻块保留ChunkOverlap的重叠
func (s *RecursiveSplitter) merge(pieces []string) []string {
	var (
		chunks  []string
		current []string
		total   int
	)
	for _, piece := range pieces {
		n := runeLen(piece)
		if total+n > s.config.ChunkSize && len(current) > 0 {
			if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for total > s.config.ChunkOverlap || (total+n > s.config.ChunkSize && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}
	if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// splitKeepSeparator 按分隔符切分，分隔符保留在前一片段末尾
// 分隔符为空时按字符切分
func splitKeepSeparator(text, separator string) []string {
	if separator == "" {
		pieces := make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}
	parts := strings.SplitAfter(text, separator)
	pieces := parts[:0]
	for _, p := range parts {
		if p != "" {
			pieces = append(pieces, p)
		}
	}
	return pieces
}

// hardSplit 在没有可用分隔符时按固定长度截断
func hardSplit(text string, size int) []string {
	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			out = append(out, chunk)
		}
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
