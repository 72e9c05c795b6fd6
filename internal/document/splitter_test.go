package document

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSplitterConfigValidate 测试分块参数校验
func TestSplitterConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultSplitterConfig().Validate())

	_, err := NewRecursiveSplitter(SplitterConfig{ChunkSize: 0, ChunkOverlap: 0})
	assert.Error(t, err, "chunk size must be positive")

	_, err = NewRecursiveSplitter(SplitterConfig{ChunkSize: 100, ChunkOverlap: -1})
	assert.Error(t, err, "negative overlap is invalid")

	_, err = NewRecursiveSplitter(SplitterConfig{ChunkSize: 100, ChunkOverlap: 100})
	assert.Error(t, err, "overlap equal to size is invalid")

	_, err = Split(nil, 10, 20)
	assert.Error(t, err)
}

// TestSplitShortText 短文本只生成一个文本块
func TestSplitShortText(t *testing.T) {
	docs := []Document{{
		Content: "这是一个测试文档内容。\n\n这是第二段落。\n\n这是第三段落。",
		Source:  "data/raw/test.pdf",
		Page:    2,
		Meta:    map[string]string{"total_pages": "3"},
	}}

	chunks, err := Split(docs, 1000, 200)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Content, "第三段落")
	assert.Equal(t, "data/raw/test.pdf", chunks[0].Source)
	assert.Equal(t, 2, chunks[0].Page)
	assert.Equal(t, "3", chunks[0].Meta["total_pages"])
}

// TestSplitChunkSizeAndOverlap 验证块长度上限和相邻块的重叠
func TestSplitChunkSizeAndOverlap(t *testing.T) {
	cases := []struct {
		name    string
		size    int
		overlap int
	}{
		{"small", 50, 10},
		{"default", 1000, 200},
		{"no overlap", 80, 0},
		{"large overlap", 100, 99},
	}

	// 没有任何分隔符的长文本，只能按字符切分
	text := strings.Repeat("abcdefghijklmnopqrstuvwxyz0123456789", 120)

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			splitter, err := NewRecursiveSplitter(SplitterConfig{ChunkSize: tc.size, ChunkOverlap: tc.overlap})
			require.NoError(t, err)

			chunks := splitter.SplitText(text)
			require.NotEmpty(t, chunks)

			for i, c := range chunks {
				assert.LessOrEqual(t, utf8.RuneCountInString(c), tc.size, "chunk %d too long", i)
				assert.NotEmpty(t, c)
			}
			for i := 1; i < len(chunks); i++ {
				prev := []rune(chunks[i-1])
				tail := string(prev[len(prev)-tc.overlap:])
				assert.True(t, strings.HasPrefix(chunks[i], tail), "chunk %d should start with the tail of chunk %d", i, i-1)
			}
		})
	}
}

// TestSplitPrefersParagraphs 优先在段落边界切分
func TestSplitPrefersParagraphs(t *testing.T) {
	para1 := strings.Repeat("Alpha beta gamma. ", 3)
	para2 := strings.Repeat("Delta epsilon zeta. ", 3)
	text := para1 + "\n\n" + para2

	splitter, err := NewRecursiveSplitter(SplitterConfig{ChunkSize: 70, ChunkOverlap: 0})
	require.NoError(t, err)

	chunks := splitter.SplitText(text)
	require.Len(t, chunks, 2)
	assert.Equal(t, strings.TrimSpace(para1), chunks[0])
	assert.Equal(t, strings.TrimSpace(para2), chunks[1])
}

// TestSplitFallsBackToWords 段落过长时退化为按句子和单词切分
func TestSplitFallsBackToWords(t *testing.T) {
	text := strings.Repeat("word ", 200)

	splitter, err := NewRecursiveSplitter(SplitterConfig{ChunkSize: 52, ChunkOverlap: 10})
	require.NoError(t, err)

	chunks := splitter.SplitText(text)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 52)
		// 不会把单词切断
		for _, w := range strings.Fields(c) {
			assert.Equal(t, "word", w)
		}
	}
	// 相邻块共享至少一个单词
	assert.True(t, strings.HasPrefix(chunks[1], "word"))
}

// TestSplitMultibyte 按字符而不是字节计算长度
func TestSplitMultibyte(t *testing.T) {
	text := strings.Repeat("文档问答系统", 100)

	splitter, err := NewRecursiveSplitter(SplitterConfig{ChunkSize: 100, ChunkOverlap: 20})
	require.NoError(t, err)

	chunks := splitter.SplitText(text)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c))
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 100)
	}
	assert.Equal(t, 100, utf8.RuneCountInString(chunks[0]))
}

// TestSplitNoEmptyChunks 空白页面不产生文本块
func TestSplitNoEmptyChunks(t *testing.T) {
	docs := []Document{
		{Content: "", Source: "a.pdf", Page: 0},
		{Content: "  \n\n \n ", Source: "a.pdf", Page: 1},
		{Content: "Real text on page three.", Source: "a.pdf", Page: 2},
	}

	chunks, err := Split(docs, 1000, 200)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 2, chunks[0].Page)
	assert.Equal(t, "Real text on page three.", chunks[0].Content)
}

// TestSplitMetaIsCopied 每个文本块拥有独立的元数据副本
func TestSplitMetaIsCopied(t *testing.T) {
	docs := []Document{{
		Content: strings.Repeat("x", 30),
		Source:  "b.pdf",
		Meta:    map[string]string{"k": "v"},
	}}

	chunks, err := Split(docs, 10, 2)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	chunks[0].Meta["k"] = "changed"
	assert.Equal(t, "v", chunks[1].Meta["k"])
	assert.Equal(t, "v", docs[0].Meta["k"])
}
