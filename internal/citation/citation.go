// Package citation 将检索到的文本块转换为面向用户的引用信息
package citation

import (
	"path/filepath"
	"strings"

	"github.com/fyerfyer/campusdoc-tutor/internal/document"
)

const (
	// MaxContentLength 引用内容保留的最大字符数
	MaxContentLength = 150
	// Ellipsis 追加在引用内容末尾的省略号
	Ellipsis = "..."
	// UnknownSource 文本块没有来源时使用的名称
	UnknownSource = "unknown"
)

// Citation 一条引用
type Citation struct {
	Content string `json:"content"` // 文本块开头的片段
	Source  string `json:"source"`  // 来源文件名，不含目录
	Page    int    `json:"page"`    // 从1开始的页码
}

// Format 按检索顺序为每个文本块生成一条引用
func Format(chunks []document.Document) []Citation {
	citations := make([]Citation, 0, len(chunks))
	for _, c := range chunks {
		citations = append(citations, Citation{
			Content: snippet(c.Content),
			Source:  sourceName(c.Source),
			Page:    c.Page + 1,
		})
	}
	return citations
}

// snippet 截取前MaxContentLength个字符，换行替换为空格，并总是追加省略号
func snippet(content string) string {
	runes := []rune(content)
	if len(runes) > MaxContentLength {
		runes = runes[:MaxContentLength]
	}
	return strings.ReplaceAll(string(runes), "\n", " ") + Ellipsis
}

// sourceName 返回来源路径的文件名
func sourceName(source string) string {
	if strings.TrimSpace(source) == "" {
		return UnknownSource
	}
	// 兼容Windows风格的路径
	name := filepath.Base(strings.ReplaceAll(source, "\\", "/"))
	if name == "." || name == "/" {
		return UnknownSource
	}
	return name
}
