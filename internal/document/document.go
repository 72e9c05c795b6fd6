package document

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedType 不支持的文档类型
var ErrUnsupportedType = errors.New("unsupported document type")

// Document 文档页面或文本块
// 加载器按页生成Document，分段器生成的文本块沿用相同结构
type Document struct {
	Content string            // 文本内容
	Source  string            // 源文件路径
	Page    int               // 页码，从0开始
	Meta    map[string]string // 附加元数据（可选）
}

// Loader 文档加载器接口
// 负责把磁盘上的文件读取为按页划分的文档
type Loader interface {
	// Load 读取文件，每页返回一个Document
	Load(filePath string) ([]Document, error)
}

// Splitter 文本分段器接口
// 负责将页面文本切分成适合向量化的文本块
type Splitter interface {
	// Split 切分文档，元数据原样复制到每个文本块
	Split(docs []Document) ([]Document, error)
}

// LoadError 文档加载错误
type LoadError struct {
	Path string // 文件路径
	Err  error  // 原始错误
}

// Error 实现error接口
func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

// Unwrap 返回原始错误
func (e *LoadError) Unwrap() error {
	return e.Err
}

// ContentType 表示文档的内容类型
type ContentType string

const (
	// PDF 文档类型
	PDF ContentType = "pdf"
	// Unknown 未知类型
	Unknown ContentType = "unknown"
)

// LoaderFactory 根据文件类型创建对应的加载器
func LoaderFactory(filePath string) (Loader, error) {
	switch detectContentType(filePath) {
	case PDF:
		return NewPDFLoader(), nil
	default:
		return nil, ErrUnsupportedType
	}
}

// IsSupported 判断文件名是否为支持的文档类型
func IsSupported(filename string) bool {
	return detectContentType(filename) != Unknown
}

// detectContentType 根据文件扩展名检测内容类型
func detectContentType(filePath string) ContentType {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".pdf":
		return PDF
	default:
		return Unknown
	}
}

// copyMeta 复制元数据，避免文本块之间共享同一个map
func copyMeta(meta map[string]string) map[string]string {
	if meta == nil {
		return nil
	}
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
