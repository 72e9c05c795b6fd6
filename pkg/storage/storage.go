package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrNotFound 文件不存在
	ErrNotFound = errors.New("file not found")
	// ErrInvalidName 文件名为空或包含路径
	ErrInvalidName = errors.New("invalid file name")
)

// FileInfo 文件元数据结构
type FileInfo struct {
	Name     string    // 原始文件名，同时作为文件的唯一标识
	Size     int64     // 文件大小(字节)
	MimeType string    // 文件MIME类型
	Path     string    // 内部存储路径(实现相关)
	ModTime  time.Time // 最后修改时间
}

// Storage 原始文件存储接口
// 文件按原始文件名平铺存放，同名文件覆盖旧文件
type Storage interface {
	// Save 保存文件并返回文件信息
	Save(ctx context.Context, reader io.Reader, filename string) (FileInfo, error)

	// Open 打开文件读取内容
	Open(ctx context.Context, name string) (io.ReadCloser, FileInfo, error)

	// LocalPath 返回可以直接读取的本地文件路径，使用完毕后调用cleanup
	LocalPath(ctx context.Context, name string) (path string, cleanup func(), err error)

	// Delete 删除文件
	Delete(ctx context.Context, name string) error

	// List 按文件名排序列出所有文件
	List(ctx context.Context) ([]FileInfo, error)

	// Exists 检查文件是否存在
	Exists(ctx context.Context, name string) (bool, error)

	// Clear 删除全部文件
	Clear(ctx context.Context) error
}

// Config 存储配置
type Config struct {
	Type  string      // local 或 minio
	Local LocalConfig // 本地存储配置
	Minio MinioConfig // MinIO存储配置
}

// New 根据配置创建存储实现
func New(cfg Config) (Storage, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "local":
		return NewLocalStorage(cfg.Local)
	case "minio":
		return NewMinioStorage(cfg.Minio)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// CleanName 校验文件名，只保留不含目录的文件名
func CleanName(filename string) (string, error) {
	name := filepath.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if name == "" || name == "." || name == ".." || name == "/" {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, filename)
	}
	return name, nil
}

// getMimeType 简单根据文件扩展名判断MIME类型
func getMimeType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

func noop() {}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
