package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// LocalStorage 本地文件存储实现
type LocalStorage struct {
	basePath string // 基础存储路径
}

// LocalConfig 本地存储配置
type LocalConfig struct {
	Path string // 本地存储路径
}

// NewLocalStorage 创建本地存储实例
func NewLocalStorage(cfg LocalConfig) (*LocalStorage, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("local storage path is empty")
	}
	// 确保路径是绝对路径
	absPath, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	// 确保目录存在
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: absPath,
	}, nil
}

// BasePath 返回存储根目录
func (s *LocalStorage) BasePath() string {
	return s.basePath
}

// Save 保存文件到本地存储
// 先写入临时文件再重命名，写入失败不会破坏已有的同名文件
func (s *LocalStorage) Save(_ context.Context, reader io.Reader, filename string) (FileInfo, error) {
	name, err := CleanName(filename)
	if err != nil {
		return FileInfo{}, err
	}

	tmp, err := os.CreateTemp(s.basePath, ".upload-*")
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to create file: %w", err)
	}
	tmpPath := tmp.Name()

	size, err := io.Copy(tmp, reader)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return FileInfo{}, fmt.Errorf("failed to write file: %w", err)
	}

	filePath := filepath.Join(s.basePath, name)
	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return FileInfo{}, fmt.Errorf("failed to move file into place: %w", err)
	}

	stat, err := os.Stat(filePath)
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to stat file: %w", err)
	}
	return FileInfo{
		Name:     name,
		Size:     size,
		MimeType: getMimeType(name),
		Path:     filePath,
		ModTime:  stat.ModTime(),
	}, nil
}

// Open 打开文件
func (s *LocalStorage) Open(_ context.Context, name string) (io.ReadCloser, FileInfo, error) {
	filePath, info, err := s.stat(name)
	if err != nil {
		return nil, FileInfo{}, err
	}
	file, err := os.Open(filePath)
	if err != nil {
		return nil, FileInfo{}, fmt.Errorf("failed to open file: %w", err)
	}
	return file, info, nil
}

// LocalPath 本地存储直接返回文件路径
func (s *LocalStorage) LocalPath(_ context.Context, name string) (string, func(), error) {
	filePath, _, err := s.stat(name)
	if err != nil {
		return "", nil, err
	}
	return filePath, noop, nil
}

// Delete 删除文件
func (s *LocalStorage) Delete(_ context.Context, name string) error {
	filePath, _, err := s.stat(name)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// List 列出根目录下的所有文件，跳过子目录和隐藏文件
func (s *LocalStorage) List(_ context.Context) ([]FileInfo, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || entry.Name()[0] == '.' {
			continue
		}
		stat, err := entry.Info()
		if err != nil {
			// 文件在遍历期间被删除
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
		}
		files = append(files, FileInfo{
			Name:     entry.Name(),
			Size:     stat.Size(),
			MimeType: getMimeType(entry.Name()),
			Path:     filepath.Join(s.basePath, entry.Name()),
			ModTime:  stat.ModTime(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Exists 检查文件是否存在
func (s *LocalStorage) Exists(_ context.Context, name string) (bool, error) {
	_, _, err := s.stat(name)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

// Clear 删除根目录下的全部文件，保留根目录本身
func (s *LocalStorage) Clear(ctx context.Context) error {
	files, err := s.List(ctx)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete %s: %w", f.Name, err)
		}
	}
	return nil
}

// stat 定位文件并读取元数据
func (s *LocalStorage) stat(name string) (string, FileInfo, error) {
	clean, err := CleanName(name)
	if err != nil {
		return "", FileInfo{}, err
	}
	filePath := filepath.Join(s.basePath, clean)
	stat, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", FileInfo{}, fmt.Errorf("%w: %s", ErrNotFound, clean)
		}
		return "", FileInfo{}, fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.IsDir() {
		return "", FileInfo{}, fmt.Errorf("%w: %s", ErrNotFound, clean)
	}
	return filePath, FileInfo{
		Name:     clean,
		Size:     stat.Size(),
		MimeType: getMimeType(clean),
		Path:     filePath,
		ModTime:  stat.ModTime(),
	}, nil
}
