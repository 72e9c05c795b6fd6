package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStorage 把原始文件保存为同一存储桶中prefix下的对象
type MinioStorage struct {
	client     *minio.Client
	bucketName string
	prefix     string // 为空或以/结尾
}

// MinioConfig MinIO存储配置
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Prefix    string // 对象名前缀，例如 raw/
}

// NewMinioStorage 连接MinIO，存储桶不存在时创建
func NewMinioStorage(cfg MinioConfig) (*MinioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	if err := ensureBucket(context.Background(), client, cfg.Bucket); err != nil {
		return nil, err
	}

	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &MinioStorage{client: client, bucketName: cfg.Bucket, prefix: prefix}, nil
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	return nil
}

// objectInfo 对象元数据转为FileInfo
func objectInfo(name, key string, size int64, modTime time.Time) FileInfo {
	return FileInfo{Name: name, Size: size, MimeType: getMimeType(name), Path: key, ModTime: modTime}
}

// objectName 文件名对应的对象名
func (s *MinioStorage) objectName(name string) (string, string, error) {
	clean, err := CleanName(name)
	if err != nil {
		return "", "", err
	}
	return clean, s.prefix + clean, nil
}

// Save 以流式上传保存文件
func (s *MinioStorage) Save(ctx context.Context, reader io.Reader, filename string) (FileInfo, error) {
	name, object, err := s.objectName(filename)
	if err != nil {
		return FileInfo{}, err
	}

	// 大小未知，由客户端分片上传
	info, err := s.client.PutObject(ctx, s.bucketName, object, reader, -1,
		minio.PutObjectOptions{ContentType: getMimeType(name)})
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to upload file: %w", err)
	}
	return objectInfo(name, object, info.Size, info.LastModified), nil
}

// Open 获取MinIO中的文件
func (s *MinioStorage) Open(ctx context.Context, name string) (io.ReadCloser, FileInfo, error) {
	info, err := s.stat(ctx, name)
	if err != nil {
		return nil, FileInfo{}, err
	}
	obj, err := s.client.GetObject(ctx, s.bucketName, info.Path, minio.GetObjectOptions{})
	if err != nil {
		return nil, FileInfo{}, fmt.Errorf("failed to get object: %w", err)
	}
	return obj, info, nil
}

// LocalPath 将对象下载到临时目录，保留原始文件名
func (s *MinioStorage) LocalPath(ctx context.Context, name string) (string, func(), error) {
	info, err := s.stat(ctx, name)
	if err != nil {
		return "", nil, err
	}

	dir, err := os.MkdirTemp("", "campusdoc-raw-")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	localPath := filepath.Join(dir, info.Name)
	if err := s.client.FGetObject(ctx, s.bucketName, info.Path, localPath, minio.GetObjectOptions{}); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to download object: %w", err)
	}
	return localPath, cleanup, nil
}

// Delete 从MinIO中删除文件
func (s *MinioStorage) Delete(ctx context.Context, name string) error {
	info, err := s.stat(ctx, name)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucketName, info.Path, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// List 列出前缀下的文件，不递归子目录
func (s *MinioStorage) List(ctx context.Context) ([]FileInfo, error) {
	var files []FileInfo

	objectCh := s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix: s.prefix,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("error listing objects: %w", object.Err)
		}
		name := strings.TrimPrefix(object.Key, s.prefix)
		if name == "" || strings.HasSuffix(name, "/") {
			continue
		}
		files = append(files, objectInfo(name, object.Key, object.Size, object.LastModified))
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Exists 检查MinIO中是否存在指定文件
func (s *MinioStorage) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.stat(ctx, name)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

// Clear 删除前缀下的全部对象
func (s *MinioStorage) Clear(ctx context.Context) error {
	files, err := s.List(ctx)
	if err != nil {
		return err
	}

	objectsCh := make(chan minio.ObjectInfo)
	go func() {
		defer close(objectsCh)
		for _, f := range files {
			select {
			case objectsCh <- minio.ObjectInfo{Key: f.Path}:
			case <-ctx.Done():
				return
			}
		}
	}()

	for rErr := range s.client.RemoveObjects(ctx, s.bucketName, objectsCh, minio.RemoveObjectsOptions{}) {
		if rErr.Err != nil {
			return fmt.Errorf("failed to delete %s: %w", rErr.ObjectName, rErr.Err)
		}
	}
	return ctx.Err()
}

// stat 读取对象元数据
func (s *MinioStorage) stat(ctx context.Context, name string) (FileInfo, error) {
	clean, object, err := s.objectName(name)
	if err != nil {
		return FileInfo{}, err
	}
	info, err := s.client.StatObject(ctx, s.bucketName, object, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return FileInfo{}, fmt.Errorf("%w: %s", ErrNotFound, clean)
		}
		return FileInfo{}, fmt.Errorf("failed to stat object: %w", err)
	}
	return objectInfo(clean, object, info.Size, info.LastModified), nil
}
