package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fyerfyer/campusdoc-tutor/internal/cache"
	"github.com/fyerfyer/campusdoc-tutor/internal/document"
	"github.com/fyerfyer/campusdoc-tutor/internal/models"
	"github.com/fyerfyer/campusdoc-tutor/internal/repository"
	"github.com/fyerfyer/campusdoc-tutor/internal/vectordb"
	"github.com/fyerfyer/campusdoc-tutor/pkg/storage"
	"github.com/sirupsen/logrus"
)

// UploadResult 上传并入库的结果
type UploadResult struct {
	FileName    string               // 保存的文件名
	Status      models.IngestStatus  // 入库状态
	ChunkCount  int                  // 文本块数量
	Suggestions []string             // 推荐问题
	Record      *models.IngestRecord // 入库记录，记录写入失败时为nil
}

// FileService 原始文件服务
// 负责保存上传的PDF、触发入库、记录入库结果以及重置全部数据
type FileService struct {
	storage storage.Storage             // 原始文件存储
	ingest  *IngestService              // 入库服务
	index   vectordb.VectorIndex        // 向量索引
	records repository.RecordRepository // 入库记录，为nil时不记录
	cache   cache.Cache                 // 向量缓存，为nil时跳过
	logger  *logrus.Logger              // 日志记录器
}

// FileOption 文件服务配置选项
type FileOption func(*FileService)

// WithRecordRepository 设置入库记录仓储
func WithRecordRepository(repo repository.RecordRepository) FileOption {
	return func(s *FileService) {
		s.records = repo
	}
}

// WithEmbeddingCache 设置重置时需要清空的向量缓存
func WithEmbeddingCache(c cache.Cache) FileOption {
	return func(s *FileService) {
		s.cache = c
	}
}

// WithFileLogger 设置日志记录器
func WithFileLogger(logger *logrus.Logger) FileOption {
	return func(s *FileService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewFileService 创建文件服务
func NewFileService(store storage.Storage, ingest *IngestService, index vectordb.VectorIndex, opts ...FileOption) *FileService {
	srv := &FileService{
		storage: store,
		ingest:  ingest,
		index:   index,
		logger:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

// Upload 保存文件并写入索引
// 入库失败时返回IngestionError，同时仍然写入一条failed记录
func (s *FileService) Upload(ctx context.Context, reader io.Reader, filename string) (*UploadResult, error) {
	if !document.IsSupported(filename) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filename)
	}
	start := time.Now()

	// 1. 保存原始文件
	info, err := s.storage.Save(ctx, reader, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}
	log := s.logger.WithFields(logrus.Fields{
		"file": info.Name,
		"size": info.Size,
	})

	// 2. 取得本地路径并入库
	path, cleanup, err := s.storage.LocalPath(ctx, info.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to locate stored file: %w", err)
	}
	defer cleanup()

	result, ingestErr := s.ingest.Ingest(ctx, path)

	// 3. 记录入库结果
	record := &models.IngestRecord{
		FileName:   info.Name,
		StoredPath: info.Path,
		FileSize:   info.Size,
		DurationMS: time.Since(start).Milliseconds(),
	}
	if ingestErr != nil {
		record.Status = models.IngestStatusFailed
		record.FailedStage = string(FailedStage(ingestErr))
		record.Error = ingestErr.Error()
		log.WithError(ingestErr).WithField("stage", record.FailedStage).Error("Document ingestion failed")
	} else {
		record.Status = models.IngestStatusIndexed
		record.ChunkCount = result.ChunkCount
		if err := record.SetSuggestions(result.Suggestions); err != nil {
			log.WithError(err).Warn("Failed to encode suggestions for ingest record")
		}
	}
	saved := s.saveRecord(ctx, record, log)

	if ingestErr != nil {
		return nil, ingestErr
	}
	return &UploadResult{
		FileName:    info.Name,
		Status:      models.IngestStatusIndexed,
		ChunkCount:  result.ChunkCount,
		Suggestions: result.Suggestions,
		Record:      saved,
	}, nil
}

// saveRecord 写入入库记录，失败只记录警告
func (s *FileService) saveRecord(ctx context.Context, record *models.IngestRecord, log *logrus.Entry) *models.IngestRecord {
	if s.records == nil {
		return nil
	}
	if err := s.records.Create(ctx, record); err != nil {
		log.WithError(err).Warn("Failed to save ingest record")
		return nil
	}
	return record
}

// ListFiles 列出已保存的PDF文件
func (s *FileService) ListFiles(ctx context.Context) ([]storage.FileInfo, error) {
	files, err := s.storage.List(ctx)
	if err != nil {
		return nil, err
	}
	pdfs := make([]storage.FileInfo, 0, len(files))
	for _, f := range files {
		if strings.EqualFold(fileExt(f.Name), ".pdf") {
			pdfs = append(pdfs, f)
		}
	}
	return pdfs, nil
}

// OpenFile 打开已保存的原始文件
func (s *FileService) OpenFile(ctx context.Context, name string) (io.ReadCloser, storage.FileInfo, error) {
	return s.storage.Open(ctx, name)
}

// ListRecords 分页列出入库记录
func (s *FileService) ListRecords(ctx context.Context, offset, limit int, filter repository.RecordFilter) ([]*models.IngestRecord, int64, error) {
	if s.records == nil {
		return []*models.IngestRecord{}, 0, nil
	}
	return s.records.List(ctx, offset, limit, filter)
}

// VectorCount 返回索引中的文本块数量
func (s *FileService) VectorCount(ctx context.Context) (int, error) {
	return s.index.Count(ctx)
}

// Reset 清空向量索引、原始文件、入库记录和向量缓存
// 某一步失败时继续执行其余步骤，返回合并后的错误
func (s *FileService) Reset(ctx context.Context) error {
	var errs []error

	if err := s.index.Reset(ctx); err != nil {
		errs = append(errs, fmt.Errorf("reset index: %w", err))
	}
	if err := s.storage.Clear(ctx); err != nil {
		errs = append(errs, fmt.Errorf("clear raw files: %w", err))
	}
	if s.records != nil {
		if err := s.records.Clear(ctx); err != nil {
			errs = append(errs, fmt.Errorf("clear ingest records: %w", err))
		}
	}
	if s.cache != nil {
		if err := s.cache.Clear(ctx); err != nil {
			errs = append(errs, fmt.Errorf("clear embedding cache: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		s.logger.WithError(err).Error("System reset incomplete")
		return err
	}
	s.logger.Info("System reset completed")
	return nil
}

func fileExt(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}
