package repository

import (
	"context"

	"github.com/fyerfyer/campusdoc-tutor/internal/models"
)

// RecordFilter 入库记录查询条件
type RecordFilter struct {
	Status   models.IngestStatus // 按状态过滤，为空表示不过滤
	FileName string              // 文件名模糊匹配
}

// RecordRepository 入库记录仓储接口
type RecordRepository interface {
	// Create 创建入库记录
	Create(ctx context.Context, record *models.IngestRecord) error

	// GetByID 根据ID获取记录
	GetByID(ctx context.Context, id string) (*models.IngestRecord, error)

	// List 按创建时间倒序列出记录，返回记录和总数
	List(ctx context.Context, offset, limit int, filter RecordFilter) ([]*models.IngestRecord, int64, error)

	// Clear 删除全部记录
	Clear(ctx context.Context) error
}
