package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyerfyer/campusdoc-tutor/internal/models"
	"gorm.io/gorm"
)

// 单次查询的最大记录数
const maxListLimit = 200

// recordRepository 入库记录仓储实现
type recordRepository struct {
	db *gorm.DB // 数据库连接
}

// NewRecordRepository 使用指定的数据库连接创建入库记录仓储
func NewRecordRepository(db *gorm.DB) RecordRepository {
	return &recordRepository{db: db}
}

// Create 创建入库记录
func (r *recordRepository) Create(ctx context.Context, record *models.IngestRecord) error {
	if record == nil {
		return errors.New("record cannot be nil")
	}
	if record.FileName == "" {
		return errors.New("record file name cannot be empty")
	}
	if !record.Status.Valid() {
		return fmt.Errorf("%w: %q", models.ErrInvalidIngestStatus, record.Status)
	}
	return r.db.WithContext(ctx).Create(record).Error
}

// GetByID 根据ID获取记录
func (r *recordRepository) GetByID(ctx context.Context, id string) (*models.IngestRecord, error) {
	var record models.IngestRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrRecordNotFound, id)
		}
		return nil, err
	}
	return &record, nil
}

// List 列出入库记录，支持分页和筛选
func (r *recordRepository) List(ctx context.Context, offset, limit int, filter RecordFilter) ([]*models.IngestRecord, int64, error) {
	var (
		records []*models.IngestRecord
		total   int64
	)

	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	// 创建查询构造器
	query := r.db.WithContext(ctx).Model(&models.IngestRecord{})
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.FileName != "" {
		query = query.Where("file_name LIKE ?", "%"+filter.FileName+"%")
	}

	// 获取总数
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 同一时刻创建的记录按ID排序，保证分页稳定
	err := query.Order("created_at DESC").Order("id").
		Offset(offset).
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// Clear 删除全部记录
func (r *recordRepository) Clear(ctx context.Context) error {
	return r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.IngestRecord{}).Error
}
