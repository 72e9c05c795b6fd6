package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// IngestStatus 入库结果状态
type IngestStatus string

const (
	// IngestStatusIndexed 文件已写入向量索引
	IngestStatusIndexed IngestStatus = "indexed"
	// IngestStatusFailed 入库失败
	IngestStatusFailed IngestStatus = "failed"
)

// IngestRecord 一次文件入库的审计记录
// 只追加不修改，重置系统时全部清除
type IngestRecord struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`          // 记录ID
	FileName    string         `gorm:"not null;index" json:"file_name"`       // 上传的文件名
	StoredPath  string         `gorm:"type:text" json:"stored_path"`          // 原始文件的存储路径
	FileSize    int64          `gorm:"not null;default:0" json:"file_size"`   // 文件大小（字节）
	Status      IngestStatus   `gorm:"not null;size:20;index" json:"status"`  // 入库状态
	FailedStage string         `gorm:"size:20" json:"failed_stage,omitempty"` // 失败所在阶段：load/split/add
	ChunkCount  int            `gorm:"not null;default:0" json:"chunk_count"` // 写入索引的文本块数量
	Suggestions datatypes.JSON `gorm:"type:json" json:"suggestions"`          // 推荐问题，JSON数组
	Error       string         `gorm:"type:text" json:"error,omitempty"`      // 错误信息
	DurationMS  int64          `gorm:"not null;default:0" json:"duration_ms"` // 入库耗时（毫秒）
	CreatedAt   time.Time      `gorm:"not null;index" json:"created_at"`      // 创建时间
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`            // 更新时间
}

// BeforeCreate GORM的钩子函数，创建记录前补全ID和时间
func (r *IngestRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	now := time.Now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	if len(r.Suggestions) == 0 {
		r.Suggestions = datatypes.JSON("[]")
	}
	return nil
}

// TableName 明确指定表名
func (IngestRecord) TableName() string {
	return "ingest_records"
}

// SetSuggestions 以JSON数组保存推荐问题
func (r *IngestRecord) SetSuggestions(suggestions []string) error {
	if suggestions == nil {
		suggestions = []string{}
	}
	data, err := json.Marshal(suggestions)
	if err != nil {
		return err
	}
	r.Suggestions = datatypes.JSON(data)
	return nil
}

// SuggestionList 解析推荐问题，记录中没有时返回空切片
func (r *IngestRecord) SuggestionList() []string {
	out := []string{}
	if len(r.Suggestions) == 0 {
		return out
	}
	if err := json.Unmarshal(r.Suggestions, &out); err != nil || out == nil {
		return []string{}
	}
	return out
}
