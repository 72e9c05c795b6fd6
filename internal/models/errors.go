package models

import "errors"

var (
	// ErrRecordNotFound 入库记录不存在错误
	ErrRecordNotFound = errors.New("ingest record not found")

	// ErrInvalidIngestStatus 无效的入库状态错误
	ErrInvalidIngestStatus = errors.New("invalid ingest status")
)

// Valid 检查状态值是否合法
func (s IngestStatus) Valid() bool {
	return s == IngestStatusIndexed || s == IngestStatusFailed
}
