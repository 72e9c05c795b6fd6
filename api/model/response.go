package model

import (
	"fmt"
	"net/url"
	"time"

	"github.com/fyerfyer/campusdoc-tutor/internal/citation"
)

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`               // 响应状态码，0表示成功
	Message string      `json:"message"`            // 响应消息
	Data    interface{} `json:"data,omitempty"`     // 响应数据，可能为空
	TraceID string      `json:"trace_id,omitempty"` // 调用链追踪ID
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) *Response {
	return &Response{
		Code:    code,
		Message: message,
	}
}

// IngestResponse PDF入库响应
type IngestResponse struct {
	FileName    string   `json:"filename"`     // 文件名
	Status      string   `json:"status"`       // 入库状态，成功时为indexed
	ChunksCount int      `json:"chunks_count"` // 文本块数量
	Suggestions []string `json:"suggestions"`  // 推荐问题
}

// AskResponse 问答响应
type AskResponse struct {
	Answer    string              `json:"answer"`    // 模型回答
	Citations []citation.Citation `json:"citations"` // 引用片段
}

// FileItem 原始文件信息
type FileItem struct {
	Name string `json:"name"` // 文件名
	Size string `json:"size"` // 可读的文件大小
	URL  string `json:"url"`  // 下载地址
}

// FileListResponse 原始文件列表响应
type FileListResponse struct {
	Files []FileItem `json:"files"`
}

// ResetResponse 重置响应
type ResetResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`  // 服务状态
	Vectors int    `json:"vectors"` // 索引中的文本块数量
}

// RecordInfo 入库记录
type RecordInfo struct {
	ID          string    `json:"id"`
	FileName    string    `json:"filename"`
	Status      string    `json:"status"`
	FailedStage string    `json:"failed_stage,omitempty"`
	ChunkCount  int       `json:"chunk_count"`
	Suggestions []string  `json:"suggestions"`
	Error       string    `json:"error,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// RecordListResponse 入库记录列表响应
type RecordListResponse struct {
	PaginationResponse
	Records []RecordInfo `json:"records"`
}

// PaginationResponse 分页响应信息
type PaginationResponse struct {
	Total    int `json:"total"`     // 总记录数
	Page     int `json:"page"`      // 当前页码
	PageSize int `json:"page_size"` // 每页大小
}

// RawFileURL 返回原始文件的下载地址
func RawFileURL(name string) string {
	return "/raw_files/" + url.PathEscape(name)
}

// HumanSize 将字节数格式化为B、KB或MB
func HumanSize(size int64) string {
	switch {
	case size < 1024:
		return fmt.Sprintf("%d B", size)
	case size < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(size)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(size)/(1024*1024))
	}
}
