package model

import (
	"mime/multipart"
)

// 分页请求参数
type PaginationRequest struct {
	Page     int `form:"page" json:"page" binding:"omitempty,min=1"`           // 当前页码，从1开始
	PageSize int `form:"page_size" json:"page_size" binding:"omitempty,min=1"` // 每页记录数
}

// GetPage 获取页码，默认为1
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页记录数，默认为10，最大为100
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 10
	}
	if p.PageSize > 100 {
		return 100
	}
	return p.PageSize
}

// Offset 根据页码计算偏移量
func (p *PaginationRequest) Offset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// IngestRequest PDF上传请求
type IngestRequest struct {
	File *multipart.FileHeader `form:"file" binding:"required"` // 上传的PDF文件
}

// AskRequest 问答请求
type AskRequest struct {
	Question string `json:"question" binding:"required"` // 问题内容
}

// RecordListRequest 入库记录列表请求
type RecordListRequest struct {
	PaginationRequest
	Status   string `form:"status" json:"status" binding:"omitempty,oneof=indexed failed"` // 入库状态
	FileName string `form:"filename" json:"filename" binding:"omitempty"`                  // 文件名
}
