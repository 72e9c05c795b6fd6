package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fyerfyer/campusdoc-tutor/api/middleware"
	"github.com/fyerfyer/campusdoc-tutor/api/model"
	"github.com/fyerfyer/campusdoc-tutor/internal/document"
	"github.com/fyerfyer/campusdoc-tutor/internal/models"
	"github.com/fyerfyer/campusdoc-tutor/internal/repository"
	"github.com/fyerfyer/campusdoc-tutor/internal/services"
	"github.com/fyerfyer/campusdoc-tutor/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// 非PDF上传时返回的错误消息
const unsupportedFileMessage = "Only PDF files are supported."

// DocumentHandler 处理PDF上传、文件列表和入库记录相关的API请求
type DocumentHandler struct {
	files  *services.FileService // 文件服务
	logger *logrus.Logger        // 日志记录器
}

// NewDocumentHandler 创建新的文档处理器
func NewDocumentHandler(files *services.FileService) *DocumentHandler {
	return &DocumentHandler{
		files:  files,
		logger: middleware.GetLogger(),
	}
}

// Ingest 上传PDF并写入索引
// POST /api/ingest
func (h *DocumentHandler) Ingest(c *gin.Context) {
	var req model.IngestRequest
	if err := c.ShouldBind(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("file is required", validationDetails(err)...))
		return
	}

	// 扩展名检查在进入入库流程之前完成
	filename := req.File.Filename
	if !document.IsSupported(filename) {
		h.logger.WithField("filename", filename).Warn("Rejected unsupported file")
		middleware.HandleError(c, middleware.NewValidationError(unsupportedFileMessage))
		return
	}

	file, err := req.File.Open()
	if err != nil {
		middleware.HandleError(c, middleware.NewInternalError("Ingestion failed: "+err.Error(), err))
		return
	}
	defer file.Close()

	result, err := h.files.Upload(c.Request.Context(), file, filename)
	if err != nil {
		if errors.Is(err, services.ErrUnsupportedFile) || errors.Is(err, storage.ErrInvalidName) {
			middleware.HandleError(c, middleware.NewValidationError(unsupportedFileMessage, err.Error()))
			return
		}
		middleware.HandleError(c, middleware.NewInternalError("Ingestion failed: "+err.Error(), err))
		return
	}

	h.logger.WithFields(logrus.Fields{
		"filename": result.FileName,
		"chunks":   result.ChunkCount,
	}).Info("Document ingested")

	success(c, model.IngestResponse{
		FileName:    result.FileName,
		Status:      string(result.Status),
		ChunksCount: result.ChunkCount,
		Suggestions: result.Suggestions,
	})
}

// ListFiles 列出原始PDF文件
// GET /api/files
func (h *DocumentHandler) ListFiles(c *gin.Context) {
	files, err := h.files.ListFiles(c.Request.Context())
	if err != nil {
		middleware.HandleError(c, middleware.NewInternalError("Failed to list files: "+err.Error(), err))
		return
	}

	items := make([]model.FileItem, 0, len(files))
	for _, f := range files {
		items = append(items, model.FileItem{
			Name: f.Name,
			Size: model.HumanSize(f.Size),
			URL:  model.RawFileURL(f.Name),
		})
	}
	success(c, model.FileListResponse{Files: items})
}

// RawFile 读取原始文件内容
// GET /raw_files/:name
func (h *DocumentHandler) RawFile(c *gin.Context) {
	name := c.Param("name")
	reader, info, err := h.files.OpenFile(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidName) {
			middleware.HandleError(c, middleware.NewNotFoundError("file not found: "+name))
			return
		}
		middleware.HandleError(c, middleware.NewInternalError("Failed to open file: "+err.Error(), err))
		return
	}
	defer reader.Close()

	headers := map[string]string{
		"Content-Disposition": fmt.Sprintf("inline; filename=%q", info.Name),
	}
	c.DataFromReader(http.StatusOK, info.Size, info.MimeType, reader, headers)
}

// ListRecords 分页列出入库记录
// GET /api/records
func (h *DocumentHandler) ListRecords(c *gin.Context) {
	var req model.RecordListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid query parameters", validationDetails(err)...))
		return
	}

	filter := repository.RecordFilter{
		Status:   models.IngestStatus(req.Status),
		FileName: strings.TrimSpace(req.FileName),
	}
	records, total, err := h.files.ListRecords(c.Request.Context(), req.Offset(), req.GetPageSize(), filter)
	if err != nil {
		middleware.HandleError(c, middleware.NewInternalError("Failed to list records: "+err.Error(), err))
		return
	}

	infos := make([]model.RecordInfo, 0, len(records))
	for _, r := range records {
		infos = append(infos, model.RecordInfo{
			ID:          r.ID,
			FileName:    r.FileName,
			Status:      string(r.Status),
			FailedStage: r.FailedStage,
			ChunkCount:  r.ChunkCount,
			Suggestions: r.SuggestionList(),
			Error:       r.Error,
			DurationMS:  r.DurationMS,
			CreatedAt:   r.CreatedAt,
		})
	}

	success(c, model.RecordListResponse{
		PaginationResponse: model.PaginationResponse{
			Total:    int(total),
			Page:     req.GetPage(),
			PageSize: req.GetPageSize(),
		},
		Records: infos,
	})
}
