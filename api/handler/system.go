package handler

import (
	"github.com/fyerfyer/campusdoc-tutor/api/middleware"
	"github.com/fyerfyer/campusdoc-tutor/api/model"
	"github.com/fyerfyer/campusdoc-tutor/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SystemHandler 处理健康检查和重置请求
type SystemHandler struct {
	files  *services.FileService
	logger *logrus.Logger
}

// NewSystemHandler 创建系统处理器
func NewSystemHandler(files *services.FileService) *SystemHandler {
	return &SystemHandler{
		files:  files,
		logger: middleware.GetLogger(),
	}
}

// Health 健康检查，同时返回索引中的文本块数量
// GET /api/health
func (h *SystemHandler) Health(c *gin.Context) {
	count, err := h.files.VectorCount(c.Request.Context())
	if err != nil {
		middleware.HandleError(c, middleware.NewInternalError("Failed to count vectors: "+err.Error(), err))
		return
	}
	success(c, model.HealthResponse{Status: "ok", Vectors: count})
}

// Reset 清空索引、原始文件、入库记录和缓存
// DELETE /api/reset
func (h *SystemHandler) Reset(c *gin.Context) {
	if err := h.files.Reset(c.Request.Context()); err != nil {
		middleware.HandleError(c, middleware.NewInternalError("Reset failed: "+err.Error(), err))
		return
	}
	success(c, model.ResetResponse{
		Status:  "success",
		Message: "Database and files have been reset.",
	})
}
