package handler

import (
	"errors"

	"github.com/fyerfyer/campusdoc-tutor/api/middleware"
	"github.com/fyerfyer/campusdoc-tutor/api/model"
	"github.com/fyerfyer/campusdoc-tutor/internal/citation"
	"github.com/fyerfyer/campusdoc-tutor/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// QAHandler 处理问答相关的API请求
type QAHandler struct {
	qaService *services.QAService // 问答服务
	logger    *logrus.Logger      // 日志记录器
}

// NewQAHandler 创建新的问答处理器
func NewQAHandler(qaService *services.QAService) *QAHandler {
	return &QAHandler{
		qaService: qaService,
		logger:    middleware.GetLogger(),
	}
}

// Ask 处理问答请求
// POST /api/ask
func (h *QAHandler) Ask(c *gin.Context) {
	var req model.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid request body", validationDetails(err)...))
		return
	}

	answer, chunks, err := h.qaService.Answer(c.Request.Context(), req.Question)
	if err != nil {
		if errors.Is(err, services.ErrEmptyQuestion) {
			middleware.HandleError(c, middleware.NewValidationError(err.Error()))
			return
		}
		h.logger.WithFields(logrus.Fields{
			"error":    err.Error(),
			"question": req.Question,
		}).Error("Failed to answer question")
		middleware.HandleError(c, middleware.NewInternalError("Failed to answer question: "+err.Error(), err))
		return
	}

	success(c, model.AskResponse{
		Answer:    answer,
		Citations: citation.Format(chunks),
	})
}
