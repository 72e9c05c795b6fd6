package handler

import (
	"net/http"

	"github.com/fyerfyer/campusdoc-tutor/api/middleware"
	"github.com/fyerfyer/campusdoc-tutor/api/model"
	"github.com/gin-gonic/gin"
)

// success 返回带追踪ID的成功响应
func success(c *gin.Context, data interface{}) {
	resp := model.NewSuccessResponse(data)
	resp.TraceID = middleware.TraceID(c)
	c.JSON(http.StatusOK, resp)
}
