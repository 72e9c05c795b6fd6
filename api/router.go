package api

import (
	"github.com/fyerfyer/campusdoc-tutor/api/handler"
	"github.com/fyerfyer/campusdoc-tutor/api/middleware"
	"github.com/gin-gonic/gin"
)

// RouterOptions 路由可选配置
type RouterOptions struct {
	RateLimit float64 // 上传和问答接口每秒请求数，0表示不限流
	RateBurst int
}

// RouterOption 路由选项函数类型
type RouterOption func(*RouterOptions)

// WithRateLimit 为上传和问答接口启用限流
func WithRateLimit(rps float64, burst int) RouterOption {
	return func(o *RouterOptions) {
		o.RateLimit = rps
		o.RateBurst = burst
	}
}

// SetupRouter 设置API路由
// 配置所有的API端点并应用中间件
func SetupRouter(
	docHandler *handler.DocumentHandler,
	qaHandler *handler.QAHandler,
	sysHandler *handler.SystemHandler,
	opts ...RouterOption,
) *gin.Engine {
	options := &RouterOptions{}
	for _, opt := range opts {
		opt(options)
	}

	router := gin.New()

	// 应用全局中间件，追踪ID需要在日志和错误处理之前设置
	router.Use(middleware.SetTraceID())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorMiddleware())
	router.Use(Cors())

	// 在调试模式下记录请求体和响应体
	if gin.Mode() == gin.DebugMode {
		router.Use(middleware.RequestBodyLog())
		router.Use(middleware.ResponseLogger())
	}

	// 上传和问答会调用模型，按配置限流
	limited := []gin.HandlerFunc{}
	if options.RateLimit > 0 {
		limited = append(limited, middleware.RateLimit(options.RateLimit, options.RateBurst))
	}

	api := router.Group("/api")
	{
		// 上传PDF - POST /api/ingest
		api.POST("/ingest", append(limited, docHandler.Ingest)...)

		// 回答问题 - POST /api/ask
		api.POST("/ask", append(limited, qaHandler.Ask)...)

		// 原始文件列表 - GET /api/files
		api.GET("/files", docHandler.ListFiles)

		// 入库记录 - GET /api/records
		api.GET("/records", docHandler.ListRecords)

		// 重置 - DELETE /api/reset
		api.DELETE("/reset", sysHandler.Reset)

		// 健康检查 - GET /api/health
		api.GET("/health", sysHandler.Health)
	}

	// 原始文件下载 - GET /raw_files/:name
	router.GET("/raw_files/:name", docHandler.RawFile)

	return router
}

// Cors 跨域资源共享中间件
func Cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Trace-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
