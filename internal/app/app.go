package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fyerfyer/campusdoc-tutor/api"
	"github.com/fyerfyer/campusdoc-tutor/api/handler"
	"github.com/fyerfyer/campusdoc-tutor/config"
	"github.com/fyerfyer/campusdoc-tutor/internal/cache"
	"github.com/fyerfyer/campusdoc-tutor/internal/database"
	"github.com/fyerfyer/campusdoc-tutor/internal/document"
	"github.com/fyerfyer/campusdoc-tutor/internal/embedding"
	"github.com/fyerfyer/campusdoc-tutor/internal/llm"
	"github.com/fyerfyer/campusdoc-tutor/internal/repository"
	"github.com/fyerfyer/campusdoc-tutor/internal/services"
	"github.com/fyerfyer/campusdoc-tutor/internal/vectordb"
	"github.com/fyerfyer/campusdoc-tutor/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App 组装完成的服务
type App struct {
	Router *gin.Engine
	Files  *services.FileService
	QA     *services.QAService

	logger  *logrus.Logger
	closers []func() error // 按创建的逆序关闭
}

// New 根据配置创建全部组件并设置路由
// 任一组件创建失败时关闭已创建的组件
func New(cfg *config.Config, logger *logrus.Logger) (*App, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	a := &App{logger: logger}
	ready := false
	defer func() {
		if !ready {
			_ = a.Close()
		}
	}()

	// 初始化数据库
	db, err := setupDatabase(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.onClose(func() error { return database.Close(db) })

	// 创建文件存储服务
	fileStorage, err := setupStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// 创建缓存服务
	cacheService, err := setupCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	if cacheService != nil {
		a.onClose(cacheService.Close)
	}

	// 创建嵌入客户端
	embeddingClient, err := setupEmbedding(cfg, cacheService, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding client: %w", err)
	}

	// 创建向量数据库
	vectorDB, err := setupVectorDB(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector database: %w", err)
	}
	index := vectordb.NewEmbeddingIndex(embeddingClient, vectorDB, vectordb.WithIndexLogger(logger))
	a.onClose(index.Close)

	// 创建大语言模型客户端，问答和推荐问题共用
	llmClient, err := setupLLM(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	ragService := llm.NewRAG(llmClient,
		llm.WithRAGMaxTokens(cfg.Ollama.MaxTokens),
		llm.WithSuggestionTemperature(cfg.Ollama.Temperature),
	)

	// 创建文本分段器
	splitter, err := document.NewRecursiveSplitter(document.SplitterConfig{
		ChunkSize:    cfg.Document.ChunkSize,
		ChunkOverlap: cfg.Document.ChunkOverlap,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid splitter config: %w", err)
	}

	// 初始化业务服务
	ingestService := services.NewIngestService(index, ragService,
		services.WithLoader(document.NewPDFLoader()),
		services.WithSplitter(splitter),
		services.WithLogger(logger),
	)
	a.QA = services.NewQAService(index, ragService,
		services.WithTopK(cfg.Search.TopK),
		services.WithQALogger(logger),
	)
	fileOpts := []services.FileOption{
		services.WithRecordRepository(repository.NewRecordRepository(db)),
		services.WithFileLogger(logger),
	}
	if cacheService != nil {
		fileOpts = append(fileOpts, services.WithEmbeddingCache(cacheService))
	}
	a.Files = services.NewFileService(fileStorage, ingestService, index, fileOpts...)

	// 设置路由
	a.Router = api.SetupRouter(
		handler.NewDocumentHandler(a.Files),
		handler.NewQAHandler(a.QA),
		handler.NewSystemHandler(a.Files),
		api.WithRateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst),
	)
	if cfg.Server.MaxUploadMB > 0 {
		a.Router.MaxMultipartMemory = cfg.Server.MaxUploadMB << 20
	}

	logger.WithFields(logrus.Fields{
		"storage":  cfg.Storage.Type,
		"vectordb": cfg.VectorDB.Type,
		"embed":    cfg.Embed.Provider,
		"model":    cfg.Ollama.Model,
		"cache":    cfg.Cache.Enable,
	}).Info("Application components initialized")
	ready = true
	return a, nil
}

// Close 按创建的逆序释放资源
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	err := errors.Join(errs...)
	if err != nil {
		a.logger.WithError(err).Warn("Failed to release some resources")
	}
	return err
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// setupDatabase 打开入库记录数据库
func setupDatabase(cfg *config.Config, logger *logrus.Logger) (*gorm.DB, error) {
	dbConfig := database.DefaultConfig()
	dbConfig.Type = cfg.Database.Type
	dbConfig.DSN = cfg.Database.DSN
	return database.Open(dbConfig, logger)
}

// setupStorage 设置原始文件存储
func setupStorage(cfg *config.Config) (storage.Storage, error) {
	return storage.New(storage.Config{
		Type:  cfg.Storage.Type,
		Local: storage.LocalConfig{Path: cfg.Storage.Path},
		Minio: storage.MinioConfig{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			UseSSL:    cfg.Storage.UseSSL,
			Bucket:    cfg.Storage.Bucket,
			Prefix:    cfg.Storage.Prefix,
		},
	})
}

// setupCache 设置向量缓存，未启用时返回nil
func setupCache(cfg *config.Config) (cache.Cache, error) {
	if !cfg.Cache.Enable {
		return nil, nil
	}
	cacheConfig := cache.DefaultConfig()
	cacheConfig.Type = cfg.Cache.Type
	if cfg.Cache.Prefix != "" {
		cacheConfig.KeyPrefix = cfg.Cache.Prefix
	}
	if cfg.Cache.TTL > 0 {
		cacheConfig.DefaultTTL = cfg.Cache.TTL
	}
	if cfg.Cache.Type == "redis" {
		cacheConfig.RedisAddr = cfg.Cache.Address
		cacheConfig.RedisPassword = cfg.Cache.Password
		cacheConfig.RedisDB = cfg.Cache.DB
	}
	return cache.NewCache(cacheConfig)
}

// setupEmbedding 设置嵌入模型客户端，启用缓存时包装为CachedClient
func setupEmbedding(cfg *config.Config, c cache.Cache, logger *logrus.Logger) (embedding.Client, error) {
	client, err := embedding.NewClient(cfg.Embed.Provider,
		embedding.WithBaseURL(cfg.Ollama.BaseURL),
		embedding.WithModel(cfg.Ollama.EmbeddingModel()),
		embedding.WithTimeout(cfg.Ollama.Timeout),
		embedding.WithDimensions(cfg.Embed.Dimensions),
	)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return client, nil
	}
	return embedding.NewCachedClient(client, c, cfg.Cache.TTL, logger), nil
}

// setupVectorDB 设置向量数据库
func setupVectorDB(cfg *config.Config, logger *logrus.Logger) (vectordb.Repository, error) {
	if cfg.VectorDB.Path != "" && cfg.VectorDB.Type != "qdrant" {
		if err := os.MkdirAll(filepath.Dir(cfg.VectorDB.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create vector database directory: %w", err)
		}
	}
	if _, ok := vectordb.Backends[cfg.VectorDB.Type]; !ok {
		// 例如未使用faiss构建标签编译时
		logger.WithField("type", cfg.VectorDB.Type).Warn("Vector database type not available, falling back to in-memory vector database")
	}
	return vectordb.NewRepository(vectordb.Config{
		Type:         cfg.VectorDB.Type,
		Path:         cfg.VectorDB.Path,
		Dimension:    cfg.VectorDB.Dim,
		DistanceType: vectordb.DistanceType(cfg.VectorDB.Distance),
		QdrantHost:   cfg.VectorDB.QdrantHost,
		QdrantPort:   cfg.VectorDB.QdrantPort,
		Collection:   cfg.VectorDB.Collection,
	})
}

// setupLLM 设置大语言模型客户端
func setupLLM(cfg *config.Config) (llm.Client, error) {
	opts := []llm.Option{
		llm.WithBaseURL(cfg.Ollama.BaseURL),
		llm.WithModel(cfg.Ollama.Model),
		llm.WithTimeout(cfg.Ollama.Timeout),
		llm.WithDefaults(llm.Temperature(cfg.Ollama.Temperature)),
	}
	if cfg.Ollama.MaxTokens > 0 {
		opts = append(opts, llm.WithDefaults(llm.MaxTokens(cfg.Ollama.MaxTokens)))
	}
	return llm.NewClient("ollama", opts...)
}
