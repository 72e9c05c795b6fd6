package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用程序配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Storage  StorageConfig  `mapstructure:"storage"`
	VectorDB VectorDBConfig `mapstructure:"vectordb"`
	Ollama   OllamaConfig   `mapstructure:"ollama"`
	Embed    EmbedConfig    `mapstructure:"embed"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Database DatabaseConfig `mapstructure:"database"`
	Document DocumentConfig `mapstructure:"document"`
	Search   SearchConfig   `mapstructure:"search"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host            string        `mapstructure:"host"`             // 服务器主机
	Port            int           `mapstructure:"port"`             // 服务器端口
	Mode            string        `mapstructure:"mode"`             // 运行模式 (debug/release/test)
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`     // 读取超时
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`    // 写入超时
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"` // 优雅关闭等待时间
	MaxUploadMB     int64         `mapstructure:"max_upload_mb"`    // multipart内存上限(MB)
	RateLimit       float64       `mapstructure:"rate_limit"`       // 上传和问答接口每秒请求数，0表示不限流
	RateBurst       int           `mapstructure:"rate_burst"`       // 限流令牌桶容量
}

// Addr 返回监听地址
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`       // 日志级别
	File       string `mapstructure:"file"`        // 日志文件，为空时只输出到标准输出
	MaxSize    int    `mapstructure:"max_size"`    // 单个文件最大大小(MB)
	MaxBackups int    `mapstructure:"max_backups"` // 保留的旧文件数量
	MaxAge     int    `mapstructure:"max_age"`     // 旧文件保留天数
	Compress   bool   `mapstructure:"compress"`    // 是否压缩旧文件
}

// StorageConfig 存储配置
type StorageConfig struct {
	Type      string `mapstructure:"type"`     // 存储类型：local 或 minio
	Path      string `mapstructure:"path"`     // 本地存储路径
	Bucket    string `mapstructure:"bucket"`   // MinIO桶名称
	Endpoint  string `mapstructure:"endpoint"` // MinIO端点
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"` // 是否使用SSL
	Prefix    string `mapstructure:"prefix"`  // MinIO对象前缀
}

// VectorDBConfig 向量数据库配置
type VectorDBConfig struct {
	Type       string `mapstructure:"type"`        // 向量数据库类型：memory, faiss 或 qdrant
	Path       string `mapstructure:"path"`        // 索引文件路径
	Dim        int    `mapstructure:"dim"`         // 向量维度，0表示由首次写入决定
	Distance   string `mapstructure:"distance"`    // 距离度量方式：cosine, l2, dot
	QdrantHost string `mapstructure:"qdrant_host"` // Qdrant地址
	QdrantPort int    `mapstructure:"qdrant_port"` // Qdrant gRPC端口
	Collection string `mapstructure:"collection"`  // Qdrant集合名称
}

// OllamaConfig Ollama服务配置，问答和向量嵌入共用
type OllamaConfig struct {
	BaseURL     string        `mapstructure:"base_url"`    // 服务地址
	Model       string        `mapstructure:"model"`       // 对话模型
	EmbedModel  string        `mapstructure:"embed_model"` // 嵌入模型，为空时与对话模型相同
	Timeout     time.Duration `mapstructure:"timeout"`     // 请求超时
	MaxTokens   int           `mapstructure:"max_tokens"`  // 最大生成token数量，0表示不限制
	Temperature float32       `mapstructure:"temperature"` // 推荐问题的采样温度，回答固定为0
}

// EmbeddingModel 返回实际使用的嵌入模型
func (o OllamaConfig) EmbeddingModel() string {
	if o.EmbedModel != "" {
		return o.EmbedModel
	}
	return o.Model
}

// EmbedConfig 向量嵌入配置
type EmbedConfig struct {
	Provider   string `mapstructure:"provider"`   // 提供商：ollama 或 hash
	Dimensions int    `mapstructure:"dimensions"` // 向量维度，0表示由首次响应决定
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Enable   bool          `mapstructure:"enable"`   // 是否启用缓存
	Type     string        `mapstructure:"type"`     // 缓存类型：memory 或 redis
	Address  string        `mapstructure:"address"`  // Redis地址
	Password string        `mapstructure:"password"` // Redis密码
	DB       int           `mapstructure:"db"`       // Redis数据库
	TTL      time.Duration `mapstructure:"ttl"`      // 缓存TTL
	Prefix   string        `mapstructure:"prefix"`   // 键前缀
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Type string `mapstructure:"type"` // 数据库类型: sqlite
	DSN  string `mapstructure:"dsn"`  // 数据源名称
}

// DocumentConfig 文档处理配置
type DocumentConfig struct {
	ChunkSize    int `mapstructure:"chunk_size"`    // 分块大小
	ChunkOverlap int `mapstructure:"chunk_overlap"` // 分块重叠大小
}

// SearchConfig 搜索配置
type SearchConfig struct {
	TopK int `mapstructure:"top_k"` // 检索片段数量
}

// Load 从.env、配置文件和环境变量加载配置
// configPath为空时查找当前目录的config.yaml，文件不存在时只使用默认值
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	if configPath == "" {
		configPath = "config.yaml"
	}
	v.SetConfigFile(configPath)
	if _, err := os.Stat(configPath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	// 支持环境变量覆盖，例如 SERVER_PORT 覆盖 server.port，OLLAMA_MODEL 覆盖 ollama.model
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	applyLegacyEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotEnv 加载.env文件，已存在的环境变量不会被覆盖
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// applyLegacyEnv 兼容只给出向量库目录的旧环境变量
func applyLegacyEnv(v *viper.Viper) {
	if dir, ok := os.LookupEnv("CHROMA_PERSIST_DIRECTORY"); ok && dir != "" {
		v.Set("vectordb.path", filepath.Join(dir, "index.json"))
	}
}

// Validate 检查配置是否合法
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative, got %v", c.Server.RateLimit)
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst <= 0 {
		return fmt.Errorf("server.rate_burst must be positive when rate limiting, got %d", c.Server.RateBurst)
	}
	if c.Document.ChunkSize <= 0 {
		return fmt.Errorf("document.chunk_size must be positive, got %d", c.Document.ChunkSize)
	}
	if c.Document.ChunkOverlap < 0 || c.Document.ChunkOverlap >= c.Document.ChunkSize {
		return fmt.Errorf("document.chunk_overlap must be in [0, %d), got %d", c.Document.ChunkSize, c.Document.ChunkOverlap)
	}
	if c.Search.TopK <= 0 {
		return fmt.Errorf("search.top_k must be positive, got %d", c.Search.TopK)
	}
	switch c.Embed.Provider {
	case "ollama", "hash":
	default:
		return fmt.Errorf("unsupported embed provider: %s", c.Embed.Provider)
	}
	switch c.Storage.Type {
	case "local", "minio":
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
	return nil
}

// setDefaults 设置配置的默认值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "60s")
	v.SetDefault("server.write_timeout", "300s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("server.rate_limit", 0)
	v.SetDefault("server.rate_burst", 5)

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", false)

	// 存储默认配置
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.path", "data/raw")
	v.SetDefault("storage.bucket", "campusdoc")
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.prefix", "raw/")

	// 向量数据库默认配置
	v.SetDefault("vectordb.type", "memory")
	v.SetDefault("vectordb.path", "data/chroma/index.json")
	v.SetDefault("vectordb.dim", 0)
	v.SetDefault("vectordb.distance", "cosine")
	v.SetDefault("vectordb.qdrant_host", "localhost")
	v.SetDefault("vectordb.qdrant_port", 6334)
	v.SetDefault("vectordb.collection", "campusdoc")

	// Ollama默认配置
	v.SetDefault("ollama.base_url", "http://localhost:11434")
	v.SetDefault("ollama.model", "llama3")
	v.SetDefault("ollama.embed_model", "")
	v.SetDefault("ollama.timeout", "120s")
	v.SetDefault("ollama.max_tokens", 0)
	v.SetDefault("ollama.temperature", 0)

	// Embedding默认配置
	v.SetDefault("embed.provider", "ollama")
	v.SetDefault("embed.dimensions", 0)

	// 缓存默认配置
	v.SetDefault("cache.enable", true)
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.address", "localhost:6379")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.prefix", "campusdoc")

	// 数据库默认配置
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "data/campusdoc.db")

	// 文档处理默认配置
	v.SetDefault("document.chunk_size", 1000)
	v.SetDefault("document.chunk_overlap", 200)

	// 搜索默认配置
	v.SetDefault("search.top_k", 3)
}
