package cache

import (
	"context"
	"strings"
	"time"
)

// Cache 向量缓存后端
// 值是编码后的字节串，批量接口让一次入库只产生一次往返
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// GetMany 返回命中的键值，未命中的键不出现在结果中
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)
	// SetMany 写入多个键值，ttl为0时使用默认过期时间
	SetMany(ctx context.Context, entries map[string][]byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// Clear 清空本服务写入的缓存项
	Clear(ctx context.Context) error
	Close() error
}

// Factory 缓存工厂函数类型
type Factory func(config Config) (Cache, error)

var registry = make(map[string]Factory)

// RegisterCache 注册缓存实现
func RegisterCache(name string, factory Factory) {
	registry[name] = factory
}

// NewCache 按类型创建缓存，未知类型使用进程内缓存
func NewCache(config Config) (Cache, error) {
	if factory, ok := registry[config.Type]; ok {
		return factory(config)
	}
	return NewMemoryCache(config)
}

// Config 缓存配置
type Config struct {
	Type            string        // memory 或 redis
	KeyPrefix       string        // 键前缀，Clear只清理带该前缀的键
	RedisAddr       string        // Redis地址
	RedisPassword   string        // Redis密码
	RedisDB         int           // Redis数据库编号
	DefaultTTL      time.Duration // 默认过期时间
	CleanupInterval time.Duration // 进程内缓存的过期清理间隔
}

// DefaultConfig 默认使用进程内缓存，向量保存一天
func DefaultConfig() Config {
	return Config{
		Type:            "memory",
		KeyPrefix:       "campusdoc",
		DefaultTTL:      24 * time.Hour,
		CleanupInterval: 10 * time.Minute,
	}
}

// Key 用冒号拼接键的各个部分
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
