package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache 进程内缓存，重启后失效
type MemoryCache struct {
	items  *gocache.Cache
	prefix string
}

// NewMemoryCache 创建进程内缓存
func NewMemoryCache(config Config) (Cache, error) {
	ttl := config.DefaultTTL
	if ttl <= 0 {
		ttl = DefaultConfig().DefaultTTL
	}
	interval := config.CleanupInterval
	if interval <= 0 {
		interval = DefaultConfig().CleanupInterval
	}
	return &MemoryCache{
		items:  gocache.New(ttl, interval),
		prefix: prefixOf(config.KeyPrefix),
	}, nil
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.items.Get(m.prefix + key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	return b, ok, nil
}

func (m *MemoryCache) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	hits := make(map[string][]byte, len(keys))
	for _, key := range keys {
		if b, ok, _ := m.Get(ctx, key); ok {
			hits[key] = b
		}
	}
	return hits, nil
}

func (m *MemoryCache) SetMany(_ context.Context, entries map[string][]byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	for key, value := range entries {
		// 复制一份，调用方之后修改切片不影响缓存
		m.items.Set(m.prefix+key, append([]byte(nil), value...), ttl)
	}
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		m.items.Delete(m.prefix + key)
	}
	return nil
}

// Clear 进程内缓存只属于本服务，直接清空
func (m *MemoryCache) Clear(context.Context) error {
	m.items.Flush()
	return nil
}

func (m *MemoryCache) Close() error {
	return nil
}

// prefixOf 返回带分隔符的键前缀
func prefixOf(prefix string) string {
	if prefix == "" {
		return ""
	}
	return prefix + ":"
}

func init() {
	RegisterCache("memory", NewMemoryCache)
}
