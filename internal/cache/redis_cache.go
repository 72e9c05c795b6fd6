package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// 每次SCAN返回的键数量提示
const scanBatch = 200

// 建立连接时的探测超时
const pingTimeout = 5 * time.Second

// RedisCache 基于Redis的共享缓存，多个实例可以复用同一份向量
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache 连接Redis，连接不可用时返回错误
func NewRedisCache(config Config) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s unavailable: %w", config.RedisAddr, err)
	}

	return &RedisCache{
		client: client,
		prefix: prefixOf(config.KeyPrefix),
		ttl:    config.DefaultTTL,
	}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// GetMany 使用一次MGET读取全部键
func (r *RedisCache) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	hits := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return hits, nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = r.prefix + key
	}
	values, err := r.client.MGet(ctx, full...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		if s, ok := v.(string); ok {
			hits[keys[i]] = []byte(s)
		}
	}
	return hits, nil
}

// SetMany 通过pipeline一次写入
func (r *RedisCache) SetMany(ctx context.Context, entries map[string][]byte, ttl time.Duration) error {
	if len(entries) == 0 {
		return nil
	}
	if ttl <= 0 {
		ttl = r.ttl
	}
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range entries {
			pipe.Set(ctx, r.prefix+key, value, ttl)
		}
		return nil
	})
	return err
}

func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = r.prefix + key
	}
	return r.client.Del(ctx, full...).Err()
}

// Clear 分批删除带前缀的键，没有前缀时清空当前数据库
func (r *RedisCache) Clear(ctx context.Context) error {
	if r.prefix == "" {
		return r.client.FlushDB(ctx).Err()
	}

	iter := r.client.Scan(ctx, 0, r.prefix+"*", scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := r.client.Unlink(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return r.client.Unlink(ctx, batch...).Err()
	}
	return nil
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

func init() {
	RegisterCache("redis", NewRedisCache)
}
