package storage

import (
	"context"
	"fmt"
	"strings"

	"resume-parser-go/internal/config"
	"resume-parser-go/internal/constants"
)

// CacheStore 解析结果缓存的键值存储
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
}

// NewCacheStore 按 cache.backend 创建缓存存储。
// redis 和 mysql 复用 s 中已建立的连接；none 返回 nil，表示不缓存。
func NewCacheStore(cfg config.CacheConfig, s *Storage) (CacheStore, error) {
	ttl := config.GetDuration(cfg.TTL, constants.DefaultCacheTTL)

	switch strings.ToLower(cfg.Backend) {
	case config.CacheBackendMemory, "":
		maxEntries := cfg.MaxEntries
		if maxEntries <= 0 {
			maxEntries = constants.DefaultCacheMaxEntries
		}
		return NewMemoryCacheStore(maxEntries, ttl), nil
	case config.CacheBackendRedis:
		if s == nil || s.Redis == nil {
			return nil, fmt.Errorf("缓存后端 redis 需要可用的 Redis 连接")
		}
		return NewRedisCacheStore(s.Redis, ttl), nil
	case config.CacheBackendMySQL:
		if s == nil || s.MySQL == nil {
			return nil, fmt.Errorf("缓存后端 mysql 需要可用的 MySQL 连接")
		}
		return NewMySQLCacheStore(s.MySQL.DB(), ttl), nil
	case config.CacheBackendSQLite:
		store, err := NewSQLiteCacheStore(cfg.SQLitePath, ttl)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.CacheBackendNone:
		return nil, nil
	}
	return nil, fmt.Errorf("未知的缓存后端 %q", cfg.Backend)
}
