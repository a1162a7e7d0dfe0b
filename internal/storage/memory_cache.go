package storage

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"resume-parser-go/internal/constants"
)

// MemoryCacheStore 进程内的 LRU 缓存，条目数和有效期都有上限
type MemoryCacheStore struct {
	cache *expirable.LRU[string, []byte]
}

// NewMemoryCacheStore maxEntries 或 ttl 不合法时使用默认值
func NewMemoryCacheStore(maxEntries int, ttl time.Duration) *MemoryCacheStore {
	if maxEntries <= 0 {
		maxEntries = constants.DefaultCacheMaxEntries
	}
	if ttl <= 0 {
		ttl = constants.DefaultCacheTTL
	}
	return &MemoryCacheStore{cache: expirable.NewLRU[string, []byte](maxEntries, nil, ttl)}
}

func (s *MemoryCacheStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (s *MemoryCacheStore) Put(_ context.Context, key string, value []byte) error {
	buf := make([]byte, len(value))
	copy(buf, value)
	s.cache.Add(key, buf)
	return nil
}

// Len 当前未过期的条目数
func (s *MemoryCacheStore) Len() int {
	return s.cache.Len()
}
