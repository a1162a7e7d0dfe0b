package processor

import (
	"context"

	"resume-parser-go/internal/types"
)

// CacheStore 解析结果缓存的存储后端，通过构造参数注入。
// Get 未命中时返回 (nil, false, nil)；任何错误都只会让本次调用退化为未命中。
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
}

// DocumentLoader 文档加载阶段
type DocumentLoader interface {
	Load(ctx context.Context, doc types.RawDocument) (types.NormalizedText, error)
}

// nopCacheStore 永远未命中，不保存任何内容
type nopCacheStore struct{}

func (nopCacheStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (nopCacheStore) Put(context.Context, string, []byte) error { return nil }

// NopCacheStore 关闭缓存时使用
func NopCacheStore() CacheStore {
	return nopCacheStore{}
}
