package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-parser-go/internal/config"
	"resume-parser-go/internal/constants"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r, err := NewRedisAdapter(context.Background(), &config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r, mr
}

func TestRedisCacheStore(t *testing.T) {
	r, mr := newTestRedis(t)
	store := NewRedisCacheStore(r, time.Minute)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "app:resume:result:abc")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, "app:resume:result:abc", []byte(`{"fingerprint":"abc"}`)))
	data, ok, err := store.Get(ctx, "app:resume:result:abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"fingerprint":"abc"}`, string(data))
	assert.Equal(t, time.Minute, mr.TTL("app:resume:result:abc"))

	mr.FastForward(2 * time.Minute)
	_, ok, err = store.Get(ctx, "app:resume:result:abc")
	require.NoError(t, err)
	assert.False(t, ok, "过期后未命中")
}

func TestRedisCacheStoreUnavailable(t *testing.T) {
	r, mr := newTestRedis(t)
	store := NewRedisCacheStore(r, 0)
	mr.Close()

	_, ok, err := store.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Error(t, store.Put(context.Background(), "k", []byte("v")))
}

func TestRedisJobStatus(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()

	_, err := r.GetJobStatus(ctx, "job-1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, r.SetJobStatus(ctx, "job-1", constants.JobStatusQueued))
	status, err := r.GetJobStatus(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusQueued, status)
	assert.Equal(t, constants.JobStatusTTL, mr.TTL("app:resume:job:job-1"))
}

func TestNewRedisAdapterErrors(t *testing.T) {
	_, err := NewRedisAdapter(context.Background(), nil)
	assert.Error(t, err)
	_, err = NewRedisAdapter(context.Background(), &config.RedisConfig{})
	assert.Error(t, err)
}

func TestMemoryCacheStore(t *testing.T) {
	store := NewMemoryCacheStore(2, time.Hour)
	ctx := context.Background()

	value := []byte("v1")
	require.NoError(t, store.Put(ctx, "a", value))
	value[0] = 'x'
	got, ok, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v1", string(got), "写入时复制")

	require.NoError(t, store.Put(ctx, "b", []byte("v2")))
	require.NoError(t, store.Put(ctx, "c", []byte("v3")))
	assert.Equal(t, 2, store.Len())
	_, ok, _ = store.Get(ctx, "a")
	assert.False(t, ok, "超过容量时淘汰最久未使用的条目")
}

func TestMemoryCacheStoreExpires(t *testing.T) {
	store := NewMemoryCacheStore(10, 20*time.Millisecond)
	require.NoError(t, store.Put(context.Background(), "a", []byte("v")))
	assert.Eventually(t, func() bool {
		_, ok, _ := store.Get(context.Background(), "a")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestSQLiteCacheStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "results.db")
	store, err := NewSQLiteCacheStore(path, time.Hour)
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, path, store.Path())

	ctx := context.Background()
	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, "k", []byte("first")))
	require.NoError(t, store.Put(ctx, "k", []byte("second")))
	got, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", string(got))

	// 时钟前移，条目过期
	now := time.Now()
	store.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := store.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSQLiteCacheStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	store, err := NewSQLiteCacheStore(path, time.Hour)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), "k", []byte("v")))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteCacheStore(path, time.Hour)
	require.NoError(t, err)
	defer reopened.Close()
	got, ok, err := reopened.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(got))
}

func TestStorageCloseNil(t *testing.T) {
	s := &Storage{}
	assert.NotPanics(t, s.Close)
}

func TestNewCacheStore(t *testing.T) {
	r, _ := newTestRedis(t)

	store, err := NewCacheStore(config.CacheConfig{Backend: config.CacheBackendMemory}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryCacheStore{}, store)

	store, err = NewCacheStore(config.CacheConfig{Backend: "Redis", TTL: "5m"}, &Storage{Redis: r})
	require.NoError(t, err)
	assert.IsType(t, &RedisCacheStore{}, store)

	_, err = NewCacheStore(config.CacheConfig{Backend: config.CacheBackendRedis}, &Storage{})
	assert.Error(t, err, "缺少 Redis 连接")
	_, err = NewCacheStore(config.CacheConfig{Backend: config.CacheBackendMySQL}, nil)
	assert.Error(t, err, "缺少 MySQL 连接")

	store, err = NewCacheStore(config.CacheConfig{Backend: config.CacheBackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "c.db")}, nil)
	require.NoError(t, err)
	sqlite, ok := store.(*SQLiteCacheStore)
	require.True(t, ok)
	require.NoError(t, sqlite.Close())

	store, err = NewCacheStore(config.CacheConfig{Backend: config.CacheBackendNone}, nil)
	require.NoError(t, err)
	assert.Nil(t, store)

	_, err = NewCacheStore(config.CacheConfig{Backend: "memcached"}, nil)
	assert.Error(t, err)
}
