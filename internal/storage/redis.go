package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"resume-parser-go/internal/config"
	"resume-parser-go/internal/constants"
	"resume-parser-go/internal/tracing"
)

// 为Redis操作定义专用tracer
var redisTracer = otel.Tracer("resume-parser-go/storage/redis")

// Redis wraps the Redis client
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter creates a new Redis client connection
func NewRedisAdapter(ctx context.Context, cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		// 连接池设置
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		// 超时设置
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,

		// 重试设置
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: time.Duration(cfg.MinRetryBackoffMS) * time.Millisecond,
		MaxRetryBackoff: time.Duration(cfg.MaxRetryBackoffMS) * time.Millisecond,
	}

	client := redis.NewClient(opt)

	// 添加OpenTelemetry钩子, 记录所有Redis操作
	if err := redisotel.InstrumentTracing(client); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := client.Ping(pingCtx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &Redis{Client: client, config: cfg}, nil
}

// Close closes the Redis client connection
func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}

// SetJobStatus 记录异步任务状态
func (r *Redis) SetJobStatus(ctx context.Context, jobID, status string) error {
	key := fmt.Sprintf(constants.KeyResumeJobStatus, jobID)
	if err := r.Client.Set(ctx, key, status, constants.JobStatusTTL).Err(); err != nil {
		return fmt.Errorf("写入任务状态失败 (job_id=%s): %w", jobID, err)
	}
	return nil
}

// GetJobStatus 查询异步任务状态，不存在时返回 ErrNotFound
func (r *Redis) GetJobStatus(ctx context.Context, jobID string) (string, error) {
	key := fmt.Sprintf(constants.KeyResumeJobStatus, jobID)
	status, err := r.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("读取任务状态失败 (job_id=%s): %w", jobID, err)
	}
	return status, nil
}

// RedisCacheStore 以 Redis STRING 保存解析结果，过期由 TTL 控制
type RedisCacheStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCacheStore ttl <= 0 时使用默认有效期
func NewRedisCacheStore(r *Redis, ttl time.Duration) *RedisCacheStore {
	if ttl <= 0 {
		ttl = constants.DefaultCacheTTL
	}
	return &RedisCacheStore{client: r.Client, ttl: ttl}
}

// Get 未命中返回 (nil, false, nil)
func (s *RedisCacheStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, span := redisTracer.Start(ctx, "RedisCache.Get",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(semconv.DBSystemRedis, attribute.String("db.operation", "GET"),
			attribute.String("db.redis.key", tracing.SafeRedisKey(key))))
	defer span.End()

	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return nil, false, nil
	}
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	span.SetAttributes(attribute.Bool("cache.hit", true), attribute.Int("cache.value_size", len(data)))
	return data, true, nil
}

// Put 覆盖写入并刷新有效期
func (s *RedisCacheStore) Put(ctx context.Context, key string, value []byte) error {
	ctx, span := redisTracer.Start(ctx, "RedisCache.Put",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(semconv.DBSystemRedis, attribute.String("db.operation", "SET"),
			attribute.String("db.redis.key", tracing.SafeRedisKey(key))))
	defer span.End()

	if err := s.client.Set(ctx, key, value, s.ttl).Err(); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
