package processor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-parser-go/internal/constants"
	"resume-parser-go/internal/metrics"
	"resume-parser-go/internal/tracing"
	"resume-parser-go/internal/types"
)

// Fingerprint 文档指纹：对 格式标记 || 0x00 || 字节内容 做 SHA-256，十六进制输出
func Fingerprint(doc types.RawDocument) string {
	h := sha256.New()
	h.Write([]byte(doc.Format))
	h.Write([]byte{0})
	h.Write(doc.Data)
	return hex.EncodeToString(h.Sum(nil))
}

// CacheKey 存储后端使用的键
func CacheKey(fingerprint string) string {
	return fmt.Sprintf(constants.KeyResumeResult, fingerprint)
}

// CacheGate 在流水线前后查询和写入缓存。存储出错时记录日志并视为未命中。
type CacheGate struct {
	store   CacheStore
	logger  *zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewCacheGate store 为 nil 时永远未命中
func NewCacheGate(store CacheStore, lg *zerolog.Logger, m *metrics.Metrics) *CacheGate {
	if store == nil {
		store = NopCacheStore()
	}
	return &CacheGate{store: store, logger: lg, metrics: m, now: time.Now}
}

// Lookup 命中时返回缓存的记录
func (g *CacheGate) Lookup(ctx context.Context, fingerprint string) (*types.ResumeRecord, bool) {
	data, ok, err := g.store.Get(ctx, CacheKey(fingerprint))
	if err != nil {
		g.degrade(ctx, fingerprint, "get", err)
		return nil, false
	}
	if !ok || len(data) == 0 {
		g.metrics.CacheOp("get", metrics.CacheMiss)
		return nil, false
	}

	var entry struct {
		Fingerprint string          `json:"fingerprint"`
		Record      json.RawMessage `json:"record"`
	}
	if err := json.Unmarshal(data, &entry); err != nil {
		g.logger.Warn().Err(err).Str("fingerprint", fingerprint).Msg("缓存内容无法解码，按未命中处理")
		g.metrics.CacheOp("get", metrics.CacheMiss)
		return nil, false
	}
	if entry.Fingerprint != "" && entry.Fingerprint != fingerprint {
		g.logger.Warn().Str("fingerprint", fingerprint).Str("cached", entry.Fingerprint).Msg("缓存指纹不一致，按未命中处理")
		g.metrics.CacheOp("get", metrics.CacheMiss)
		return nil, false
	}
	// 旧版本或被篡改的记录不符合输出约定，重新解析后覆盖
	if err := types.ValidateRecordJSON(entry.Record); err != nil {
		g.logger.Warn().Err(err).Str("fingerprint", fingerprint).Msg("缓存记录不符合输出约定，按未命中处理")
		g.metrics.CacheOp("get", metrics.CacheMiss)
		return nil, false
	}
	var rec types.ResumeRecord
	if err := json.Unmarshal(entry.Record, &rec); err != nil {
		g.logger.Warn().Err(err).Str("fingerprint", fingerprint).Msg("缓存记录无法解码，按未命中处理")
		g.metrics.CacheOp("get", metrics.CacheMiss)
		return nil, false
	}
	g.metrics.CacheOp("get", metrics.CacheHit)
	return &rec, true
}

// Store 写入失败只记录日志
func (g *CacheGate) Store(ctx context.Context, fingerprint string, rec *types.ResumeRecord) {
	if rec == nil {
		return
	}
	data, err := json.Marshal(types.CacheEntry{Fingerprint: fingerprint, Record: *rec, CreatedAt: g.now().UTC()})
	if err != nil {
		g.logger.Error().Err(err).Str("fingerprint", fingerprint).Msg("序列化解析结果失败，跳过缓存")
		return
	}
	if err := g.store.Put(ctx, CacheKey(fingerprint), data); err != nil {
		g.degrade(ctx, fingerprint, "put", err)
		return
	}
	g.metrics.CacheOp("put", metrics.ResultOK)
}

func (g *CacheGate) degrade(ctx context.Context, fingerprint, op string, err error) {
	g.metrics.CacheOp(op, metrics.CacheError)
	trace.SpanFromContext(ctx).AddEvent("cache_unavailable", trace.WithAttributes(
		attribute.String("cache.op", op),
		attribute.String("error.type", string(tracing.ErrorTypeCache)),
		attribute.String("error.message", err.Error()),
	))
	g.logger.Warn().Err(NewCacheUnavailableError(fingerprint, op, err)).Msg("缓存不可用，按未命中处理")
}
