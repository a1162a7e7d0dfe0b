package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"resume-parser-go/internal/constants"
	"resume-parser-go/internal/storage/models"
	"resume-parser-go/internal/tracing"
)

// ResultRepository 持久化解析结果
type ResultRepository struct {
	db *gorm.DB
}

// NewResultRepository 基于已有的 gorm 连接创建仓库
func NewResultRepository(db *gorm.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// upsert 同一指纹重复解析时覆盖旧结果
func upsert(tx *gorm.DB, result *models.ParseResult) error {
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "fingerprint"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"job_id", "object_key", "source", "overall_confidence", "record_json", "parser_version", "duration_ms", "updated_at",
		}),
	}).Create(result).Error
}

// Save 保存解析结果
func (r *ResultRepository) Save(ctx context.Context, result *models.ParseResult) error {
	ctx, span := mysqlTracer.Start(ctx, "ResultRepository.Save", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("resume.fingerprint", result.Fingerprint))

	if err := upsert(r.db.WithContext(ctx), result); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return fmt.Errorf("保存解析结果失败 (fingerprint=%s): %w", result.Fingerprint, err)
	}
	return nil
}

// SaveWithOutbox 在同一事务中保存解析结果和待发布事件
func (r *ResultRepository) SaveWithOutbox(ctx context.Context, result *models.ParseResult, messages ...*models.OutboxMessage) error {
	ctx, span := mysqlTracer.Start(ctx, "ResultRepository.SaveWithOutbox", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("resume.fingerprint", result.Fingerprint),
		attribute.Int("outbox.message_count", len(messages)),
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsert(tx, result); err != nil {
			return fmt.Errorf("保存解析结果失败: %w", err)
		}
		for _, msg := range messages {
			if msg.Status == "" {
				msg.Status = models.OutboxStatusPending
			}
			if err := tx.Create(msg).Error; err != nil {
				return fmt.Errorf("写入发件箱失败 (event=%s): %w", msg.EventType, err)
			}
		}
		return nil
	})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return err
	}
	return nil
}

// SaveOutbox 只写入待发布事件，用于解析失败时通知下游
func (r *ResultRepository) SaveOutbox(ctx context.Context, messages ...*models.OutboxMessage) error {
	if len(messages) == 0 {
		return nil
	}
	for _, msg := range messages {
		if msg.Status == "" {
			msg.Status = models.OutboxStatusPending
		}
	}
	if err := r.db.WithContext(ctx).Create(messages).Error; err != nil {
		return fmt.Errorf("写入发件箱失败: %w", err)
	}
	return nil
}

// GetByFingerprint 按文档指纹查询，不存在时返回 ErrNotFound
func (r *ResultRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*models.ParseResult, error) {
	var result models.ParseResult
	err := r.db.WithContext(ctx).Where("fingerprint = ?", fingerprint).First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询解析结果失败 (fingerprint=%s): %w", fingerprint, err)
	}
	return &result, nil
}

// ResultSummary 列表查询只取摘要列，不读取完整 JSON
type ResultSummary struct {
	Fingerprint       string    `json:"fingerprint"`
	JobID             string    `json:"job_id,omitempty"`
	Format            string    `json:"format"`
	OriginalFilename  string    `json:"original_filename,omitempty"`
	Source            string    `json:"source"`
	OverallConfidence float64   `json:"overall_confidence"`
	CreatedAt         time.Time `json:"created_at"`
}

// List 按创建时间倒序分页，返回本页摘要和总数
func (r *ResultRepository) List(ctx context.Context, offset, limit int) ([]ResultSummary, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.ParseResult{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计解析结果失败: %w", err)
	}
	out := make([]ResultSummary, 0, limit)
	if total == 0 || int64(offset) >= total {
		return out, total, nil
	}
	err := r.db.WithContext(ctx).
		Model(&models.ParseResult{}).
		Select("fingerprint, job_id, format, original_filename, source, overall_confidence, created_at").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Scan(&out).Error
	if err != nil {
		return nil, 0, fmt.Errorf("分页查询解析结果失败: %w", err)
	}
	return out, total, nil
}

// MySQLCacheStore 以 MySQL 表作为解析结果缓存，多实例部署时共享
type MySQLCacheStore struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// NewMySQLCacheStore ttl <= 0 时使用默认有效期
func NewMySQLCacheStore(db *gorm.DB, ttl time.Duration) *MySQLCacheStore {
	if ttl <= 0 {
		ttl = constants.DefaultCacheTTL
	}
	return &MySQLCacheStore{db: db, ttl: ttl, now: time.Now}
}

func (s *MySQLCacheStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var row models.CachedResult
	err := s.db.WithContext(ctx).
		Where("cache_key = ? AND expires_at > ?", key, s.now()).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("mysql cache get %s: %w", key, err)
	}
	return row.Value, true, nil
}

func (s *MySQLCacheStore) Put(ctx context.Context, key string, value []byte) error {
	row := models.CachedResult{CacheKey: key, Value: value, ExpiresAt: s.now().Add(s.ttl)}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("mysql cache put %s: %w", key, err)
	}
	return nil
}
