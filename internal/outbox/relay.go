package outbox // 发件箱模式：解析结果与事件在同一事务落库，再由中继异步发布

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"resume-parser-go/internal/storage/models"
	"resume-parser-go/internal/tracing"
)

const (
	defaultPollingInterval = 5 * time.Second // 默认轮询数据库中 outbox 表的间隔
	defaultBatchSize       = 10              // 每次轮询处理的消息批量大小
	defaultMaxRetryCount   = 5               // 消息发布失败的最大重试次数
)

// Publisher 消息发布器，由 storage.RabbitMQ 实现
type Publisher interface {
	PublishMessage(ctx context.Context, exchangeName, routingKey string, message []byte, persistent bool) error
}

// Options 中继参数，零值字段使用默认值
type Options struct {
	PollingInterval time.Duration
	BatchSize       int
	MaxRetryCount   int
}

// MessageRelay 轮询 outbox 表并将消息发布到消息代理。
type MessageRelay struct {
	db              *gorm.DB
	publisher       Publisher
	logger          *zerolog.Logger
	pollingInterval time.Duration
	batchSize       int
	maxRetryCount   int
	done            chan struct{}
	wg              sync.WaitGroup
	stopOnce        sync.Once
	tracer          trace.Tracer
}

// NewMessageRelay 创建一个新的 MessageRelay 实例。
func NewMessageRelay(db *gorm.DB, publisher Publisher, lg *zerolog.Logger, opts Options) *MessageRelay {
	if lg == nil {
		nop := zerolog.Nop()
		lg = &nop
	}
	r := &MessageRelay{
		db:              db,
		publisher:       publisher,
		logger:          lg,
		pollingInterval: opts.PollingInterval,
		batchSize:       opts.BatchSize,
		maxRetryCount:   opts.MaxRetryCount,
		done:            make(chan struct{}),
		tracer:          otel.Tracer("outbox-relay"),
	}
	if r.pollingInterval <= 0 {
		r.pollingInterval = defaultPollingInterval
	}
	if r.batchSize <= 0 {
		r.batchSize = defaultBatchSize
	}
	if r.maxRetryCount <= 0 {
		r.maxRetryCount = defaultMaxRetryCount
	}
	return r
}

// Start 开始消息中继的轮询过程。
func (r *MessageRelay) Start(ctx context.Context) {
	r.logger.Info().Dur("interval", r.pollingInterval).Int("batch_size", r.batchSize).Msg("MessageRelay starting")
	ticker := time.NewTicker(r.pollingInterval)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-r.done:
				r.logger.Info().Msg("MessageRelay stopped")
				return
			case <-ctx.Done():
				r.logger.Info().Msg("MessageRelay stopped")
				return
			case <-ticker.C:
				if _, err := r.ProcessPending(ctx); err != nil {
					r.logger.Error().Err(err).Msg("Error processing pending messages")
				}
			}
		}
	}()
}

// Stop 停止轮询并等待当前批次结束。
func (r *MessageRelay) Stop() {
	r.stopOnce.Do(func() { close(r.done) })
	r.wg.Wait()
}

// ProcessPending 获取并发布一批待处理消息，返回本批处理的条数。
func (r *MessageRelay) ProcessPending(ctx context.Context) (int, error) {
	var messages []models.OutboxMessage

	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return 0, tx.Error
	}
	defer tx.Rollback()

	// SKIP LOCKED 让多个实例可以并行处理不同的行
	err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ?", models.OutboxStatusPending).
		Order("created_at asc").
		Limit(r.batchSize).
		Find(&messages).Error
	if err != nil {
		return 0, err
	}

	// 空轮询不创建追踪Span
	if len(messages) == 0 {
		return 0, tx.Commit().Error
	}

	ctx, span := r.tracer.Start(ctx, "outbox.ProcessBatch",
		trace.WithAttributes(attribute.Int("messaging.batch.message_count", len(messages))))
	defer span.End()

	for i := range messages {
		msg := &messages[i]
		err := r.publisher.PublishMessage(ctx, msg.TargetExchange, msg.TargetRoutingKey, []byte(msg.Payload), true)
		markPublished(msg, err, r.maxRetryCount, time.Now())
		if err != nil {
			r.logger.Warn().Err(err).
				Uint64("id", msg.ID).
				Str("aggregate_id", msg.AggregateID).
				Int("retries", msg.RetryCount).
				Msg("Failed to publish outbox message")
		}

		// 更新失败时整批回滚，下次轮询重新拾取
		if err := tx.Save(msg).Error; err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeDB)
			return 0, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return 0, err
	}
	return len(messages), nil
}

// markPublished 根据发布结果更新消息状态，重试次数用尽后标记为 FAILED
func markPublished(msg *models.OutboxMessage, err error, maxRetryCount int, now time.Time) {
	if err != nil {
		msg.RetryCount++
		msg.ErrorMessage = err.Error()
		if msg.RetryCount >= maxRetryCount {
			msg.Status = models.OutboxStatusFailed
		}
		return
	}
	msg.Status = models.OutboxStatusSent
	msg.ProcessedAt = &now
	msg.ErrorMessage = ""
}
