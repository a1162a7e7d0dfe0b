// Package worker 消费异步解析任务：下载原始文件、执行流水线、保存结果并写入发件箱
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-parser-go/internal/constants"
	"resume-parser-go/internal/metrics"
	"resume-parser-go/internal/processor"
	"resume-parser-go/internal/storage"
	"resume-parser-go/internal/storage/models"
	"resume-parser-go/internal/tracing"
	"resume-parser-go/internal/types"
)

var tracer = otel.Tracer("worker")

// Processor 解析流水线
type Processor interface {
	ProcessDetailed(ctx context.Context, doc types.RawDocument) (*processor.Outcome, error)
}

// OriginalFetcher 下载上传时归档的原始文件
type OriginalFetcher interface {
	DownloadOriginal(ctx context.Context, objectKey string) ([]byte, error)
}

// ResultSaver 保存解析结果和待发布事件
type ResultSaver interface {
	SaveWithOutbox(ctx context.Context, result *models.ParseResult, messages ...*models.OutboxMessage) error
	SaveOutbox(ctx context.Context, messages ...*models.OutboxMessage) error
}

// JobStatusStore 记录任务状态，供调用方轮询
type JobStatusStore interface {
	SetJobStatus(ctx context.Context, jobID, status string) error
}

// MessageConsumer 消息队列消费端，由 storage.RabbitMQ 实现
type MessageConsumer interface {
	StartConsumer(ctx context.Context, queueName string, prefetchCount int, handler func(context.Context, []byte) bool) (<-chan struct{}, error)
}

// Config 消费者参数
type Config struct {
	Queue             string
	Exchange          string
	ParsedRoutingKey  string
	PrefetchCount     int
	Workers           int
	ProcessingTimeout time.Duration
	MaxRetries        int
	RetryInterval     time.Duration
}

// ParseConsumer 异步解析任务消费者
type ParseConsumer struct {
	proc    Processor
	fetcher OriginalFetcher
	saver   ResultSaver
	status  JobStatusStore
	cfg     Config
	logger  *zerolog.Logger
	metrics *metrics.Metrics
	newID   func() string
	now     func() time.Time
}

// Option 消费者选项
type Option func(*ParseConsumer)

// WithJobStatusStore 记录任务状态
func WithJobStatusStore(s JobStatusStore) Option {
	return func(c *ParseConsumer) {
		c.status = s
	}
}

// WithLogger 设置日志
func WithLogger(lg *zerolog.Logger) Option {
	return func(c *ParseConsumer) {
		if lg != nil {
			c.logger = lg
		}
	}
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *ParseConsumer) {
		c.metrics = m
	}
}

// NewParseConsumer 创建消费者，零值配置项使用默认值
func NewParseConsumer(proc Processor, fetcher OriginalFetcher, saver ResultSaver, cfg Config, opts ...Option) *ParseConsumer {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.PrefetchCount <= 0 {
		cfg.PrefetchCount = cfg.Workers
	}
	if cfg.ProcessingTimeout <= 0 {
		cfg.ProcessingTimeout = constants.DefaultProcessingTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	nop := zerolog.Nop()
	c := &ParseConsumer{
		proc:    proc,
		fetcher: fetcher,
		saver:   saver,
		cfg:     cfg,
		logger:  &nop,
		newID:   func() string { return uuid.NewString() },
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run 启动 Workers 个消费协程，ctx 结束后等待全部退出
func (c *ParseConsumer) Run(ctx context.Context, mq MessageConsumer) error {
	dones := make([]<-chan struct{}, 0, c.cfg.Workers)
	for i := 0; i < c.cfg.Workers; i++ {
		done, err := mq.StartConsumer(ctx, c.cfg.Queue, c.cfg.PrefetchCount, c.Handle)
		if err != nil {
			return fmt.Errorf("启动解析任务消费者失败: %w", err)
		}
		dones = append(dones, done)
	}
	c.logger.Info().Str("queue", c.cfg.Queue).Int("workers", c.cfg.Workers).Msg("解析任务消费者已启动")
	for _, done := range dones {
		<-done
	}
	return nil
}

// Handle 处理一条任务消息。返回 false 表示需要重新入队。
func (c *ParseConsumer) Handle(ctx context.Context, body []byte) bool {
	var msg storage.ParseJobMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		// 无法解析的消息重新入队也不会成功
		c.logger.Error().Err(err).Int("size", len(body)).Msg("丢弃无法解析的任务消息")
		return true
	}

	ctx, span := tracer.Start(ctx, "ParseConsumer.Handle",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("resume.job_id", msg.JobID),
			attribute.String("resume.format", msg.Format),
			attribute.String("upload.filename", tracing.SafeFilename(msg.OriginalFilename)),
		))
	defer span.End()
	lg := c.logger.With().
		Str("job_id", msg.JobID).
		Str("object_key", msg.ObjectKey).
		Str("filename", tracing.SafeFilename(msg.OriginalFilename)).
		Logger()

	format, _ := types.ParseDocumentFormat(msg.Format)

	var data []byte
	err := c.retry(ctx, func(ctx context.Context) error {
		var err error
		data, err = c.fetcher.DownloadOriginal(ctx, msg.ObjectKey)
		if errors.Is(err, storage.ErrNotFound) {
			return permanent(err)
		}
		return err
	})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeObjectStore)
		lg.Error().Err(err).Msg("下载原始文件失败")
		c.fail(ctx, msg, err)
		return true
	}

	doc := types.NewRawDocument(format, data)
	procCtx, cancel := context.WithTimeout(ctx, c.cfg.ProcessingTimeout)
	out, err := c.proc.ProcessDetailed(procCtx, doc)
	cancel()
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDocument)
		lg.Warn().Err(err).Msg("简历解析失败")
		c.fail(ctx, msg, err)
		return true
	}
	if msg.Fingerprint != "" && msg.Fingerprint != out.Fingerprint {
		lg.Warn().Str("expected", msg.Fingerprint).Str("actual", out.Fingerprint).Msg("下载内容的指纹与上传时不一致")
	}

	result, err := models.NewParseResult(out.Fingerprint, format, out.Record)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		c.fail(ctx, msg, err)
		return true
	}
	result.JobID = msg.JobID
	result.ObjectKey = msg.ObjectKey
	result.OriginalFilename = msg.OriginalFilename
	result.Source = models.SourceAsync
	result.ParserVersion = constants.ParserVersion
	result.DurationMS = out.Duration.Milliseconds()

	event, err := c.outboxMessage(storage.ResumeParsedEvent{
		JobID:             msg.JobID,
		Fingerprint:       out.Fingerprint,
		Status:            constants.JobStatusCompleted,
		OverallConfidence: out.Record.OverallConfidence,
	}, storage.EventResumeParsed)
	if err != nil {
		c.fail(ctx, msg, err)
		return true
	}

	err = c.retry(ctx, func(ctx context.Context) error {
		return c.saver.SaveWithOutbox(ctx, result, event)
	})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		lg.Error().Err(err).Msg("保存解析结果失败，重新入队")
		return false
	}

	c.setStatus(ctx, msg.JobID, constants.JobStatusCompleted)
	c.metrics.JobFinished(constants.JobStatusCompleted)
	span.SetAttributes(attribute.Float64("resume.overall_confidence", out.Record.OverallConfidence))
	lg.Info().
		Str("fingerprint", out.Fingerprint).
		Bool("cache_hit", out.CacheHit).
		Dur("duration", out.Duration).
		Msg("异步解析完成")
	return true
}

// fail 记录失败状态并通知下游
func (c *ParseConsumer) fail(ctx context.Context, msg storage.ParseJobMessage, cause error) {
	c.setStatus(ctx, msg.JobID, constants.JobStatusFailed)
	c.metrics.JobFinished(constants.JobStatusFailed)

	event, err := c.outboxMessage(storage.ResumeParsedEvent{
		JobID:       msg.JobID,
		Fingerprint: msg.Fingerprint,
		Status:      constants.JobStatusFailed,
		Error:       cause.Error(),
	}, storage.EventResumeParseFailed)
	if err == nil {
		err = c.saver.SaveOutbox(ctx, event)
	}
	if err != nil {
		c.logger.Error().Err(err).Str("job_id", msg.JobID).Msg("写入失败事件失败")
	}
}

func (c *ParseConsumer) outboxMessage(event storage.ResumeParsedEvent, eventType string) (*models.OutboxMessage, error) {
	event.MessageID = c.newID()
	event.ParsedAt = c.now().UTC()
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("序列化事件失败: %w", err)
	}
	aggregate := event.Fingerprint
	if aggregate == "" {
		aggregate = event.JobID
	}
	return &models.OutboxMessage{
		MessageID:        event.MessageID,
		AggregateID:      aggregate,
		EventType:        eventType,
		Payload:          string(payload),
		TargetExchange:   c.cfg.Exchange,
		TargetRoutingKey: c.cfg.ParsedRoutingKey,
		Status:           models.OutboxStatusPending,
	}, nil
}

func (c *ParseConsumer) setStatus(ctx context.Context, jobID, status string) {
	if c.status == nil || jobID == "" {
		return
	}
	if err := c.status.SetJobStatus(ctx, jobID, status); err != nil {
		c.logger.Warn().Err(err).Str("job_id", jobID).Str("status", status).Msg("更新任务状态失败")
	}
}

type permanentError struct{ error }

func (e permanentError) Unwrap() error { return e.error }

// permanent 标记不值得重试的错误
func permanent(err error) error {
	return permanentError{err}
}

// retry 最多重试 MaxRetries 次，ctx 结束或遇到 permanent 错误时立即返回
func (c *ParseConsumer) retry(ctx context.Context, fn func(context.Context) error) error {
	var err error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
			case <-time.After(c.cfg.RetryInterval):
			}
		}
		if err = fn(ctx); err == nil {
			return nil
		}
		var p permanentError
		if errors.As(err, &p) {
			return p.error
		}
	}
	return err
}
