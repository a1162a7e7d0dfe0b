package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog"

	"resume-parser-go/internal/constants"
	"resume-parser-go/internal/processor"
	"resume-parser-go/internal/storage"
	"resume-parser-go/internal/storage/models"
	"resume-parser-go/internal/tracing"
	"resume-parser-go/internal/types"
)

// 定义基础错误类型
var (
	// ErrMissingFile 请求中没有文件
	ErrMissingFile = errors.New("缺少上传文件")
	// ErrFileTooLarge 文件超过大小上限
	ErrFileTooLarge = errors.New("文件超过大小上限")
	// ErrNotFound 结果或任务不存在
	ErrNotFound = errors.New("记录不存在")
	// ErrAsyncDisabled 没有配置对象存储或消息队列
	ErrAsyncDisabled = errors.New("异步解析未启用")
	// ErrTimeout 解析超时
	ErrTimeout = errors.New("解析超时")
)

// Processor 解析流水线
type Processor interface {
	ProcessDetailed(ctx context.Context, doc types.RawDocument) (*processor.Outcome, error)
}

// OriginalArchiver 归档原始文件
type OriginalArchiver interface {
	UploadOriginal(ctx context.Context, jobID string, doc types.RawDocument) (string, error)
	DeleteOriginal(ctx context.Context, objectKey string) error
}

// JobPublisher 投递异步解析任务
type JobPublisher interface {
	PublishJSON(ctx context.Context, exchangeName, routingKey string, data interface{}, persistent bool) error
}

// ResultReader 读取已保存的解析结果
type ResultReader interface {
	GetByFingerprint(ctx context.Context, fingerprint string) (*models.ParseResult, error)
}

// ResultWriter 保存同步解析的结果
type ResultWriter interface {
	Save(ctx context.Context, result *models.ParseResult) error
}

// JobStatusStore 读写任务状态
type JobStatusStore interface {
	SetJobStatus(ctx context.Context, jobID, status string) error
	GetJobStatus(ctx context.Context, jobID string) (string, error)
}

// Settings 处理器参数
type Settings struct {
	MaxFileSize        int64
	ProcessingTimeout  time.Duration
	Exchange           string
	ParseJobRoutingKey string
	SupportedFormats   []string
}

// ResumeHandler 简历处理器，负责协调同步解析和异步任务投递
type ResumeHandler struct {
	proc      Processor
	archiver  OriginalArchiver
	publisher JobPublisher
	results   ResultReader
	writer    ResultWriter
	jobs      JobStatusStore
	settings  Settings
	logger    *zerolog.Logger
	newJobID  func() (string, error)
	now       func() time.Time
}

// Option 处理器选项
type Option func(*ResumeHandler)

// WithAsync 启用异步上传
func WithAsync(archiver OriginalArchiver, publisher JobPublisher) Option {
	return func(h *ResumeHandler) {
		h.archiver = archiver
		h.publisher = publisher
	}
}

// WithResultReader 启用按指纹查询
func WithResultReader(r ResultReader) Option {
	return func(h *ResumeHandler) {
		h.results = r
	}
}

// WithResultWriter 同步解析的结果也写入数据库
func WithResultWriter(w ResultWriter) Option {
	return func(h *ResumeHandler) {
		h.writer = w
	}
}

// WithJobStatusStore 启用任务状态
func WithJobStatusStore(s JobStatusStore) Option {
	return func(h *ResumeHandler) {
		h.jobs = s
	}
}

// WithLogger 设置日志
func WithLogger(lg *zerolog.Logger) Option {
	return func(h *ResumeHandler) {
		if lg != nil {
			h.logger = lg
		}
	}
}

// NewResumeHandler 创建一个新的简历处理器
func NewResumeHandler(proc Processor, settings Settings, opts ...Option) *ResumeHandler {
	if settings.MaxFileSize <= 0 {
		settings.MaxFileSize = constants.DefaultMaxFileSize
	}
	if settings.ProcessingTimeout <= 0 {
		settings.ProcessingTimeout = constants.DefaultProcessingTimeout
	}
	if len(settings.SupportedFormats) == 0 {
		settings.SupportedFormats = []string{string(types.FormatPDF), string(types.FormatDOCX)}
	}
	nop := zerolog.Nop()
	h := &ResumeHandler{
		proc:     proc,
		settings: settings,
		logger:   &nop,
		newJobID: func() (string, error) {
			id, err := uuid.NewV7()
			if err != nil {
				return "", err
			}
			return id.String(), nil
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ParseResponse 同步解析响应
type ParseResponse struct {
	Fingerprint string              `json:"fingerprint"`
	CacheHit    bool                `json:"cache_hit"`
	DurationMS  int64               `json:"duration_ms"`
	Result      *types.ResumeRecord `json:"result"`
}

// UploadResponse 异步上传响应
type UploadResponse struct {
	JobID       string `json:"job_id"`
	Fingerprint string `json:"fingerprint"`
	Status      string `json:"status"`
}

// StoredResultResponse 已保存的解析结果
type StoredResultResponse struct {
	Fingerprint      string              `json:"fingerprint"`
	JobID            string              `json:"job_id,omitempty"`
	Format           string              `json:"format"`
	OriginalFilename string              `json:"original_filename,omitempty"`
	Source           string              `json:"source"`
	ParserVersion    string              `json:"parser_version"`
	CreatedAt        time.Time           `json:"created_at"`
	Result           *types.ResumeRecord `json:"result"`
}

// JobStatusResponse 任务状态
type JobStatusResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// SupportedFormats 可以解析的格式
func (h *ResumeHandler) SupportedFormats() []string {
	return h.settings.SupportedFormats
}

// MaxFileSize 上传文件大小上限（字节）
func (h *ResumeHandler) MaxFileSize() int64 {
	return h.settings.MaxFileSize
}

// AsyncEnabled 是否可以接受异步上传
func (h *ResumeHandler) AsyncEnabled() bool {
	return h.archiver != nil && h.publisher != nil
}

// ReadDocument 读取上传内容并确定格式。declared 为空时按文件扩展名判断。
func (h *ResumeHandler) ReadDocument(reader io.Reader, size int64, filename, declared string) (types.RawDocument, error) {
	if size > h.settings.MaxFileSize {
		return types.RawDocument{}, fmt.Errorf("%w: %d > %d", ErrFileTooLarge, size, h.settings.MaxFileSize)
	}
	// 多读一个字节用来判断是否超限
	data, err := io.ReadAll(io.LimitReader(reader, h.settings.MaxFileSize+1))
	if err != nil {
		return types.RawDocument{}, fmt.Errorf("读取上传文件内容失败: %w", err)
	}
	if int64(len(data)) > h.settings.MaxFileSize {
		return types.RawDocument{}, fmt.Errorf("%w: > %d", ErrFileTooLarge, h.settings.MaxFileSize)
	}
	if len(data) == 0 {
		return types.RawDocument{}, ErrMissingFile
	}

	hint := declared
	if hint == "" {
		hint = filepath.Ext(filename)
	}
	format, ok := types.ParseDocumentFormat(hint)
	if !ok {
		return types.RawDocument{}, processor.NewUnsupportedFormatError("", fmt.Sprintf("无法识别的格式 %q", hint))
	}
	return types.RawDocument{Format: format, Data: data}, nil
}

// HandleParse 同步解析一份简历
func (h *ResumeHandler) HandleParse(ctx context.Context, doc types.RawDocument, filename string) (*ParseResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, h.settings.ProcessingTimeout)
	defer cancel()

	out, err := h.proc.ProcessDetailed(ctx, doc)
	if err != nil {
		return nil, err
	}
	// 流水线在超时后仍可能返回部分结果，这里按超时处理
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %s", ErrTimeout, h.settings.ProcessingTimeout)
	}
	if h.writer != nil && !out.CacheHit {
		h.saveResult(ctx, doc, filename, out)
	}
	return &ParseResponse{
		Fingerprint: out.Fingerprint,
		CacheHit:    out.CacheHit,
		DurationMS:  out.Duration.Milliseconds(),
		Result:      out.Record,
	}, nil
}

// saveResult 保存失败只记录日志，不影响本次响应
func (h *ResumeHandler) saveResult(ctx context.Context, doc types.RawDocument, filename string, out *processor.Outcome) {
	res, err := models.NewParseResult(out.Fingerprint, doc.Format, out.Record)
	if err == nil {
		res.OriginalFilename = filename
		res.ParserVersion = constants.ParserVersion
		res.DurationMS = out.Duration.Milliseconds()
		err = h.writer.Save(ctx, res)
	}
	if err != nil {
		h.logger.Warn().Err(err).Str("fingerprint", out.Fingerprint).Msg("保存同步解析结果失败")
	}
}

// HandleUpload 归档原始文件并投递异步解析任务
func (h *ResumeHandler) HandleUpload(ctx context.Context, doc types.RawDocument, filename string) (*UploadResponse, error) {
	if !h.AsyncEnabled() {
		return nil, ErrAsyncDisabled
	}
	if !doc.Format.Supported() {
		return nil, processor.NewUnsupportedFormatError("", string(doc.Format))
	}

	jobID, err := h.newJobID()
	if err != nil {
		return nil, fmt.Errorf("生成UUIDv7失败: %w", err)
	}
	fingerprint := processor.Fingerprint(doc)

	objectKey, err := h.archiver.UploadOriginal(ctx, jobID, doc)
	if err != nil {
		return nil, fmt.Errorf("上传简历到MinIO失败: %w", err)
	}

	if h.jobs != nil {
		if err := h.jobs.SetJobStatus(ctx, jobID, constants.JobStatusQueued); err != nil {
			h.logger.Warn().Err(err).Str("job_id", jobID).Msg("记录任务状态失败")
		}
	}

	msg := storage.ParseJobMessage{
		JobID:            jobID,
		ObjectKey:        objectKey,
		OriginalFilename: filename,
		Format:           string(doc.Format),
		Fingerprint:      fingerprint,
		SubmittedAt:      h.now().UTC(),
	}
	if err := h.publisher.PublishJSON(ctx, h.settings.Exchange, h.settings.ParseJobRoutingKey, msg, true); err != nil {
		// 任务没有入队，原始文件不会再被消费
		if derr := h.archiver.DeleteOriginal(ctx, objectKey); derr != nil {
			h.logger.Warn().Err(derr).Str("object_key", objectKey).Msg("回滚原始文件失败")
		}
		if h.jobs != nil {
			_ = h.jobs.SetJobStatus(ctx, jobID, constants.JobStatusFailed)
		}
		return nil, fmt.Errorf("发布消息到RabbitMQ失败: %w", err)
	}

	h.logger.Info().
		Str("job_id", jobID).
		Str("object_key", objectKey).
		Str("filename", tracing.SafeFilename(filename)).
		Str("fingerprint", fingerprint).
		Msg("异步解析任务已提交")
	return &UploadResponse{JobID: jobID, Fingerprint: fingerprint, Status: constants.JobStatusQueued}, nil
}

// GetResult 按指纹查询已保存的结果
func (h *ResumeHandler) GetResult(ctx context.Context, fingerprint string) (*StoredResultResponse, error) {
	if h.results == nil {
		return nil, ErrAsyncDisabled
	}
	res, err := h.results.GetByFingerprint(ctx, fingerprint)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec, err := res.Record()
	if err != nil {
		return nil, err
	}
	return &StoredResultResponse{
		Fingerprint:      res.Fingerprint,
		JobID:            res.JobID,
		Format:           res.Format,
		OriginalFilename: res.OriginalFilename,
		Source:           res.Source,
		ParserVersion:    res.ParserVersion,
		CreatedAt:        res.CreatedAt,
		Result:           rec,
	}, nil
}

// GetJobStatus 查询异步任务状态
func (h *ResumeHandler) GetJobStatus(ctx context.Context, jobID string) (*JobStatusResponse, error) {
	if h.jobs == nil {
		return nil, ErrAsyncDisabled
	}
	status, err := h.jobs.GetJobStatus(ctx, jobID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &JobStatusResponse{JobID: jobID, Status: status}, nil
}
