// Package processor 简历解析流水线：加载、分段、抽取、评分、组装，前后由缓存把关
package processor

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-parser-go/internal/extractor"
	"resume-parser-go/internal/logger"
	"resume-parser-go/internal/metrics"
	"resume-parser-go/internal/parser"
	"resume-parser-go/internal/scoring"
	"resume-parser-go/internal/segmenter"
	"resume-parser-go/internal/tracing"
	"resume-parser-go/internal/types"
)

// 定义tracer
var tracer = otel.Tracer("processor")

// ResumeProcessor 流水线入口。除缓存存储外没有共享可变状态，可并发使用。
type ResumeProcessor struct {
	loader    DocumentLoader
	segmenter *segmenter.Segmenter
	extractor *extractor.Extractor
	scorer    *scoring.Scorer
	cache     *CacheGate
	logger    *zerolog.Logger
	metrics   *metrics.Metrics
}

// Outcome Process 的详细结果
type Outcome struct {
	Fingerprint string
	CacheHit    bool
	Duration    time.Duration
	Record      *types.ResumeRecord
}

// New 创建处理器。未指定加载器时使用默认加载器（Eino PDF 提取 + DOCX 解析）。
func New(ctx context.Context, opts ...Option) (*ResumeProcessor, error) {
	s := &settings{logger: logger.Component("processor")}
	for _, opt := range opts {
		opt(s)
	}

	if s.loader == nil {
		l, err := parser.NewLoader(ctx,
			parser.WithHeadingMatcher(segmenter.IsKnownHeading),
			parser.WithLoaderLogger(s.logger),
		)
		if err != nil {
			return nil, err
		}
		s.loader = l
	}

	segOpts := []segmenter.Option{segmenter.WithLogger(s.logger)}
	if s.segmenterCfg != nil {
		segOpts = append(segOpts, segmenter.WithConfig(*s.segmenterCfg))
	}

	extOpts := []extractor.Option{
		extractor.WithRecognizer(s.recognizer),
		extractor.WithDefaultRegion(s.defaultRegion),
		extractor.WithLogger(s.logger),
	}
	if s.metrics != nil {
		m := s.metrics
		extOpts = append(extOpts, extractor.WithRecognizerErrorHook(func(error) { m.RecognizerError() }))
	}

	scoringCfg := scoring.DefaultConfig()
	if s.scoringCfg != nil {
		scoringCfg = *s.scoringCfg
	}

	return &ResumeProcessor{
		loader:    s.loader,
		segmenter: segmenter.New(segOpts...),
		extractor: extractor.New(extOpts...),
		scorer:    scoring.New(scoringCfg),
		cache:     NewCacheGate(s.cacheStore, s.logger, s.metrics),
		logger:    s.logger,
		metrics:   s.metrics,
	}, nil
}

// Process 解析一份文档。只会返回 ErrUnsupportedFormat 和 ErrCorruptDocument，
// 缓存故障只记录日志。
func (p *ResumeProcessor) Process(ctx context.Context, doc types.RawDocument) (*types.ResumeRecord, error) {
	out, err := p.ProcessDetailed(ctx, doc)
	if err != nil {
		return nil, err
	}
	return out.Record, nil
}

// ProcessDetailed 同 Process，额外返回指纹、是否命中缓存和耗时
func (p *ResumeProcessor) ProcessDetailed(ctx context.Context, doc types.RawDocument) (*Outcome, error) {
	start := time.Now()
	fp := Fingerprint(doc)

	ctx, span := tracer.Start(ctx, "ResumeProcessor.Process",
		trace.WithAttributes(
			attribute.String("resume.fingerprint", tracing.TruncateString(fp, 16)),
			attribute.String("resume.format", string(doc.Format)),
			attribute.Int("resume.size_bytes", doc.Len()),
		))
	defer span.End()

	log := p.logger.With().Str("fingerprint", fp).Str("format", string(doc.Format)).Logger()

	if rec, ok := p.cache.Lookup(ctx, fp); ok {
		d := time.Since(start)
		span.SetAttributes(attribute.Bool("resume.cache_hit", true))
		p.metrics.ObserveProcess(metrics.ResultOK, true, d)
		log.Debug().Dur("duration", d).Msg("命中解析结果缓存")
		return &Outcome{Fingerprint: fp, CacheHit: true, Duration: d, Record: rec}, nil
	}
	span.SetAttributes(attribute.Bool("resume.cache_hit", false))

	rec, err := p.run(ctx, fp, doc, &log)
	if err != nil {
		p.metrics.ObserveProcess(resultLabel(err), false, time.Since(start))
		tracing.RecordError(span, err, tracing.ErrorTypeDocument)
		log.Warn().Err(err).Msg("文档解析失败")
		return nil, err
	}

	p.cache.Store(ctx, fp, rec)

	d := time.Since(start)
	p.metrics.ObserveProcess(metrics.ResultOK, false, d)
	p.metrics.ObserveConfidence(SectionConfidences(rec), rec.OverallConfidence)
	span.SetAttributes(attribute.Float64("resume.overall_confidence", rec.OverallConfidence))
	log.Info().Dur("duration", d).Float64("overall_confidence", rec.OverallConfidence).Msg("简历解析完成")
	return &Outcome{Fingerprint: fp, Duration: d, Record: rec}, nil
}

// run 不经过缓存的完整流水线
func (p *ResumeProcessor) run(ctx context.Context, fp string, doc types.RawDocument, log *zerolog.Logger) (*types.ResumeRecord, error) {
	stageStart := time.Now()
	loadCtx, loadSpan := tracer.Start(ctx, "LoadDocument")
	text, err := p.loader.Load(loadCtx, doc)
	if err != nil {
		tracing.RecordError(loadSpan, err, tracing.ErrorTypeDocument)
		loadSpan.End()
		return nil, wrapLoadError(fp, err)
	}
	loadSpan.SetAttributes(attribute.Int("resume.lines", len(text.Lines)), attribute.Int("resume.pages", text.Pages))
	loadSpan.End()
	p.stageDone(log, "load", stageStart)

	stageStart = time.Now()
	_, segSpan := tracer.Start(ctx, "SegmentSections")
	segments := p.segmenter.Segment(text)
	segSpan.SetAttributes(attribute.Int("resume.segments", len(segments)))
	segSpan.End()
	p.stageDone(log, "segment", stageStart)

	stageStart = time.Now()
	extractCtx, extractSpan := tracer.Start(ctx, "ExtractAndScore")
	groups := groupSegments(segments)
	outcomes := make([]SectionOutcome, 0, len(groups))
	scores := make(map[string]float64, len(groups))
	for _, g := range groups {
		res := p.extractor.ExtractSection(extractCtx, g.kind, g.segments)
		conf := p.scorer.ScoreSection(g.kind, g.segConfidence(), res)
		outcomes = append(outcomes, SectionOutcome{Kind: g.kind, Result: res, Confidence: conf})
		scores[g.kind.SectionName()] = conf
		log.Debug().Str("section", g.kind.SectionName()).Int("records", len(res.Records)).
			Int("dropped", res.Dropped()).Float64("confidence", conf).Msg("章节抽取完成")
	}
	extractSpan.End()
	p.stageDone(log, "extract", stageStart)

	return Assemble(outcomes, p.scorer.Overall(scores)), nil
}

func (p *ResumeProcessor) stageDone(log *zerolog.Logger, stage string, start time.Time) {
	d := time.Since(start)
	p.metrics.ObserveStage(stage, d)
	log.Debug().Str("stage", stage).Dur("duration", d).Msg("阶段完成")
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		return metrics.ResultUnsupported
	case errors.Is(err, ErrCorruptDocument):
		return metrics.ResultCorrupt
	}
	return metrics.ResultError
}
