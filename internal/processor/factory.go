package processor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"resume-parser-go/internal/config"
	"resume-parser-go/internal/constants"
	"resume-parser-go/internal/llm"
	"resume-parser-go/internal/metrics"
	"resume-parser-go/internal/recognizer"
	"resume-parser-go/internal/scoring"
	"resume-parser-go/internal/segmenter"
	"resume-parser-go/internal/types"
)

// NewFromConfig 按配置文件组装完整的处理器
func NewFromConfig(ctx context.Context, cfg *config.Config, store CacheStore, m *metrics.Metrics, lg *zerolog.Logger) (*ResumeProcessor, error) {
	rec, err := NewRecognizer(ctx, cfg.Recognizer, lg)
	if err != nil {
		return nil, err
	}
	opts := []Option{
		WithRecognizer(rec),
		WithSegmenterConfig(SegmenterConfigFrom(cfg.Scoring)),
		WithScoringConfig(ScoringConfigFrom(cfg.Scoring)),
		WithDefaultRegion(cfg.Parser.DefaultRegion),
		WithLogger(lg),
		WithMetrics(m),
	}
	if store != nil {
		opts = append(opts, WithCacheStore(store))
	}
	return New(ctx, opts...)
}

// NewRecognizer 创建实体识别器。模型后端总是以规则识别作为回退。
func NewRecognizer(ctx context.Context, cfg config.RecognizerConfig, lg *zerolog.Logger) (recognizer.EntityRecognizer, error) {
	rule := recognizer.NewRuleBasedRecognizer()
	backend := strings.ToLower(cfg.Backend)
	if backend == "" || backend == config.RecognizerRule {
		return rule, nil
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("识别后端 %s 需要 API Key", backend)
	}

	timeout := config.GetDuration(cfg.Timeout, recognizer.DefaultLLMConfig().CallTimeout)
	chatModel, err := llm.NewChatModel(ctx, llm.Config{
		Backend: backend,
		Model:   cfg.Model,
		APIKey:  cfg.APIKey,
		APIURL:  cfg.APIURL,
		Timeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("创建聊天模型失败: %w", err)
	}

	llmCfg := recognizer.DefaultLLMConfig()
	llmCfg.CallTimeout = timeout
	llmCfg.QPM = cfg.QPM
	if cfg.MaxRetries >= 0 {
		llmCfg.MaxRetries = cfg.MaxRetries
	}
	return recognizer.NewLLMRecognizer(chatModel,
		recognizer.WithLLMConfig(llmCfg),
		recognizer.WithFallback(rule),
		recognizer.WithLLMLogger(lg),
	)
}

// ScoringConfigFrom 把配置文件中的评分权重转换为 scoring.Config
func ScoringConfigFrom(c config.ScoringConfig) scoring.Config {
	out := scoring.DefaultConfig()
	out.SegmentationWeight = c.SegmentationWeight
	out.CompletenessWeight = c.CompletenessWeight
	out.ReliabilityWeight = c.ReliabilityWeight
	for k, v := range c.MethodReliability {
		out.MethodReliability[types.ExtractionMethod(k)] = v
	}
	for k, v := range c.SectionWeights {
		out.SectionWeights[k] = v
	}
	return out
}

// SegmenterConfigFrom 分段置信度，未配置的项保留默认值
func SegmenterConfigFrom(c config.ScoringConfig) segmenter.Config {
	out := segmenter.DefaultConfig()
	if c.ExactHeadingConfidence > 0 {
		out.ExactMatchConfidence = c.ExactHeadingConfidence
	}
	if c.PartialHeadingConfidence > 0 {
		out.PartialMatchConfidence = c.PartialHeadingConfidence
	}
	if c.LeadingConfidence > 0 {
		out.LeadingConfidence = c.LeadingConfidence
	}
	return out
}

// ProcessingTimeout 单次解析超时
func ProcessingTimeout(cfg *config.Config) time.Duration {
	return config.GetDuration(cfg.Server.ProcessingTimeout, constants.DefaultProcessingTimeout)
}
