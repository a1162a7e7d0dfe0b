package processor

import (
	"github.com/rs/zerolog"

	"resume-parser-go/internal/metrics"
	"resume-parser-go/internal/recognizer"
	"resume-parser-go/internal/scoring"
	"resume-parser-go/internal/segmenter"
)

// Option 处理器选项函数类型
type Option func(*settings)

// settings 构造 ResumeProcessor 前收集的依赖和配置
type settings struct {
	loader        DocumentLoader
	cacheStore    CacheStore
	recognizer    recognizer.EntityRecognizer
	segmenterCfg  *segmenter.Config
	scoringCfg    *scoring.Config
	defaultRegion string
	logger        *zerolog.Logger
	metrics       *metrics.Metrics
}

// WithLoader 替换文档加载器
func WithLoader(l DocumentLoader) Option {
	return func(s *settings) {
		s.loader = l
	}
}

// WithCacheStore 设置缓存存储，不设置时不缓存
func WithCacheStore(store CacheStore) Option {
	return func(s *settings) {
		s.cacheStore = store
	}
}

// WithRecognizer 设置实体识别策略，默认规则识别
func WithRecognizer(r recognizer.EntityRecognizer) Option {
	return func(s *settings) {
		s.recognizer = r
	}
}

// WithSegmenterConfig 设置分段置信度参数
func WithSegmenterConfig(cfg segmenter.Config) Option {
	return func(s *settings) {
		s.segmenterCfg = &cfg
	}
}

// WithScoringConfig 设置评分权重
func WithScoringConfig(cfg scoring.Config) Option {
	return func(s *settings) {
		s.scoringCfg = &cfg
	}
}

// WithDefaultRegion 电话号码默认地区
func WithDefaultRegion(region string) Option {
	return func(s *settings) {
		s.defaultRegion = region
	}
}

// WithLogger 设置日志记录器
func WithLogger(l *zerolog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics 设置指标收集
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}
