// Package segmenter 用状态机把规范化文本切分为简历章节
package segmenter

import (
	"github.com/rs/zerolog"

	"resume-parser-go/internal/logger"
	"resume-parser-go/internal/types"
)

// Config 分段置信度参数
type Config struct {
	ExactMatchConfidence   float64 // 标题与关键词完全一致
	PartialMatchConfidence float64 // 标题包含关键词
	LeadingConfidence      float64 // 第一个标题之前默认归为个人信息
}

// DefaultConfig 默认置信度
func DefaultConfig() Config {
	return Config{
		ExactMatchConfidence:   1.0,
		PartialMatchConfidence: 0.7,
		LeadingConfidence:      0.8,
	}
}

// Segmenter 章节切分器，无内部状态，可并发使用
type Segmenter struct {
	cfg    Config
	logger *zerolog.Logger
}

// Option 切分器配置选项
type Option func(*Segmenter)

// WithConfig 覆盖默认置信度
func WithConfig(cfg Config) Option {
	return func(s *Segmenter) {
		s.cfg = cfg
	}
}

// WithLogger 设置日志记录器
func WithLogger(l *zerolog.Logger) Option {
	return func(s *Segmenter) {
		if l != nil {
			s.logger = l
		}
	}
}

// New 创建切分器
func New(opts ...Option) *Segmenter {
	s := &Segmenter{cfg: DefaultConfig(), logger: logger.Component("segmenter")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Segment 顺序扫描所有行。每一行恰好属于一个 Segment，Segment 之间不重叠且首尾相接。
func (s *Segmenter) Segment(text types.NormalizedText) []types.Segment {
	pageFactor := 1.0
	if text.EmptyPages > 0 {
		pageFactor = 0.5 + 0.5*text.PageQuality()
	}

	var (
		segments []types.Segment
		cur      *types.Segment
		state    = types.KindNone
	)
	closeCurrent := func() {
		if cur != nil {
			segments = append(segments, *cur)
			cur = nil
		}
	}

	for i, line := range text.Lines {
		if line.Hint == types.HintHeading {
			if m, ok := MatchHeading(line.Text); ok {
				if next, moved := Next(state, m.Kind); moved {
					closeCurrent()
					state = next
					cur = &types.Segment{
						Kind:       next,
						Start:      i,
						Heading:    line.Text,
						Confidence: s.matchConfidence(m, next) * pageFactor,
					}
					cur.Lines = append(cur.Lines, line)
					s.logger.Debug().Int("line", i).Str("heading", line.Text).Str("kind", string(next)).Bool("exact", m.Exact).Msg("章节切换")
					continue
				}
			}
		}

		if cur == nil {
			state, _ = Next(state, types.KindPersonal)
			cur = &types.Segment{
				Kind:       state,
				Start:      i,
				Confidence: s.cfg.LeadingConfidence * pageFactor,
			}
		}
		cur.Lines = append(cur.Lines, line)
	}
	closeCurrent()

	// 第一个标题之前只有空行时，这一段没有任何可归类的内容
	if len(segments) > 0 && segments[0].Heading == "" && allBlank(segments[0].Lines) {
		segments[0].Kind = types.KindUnclassified
		segments[0].Confidence = 0
	}
	return segments
}

func (s *Segmenter) matchConfidence(m Match, kind types.SectionKind) float64 {
	if kind == types.KindUnclassified {
		return 0
	}
	if m.Exact {
		return clamp01(s.cfg.ExactMatchConfidence)
	}
	return clamp01(s.cfg.PartialMatchConfidence)
}

func allBlank(lines []types.TextLine) bool {
	for _, l := range lines {
		if !l.Blank() {
			return false
		}
	}
	return true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
