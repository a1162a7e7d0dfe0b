// Package scoring 计算章节置信度和整体置信度
package scoring

import (
	"resume-parser-go/internal/extractor"
	"resume-parser-go/internal/types"
)

// Config 评分权重
type Config struct {
	SegmentationWeight float64
	CompletenessWeight float64
	ReliabilityWeight  float64
	// MethodReliability 各抽取方式的可靠度
	MethodReliability map[types.ExtractionMethod]float64
	// SectionWeights 按输出章节名计算整体置信度的权重
	SectionWeights map[string]float64
	// RequiredFields 每种章节的必需字段
	RequiredFields map[types.SectionKind][]string
}

// DefaultConfig 默认权重
func DefaultConfig() Config {
	return Config{
		SegmentationWeight: 0.3,
		CompletenessWeight: 0.4,
		ReliabilityWeight:  0.3,
		MethodReliability: map[types.ExtractionMethod]float64{
			types.MethodRuleBased: 0.9,
			types.MethodNLPEntity: 0.8,
			types.MethodFallback:  0.4,
		},
		SectionWeights: map[string]float64{
			types.SectionPersonalInfo:   0.3,
			types.SectionWorkExperience: 0.3,
			types.SectionEducation:      0.15,
			types.SectionSkills:         0.15,
			types.SectionProjects:       0.1,
		},
		RequiredFields: types.DefaultRequiredFields,
	}
}

// Scorer 无状态，可并发使用
type Scorer struct {
	cfg Config
}

// New 创建评分器，未设置的映射使用默认值
func New(cfg Config) *Scorer {
	def := DefaultConfig()
	if cfg.MethodReliability == nil {
		cfg.MethodReliability = def.MethodReliability
	}
	if cfg.SectionWeights == nil {
		cfg.SectionWeights = def.SectionWeights
	}
	if cfg.RequiredFields == nil {
		cfg.RequiredFields = def.RequiredFields
	}
	return &Scorer{cfg: cfg}
}

// Config 返回生效的配置
func (s *Scorer) Config() Config {
	return s.cfg
}

// ScoreSection 章节置信度 = 分段置信度、完整度、可靠度的加权和。
// 没有保留任何记录的章节为 0。
func (s *Scorer) ScoreSection(kind types.SectionKind, segConfidence float64, res extractor.Result) float64 {
	if len(res.Records) == 0 {
		return 0
	}
	score := s.cfg.SegmentationWeight*clamp(segConfidence) +
		s.cfg.CompletenessWeight*s.Completeness(kind, res) +
		s.cfg.ReliabilityWeight*s.Reliability(kind, res)
	return clamp(score)
}

// Completeness 已有必需字段数 / (每条记录必需字段数 × 尝试抽取的记录数)
func (s *Scorer) Completeness(kind types.SectionKind, res extractor.Result) float64 {
	slots := s.slots(kind, res)
	if slots == 0 {
		return 0
	}
	present := 0
	s.eachRequired(kind, res, func(types.ExtractedField) { present++ })
	return clamp(float64(present) / float64(slots))
}

// Reliability 每个必需字段位置的抽取方式可靠度的平均值，缺失的位置记 0。
// 因此补上一个必需字段不会降低章节置信度。
func (s *Scorer) Reliability(kind types.SectionKind, res extractor.Result) float64 {
	slots := s.slots(kind, res)
	if slots == 0 {
		return 0
	}
	var sum float64
	s.eachRequired(kind, res, func(f types.ExtractedField) {
		sum += clamp(s.cfg.MethodReliability[f.Method])
	})
	return clamp(sum / float64(slots))
}

// Overall 按章节权重加权平均，缺失的章节记 0 但权重仍计入分母
func (s *Scorer) Overall(sectionScores map[string]float64) float64 {
	var total, weights float64
	for _, name := range types.SectionNames {
		w := s.cfg.SectionWeights[name]
		if w <= 0 {
			continue
		}
		weights += w
		total += w * clamp(sectionScores[name])
	}
	if weights == 0 {
		return 0
	}
	return clamp(total / weights)
}

func (s *Scorer) slots(kind types.SectionKind, res extractor.Result) int {
	attempted := res.Attempted
	if attempted < len(res.Records) {
		attempted = len(res.Records)
	}
	return len(s.cfg.RequiredFields[kind]) * attempted
}

func (s *Scorer) eachRequired(kind types.SectionKind, res extractor.Result, fn func(types.ExtractedField)) {
	for _, rec := range res.Records {
		for _, name := range s.cfg.RequiredFields[kind] {
			if f, ok := rec.Get(name); ok && !f.Empty() {
				fn(f)
			}
		}
	}
}

func clamp(v float64) float64 {
	switch {
	case v < 0 || v != v:
		return 0
	case v > 1:
		return 1
	}
	return v
}
