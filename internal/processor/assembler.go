package processor

import (
	"resume-parser-go/internal/extractor"
	"resume-parser-go/internal/types"
)

// sectionKinds 参与抽取的章节类型，顺序与输出一致
var sectionKinds = []types.SectionKind{
	types.KindPersonal,
	types.KindExperience,
	types.KindEducation,
	types.KindSkills,
	types.KindProjects,
}

// sectionGroup 同一类型的所有 Segment
type sectionGroup struct {
	kind     types.SectionKind
	segments []types.Segment
}

// segConfidence 多个 Segment 的分段置信度取平均
func (g sectionGroup) segConfidence() float64 {
	if len(g.segments) == 0 {
		return 0
	}
	var sum float64
	for _, s := range g.segments {
		sum += s.Confidence
	}
	return sum / float64(len(g.segments))
}

// groupSegments 按章节类型归并，忽略无法归类的 Segment
func groupSegments(segs []types.Segment) []sectionGroup {
	byKind := make(map[types.SectionKind][]types.Segment, len(sectionKinds))
	for _, s := range segs {
		if s.Kind.SectionName() == "" {
			continue
		}
		byKind[s.Kind] = append(byKind[s.Kind], s)
	}
	groups := make([]sectionGroup, 0, len(byKind))
	for _, k := range sectionKinds {
		if len(byKind[k]) > 0 {
			groups = append(groups, sectionGroup{kind: k, segments: byKind[k]})
		}
	}
	return groups
}

// SectionOutcome 一个章节的抽取与评分结果
type SectionOutcome struct {
	Kind       types.SectionKind
	Result     extractor.Result
	Confidence float64
}

// Assemble 组装最终记录。五个章节名总是存在，缺失的章节为空且置信度为 0。
func Assemble(outcomes []SectionOutcome, overall float64) *types.ResumeRecord {
	rec := types.NewEmptyResumeRecord()
	for _, o := range outcomes {
		sec := rec.Section(o.Kind.SectionName())
		if sec == nil {
			continue
		}
		sec.Records = append(sec.Records, o.Result.Records...)
		if len(sec.Records) > 0 {
			sec.Confidence = o.Confidence
		}
	}
	rec.OverallConfidence = overall
	return rec
}

// SectionConfidences 按章节名列出置信度
func SectionConfidences(rec *types.ResumeRecord) map[string]float64 {
	out := make(map[string]float64, len(types.SectionNames))
	for _, name := range types.SectionNames {
		out[name] = rec.Section(name).Confidence
	}
	return out
}
