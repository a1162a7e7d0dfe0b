package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"resume-parser-go/internal/extractor"
	"resume-parser-go/internal/types"
)

func job(fields ...types.ExtractedField) types.Record {
	return types.Record{Fields: fields}
}

func nlp(name, value string) types.ExtractedField {
	return types.StringField(name, value, types.MethodNLPEntity, 0)
}

func TestScoreSectionFullRecord(t *testing.T) {
	s := New(DefaultConfig())
	res := extractor.Result{Attempted: 1, Records: []types.Record{job(
		nlp(types.KeyOrganization, "Acme Corp"),
		nlp(types.KeyRole, "Software Engineer"),
		types.RangeField(types.KeyDateRange, types.DateRange{Start: "01/2020", End: "Present", Open: true}, types.MethodNLPEntity, 0),
	)}}

	assert.InDelta(t, 1.0, s.Completeness(types.KindExperience, res), 1e-9)
	assert.InDelta(t, 0.8, s.Reliability(types.KindExperience, res), 1e-9)
	// 0.3*0.9 + 0.4*1 + 0.3*0.8
	assert.InDelta(t, 0.91, s.ScoreSection(types.KindExperience, 0.9, res), 1e-9)
}

func TestScoreSectionEmpty(t *testing.T) {
	s := New(DefaultConfig())
	assert.Zero(t, s.ScoreSection(types.KindSkills, 1, extractor.Result{}))
	assert.Zero(t, s.ScoreSection(types.KindSkills, 1, extractor.Result{Attempted: 3}))
}

func TestDroppedRecordsLowerCompleteness(t *testing.T) {
	s := New(DefaultConfig())
	rec := job(types.ListField(types.KeySkills, []string{"go"}, types.MethodRuleBased, 0))

	one := extractor.Result{Attempted: 1, Records: []types.Record{rec}}
	withDropped := extractor.Result{Attempted: 2, Records: []types.Record{rec}}

	assert.InDelta(t, 1.0, s.Completeness(types.KindSkills, one), 1e-9)
	assert.InDelta(t, 0.5, s.Completeness(types.KindSkills, withDropped), 1e-9)
	assert.Less(t, s.ScoreSection(types.KindSkills, 1, withDropped), s.ScoreSection(types.KindSkills, 1, one))
}

func TestAddingRequiredFieldNeverLowersScore(t *testing.T) {
	s := New(DefaultConfig())
	base := []types.ExtractedField{types.StringField(types.KeyOrganization, "Acme", types.MethodRuleBased, 0)}
	additions := []types.ExtractedField{
		types.StringField(types.KeyRole, "Engineer", types.MethodFallback, 0),
		types.RangeField(types.KeyDateRange, types.DateRange{Start: "01/2020"}, types.MethodFallback, 0),
	}

	for _, attempted := range []int{1, 2, 10} {
		fields := append([]types.ExtractedField{}, base...)
		prev := s.ScoreSection(types.KindExperience, 0.5, extractor.Result{Attempted: attempted, Records: []types.Record{job(fields...)}})
		for _, add := range additions {
			fields = append(fields, add)
			cur := s.ScoreSection(types.KindExperience, 0.5, extractor.Result{Attempted: attempted, Records: []types.Record{job(fields...)}})
			assert.GreaterOrEqual(t, cur, prev, "attempted=%d 添加 %s", attempted, add.Name)
			prev = cur
		}
	}
}

func TestNonRequiredFieldsIgnored(t *testing.T) {
	s := New(DefaultConfig())
	res := extractor.Result{Attempted: 1, Records: []types.Record{job(
		types.StringField(types.KeyEmail, "a@b.co", types.MethodRuleBased, 0),
		types.StringField(types.KeyLinkedIn, "https://linkedin.com/in/a", types.MethodRuleBased, 0),
	)}}
	assert.InDelta(t, 1.0/3, s.Completeness(types.KindPersonal, res), 1e-9)
	assert.InDelta(t, 0.3, s.Reliability(types.KindPersonal, res), 1e-9)
}

func TestOverall(t *testing.T) {
	s := New(DefaultConfig())

	assert.Zero(t, s.Overall(nil))
	assert.InDelta(t, 1.0, s.Overall(map[string]float64{
		types.SectionPersonalInfo:   1,
		types.SectionWorkExperience: 1,
		types.SectionEducation:      1,
		types.SectionSkills:         1,
		types.SectionProjects:       1,
	}), 1e-9)
	// 缺失章节仍在分母中
	assert.InDelta(t, 0.3, s.Overall(map[string]float64{types.SectionPersonalInfo: 1}), 1e-9)
	assert.InDelta(t, 0.3, s.Overall(map[string]float64{types.SectionPersonalInfo: 1, "unknown": 1}), 1e-9)
}

func TestClamp(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SegmentationWeight, cfg.CompletenessWeight, cfg.ReliabilityWeight = 1, 1, 1
	s := New(cfg)
	res := extractor.Result{Attempted: 1, Records: []types.Record{job(types.ListField(types.KeySkills, []string{"go"}, types.MethodRuleBased, 0))}}

	assert.Equal(t, 1.0, s.ScoreSection(types.KindSkills, 1, res))
	assert.Equal(t, 1.0, s.Overall(map[string]float64{types.SectionSkills: 5, types.SectionPersonalInfo: 5, types.SectionWorkExperience: 5, types.SectionEducation: 5, types.SectionProjects: 5}))
	assert.Zero(t, clamp(-0.2))
}

func TestNewFillsMissingMaps(t *testing.T) {
	s := New(Config{SegmentationWeight: 0.5, CompletenessWeight: 0.5})
	assert.Equal(t, 0.9, s.Config().MethodReliability[types.MethodRuleBased])
	assert.Equal(t, []string{types.KeySkills}, s.Config().RequiredFields[types.KindSkills])
}
