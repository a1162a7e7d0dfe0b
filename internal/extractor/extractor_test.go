package extractor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-parser-go/internal/parser"
	"resume-parser-go/internal/recognizer"
	"resume-parser-go/internal/segmenter"
	"resume-parser-go/internal/testutil"
	"resume-parser-go/internal/types"
)

type fakeRecognizer struct {
	ents []recognizer.Entity
	err  error
}

func (f fakeRecognizer) Recognize(context.Context, string) ([]recognizer.Entity, error) {
	return f.ents, f.err
}

func field(t *testing.T, rec types.Record, name string) types.ExtractedField {
	t.Helper()
	f, ok := rec.Get(name)
	require.True(t, ok, "缺少字段 %s", name)
	return f
}

func bodyLines(texts ...string) []types.TextLine {
	out := make([]types.TextLine, 0, len(texts))
	for _, s := range texts {
		out = append(out, types.TextLine{Text: s, Hint: types.HintBody})
	}
	return out
}

func TestExtractScenario(t *testing.T) {
	text := parser.FromText(testutil.ScenarioResume, segmenter.IsKnownHeading)
	segs := segmenter.New().Segment(text)
	require.Len(t, segs, 3)

	ex := New()
	ctx := context.Background()

	personal := ex.Extract(ctx, segs[0])
	require.Len(t, personal.Records, 1)
	p := personal.Records[0]
	assert.Equal(t, "Jane Doe", p.Text(types.KeyName))
	assert.Equal(t, "Jane", p.Text(types.KeyFirstName))
	assert.Equal(t, "Doe", p.Text(types.KeyLastName))
	assert.Equal(t, "jane@example.com", p.Text(types.KeyEmail))
	assert.Equal(t, "555-123-4567", p.Text(types.KeyPhone))
	assert.Equal(t, "+15551234567", p.Text(types.KeyPhoneE164))
	assert.Equal(t, 1, field(t, p, types.KeyEmail).SourceLine)
	assert.Equal(t, types.MethodRuleBased, field(t, p, types.KeyEmail).Method)

	exp := ex.Extract(ctx, segs[1])
	require.Len(t, exp.Records, 1)
	assert.Equal(t, 1, exp.Attempted)
	job := exp.Records[0]
	org := field(t, job, types.KeyOrganization)
	assert.Equal(t, "Acme Corp", org.Text)
	assert.Equal(t, types.MethodNLPEntity, org.Method)
	assert.Equal(t, 5, org.SourceLine)
	assert.Equal(t, "Software Engineer", job.Text(types.KeyRole))
	dr := field(t, job, types.KeyDateRange)
	require.NotNil(t, dr.Range)
	assert.Equal(t, "01/2020", dr.Range.Start)
	assert.Equal(t, "Present", dr.Range.End)
	assert.True(t, dr.Range.Open)
	assert.Equal(t, "full-time", job.Text(types.KeyEmploymentType))
	assert.False(t, job.Has(types.KeyDescription))

	edu := ex.Extract(ctx, segs[2])
	require.Len(t, edu.Records, 1)
	school := edu.Records[0]
	assert.Equal(t, "State University", school.Text(types.KeyInstitution))
	assert.Equal(t, "B.S. Computer Science", school.Text(types.KeyDegree))
	edr := field(t, school, types.KeyDateRange)
	assert.Equal(t, "01/2016", edr.Range.Start)
	assert.Equal(t, "01/2020", edr.Range.End)
	assert.False(t, edr.Range.Open)
}

func TestExtractRecognizerFailureFallsBack(t *testing.T) {
	seg := types.Segment{
		Kind:    types.KindExperience,
		Start:   3,
		Heading: "Experience",
		Lines:   bodyLines("Experience", "Initech - Jan 2019 to Dec 2020"),
	}
	ex := New(WithRecognizer(fakeRecognizer{err: errors.New("model unavailable")}))

	res := ex.Extract(context.Background(), seg)
	require.Len(t, res.Records, 1)
	rec := res.Records[0]

	org := field(t, rec, types.KeyOrganization)
	assert.Equal(t, types.MethodFallback, org.Method)
	assert.Equal(t, "Initech - Jan 2019 to Dec 2020", org.Text, "回退时取记录第一行原文")
	assert.Equal(t, 4, org.SourceLine)

	dr := field(t, rec, types.KeyDateRange)
	assert.Equal(t, types.MethodFallback, dr.Method)
	assert.Equal(t, "01/2019", dr.Range.Start)
	assert.Equal(t, "12/2020", dr.Range.End)
	assert.False(t, rec.Has(types.KeyRole))
}

func TestExtractExperienceSplitsAtSecondDate(t *testing.T) {
	text := parser.FromText("EXPERIENCE\nAcme Corp, Software Engineer, Jan 2020 - Present\n• Built payment APIs in Go\n• Led a team of four\nGlobex Inc, Data Analyst Intern, 2018 - 2019\n• Weekly reports", segmenter.IsKnownHeading)
	segs := segmenter.New().Segment(text)
	require.Len(t, segs, 1)
	require.Equal(t, types.KindExperience, segs[0].Kind)

	res := New().Extract(context.Background(), segs[0])
	require.Len(t, res.Records, 2)

	first := res.Records[0]
	assert.Equal(t, "Acme Corp", first.Text(types.KeyOrganization))
	desc := field(t, first, types.KeyDescription)
	assert.Equal(t, []string{"Built payment APIs in Go", "Led a team of four"}, desc.List)
	assert.Equal(t, 2, desc.SourceLine)

	second := res.Records[1]
	assert.Equal(t, "Globex Inc", second.Text(types.KeyOrganization))
	assert.Equal(t, "Data Analyst Intern", second.Text(types.KeyRole))
	assert.Equal(t, "internship", second.Text(types.KeyEmploymentType))
}

func TestExtractExperienceYearInDescriptionKeepsOneRecord(t *testing.T) {
	seg := types.Segment{
		Kind:    types.KindExperience,
		Heading: "Work Experience",
		Lines: bodyLines("Work Experience",
			"Acme Corp, Software Engineer, Jan 2020 - Present",
			"Led the 2021 migration to Kubernetes",
			"Cut costs by 30%"),
	}
	res := New().Extract(context.Background(), seg)

	assert.Equal(t, 1, res.Attempted, "描述中的单独年份不开启新记录")
	require.Len(t, res.Records, 1)
	rec := res.Records[0]
	assert.Equal(t, "Acme Corp", rec.Text(types.KeyOrganization))
	assert.Equal(t, 1, field(t, rec, types.KeyDateRange).SourceLine)
	assert.Equal(t, []string{"Led the 2021 migration to Kubernetes", "Cut costs by 30%"}, field(t, rec, types.KeyDescription).List)
}

func TestExtractEducationGrade(t *testing.T) {
	seg := types.Segment{
		Kind:    types.KindEducation,
		Heading: "Education",
		Lines:   bodyLines("Education", "MIT, MBA, 2015 - 2017", "GPA: 3.9/4.0", "", "Springfield High School, 2011"),
	}
	res := New().Extract(context.Background(), seg)
	require.Len(t, res.Records, 2)

	assert.Equal(t, "MIT", res.Records[0].Text(types.KeyInstitution))
	assert.Equal(t, "MBA", res.Records[0].Text(types.KeyDegree))
	assert.Equal(t, "GPA: 3.9/4.0", res.Records[0].Text(types.KeyGrade))

	assert.Equal(t, "Springfield High School", res.Records[1].Text(types.KeyInstitution))
	assert.False(t, res.Records[1].Has(types.KeyDegree))
	assert.Equal(t, "01/2011", field(t, res.Records[1], types.KeyDateRange).Range.Start)
}

func TestExtractSkills(t *testing.T) {
	seg := types.Segment{
		Kind:    types.KindSkills,
		Start:   10,
		Heading: "Skills",
		Lines:   bodyLines("Skills", "Languages: Golang, JS, Python", "Tools: Docker | k8s; Git, Terraform", "Leadership, Communication skills, golang"),
	}
	res := New().Extract(context.Background(), seg)
	require.Len(t, res.Records, 1)
	rec := res.Records[0]

	skills := field(t, rec, types.KeySkills)
	assert.Equal(t, []string{"go", "javascript", "python", "docker", "kubernetes", "git", "Terraform", "leadership", "communication"}, skills.List)
	assert.Equal(t, 11, skills.SourceLine)
	assert.Equal(t, types.MethodRuleBased, skills.Method)
	assert.Equal(t, []string{"leadership", "communication"}, field(t, rec, types.KeySoft).List)
	assert.Contains(t, field(t, rec, types.KeyTechnical).List, "Terraform")
}

func TestExtractDropsEmptyRecords(t *testing.T) {
	seg := types.Segment{
		Kind:    types.KindSkills,
		Heading: "Skills",
		Lines:   bodyLines("Skills", "a, b; c"),
	}
	res := New().Extract(context.Background(), seg)
	assert.Empty(t, res.Records)
	assert.Equal(t, 1, res.Attempted)
	assert.Equal(t, 1, res.Dropped())
}

func TestExtractProjects(t *testing.T) {
	seg := types.Segment{
		Kind:    types.KindProjects,
		Start:   20,
		Heading: "Projects",
		Lines: bodyLines("Projects",
			"Resume Parser - Extracts structured data from PDF resumes (2023)",
			"Built with Go, Redis and Docker. https://github.com/jane/resume-parser",
			"",
			"Portfolio Site"),
	}
	res := New().Extract(context.Background(), seg)
	require.Len(t, res.Records, 2)

	p := res.Records[0]
	assert.Equal(t, "Resume Parser", p.Text(types.KeyName))
	assert.Equal(t, "Extracts structured data from PDF resumes Built with Go, Redis and Docker.", p.Text(types.KeyDescription))
	assert.Equal(t, "https://github.com/jane/resume-parser", p.Text(types.KeyURL))
	assert.Equal(t, []string{"redis", "docker"}, field(t, p, types.KeyTechStack).List)
	assert.Equal(t, "01/2023", field(t, p, types.KeyDateRange).Range.Start)

	bare := res.Records[1]
	assert.Equal(t, "Portfolio Site", bare.Text(types.KeyName))
	assert.False(t, bare.Has(types.KeyDescription))
}

func TestExtractPersonalLinksAndSummary(t *testing.T) {
	seg := types.Segment{
		Kind:       types.KindPersonal,
		Confidence: 0.8,
		Lines: bodyLines(
			"John Smith",
			"San Francisco, CA | john@smith.io | linkedin.com/in/jsmith | github.com/jsmith | https://jsmith.dev",
			"Backend engineer who has spent ten years building distributed payment systems at scale.",
		),
	}
	res := New().Extract(context.Background(), seg)
	require.Len(t, res.Records, 1)
	rec := res.Records[0]

	assert.Equal(t, "John Smith", rec.Text(types.KeyName))
	assert.Equal(t, "San Francisco, CA", rec.Text(types.KeyLocation))
	assert.Equal(t, "john@smith.io", rec.Text(types.KeyEmail))
	assert.Equal(t, "https://linkedin.com/in/jsmith", rec.Text(types.KeyLinkedIn))
	assert.Equal(t, "https://github.com/jsmith", rec.Text(types.KeyGitHub))
	assert.Equal(t, "https://jsmith.dev", rec.Text(types.KeyPortfolio))
	assert.Equal(t, "Backend engineer who has spent ten years building distributed payment systems at scale.", rec.Text(types.KeySummary))
	assert.False(t, rec.Has(types.KeyPhone))
}

func TestExtractPersonalMergesSummarySegment(t *testing.T) {
	lead := types.Segment{Kind: types.KindPersonal, Start: 0, Lines: bodyLines("Jane Doe", "jane@example.com")}
	summary := types.Segment{
		Kind:    types.KindPersonal,
		Start:   2,
		Heading: "Summary",
		Lines:   bodyLines("Summary", "Seasoned engineer.", "Loves Go."),
	}
	res := New().ExtractSection(context.Background(), types.KindPersonal, []types.Segment{lead, summary})
	require.Len(t, res.Records, 1)
	assert.Equal(t, 1, res.Attempted)

	rec := res.Records[0]
	assert.Equal(t, "Jane Doe", rec.Text(types.KeyName))
	s := field(t, rec, types.KeySummary)
	assert.Equal(t, "Seasoned engineer. Loves Go.", s.Text)
	assert.Equal(t, 3, s.SourceLine)
}

func TestExtractUnclassifiedYieldsNothing(t *testing.T) {
	res := New().Extract(context.Background(), types.Segment{Kind: types.KindUnclassified, Lines: bodyLines("AWS Certified")})
	assert.Empty(t, res.Records)
	assert.Zero(t, res.Attempted)
}

func TestEmploymentType(t *testing.T) {
	cases := map[string]string{
		"Software Engineering Intern": "internship",
		"Freelance Designer":          "contract",
		"Part-time Tutor":             "part-time",
		"Staff Engineer":              "full-time",
	}
	for in, want := range cases {
		assert.Equal(t, want, EmploymentType(in), in)
	}
}
