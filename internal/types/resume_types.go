package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// SectionKind 简历章节类型
type SectionKind string

const (
	// KindNone 尚未进入任何章节（状态机初始状态）
	KindNone SectionKind = "none"
	// KindPersonal 个人信息/联系方式
	KindPersonal SectionKind = "personal"
	// KindExperience 工作经历
	KindExperience SectionKind = "experience"
	// KindEducation 教育经历
	KindEducation SectionKind = "education"
	// KindSkills 技能
	KindSkills SectionKind = "skills"
	// KindProjects 项目经历
	KindProjects SectionKind = "projects"
	// KindUnclassified 无法归类的内容
	KindUnclassified SectionKind = "unclassified"
)

// 输出 JSON 中固定的五个章节名
const (
	SectionPersonalInfo   = "personal_info"
	SectionWorkExperience = "work_experience"
	SectionEducation      = "education"
	SectionSkills         = "skills"
	SectionProjects       = "projects"
)

// SectionNames 固定章节名，顺序与输出一致
var SectionNames = []string{
	SectionPersonalInfo,
	SectionWorkExperience,
	SectionEducation,
	SectionSkills,
	SectionProjects,
}

// SectionName 返回章节类型对应的输出章节名，KindNone/KindUnclassified 返回空串
func (k SectionKind) SectionName() string {
	switch k {
	case KindPersonal:
		return SectionPersonalInfo
	case KindExperience:
		return SectionWorkExperience
	case KindEducation:
		return SectionEducation
	case KindSkills:
		return SectionSkills
	case KindProjects:
		return SectionProjects
	}
	return ""
}

// Segment 带章节类型的一段连续行
type Segment struct {
	Kind       SectionKind `json:"kind"`
	Start      int         `json:"start"` // 第一行在 NormalizedText 中的下标
	Lines      []TextLine  `json:"lines"`
	Heading    string      `json:"heading,omitempty"` // 触发该段的标题行
	Confidence float64     `json:"confidence"`        // 分段置信度
}

// End 最后一行之后的下标
func (s Segment) End() int {
	return s.Start + len(s.Lines)
}

// ExtractionMethod 字段的抽取方式
type ExtractionMethod string

const (
	MethodRuleBased ExtractionMethod = "rule-based"
	MethodNLPEntity ExtractionMethod = "nlp-entity"
	MethodFallback  ExtractionMethod = "fallback-heuristic"
)

// FieldType 字段值类型
type FieldType string

const (
	FieldString    FieldType = "string"
	FieldDateRange FieldType = "date_range"
	FieldList      FieldType = "list"
)

// DateRange 日期区间，日期统一为 MM/YYYY
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`  // 开放区间为 "Present"
	Open  bool   `json:"open"` // Present/Current 结尾
	Raw   string `json:"raw"`
}

// ExtractedField 抽取出的单个字段
type ExtractedField struct {
	Name       string
	Type       FieldType
	Text       string
	Range      *DateRange
	List       []string
	Method     ExtractionMethod
	SourceLine int // 来源行在 NormalizedText 中的下标
}

// StringField 构造字符串字段
func StringField(name, value string, method ExtractionMethod, line int) ExtractedField {
	return ExtractedField{Name: name, Type: FieldString, Text: value, Method: method, SourceLine: line}
}

// RangeField 构造日期区间字段
func RangeField(name string, r DateRange, method ExtractionMethod, line int) ExtractedField {
	return ExtractedField{Name: name, Type: FieldDateRange, Range: &r, Method: method, SourceLine: line}
}

// ListField 构造列表字段
func ListField(name string, values []string, method ExtractionMethod, line int) ExtractedField {
	return ExtractedField{Name: name, Type: FieldList, List: values, Method: method, SourceLine: line}
}

// Empty 字段没有有效值
func (f ExtractedField) Empty() bool {
	switch f.Type {
	case FieldDateRange:
		return f.Range == nil || (f.Range.Start == "" && f.Range.End == "")
	case FieldList:
		return len(f.List) == 0
	}
	return f.Text == ""
}

type extractedFieldJSON struct {
	Name       string           `json:"name"`
	Type       FieldType        `json:"type"`
	Value      json.RawMessage  `json:"value"`
	Method     ExtractionMethod `json:"method"`
	SourceLine int              `json:"source_line"`
}

// MarshalJSON value 按字段类型输出为字符串、对象或数组
func (f ExtractedField) MarshalJSON() ([]byte, error) {
	var (
		value []byte
		err   error
	)
	switch f.Type {
	case FieldDateRange:
		value, err = json.Marshal(f.Range)
	case FieldList:
		value, err = json.Marshal(f.List)
	default:
		value, err = json.Marshal(f.Text)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(extractedFieldJSON{
		Name:       f.Name,
		Type:       f.Type,
		Value:      value,
		Method:     f.Method,
		SourceLine: f.SourceLine,
	})
}

// UnmarshalJSON 与 MarshalJSON 对应
func (f *ExtractedField) UnmarshalJSON(data []byte) error {
	var aux extractedFieldJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	out := ExtractedField{Name: aux.Name, Type: aux.Type, Method: aux.Method, SourceLine: aux.SourceLine}
	switch aux.Type {
	case FieldDateRange:
		var r DateRange
		if err := json.Unmarshal(aux.Value, &r); err != nil {
			return fmt.Errorf("字段 %s 的日期区间无法解析: %w", aux.Name, err)
		}
		out.Range = &r
	case FieldList:
		if err := json.Unmarshal(aux.Value, &out.List); err != nil {
			return fmt.Errorf("字段 %s 的列表无法解析: %w", aux.Name, err)
		}
	case FieldString:
		if err := json.Unmarshal(aux.Value, &out.Text); err != nil {
			return fmt.Errorf("字段 %s 的值无法解析: %w", aux.Name, err)
		}
	default:
		return fmt.Errorf("字段 %s 的类型未知: %q", aux.Name, aux.Type)
	}
	*f = out
	return nil
}

// Record 一条结构化记录（一段工作经历、一个学校、一个项目……）
type Record struct {
	Fields []ExtractedField `json:"fields"`
}

// Get 按名称查找字段
func (r Record) Get(name string) (ExtractedField, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return ExtractedField{}, false
}

// Has 是否包含非空的同名字段
func (r Record) Has(name string) bool {
	f, ok := r.Get(name)
	return ok && !f.Empty()
}

// Text 返回字符串字段的值，不存在时返回空串
func (r Record) Text(name string) string {
	f, _ := r.Get(name)
	return f.Text
}

// SectionResult 一个输出章节
type SectionResult struct {
	Records    []Record `json:"records"`
	Confidence float64  `json:"confidence"`
}

// NewEmptySection 空章节：没有记录，置信度为 0
func NewEmptySection() SectionResult {
	return SectionResult{Records: []Record{}, Confidence: 0}
}

// ResumeRecord 流水线的最终输出，组装后不再修改
type ResumeRecord struct {
	PersonalInfo      SectionResult `json:"personal_info"`
	WorkExperience    SectionResult `json:"work_experience"`
	Education         SectionResult `json:"education"`
	Skills            SectionResult `json:"skills"`
	Projects          SectionResult `json:"projects"`
	OverallConfidence float64       `json:"overall_confidence"`
}

// NewEmptyResumeRecord 五个章节都为空的记录
func NewEmptyResumeRecord() *ResumeRecord {
	return &ResumeRecord{
		PersonalInfo:   NewEmptySection(),
		WorkExperience: NewEmptySection(),
		Education:      NewEmptySection(),
		Skills:         NewEmptySection(),
		Projects:       NewEmptySection(),
	}
}

// Section 按章节名取章节，名称未知时返回 nil
func (r *ResumeRecord) Section(name string) *SectionResult {
	switch name {
	case SectionPersonalInfo:
		return &r.PersonalInfo
	case SectionWorkExperience:
		return &r.WorkExperience
	case SectionEducation:
		return &r.Education
	case SectionSkills:
		return &r.Skills
	case SectionProjects:
		return &r.Projects
	}
	return nil
}

// CacheEntry 缓存中保存的内容
type CacheEntry struct {
	Fingerprint string       `json:"fingerprint"`
	Record      ResumeRecord `json:"record"`
	CreatedAt   time.Time    `json:"created_at"`
}
