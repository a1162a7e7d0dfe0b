package segmenter

import (
	"strings"
	"unicode"

	"resume-parser-go/internal/types"
)

// sectionKeywords 章节标题同义词词典（均为规范化后的小写形式）
var sectionKeywords = map[types.SectionKind][]string{
	types.KindPersonal: {
		"contact", "contact information", "contact details", "personal information",
		"personal details", "personal info", "profile", "summary", "professional summary",
		"career summary", "about", "about me", "objective", "career objective",
	},
	types.KindExperience: {
		"experience", "work experience", "professional experience", "employment",
		"employment history", "work history", "career history", "relevant experience",
		"professional background", "internship", "internships", "internship experience",
		"work",
	},
	types.KindEducation: {
		"education", "academic background", "educational background", "academic history",
		"academics", "qualifications", "academic qualifications", "education and training",
	},
	types.KindSkills: {
		"skills", "skill", "technical skills", "core skills", "key skills", "skill set",
		"skills and tools", "core competencies", "competencies", "technologies",
		"tech stack", "technical expertise", "expertise", "tools and technologies",
		"programming languages",
	},
	types.KindProjects: {
		"projects", "project", "personal projects", "academic projects", "key projects",
		"side projects", "selected projects", "project experience", "portfolio",
	},
	// 已知但不在输出范围内的章节，命中后进入 Unclassified
	types.KindUnclassified: {
		"certifications", "certification", "certificates", "awards", "honors",
		"honors and awards", "achievements", "publications", "references", "interests",
		"hobbies", "volunteer", "volunteering", "volunteer experience", "activities",
		"extracurricular activities", "languages", "courses", "training",
	},
}

// kindPriority 匹配长度相同时的优先级，数值越小越优先
var kindPriority = map[types.SectionKind]int{
	types.KindExperience:   0,
	types.KindEducation:    1,
	types.KindSkills:       2,
	types.KindProjects:     3,
	types.KindPersonal:     4,
	types.KindUnclassified: 5,
}

// Match 一次标题匹配的结果
type Match struct {
	Kind    types.SectionKind
	Keyword string
	Exact   bool
}

// normalizeHeading 小写化，& 替换为 and，去掉标点并合并空白
func normalizeHeading(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "&", " and ")
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// fieldSeparators 出现在 "公司 - 职位"、"学校, 学位" 这类记录首行中的分隔符
var fieldSeparators = []string{" - ", " – ", " — ", ",", "|", " at ", "@"}

// hasFieldSeparator 全大写的记录首行也会被标成标题，带分隔符的行不做部分匹配
func hasFieldSeparator(text string) bool {
	lower := strings.ToLower(text)
	for _, sep := range fieldSeparators {
		if strings.Contains(lower, sep) {
			return true
		}
	}
	return false
}

// containsWords 关键词作为完整的词序列出现在标题中
func containsWords(heading, keyword string) bool {
	return strings.Contains(" "+heading+" ", " "+keyword+" ")
}

// MatchHeading 在词典中查找标题。规则：完全相等优先于部分包含；
// 都是部分包含时取更长的关键词；长度也相同时按 Experience > Education >
// Skills > Projects > Personal 的优先级。带字段分隔符的行只接受完全相等。
func MatchHeading(text string) (Match, bool) {
	heading := normalizeHeading(text)
	if heading == "" {
		return Match{}, false
	}
	partialAllowed := !hasFieldSeparator(text)

	var (
		best  Match
		found bool
	)
	for kind, keywords := range sectionKeywords {
		for _, kw := range keywords {
			exact := heading == kw
			if !exact && (!partialAllowed || !containsWords(heading, kw)) {
				continue
			}
			cand := Match{Kind: kind, Keyword: kw, Exact: exact}
			if !found || better(cand, best) {
				best = cand
				found = true
			}
		}
	}
	return best, found
}

func better(a, b Match) bool {
	if a.Exact != b.Exact {
		return a.Exact
	}
	if len(a.Keyword) != len(b.Keyword) {
		return len(a.Keyword) > len(b.Keyword)
	}
	if kindPriority[a.Kind] != kindPriority[b.Kind] {
		return kindPriority[a.Kind] < kindPriority[b.Kind]
	}
	return a.Keyword < b.Keyword
}

// IsKnownHeading 标题与词典中的某个关键词完全一致，供加载器识别无样式标题
func IsKnownHeading(text string) bool {
	m, ok := MatchHeading(text)
	return ok && m.Exact
}
