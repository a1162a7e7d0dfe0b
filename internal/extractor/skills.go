package extractor

import (
	"regexp"
	"sort"
	"strings"

	"resume-parser-go/internal/types"
)

// SkillCategory 技能分类
type SkillCategory string

const (
	CategoryProgrammingLanguages SkillCategory = "programming_languages"
	CategoryFrameworks           SkillCategory = "frameworks"
	CategoryTools                SkillCategory = "tools"
	CategoryDatabases            SkillCategory = "databases"
	CategorySoftSkills           SkillCategory = "soft_skills"
)

// skillTaxonomy 技能词表，取值均为规范名
var skillTaxonomy = map[SkillCategory][]string{
	CategoryProgrammingLanguages: {
		"python", "java", "javascript", "c++", "c#", "go", "rust", "swift",
		"kotlin", "typescript", "php", "ruby", "sql", "r", "matlab", "html", "css",
	},
	CategoryFrameworks: {
		"react", "angular", "vue", "django", "flask", "fastapi", "spring",
		"node.js", "express", "laravel", "ruby on rails", "tensorflow",
		"pytorch", "keras", "scikit-learn", "pandas", "numpy",
	},
	CategoryTools: {
		"docker", "kubernetes", "aws", "azure", "gcp", "git", "jenkins",
		"linux", "unix", "windows", "macos", "jira", "confluence",
	},
	CategoryDatabases: {
		"mysql", "postgresql", "mongodb", "redis", "sqlite", "oracle",
		"cassandra", "elasticsearch",
	},
	CategorySoftSkills: {
		"leadership", "communication", "teamwork", "problem solving",
		"critical thinking", "time management", "adaptability", "creativity",
		"collaboration", "presentation", "negotiation",
	},
}

// skillAliases 常见别名到规范名
var skillAliases = map[string]string{
	"js":                  "javascript",
	"es6":                 "javascript",
	"py":                  "python",
	"node":                "node.js",
	"nodejs":              "node.js",
	"cpp":                 "c++",
	"csharp":              "c#",
	"reactjs":             "react",
	"react.js":            "react",
	"amazon web services": "aws",
	"expressjs":           "express",
	"express.js":          "express",
	"golang":              "go",
	"postgres":            "postgresql",
	"k8s":                 "kubernetes",
	"vue.js":              "vue",
	"vuejs":               "vue",
	"ts":                  "typescript",
	"rails":               "ruby on rails",
	"sklearn":             "scikit-learn",
	"mongo":               "mongodb",
	"google cloud":        "gcp",
}

var skillStopwords = map[string]bool{
	"and": true, "or": true, "etc": true, "the": true, "with": true, "in": true,
	"of": true, "including": true, "other": true, "various": true, "skills": true,
	"proficient": true, "familiar": true, "knowledge": true, "experience": true,
	"tools": true, "languages": true, "frameworks": true, "technologies": true,
}

var (
	skillSplitRe = regexp.MustCompile(`[,;|•·▪●◦\n\t]+|\s+/\s+`)

	// 规范名 → 分类
	skillIndex = buildSkillIndex()
	// 按长度倒序的软技能，用于在短语中查找
	softSkillsByLen = sortedByLen(skillTaxonomy[CategorySoftSkills])
	// 项目描述中查找技术词时使用
	techTermPatterns = buildTechPatterns()
)

func buildSkillIndex() map[string]SkillCategory {
	idx := make(map[string]SkillCategory)
	for cat, skills := range skillTaxonomy {
		for _, s := range skills {
			idx[s] = cat
		}
	}
	return idx
}

func sortedByLen(items []string) []string {
	out := append([]string(nil), items...)
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

type techPattern struct {
	canonical string
	re        *regexp.Regexp
}

func buildTechPatterns() []techPattern {
	terms := make(map[string]string)
	for cat, skills := range skillTaxonomy {
		if cat == CategorySoftSkills {
			continue
		}
		for _, s := range skills {
			// "r" / "go" 在正文里误报太多，只在技能列表中识别
			if len(s) > 2 || strings.ContainsAny(s, "+#.") {
				terms[s] = s
			}
		}
	}
	for alias, canonical := range skillAliases {
		if len(alias) > 2 {
			terms[alias] = canonical
		}
	}

	keys := make([]string, 0, len(terms))
	for k := range terms {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]techPattern, 0, len(keys))
	for _, k := range keys {
		// 允许 c++ / c# / node.js 这类以符号结尾的词
		re := regexp.MustCompile(`(?i)(?:^|[^\w.+#])` + regexp.QuoteMeta(k) + `(?:$|[^\w+#])`)
		out = append(out, techPattern{canonical: terms[k], re: re})
	}
	return out
}

// CanonicalSkill 返回规范名与分类；未知技能返回原样与空分类
func CanonicalSkill(token string) (string, SkillCategory) {
	key := strings.ToLower(strings.TrimSpace(token))
	key = strings.Join(strings.Fields(key), " ")
	if alias, ok := skillAliases[key]; ok {
		key = alias
	}
	if cat, ok := skillIndex[key]; ok {
		return key, cat
	}
	for _, soft := range softSkillsByLen {
		if containsPhrase(key, soft) {
			return soft, CategorySoftSkills
		}
	}
	return strings.TrimSpace(token), ""
}

// TokenizeSkills 按逗号、分号、竖线、项目符号和换行切分技能列表
func TokenizeSkills(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = stripLabel(line)
		for _, tok := range skillSplitRe.Split(line, -1) {
			tok = strings.TrimSpace(strings.Trim(tok, " .:-–()[]"))
			tok = strings.TrimPrefix(tok, "and ")
			if len([]rune(tok)) < 2 {
				continue
			}
			if skillStopwords[strings.ToLower(tok)] {
				continue
			}
			out = append(out, tok)
		}
	}
	return out
}

// stripLabel 去掉 "Languages: Go, Python" 这种行首的分类标签
func stripLabel(line string) string {
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return line
	}
	if len(strings.Fields(line[:idx])) > 3 {
		return line
	}
	return line[idx+1:]
}

// TechTerms 在自由文本中查找技术词表里的词，返回规范名（去重，按首次出现排序）
func TechTerms(text string) []string {
	type hit struct {
		name string
		pos  int
	}
	seen := make(map[string]int)
	for _, p := range techTermPatterns {
		loc := p.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if prev, ok := seen[p.canonical]; !ok || loc[0] < prev {
			seen[p.canonical] = loc[0]
		}
	}
	hits := make([]hit, 0, len(seen))
	for name, pos := range seen {
		hits = append(hits, hit{name, pos})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].pos != hits[j].pos {
			return hits[i].pos < hits[j].pos
		}
		return hits[i].name < hits[j].name
	})
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.name)
	}
	return out
}

func containsPhrase(s, phrase string) bool {
	return strings.Contains(" "+s+" ", " "+phrase+" ")
}

func (e *Extractor) extractSkills(lines []srcLine) types.Record {
	var (
		rec        types.Record
		first      = -1
		skills     []string
		technical  []string
		soft       []string
		seen       = map[string]bool{}
		contentBuf strings.Builder
	)
	for _, l := range lines {
		if l.Heading || l.blank() {
			continue
		}
		if first < 0 {
			first = l.Index
		}
		contentBuf.WriteString(l.Text)
		contentBuf.WriteByte('\n')
	}
	for _, tok := range TokenizeSkills(contentBuf.String()) {
		name, cat := CanonicalSkill(tok)
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		skills = append(skills, name)
		if cat == CategorySoftSkills {
			soft = append(soft, name)
		} else {
			technical = append(technical, name)
		}
	}
	if len(skills) == 0 {
		return rec
	}
	rec.Fields = append(rec.Fields, types.ListField(types.KeySkills, skills, types.MethodRuleBased, first))
	if len(technical) > 0 {
		rec.Fields = append(rec.Fields, types.ListField(types.KeyTechnical, technical, types.MethodRuleBased, first))
	}
	if len(soft) > 0 {
		rec.Fields = append(rec.Fields, types.ListField(types.KeySoft, soft, types.MethodRuleBased, first))
	}
	return rec
}
