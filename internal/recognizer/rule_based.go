package recognizer

import (
	"context"
	"regexp"
	"strings"
	"unicode"
)

var (
	orgSuffixRe = regexp.MustCompile(`(?i)\b(inc|corp|corporation|company|llc|llp|ltd|limited|plc|gmbh|group|holdings|technologies|labs|systems|solutions|consulting|partners|bank|agency|studios|foundation|university|college|institute|school|academy|polytechnic|hospital|ministry)\b\.?`)
	titleRe     = regexp.MustCompile(`(?i)\b(engineer|developer|programmer|manager|analyst|intern|designer|consultant|scientist|lead|director|architect|specialist|administrator|officer|assistant|associate|coordinator|researcher|technician|head|vp|president|founder|co-founder|cto|ceo|cfo|owner|teacher|tutor|editor|writer|accountant|advisor|representative|executive)s?\b`)

	// 缩写学位（B.S. / MSc / BE）区分大小写
	degreeRe = regexp.MustCompile(`(?i:\b(?:bachelor|master|doctorate|diploma)s?\b|\bph\.?\s?d\b|\bmba\b|\bhigh school\b)|\b[BM]\.?\s?(?:S|A|Sc|E|Eng|Tech|Com|Phil|Des)\b\.?`)

	// "Title at Company" / "Title @ Company"
	atSplitRe = regexp.MustCompile(`(?i)\s+(?:at|@)\s+`)

	// 行内字段分隔符，破折号两侧必须有空格
	fieldSepRe = regexp.MustCompile(`\s*[,|;\t]\s*|\s+[-–—]\s+`)
)

// RuleBasedRecognizer 基于词表和版式规律的实体识别器，没有外部依赖
type RuleBasedRecognizer struct{}

// NewRuleBasedRecognizer 创建规则识别器
func NewRuleBasedRecognizer() *RuleBasedRecognizer {
	return &RuleBasedRecognizer{}
}

// Recognize 逐行识别。每行先取出日期，再按分隔符切分剩余部分，
// 根据机构后缀、学位词和职位词给片段打标签。
func (r *RuleBasedRecognizer) Recognize(_ context.Context, text string) ([]Entity, error) {
	var entities []Entity
	offset := 0
	for _, line := range strings.Split(text, "\n") {
		entities = append(entities, recognizeLine(line, offset)...)
		offset += len(line) + 1
	}
	return entities, nil
}

type piece struct {
	text  string
	start int
	label EntityType
	after bool // 位于 " at " 之后
}

func recognizeLine(line string, offset int) []Entity {
	if strings.TrimSpace(line) == "" {
		return nil
	}

	var entities []Entity
	dates := FindDates(line)
	masked := []byte(line)
	for _, d := range dates {
		entities = append(entities, Entity{Text: d.Text, Type: EntityDate, Position: offset + d.Start})
		for i := d.Start; i < d.End; i++ {
			masked[i] = ','
		}
	}
	// 去掉日期两侧的括号
	for i, b := range masked {
		if b == '(' || b == ')' || b == '[' || b == ']' {
			masked[i] = ','
		}
	}

	pieces := splitPieces(string(masked))
	labelPieces(pieces)

	hasAnchor := len(dates) > 0
	hasOrg := false
	for _, p := range pieces {
		if p.label != "" {
			hasAnchor = true
		}
		if p.label == EntityOrg {
			hasOrg = true
		}
	}
	// 没有机构后缀时，带锚点（日期、职位、学位）的行里第一个首字母大写的无标签片段视为机构
	if !hasOrg && hasAnchor {
		for i := range pieces {
			if pieces[i].label == "" && startsUpper(pieces[i].text) {
				pieces[i].label = EntityOrg
				break
			}
		}
	}

	for _, p := range pieces {
		if p.label == "" {
			continue
		}
		entities = append(entities, Entity{Text: p.text, Type: p.label, Position: offset + p.start})
	}
	sortEntities(entities)
	return entities
}

// splitPieces 按字段分隔符和 " at " 切分，记录每个片段的起始偏移
func splitPieces(s string) []piece {
	var out []piece
	add := func(seg string, base int, after bool) {
		trimmed := strings.TrimSpace(seg)
		trimmed = strings.Trim(trimmed, ",.:;-–— ")
		if len([]rune(trimmed)) < 2 {
			return
		}
		idx := strings.Index(seg, trimmed)
		out = append(out, piece{text: trimmed, start: base + idx, after: after})
	}

	fieldStart := 0
	emitField := func(field string, base int) {
		locs := atSplitRe.FindAllStringIndex(field, -1)
		prev := 0
		for i, loc := range locs {
			add(field[prev:loc[0]], base+prev, i > 0)
			prev = loc[1]
		}
		add(field[prev:], base+prev, len(locs) > 0)
	}
	for _, loc := range fieldSepRe.FindAllStringIndex(s, -1) {
		emitField(s[fieldStart:loc[0]], fieldStart)
		fieldStart = loc[1]
	}
	emitField(s[fieldStart:], fieldStart)
	return out
}

func labelPieces(pieces []piece) {
	for i := range pieces {
		p := &pieces[i]
		switch {
		case degreeRe.MatchString(p.text) && !orgSuffixRe.MatchString(p.text):
			p.label = EntityDegree
		case orgSuffixRe.MatchString(p.text):
			p.label = EntityOrg
		case p.after:
			p.label = EntityOrg
		case titleRe.MatchString(p.text):
			p.label = EntityTitle
		}
	}
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r) || unicode.IsDigit(r)
	}
	return false
}

func sortEntities(es []Entity) {
	for i := 1; i < len(es); i++ {
		for j := i; j > 0 && es[j].Position < es[j-1].Position; j-- {
			es[j], es[j-1] = es[j-1], es[j]
		}
	}
}
