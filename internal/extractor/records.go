package extractor

import (
	"context"
	"regexp"
	"strings"

	"resume-parser-go/internal/recognizer"
	"resume-parser-go/internal/types"
)

const maxDescriptionLines = 3

var (
	headerSepRe   = regexp.MustCompile(`\s*[,|;]\s*|\s+[-–—]\s+|\s+(?:at|@)\s+`)
	projectSepRe  = regexp.MustCompile(`\s+[-–—|]\s+|:\s+`)
	emptyParensRe = regexp.MustCompile(`\(\s*\)|\[\s*\]`)

	internRe   = regexp.MustCompile(`(?i)\bintern(?:ship)?s?\b`)
	contractRe = regexp.MustCompile(`(?i)\b(?:freelance|freelancer|contract|contractor|consultant)\b`)
	partTimeRe = regexp.MustCompile(`(?i)\bpart[\s-]?time\b`)

	gradeRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*(?:/\s*\d+(?:\.\d+)?\s*)?c?gpa\b`),
		regexp.MustCompile(`(?i)\bc?gpa\s*[:\-]?\s*\d+(?:\.\d+)?(?:\s*/\s*\d+(?:\.\d+)?)?`),
		regexp.MustCompile(`\b\d{2,3}(?:\.\d+)?\s*%`),
		regexp.MustCompile(`(?i)\bgrade\s*:\s*[A-F][+-]?`),
	}
)

// entityHit 实体及其所在行
type entityHit struct {
	text string
	line srcLine
}

type blockEntities struct {
	b       block
	text    string
	offsets []int
	ents    []recognizer.Entity
}

func (e *Extractor) analyze(ctx context.Context, b block) blockEntities {
	text, offsets := b.text()
	return blockEntities{b: b, text: text, offsets: offsets, ents: e.recognize(ctx, text)}
}

func (be blockEntities) first(t recognizer.EntityType) (entityHit, bool) {
	ent, ok := recognizer.First(be.ents, t)
	if !ok {
		return entityHit{}, false
	}
	return entityHit{text: strings.TrimSpace(ent.Text), line: be.b.lineAt(be.offsets, ent.Position)}, true
}

// dateField 识别器给出的日期优先，否则用日期规则在整块文本中查找
func (be blockEntities) dateField() (types.ExtractedField, bool) {
	if hit, ok := be.first(recognizer.EntityDate); ok {
		if r, ok := ParseDateRange(hit.text); ok {
			return types.RangeField(types.KeyDateRange, r, types.MethodNLPEntity, hit.line.Index), true
		}
	}
	for _, l := range be.b.lines {
		spans := recognizer.FindDates(l.Text)
		if len(spans) == 0 {
			continue
		}
		if r, ok := ParseDateRange(spans[0].Text); ok {
			return types.RangeField(types.KeyDateRange, r, types.MethodFallback, l.Index), true
		}
	}
	return types.ExtractedField{}, false
}

func (e *Extractor) experienceRecord(ctx context.Context, b block) types.Record {
	be := e.analyze(ctx, b)
	header := b.lines[0]
	var rec types.Record
	used := map[int]bool{}

	org, orgOK := be.first(recognizer.EntityOrg)
	if orgOK {
		rec.Fields = append(rec.Fields, types.StringField(types.KeyOrganization, org.text, types.MethodNLPEntity, org.line.Index))
		used[org.line.Index] = true
	} else {
		org = entityHit{text: header.Text, line: header}
		rec.Fields = append(rec.Fields, types.StringField(types.KeyOrganization, header.Text, types.MethodFallback, header.Index))
		used[header.Index] = true
	}

	var role string
	if title, ok := be.first(recognizer.EntityTitle); ok {
		role = title.text
		rec.Fields = append(rec.Fields, types.StringField(types.KeyRole, title.text, types.MethodNLPEntity, title.line.Index))
		used[title.line.Index] = true
	} else if orgOK {
		if piece := headerPiece(header.Text, org.text); piece != "" {
			role = piece
			rec.Fields = append(rec.Fields, types.StringField(types.KeyRole, piece, types.MethodFallback, header.Index))
		}
	}

	if f, ok := be.dateField(); ok {
		rec.Fields = append(rec.Fields, f)
		used[f.SourceLine] = true
	}

	if role != "" {
		rec.Fields = append(rec.Fields, types.StringField(types.KeyEmploymentType, EmploymentType(role+" "+header.Text), types.MethodRuleBased, header.Index))
	}

	if desc, at := descriptionLines(b, used); len(desc) > 0 {
		rec.Fields = append(rec.Fields, types.ListField(types.KeyDescription, desc, types.MethodRuleBased, at))
	}
	return rec
}

func (e *Extractor) educationRecord(ctx context.Context, b block) types.Record {
	be := e.analyze(ctx, b)
	header := b.lines[0]
	var rec types.Record

	if org, ok := be.first(recognizer.EntityOrg); ok {
		rec.Fields = append(rec.Fields, types.StringField(types.KeyInstitution, org.text, types.MethodNLPEntity, org.line.Index))
	} else {
		rec.Fields = append(rec.Fields, types.StringField(types.KeyInstitution, header.Text, types.MethodFallback, header.Index))
	}
	if deg, ok := be.first(recognizer.EntityDegree); ok {
		rec.Fields = append(rec.Fields, types.StringField(types.KeyDegree, deg.text, types.MethodNLPEntity, deg.line.Index))
	}
	if f, ok := be.dateField(); ok {
		rec.Fields = append(rec.Fields, f)
	}
	for _, l := range b.lines {
		if g := findGrade(l.Text); g != "" {
			rec.Fields = append(rec.Fields, types.StringField(types.KeyGrade, g, types.MethodRuleBased, l.Index))
			break
		}
	}
	return rec
}

func (e *Extractor) projectRecord(ctx context.Context, b block) types.Record {
	be := e.analyze(ctx, b)
	header := b.lines[0]
	var rec types.Record

	headerText := strings.TrimSpace(urlRe.ReplaceAllString(header.Text, ""))
	headerText = stripDates(headerText)
	name, rest := headerText, ""
	if loc := projectSepRe.FindStringIndex(headerText); loc != nil {
		name, rest = strings.TrimSpace(headerText[:loc[0]]), strings.TrimSpace(headerText[loc[1]:])
	}
	if name != "" {
		rec.Fields = append(rec.Fields, types.StringField(types.KeyName, name, types.MethodRuleBased, header.Index))
	}

	var descParts []string
	descLine := header.Index
	if rest != "" {
		descParts = append(descParts, rest)
	}
	for _, l := range b.lines[1:] {
		text := stripDates(strings.TrimSpace(urlRe.ReplaceAllString(l.Text, "")))
		if text == "" {
			continue
		}
		if len(descParts) == 0 {
			descLine = l.Index
		}
		descParts = append(descParts, text)
	}
	if len(descParts) > 0 {
		rec.Fields = append(rec.Fields, types.StringField(types.KeyDescription, strings.Join(descParts, " "), types.MethodRuleBased, descLine))
	}

	for _, l := range b.lines {
		if u := urlRe.FindString(l.Text); u != "" {
			rec.Fields = append(rec.Fields, types.StringField(types.KeyURL, strings.TrimRight(u, ".)"), types.MethodRuleBased, l.Index))
			break
		}
	}
	if tech := TechTerms(be.text); len(tech) > 0 {
		rec.Fields = append(rec.Fields, types.ListField(types.KeyTechStack, tech, types.MethodRuleBased, header.Index))
	}
	if f, ok := be.dateField(); ok {
		rec.Fields = append(rec.Fields, f)
	}
	return rec
}

// EmploymentType 根据职位描述推断雇佣类型
func EmploymentType(text string) string {
	switch {
	case internRe.MatchString(text):
		return "internship"
	case contractRe.MatchString(text):
		return "contract"
	case partTimeRe.MatchString(text):
		return "part-time"
	}
	return "full-time"
}

// headerPiece 表头行中除机构和日期之外的第一个片段
func headerPiece(header, org string) string {
	for _, p := range headerSepRe.Split(stripDates(header), -1) {
		p = strings.TrimSpace(strings.Trim(p, "()[] "))
		if p == "" || strings.EqualFold(p, org) || !hasLetter(p) {
			continue
		}
		return p
	}
	return ""
}

// descriptionLines 表头之后未被字段占用的行，最多三行
func descriptionLines(b block, used map[int]bool) ([]string, int) {
	var out []string
	at := -1
	for _, l := range b.lines[1:] {
		if used[l.Index] {
			continue
		}
		if at < 0 {
			at = l.Index
		}
		out = append(out, l.Text)
		if len(out) == maxDescriptionLines {
			break
		}
	}
	return out, at
}

func findGrade(text string) string {
	for _, re := range gradeRes {
		if m := re.FindString(text); m != "" {
			return strings.TrimSpace(m)
		}
	}
	return ""
}

func stripDates(text string) string {
	spans := recognizer.FindDates(text)
	for i := len(spans) - 1; i >= 0; i-- {
		text = text[:spans[i].Start] + text[spans[i].End:]
	}
	text = emptyParensRe.ReplaceAllString(text, "")
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(text), ",;|-–—"))
}

func hasLetter(s string) bool {
	for _, r := range s {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || r > 127 {
			return true
		}
	}
	return false
}
