package extractor

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/nyaruka/phonenumbers"

	"resume-parser-go/internal/recognizer"
	"resume-parser-go/internal/types"
)

var (
	emailRe    = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9-]+(?:\.[A-Za-z0-9-]+)*\.[A-Za-z]{2,}`)
	phoneRe    = regexp.MustCompile(`\+?\(?\d[\d\s().-]{5,}\d`)
	urlRe      = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s,;|]+`)
	linkedinRe = regexp.MustCompile(`(?i)linkedin\.com/in/[\w-]+`)
	githubRe   = regexp.MustCompile(`(?i)github\.com/[\w-]+`)

	// "City, ST" / "City, State, Country"
	placeWord  = `[A-Z][A-Za-z.'-]*(?:\s[A-Z][A-Za-z.'-]*)*`
	locationRe = regexp.MustCompile(`^` + placeWord + `,\s*` + placeWord + `(?:,\s*` + placeWord + `)?$`)

	contactPartSep = regexp.MustCompile(`\s*[|•·]\s*`)
)

var contactKeywords = []string{"phone", "email", "e-mail", "linkedin", "github", "resume", "curriculum vitae", "mobile", "tel:"}

var summaryHeadings = map[string]bool{
	"summary": true, "professional summary": true, "career summary": true,
	"objective": true, "career objective": true, "about": true, "about me": true,
	"profile": true,
}

const (
	maxNameWords      = 8
	minSummaryLength  = 50
	minPhoneDigits    = 7
	maxPhoneDigits    = 15
	sectionWordsRegex = `(?i)\b(experience|education|skills|projects)\b`
)

var sectionWordsRe = regexp.MustCompile(sectionWordsRegex)

func (e *Extractor) extractPersonal(lines []srcLine) types.Record {
	var (
		rec         types.Record
		nameLine    = -1
		inSummary   bool
		seenContact bool
		summary     *types.ExtractedField
	)
	add := func(f types.ExtractedField) {
		if !f.Empty() && !rec.Has(f.Name) {
			rec.Fields = append(rec.Fields, f)
		}
	}

	for i, l := range lines {
		if l.blank() {
			continue
		}
		if l.Heading || summaryHeadings[normalizeLabel(l.Text)] {
			inSummary = summaryHeadings[normalizeLabel(l.Text)]
			if inSummary && summary == nil {
				if text, at := paragraphAfter(lines, i); text != "" {
					f := types.StringField(types.KeySummary, text, types.MethodRuleBased, at)
					summary = &f
				}
			}
			continue
		}

		email := emailRe.FindString(l.Text)
		phone := findPhone(l.Text)
		if email != "" {
			add(types.StringField(types.KeyEmail, email, types.MethodRuleBased, l.Index))
		}
		if phone != "" {
			add(types.StringField(types.KeyPhone, phone, types.MethodRuleBased, l.Index))
			if e164 := e.normalizePhone(phone); e164 != "" {
				add(types.StringField(types.KeyPhoneE164, e164, types.MethodRuleBased, l.Index))
			}
		}
		if m := linkedinRe.FindString(l.Text); m != "" {
			add(types.StringField(types.KeyLinkedIn, "https://"+m, types.MethodRuleBased, l.Index))
		}
		if m := githubRe.FindString(l.Text); m != "" {
			add(types.StringField(types.KeyGitHub, "https://"+m, types.MethodRuleBased, l.Index))
		}
		for _, u := range urlRe.FindAllString(l.Text, -1) {
			lower := strings.ToLower(u)
			if strings.Contains(lower, "linkedin.com") || strings.Contains(lower, "github.com") {
				continue
			}
			add(types.StringField(types.KeyPortfolio, strings.TrimRight(u, ".)"), types.MethodRuleBased, l.Index))
			break
		}
		loc := findLocation(l.Text)
		if loc != "" {
			add(types.StringField(types.KeyLocation, loc, types.MethodRuleBased, l.Index))
		}

		contact := email != "" || phone != "" || urlRe.MatchString(l.Text) || hasContactKeyword(l.Text)
		if contact {
			seenContact = true
			continue
		}

		if nameLine < 0 && !inSummary {
			if name := nameFromLine(l.Text); name != "" && name != loc {
				nameLine = l.Index
				add(types.StringField(types.KeyName, name, types.MethodRuleBased, l.Index))
				if words := strings.Fields(name); len(words) >= 2 && len(words) <= 4 && allCapitalized(words) {
					add(types.StringField(types.KeyFirstName, words[0], types.MethodRuleBased, l.Index))
					add(types.StringField(types.KeyLastName, words[len(words)-1], types.MethodRuleBased, l.Index))
				}
				continue
			}
		}

		// 没有摘要标题时，联系方式之后第一条足够长的句子视为摘要
		if summary == nil && seenContact && l.Index != nameLine &&
			len(l.Text) >= minSummaryLength && !sectionWordsRe.MatchString(l.Text) {
			f := types.StringField(types.KeySummary, l.Text, types.MethodRuleBased, l.Index)
			summary = &f
		}
	}
	if summary != nil {
		add(*summary)
	}
	return rec
}

// normalizePhone 解析为 E.164，无法解析时返回空串
func (e *Extractor) normalizePhone(phone string) string {
	num, err := phonenumbers.Parse(phone, e.defaultRegion)
	if err != nil || !phonenumbers.IsPossibleNumber(num) {
		return ""
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

// findPhone 7 到 15 位数字的串，日期区间不算
func findPhone(text string) string {
	dates := recognizer.FindDates(text)
	for _, loc := range phoneRe.FindAllStringIndex(text, -1) {
		cand := strings.TrimSpace(text[loc[0]:loc[1]])
		digits := 0
		for _, r := range cand {
			if unicode.IsDigit(r) {
				digits++
			}
		}
		if digits < minPhoneDigits || digits > maxPhoneDigits {
			continue
		}
		overlapsDate := false
		for _, d := range dates {
			if loc[0] < d.End && loc[1] > d.Start {
				overlapsDate = true
				break
			}
		}
		if !overlapsDate {
			return cand
		}
	}
	return ""
}

func findLocation(text string) string {
	for _, part := range contactPartSep.Split(text, -1) {
		part = strings.TrimSpace(part)
		if part == "" || strings.ContainsAny(part, "@0123456789") {
			continue
		}
		if locationRe.MatchString(part) && len(strings.Fields(part)) <= 6 {
			return part
		}
	}
	return ""
}

// nameFromLine 取 "Jane Doe | Software Engineer" 中竖线之前的部分
func nameFromLine(text string) string {
	name := strings.TrimSpace(contactPartSep.Split(text, 2)[0])
	if name == "" || len(strings.Fields(name)) > maxNameWords {
		return ""
	}
	for _, r := range name {
		if unicode.IsLetter(r) {
			return name
		}
	}
	return ""
}

func hasContactKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range contactKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func allCapitalized(words []string) bool {
	for _, w := range words {
		r := []rune(w)
		if len(r) == 0 || !unicode.IsUpper(r[0]) {
			return false
		}
	}
	return true
}

// paragraphAfter 标题之后的第一段（连续非空行），返回文本和首行下标
func paragraphAfter(lines []srcLine, heading int) (string, int) {
	var parts []string
	first := -1
	for _, l := range lines[heading+1:] {
		if l.Heading {
			break
		}
		if l.blank() {
			if len(parts) > 0 {
				break
			}
			continue
		}
		if first < 0 {
			first = l.Index
		}
		parts = append(parts, l.Text)
	}
	return strings.Join(parts, " "), first
}

func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), ":")))
	return strings.Join(strings.Fields(s), " ")
}
