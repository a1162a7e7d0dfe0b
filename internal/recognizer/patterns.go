package recognizer

import (
	"regexp"
	"sort"
)

const (
	monthPattern = `(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?`
	yearPattern  = `(?:19|20)\d{2}`
	// 单个日期: "Jan 2020" / "January, 2020" / "01/2020" / "2020-01" / "2020"
	datePattern = `(?:` + monthPattern + `,?\s+` + yearPattern +
		`|(?:0?[1-9]|1[0-2])/` + yearPattern +
		`|` + yearPattern + `-(?:0[1-9]|1[0-2])` +
		`|` + yearPattern + `)`
	openEndPattern = `(?:present|current|now|today|ongoing|till date|to date)`
	rangeSep       = `\s*(?:-|–|—|~|to|until)\s*`
)

var (
	dateRangeRe  = regexp.MustCompile(`(?i)\b(` + datePattern + `)` + rangeSep + `(` + datePattern + `|` + openEndPattern + `)\b`)
	singleDateRe = regexp.MustCompile(`(?i)\b` + datePattern + `\b`)
)

// DateSpan 文本中的日期片段
type DateSpan struct {
	Start int
	End   int
	Text  string
	Range bool // 是否为起止区间
}

// FindDates 找出所有日期区间和独立日期，按出现位置排序；区间内部的日期不重复返回
func FindDates(text string) []DateSpan {
	var spans []DateSpan
	covered := func(start, end int) bool {
		for _, s := range spans {
			if start < s.End && end > s.Start {
				return true
			}
		}
		return false
	}

	for _, loc := range dateRangeRe.FindAllStringIndex(text, -1) {
		spans = append(spans, DateSpan{Start: loc[0], End: loc[1], Text: text[loc[0]:loc[1]], Range: true})
	}
	for _, loc := range singleDateRe.FindAllStringIndex(text, -1) {
		if covered(loc[0], loc[1]) {
			continue
		}
		spans = append(spans, DateSpan{Start: loc[0], End: loc[1], Text: text[loc[0]:loc[1]]})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	return spans
}

// SplitDateRange 把区间文本拆成起止两部分；不是区间时 ok 为 false
func SplitDateRange(text string) (start, end string, ok bool) {
	m := dateRangeRe.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// IsOpenEnd 结束日期是否表示至今
func IsOpenEnd(s string) bool {
	return openEndRe.MatchString(s)
}

var openEndRe = regexp.MustCompile(`(?i)^\s*` + openEndPattern + `\s*$`)
