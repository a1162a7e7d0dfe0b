package extractor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"

	"resume-parser-go/internal/recognizer"
	"resume-parser-go/internal/types"
)

const presentLabel = "Present"

var (
	monthYearRe = regexp.MustCompile(`(?i)^([a-z]{3,9})\.?,?\s+((?:19|20)\d{2})$`)
	mmYYYYRe    = regexp.MustCompile(`^(\d{1,2})[/.-]((?:19|20)\d{2})$`)
	yyyyMMRe    = regexp.MustCompile(`^((?:19|20)\d{2})[/-](\d{1,2})$`)
	yearOnlyRe  = regexp.MustCompile(`^((?:19|20)\d{2})$`)
)

var monthNumbers = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// NormalizeDate 把单个日期转换为 MM/YYYY；Present/Current 等返回 "Present"
func NormalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(strings.Trim(s, "()[],"))
	if s == "" {
		return "", false
	}
	if recognizer.IsOpenEnd(s) {
		return presentLabel, true
	}

	if m := monthYearRe.FindStringSubmatch(s); m != nil {
		if month, ok := monthNumbers[strings.ToLower(m[1])[:3]]; ok {
			return fmt.Sprintf("%02d/%s", month, m[2]), true
		}
	}
	if m := mmYYYYRe.FindStringSubmatch(s); m != nil {
		if month, _ := strconv.Atoi(m[1]); month >= 1 && month <= 12 {
			return fmt.Sprintf("%02d/%s", month, m[2]), true
		}
	}
	if m := yyyyMMRe.FindStringSubmatch(s); m != nil {
		if month, _ := strconv.Atoi(m[2]); month >= 1 && month <= 12 {
			return fmt.Sprintf("%02d/%s", month, m[1]), true
		}
	}
	if m := yearOnlyRe.FindStringSubmatch(s); m != nil {
		return "01/" + m[1], true
	}

	// 其余写法交给 dateparse，例如 "2020-03-15"、"March 5, 2021"
	t, err := dateparse.ParseAny(s)
	if err != nil || t.Year() < 1900 || t.Year() > 2100 {
		return "", false
	}
	return t.Format("01/2006"), true
}

// ParseDateRange 解析日期区间；只有一个日期时作为起始日期
func ParseDateRange(raw string) (types.DateRange, bool) {
	raw = strings.TrimSpace(raw)
	out := types.DateRange{Raw: raw}

	if start, end, ok := recognizer.SplitDateRange(raw); ok {
		s, okStart := NormalizeDate(start)
		e, okEnd := NormalizeDate(end)
		if !okStart && !okEnd {
			return out, false
		}
		out.Start = s
		out.End = e
		out.Open = e == presentLabel
		return out, true
	}

	spans := recognizer.FindDates(raw)
	if len(spans) == 0 {
		if s, ok := NormalizeDate(raw); ok && s != presentLabel {
			out.Start = s
			return out, true
		}
		return out, false
	}
	s, ok := NormalizeDate(spans[0].Text)
	if !ok || s == presentLabel {
		return out, false
	}
	out.Start = s
	return out, true
}
