package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"resume-parser-go/internal/types"
)

// HeadingMatcher 判断一行文本是否为已知的章节标题
type HeadingMatcher func(text string) bool

// 常见的项目符号
var bulletGlyphs = []string{"•", "●", "▪", "◦", "‣", "∙", "·", "-", "*", "–"}

const (
	maxHeadingRunes = 60
	maxHeadingWords = 6
)

// lineClassifier 给没有样式信息的行推断版式提示
type lineClassifier struct {
	isKnownHeading HeadingMatcher
}

// classify 返回清理后的文本和版式提示。styled 为文档自带的样式提示（DOCX），
// 没有样式时传 types.HintBody。
func (c lineClassifier) classify(raw string, styled types.LayoutHint) (string, types.LayoutHint) {
	text := cleanLine(raw)
	if text == "" {
		return "", types.HintBody
	}
	if stripped, ok := stripBullet(text); ok {
		return stripped, types.HintListItem
	}
	if styled == types.HintHeading || styled == types.HintListItem {
		return text, styled
	}
	if c.looksLikeHeading(text) {
		return text, types.HintHeading
	}
	return text, types.HintBody
}

func (c lineClassifier) looksLikeHeading(text string) bool {
	if utf8.RuneCountInString(text) > maxHeadingRunes || len(strings.Fields(text)) > maxHeadingWords {
		return false
	}
	if strings.ContainsAny(text, "@") {
		return false
	}
	if c.isKnownHeading != nil && c.isKnownHeading(strings.TrimSuffix(text, ":")) {
		return true
	}
	if strings.HasSuffix(text, ":") && len(strings.Fields(text)) <= 4 {
		return true
	}
	return isAllCaps(text)
}

// isAllCaps 至少三个字母且全部为大写，不含数字
func isAllCaps(text string) bool {
	letters := 0
	for _, r := range text {
		switch {
		case unicode.IsDigit(r):
			return false
		case unicode.IsLetter(r):
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters >= 3
}

func stripBullet(text string) (string, bool) {
	for _, g := range bulletGlyphs {
		if !strings.HasPrefix(text, g) {
			continue
		}
		rest := strings.TrimPrefix(text, g)
		// "-" 和 "*" 后面必须跟空白，避免把 "-5%" 之类的内容当成列表
		if (g == "-" || g == "*" || g == "–") && !strings.HasPrefix(rest, " ") && !strings.HasPrefix(rest, "\t") {
			continue
		}
		rest = strings.TrimSpace(rest)
		if rest == "" {
			return "", false
		}
		return rest, true
	}
	return "", false
}

// cleanLine 去掉控制字符和不间断空格，合并连续空白
func cleanLine(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\u00A0' || r == '\t':
			return ' '
		case r == '\uFEFF' || r == '\u200B':
			return -1
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// splitLines 按换行拆分，兼容 \r\n 和 \r
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.Split(s, "\n")
}

// appendBlock 把一段文本按行追加到 lines；连续空行只保留一个
func (c lineClassifier) appendBlock(lines []types.TextLine, block string, styled types.LayoutHint, page int) []types.TextLine {
	for _, raw := range splitLines(block) {
		text, hint := c.classify(raw, styled)
		if text == "" {
			if n := len(lines); n > 0 && lines[n-1].Text == "" {
				continue
			}
			if len(lines) == 0 {
				continue
			}
		}
		lines = append(lines, types.TextLine{Text: text, Hint: hint, Page: page})
	}
	return lines
}

// FromText 把纯文本转换为 NormalizedText，供命令行工具和测试使用
func FromText(text string, matcher HeadingMatcher) types.NormalizedText {
	c := lineClassifier{isKnownHeading: matcher}
	lines := c.appendBlock(nil, text, types.HintBody, 0)
	return types.NormalizedText{Lines: trimTrailingBlank(lines)}
}

func trimTrailingBlank(lines []types.TextLine) []types.TextLine {
	for len(lines) > 0 && lines[len(lines)-1].Blank() {
		lines = lines[:len(lines)-1]
	}
	if lines == nil {
		return []types.TextLine{}
	}
	return lines
}
