// Package extractor 从已切分的章节中抽取结构化字段
package extractor

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"resume-parser-go/internal/logger"
	"resume-parser-go/internal/recognizer"
	"resume-parser-go/internal/types"
)

// Result 一个章节的抽取结果。Attempted 包含因没有任何字段而被丢弃的记录，
// 计算完整度时作为分母。
type Result struct {
	Records   []types.Record
	Attempted int
}

// Dropped 被丢弃的空记录数
func (r Result) Dropped() int {
	return r.Attempted - len(r.Records)
}

// Extractor 字段抽取器，无内部可变状态，可并发使用
type Extractor struct {
	recognizer     recognizer.EntityRecognizer
	defaultRegion  string
	logger         *zerolog.Logger
	onRecognizeErr func(error)
}

// Option 抽取器选项
type Option func(*Extractor)

// WithRecognizer 替换实体识别策略
func WithRecognizer(r recognizer.EntityRecognizer) Option {
	return func(e *Extractor) {
		if r != nil {
			e.recognizer = r
		}
	}
}

// WithDefaultRegion 解析不带国家码的电话号码时使用的地区，默认 US
func WithDefaultRegion(region string) Option {
	return func(e *Extractor) {
		if region != "" {
			e.defaultRegion = strings.ToUpper(region)
		}
	}
}

// WithLogger 设置日志记录器
func WithLogger(l *zerolog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRecognizerErrorHook 实体识别失败时回调，用于统计
func WithRecognizerErrorHook(fn func(error)) Option {
	return func(e *Extractor) {
		e.onRecognizeErr = fn
	}
}

// New 创建抽取器，默认使用规则识别器
func New(opts ...Option) *Extractor {
	e := &Extractor{
		recognizer:    recognizer.NewRuleBasedRecognizer(),
		defaultRegion: "US",
		logger:        logger.Component("extractor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract 抽取单个 Segment
func (e *Extractor) Extract(ctx context.Context, seg types.Segment) Result {
	return e.ExtractSection(ctx, seg.Kind, []types.Segment{seg})
}

// ExtractSection 抽取同一类型的多个 Segment。个人信息和技能合并为一条记录，
// 其余类型按记录块逐条抽取。
func (e *Extractor) ExtractSection(ctx context.Context, kind types.SectionKind, segs []types.Segment) Result {
	lines := collectLines(segs)
	switch kind {
	case types.KindPersonal:
		return single(e.extractPersonal(lines))
	case types.KindSkills:
		return single(e.extractSkills(lines))
	case types.KindExperience:
		return e.extractBlocks(ctx, lines, e.experienceRecord)
	case types.KindEducation:
		return e.extractBlocks(ctx, lines, e.educationRecord)
	case types.KindProjects:
		return e.extractBlocks(ctx, lines, e.projectRecord)
	}
	return Result{}
}

func single(rec types.Record) Result {
	res := Result{Attempted: 1}
	if len(rec.Fields) > 0 {
		res.Records = append(res.Records, rec)
	}
	return res
}

type recordFunc func(ctx context.Context, b block) types.Record

func (e *Extractor) extractBlocks(ctx context.Context, lines []srcLine, fn recordFunc) Result {
	var res Result
	for _, b := range splitBlocks(lines) {
		res.Attempted++
		rec := fn(ctx, b)
		if len(rec.Fields) == 0 {
			e.logger.Debug().Int("line", b.lines[0].Index).Msg("记录没有可用字段，丢弃")
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res
}

// recognize 识别失败时记录日志并返回空结果，由调用方走启发式回退
func (e *Extractor) recognize(ctx context.Context, text string) []recognizer.Entity {
	ents, err := e.recognizer.Recognize(ctx, text)
	if err != nil {
		e.logger.Warn().Err(err).Msg("实体识别失败，使用启发式回退")
		if e.onRecognizeErr != nil {
			e.onRecognizeErr(err)
		}
		return nil
	}
	return ents
}

// srcLine 带原始下标的行
type srcLine struct {
	Text    string
	Hint    types.LayoutHint
	Index   int  // NormalizedText 中的下标
	Heading bool // Segment 的标题行
}

func (l srcLine) blank() bool {
	return l.Hint == types.HintPageBreak || strings.TrimSpace(l.Text) == ""
}

func collectLines(segs []types.Segment) []srcLine {
	var out []srcLine
	for _, seg := range segs {
		for i, l := range seg.Lines {
			out = append(out, srcLine{
				Text:    strings.TrimSpace(l.Text),
				Hint:    l.Hint,
				Index:   seg.Start + i,
				Heading: i == 0 && seg.Heading != "",
			})
		}
		// 不同 Segment 之间视为空行，避免记录跨段
		out = append(out, srcLine{Hint: types.HintPageBreak, Index: -1})
	}
	return out
}

// block 一条候选记录的连续行
type block struct {
	lines []srcLine
}

// text 以换行拼接，同时返回每行在拼接结果中的起始偏移
func (b block) text() (string, []int) {
	var sb strings.Builder
	offsets := make([]int, len(b.lines))
	for i, l := range b.lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		offsets[i] = sb.Len()
		sb.WriteString(l.Text)
	}
	return sb.String(), offsets
}

// lineAt 拼接文本中的偏移对应的行
func (b block) lineAt(offsets []int, pos int) srcLine {
	idx := 0
	for i, off := range offsets {
		if off <= pos {
			idx = i
		}
	}
	return b.lines[idx]
}

// splitBlocks 在空行处切分；当前记录已有日期区间时，遇到另一条带日期区间的非列表行也切分。
// 描述里单独出现的年份不会开启新记录。
func splitBlocks(lines []srcLine) []block {
	var (
		blocks   []block
		cur      []srcLine
		curRange bool
	)
	flush := func() {
		if len(cur) > 0 {
			blocks = append(blocks, block{lines: cur})
		}
		cur = nil
		curRange = false
	}
	for _, l := range lines {
		if l.Heading {
			continue
		}
		if l.blank() {
			flush()
			continue
		}
		hasRange := carriesDateRange(l.Text)
		if hasRange && curRange && l.Hint != types.HintListItem {
			flush()
		}
		cur = append(cur, l)
		if hasRange {
			curRange = true
		}
	}
	flush()
	return blocks
}

func carriesDateRange(text string) bool {
	for _, d := range recognizer.FindDates(text) {
		if d.Range {
			return true
		}
	}
	return false
}
