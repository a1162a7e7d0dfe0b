package parser

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"resume-parser-go/internal/logger"
	"resume-parser-go/internal/types"
)

// Loader 把 PDF/DOCX 字节转换为带版式提示的线性文本
type Loader struct {
	pdf        PDFPageExtractor
	classifier lineClassifier
	logger     *zerolog.Logger
}

// LoaderOption 加载器配置选项
type LoaderOption func(*Loader)

// WithPDFExtractor 替换 PDF 提取实现
func WithPDFExtractor(extractor PDFPageExtractor) LoaderOption {
	return func(l *Loader) {
		l.pdf = extractor
	}
}

// WithHeadingMatcher 设置已知标题判断函数，用于识别没有样式的标题行
func WithHeadingMatcher(m HeadingMatcher) LoaderOption {
	return func(l *Loader) {
		l.classifier.isKnownHeading = m
	}
}

// WithLoaderLogger 设置日志记录器
func WithLoaderLogger(lg *zerolog.Logger) LoaderOption {
	return func(l *Loader) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// NewLoader 创建加载器；未指定 PDF 提取器时使用 Eino 实现
func NewLoader(ctx context.Context, opts ...LoaderOption) (*Loader, error) {
	l := &Loader{logger: logger.Component("loader")}
	for _, opt := range opts {
		opt(l)
	}
	if l.pdf == nil {
		extractor, err := NewEinoPDFTextExtractor(ctx, WithEinoLogger(l.logger))
		if err != nil {
			return nil, err
		}
		l.pdf = extractor
	}
	return l, nil
}

// Load 按声明格式加载文档。空内容或全空白内容返回空文本而不是错误。
func (l *Loader) Load(ctx context.Context, doc types.RawDocument) (types.NormalizedText, error) {
	if !doc.Format.Supported() {
		return types.NormalizedText{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(doc.Format))
	}
	if len(bytes.TrimSpace(doc.Data)) == 0 {
		return types.NormalizedText{Lines: []types.TextLine{}}, nil
	}

	switch doc.Format {
	case types.FormatPDF:
		return l.loadPDF(ctx, doc.Data)
	default:
		return l.loadDOCX(doc.Data)
	}
}

func (l *Loader) loadPDF(ctx context.Context, data []byte) (types.NormalizedText, error) {
	pages, err := l.pdf.ExtractPages(ctx, data, "memory://resume.pdf")
	if err != nil {
		return types.NormalizedText{}, err
	}

	out := types.NormalizedText{Pages: len(pages)}
	var lines []types.TextLine
	for i, page := range pages {
		pageNum := i + 1
		if i > 0 {
			lines = append(lines, types.TextLine{Hint: types.HintPageBreak, Page: pageNum})
		}
		if strings.TrimSpace(page) == "" {
			out.EmptyPages++
			l.logger.Warn().Int("page", pageNum).Msg("PDF页面没有可提取的文本")
			continue
		}
		lines = l.classifier.appendBlock(lines, page, types.HintBody, pageNum)
	}
	out.Lines = trimTrailingBlank(lines)
	return out, nil
}

func (l *Loader) loadDOCX(data []byte) (types.NormalizedText, error) {
	paragraphs, err := ExtractDocxParagraphs(data)
	if err != nil {
		return types.NormalizedText{}, err
	}

	var lines []types.TextLine
	for _, p := range paragraphs {
		if strings.TrimSpace(p.Text) == "" {
			lines = l.classifier.appendBlock(lines, "", types.HintBody, 0)
			continue
		}
		lines = l.classifier.appendBlock(lines, p.Text, p.Hint(), 0)
	}
	return types.NormalizedText{Lines: trimTrailingBlank(lines)}, nil
}
