package parser

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
	"github.com/rs/zerolog"

	"resume-parser-go/internal/logger"
)

// PDFPageExtractor 按页提取 PDF 文本
type PDFPageExtractor interface {
	ExtractPages(ctx context.Context, data []byte, uri string) ([]string, error)
}

// EinoPDFTextExtractor 使用 Eino PDF Parser 按页提取文本
type EinoPDFTextExtractor struct {
	parser *pdf.PDFParser
	logger *zerolog.Logger
}

// EinoPDFOption PDF提取器的配置选项
type EinoPDFOption func(*EinoPDFTextExtractor)

// WithEinoLogger 配置自定义日志记录器
func WithEinoLogger(l *zerolog.Logger) EinoPDFOption {
	return func(e *EinoPDFTextExtractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEinoPDFTextExtractor 初始化 Eino PDF 文本提取器
// 固定按页输出，页边界用于后续的版式提示和空白页统计
func NewEinoPDFTextExtractor(ctx context.Context, options ...EinoPDFOption) (*EinoPDFTextExtractor, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{
		ToPages: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Eino PDF parser: %w", err)
	}

	extractor := &EinoPDFTextExtractor{
		parser: p,
		logger: logger.Component("pdf_extractor"),
	}
	for _, option := range options {
		option(extractor)
	}
	return extractor, nil
}

// ExtractPages 返回每一页的纯文本，扫描件页面返回空串。
// 底层解析失败（包括解析器 panic）统一包装为 ErrCorruptDocument。
func (e *EinoPDFTextExtractor) ExtractPages(ctx context.Context, data []byte, uri string) (pages []string, err error) {
	startTime := time.Now()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn().Str("uri", uri).Interface("panic", r).Msg("PDF解析器异常")
			pages = nil
			err = fmt.Errorf("%w: pdf parser panic: %v", ErrCorruptDocument, r)
		}
	}()

	docs, perr := e.parser.Parse(ctx, bytes.NewReader(data),
		einoParser.WithURI(uri),
		einoParser.WithExtraMeta(map[string]any{
			"source_uri": uri,
			"byte_size":  len(data),
		}),
	)
	if perr != nil {
		e.logger.Debug().Err(perr).Str("uri", uri).Dur("elapsed", time.Since(startTime)).Msg("PDF解析失败")
		return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, perr)
	}

	pages = make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc == nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, doc.Content)
	}

	e.logger.Debug().
		Str("uri", uri).
		Int("pages", len(pages)).
		Dur("elapsed", time.Since(startTime)).
		Msg("PDF提取完成")
	return pages, nil
}
