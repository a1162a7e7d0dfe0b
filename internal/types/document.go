package types

import (
	"strings"
)

// DocumentFormat 上传文档声明的格式
type DocumentFormat string

const (
	// FormatPDF PDF 文档
	FormatPDF DocumentFormat = "PDF"
	// FormatDOCX Word 2007+ 文档
	FormatDOCX DocumentFormat = "DOCX"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// ParseDocumentFormat 把扩展名、MIME 类型或格式名转换为 DocumentFormat。
// 无法识别时返回原始值（大写）和 false，调用方可以继续把它交给加载器，
// 由加载器返回 UnsupportedFormat。
func ParseDocumentFormat(s string) (DocumentFormat, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimPrefix(v, ".")
	switch v {
	case "pdf", mimePDF:
		return FormatPDF, true
	case "docx", mimeDOCX:
		return FormatDOCX, true
	}
	return DocumentFormat(strings.ToUpper(v)), false
}

// Supported 是否为加载器支持的格式
func (f DocumentFormat) Supported() bool {
	return f == FormatPDF || f == FormatDOCX
}

// Extension 返回带点的文件扩展名
func (f DocumentFormat) Extension() string {
	return "." + strings.ToLower(string(f))
}

// ContentType 返回 MIME 类型，未知格式返回 application/octet-stream
func (f DocumentFormat) ContentType() string {
	switch f {
	case FormatPDF:
		return mimePDF
	case FormatDOCX:
		return mimeDOCX
	}
	return "application/octet-stream"
}

// RawDocument 进入流水线的原始文档，创建后不再修改
type RawDocument struct {
	Format DocumentFormat
	Data   []byte
}

// NewRawDocument 复制一份字节内容，保证调用方之后修改切片不会影响文档
func NewRawDocument(format DocumentFormat, data []byte) RawDocument {
	buf := make([]byte, len(data))
	copy(buf, data)
	return RawDocument{Format: format, Data: buf}
}

// Len 文档字节长度
func (d RawDocument) Len() int {
	return len(d.Data)
}

// LayoutHint 行的粗粒度版式提示
type LayoutHint string

const (
	HintHeading   LayoutHint = "heading"
	HintBody      LayoutHint = "body"
	HintListItem  LayoutHint = "list-item"
	HintPageBreak LayoutHint = "page-break"
)

// TextLine 规范化文本中的一行
type TextLine struct {
	Text string     `json:"text"`
	Hint LayoutHint `json:"hint"`
	Page int        `json:"page,omitempty"` // 从 1 开始，DOCX 为 0
}

// Blank 空行（含分页标记行）
func (l TextLine) Blank() bool {
	return l.Hint == HintPageBreak || strings.TrimSpace(l.Text) == ""
}

// NormalizedText 加载器输出的线性文本流
type NormalizedText struct {
	Lines      []TextLine `json:"lines"`
	Pages      int        `json:"pages"`       // PDF 页数
	EmptyPages int        `json:"empty_pages"` // 没有可提取文本的页数（例如扫描件）
}

// IsBlank 没有任何非空行
func (n NormalizedText) IsBlank() bool {
	for _, l := range n.Lines {
		if !l.Blank() {
			return false
		}
	}
	return true
}

// PageQuality 可提取文本页所占比例，非 PDF 或无分页信息时为 1
func (n NormalizedText) PageQuality() float64 {
	if n.Pages <= 0 || n.EmptyPages <= 0 {
		return 1
	}
	if n.EmptyPages >= n.Pages {
		return 0
	}
	return float64(n.Pages-n.EmptyPages) / float64(n.Pages)
}

// String 以换行拼接所有行，分页标记输出为空行
func (n NormalizedText) String() string {
	var b strings.Builder
	for i, l := range n.Lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		if l.Hint != HintPageBreak {
			b.WriteString(l.Text)
		}
	}
	return b.String()
}
