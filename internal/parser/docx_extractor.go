package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"resume-parser-go/internal/types"
)

const docxDocumentPart = "word/document.xml"

// DocxParagraph word/document.xml 中的一个段落
type DocxParagraph struct {
	Text  string
	Style string
	List  bool
}

// Hint 由段落样式推断的版式提示
func (p DocxParagraph) Hint() types.LayoutHint {
	style := strings.ToLower(p.Style)
	switch {
	case strings.HasPrefix(style, "heading"), style == "title":
		return types.HintHeading
	case p.List, strings.Contains(style, "list"):
		return types.HintListItem
	}
	return types.HintBody
}

// ExtractDocxParagraphs 按文档顺序读出所有段落（包括表格中的段落）
func ExtractDocxParagraphs(data []byte) ([]DocxParagraph, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a zip container: %v", ErrCorruptDocument, err)
	}

	var part *zip.File
	for _, f := range reader.File {
		if f.Name == docxDocumentPart {
			part = f
			break
		}
	}
	if part == nil {
		return nil, fmt.Errorf("%w: missing %s", ErrCorruptDocument, docxDocumentPart)
	}

	rc, err := part.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrCorruptDocument, docxDocumentPart, err)
	}
	defer rc.Close()

	paragraphs, err := parseDocumentXML(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}
	return paragraphs, nil
}

// parseDocumentXML 逐个 token 解析，保持段落、制表符和换行的原始顺序
func parseDocumentXML(r io.Reader) ([]DocxParagraph, error) {
	dec := xml.NewDecoder(r)

	var (
		out     []DocxParagraph
		cur     *DocxParagraph
		text    strings.Builder
		inRun   int
		inText  bool
		sawBody bool
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode document xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "body":
				sawBody = true
			case "p":
				cur = &DocxParagraph{}
				text.Reset()
			case "pStyle":
				if cur != nil {
					cur.Style = attrValue(t, "val")
				}
			case "numPr":
				if cur != nil {
					cur.List = true
				}
			case "r":
				inRun++
			case "t":
				inText = true
			case "tab":
				if cur != nil && inRun > 0 {
					text.WriteByte(' ')
				}
			case "br", "cr":
				if cur != nil && inRun > 0 {
					text.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "r":
				if inRun > 0 {
					inRun--
				}
			case "p":
				if cur != nil {
					cur.Text = text.String()
					out = append(out, *cur)
					cur = nil
				}
			}
		case xml.CharData:
			if inText && cur != nil {
				text.Write(t)
			}
		}
	}

	if !sawBody {
		return nil, fmt.Errorf("document xml has no body")
	}
	return out, nil
}

func attrValue(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
