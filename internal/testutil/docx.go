// Package testutil 测试用的文档夹具
package testutil

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"strings"
)

// Paragraph DOCX 段落夹具
type Paragraph struct {
	Text  string
	Style string // 例如 Heading1、ListParagraph
	List  bool   // 是否带 numPr 编号
}

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
</Types>`

// BuildDOCX 在内存中生成一个最小可用的 DOCX 文件
func BuildDOCX(paragraphs ...Paragraph) []byte {
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString("<w:p>")
		if p.Style != "" || p.List {
			body.WriteString("<w:pPr>")
			if p.Style != "" {
				body.WriteString(`<w:pStyle w:val="` + p.Style + `"/>`)
			}
			if p.List {
				body.WriteString(`<w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr>`)
			}
			body.WriteString("</w:pPr>")
		}
		if p.Text != "" {
			var escaped bytes.Buffer
			_ = xml.EscapeText(&escaped, []byte(p.Text))
			body.WriteString(`<w:r><w:t xml:space="preserve">` + escaped.String() + `</w:t></w:r>`)
		}
		body.WriteString("</w:p>")
	}

	documentXML := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() + `</w:body></w:document>`

	return BuildRawDOCX(documentXML)
}

// BuildRawDOCX 用给定的 document.xml 内容打包 DOCX
func BuildRawDOCX(documentXML string) []byte {
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	ct, _ := w.Create("[Content_Types].xml")
	_, _ = ct.Write([]byte(contentTypesXML))

	if documentXML != "" {
		doc, _ := w.Create("word/document.xml")
		_, _ = doc.Write([]byte(documentXML))
	}

	_ = w.Close()
	return buf.Bytes()
}

// DOCXFromText 每行文本生成一个无样式段落，空行生成空段落
func DOCXFromText(text string) []byte {
	lines := strings.Split(text, "\n")
	paragraphs := make([]Paragraph, 0, len(lines))
	for _, l := range lines {
		paragraphs = append(paragraphs, Paragraph{Text: l})
	}
	return BuildDOCX(paragraphs...)
}

// ScenarioResume 常用的示例简历文本
const ScenarioResume = "Jane Doe\njane@example.com\n555-123-4567\n\nWork Experience\nAcme Corp, Software Engineer, Jan 2020 - Present\n\nEducation\nState University, B.S. Computer Science, 2016-2020"
