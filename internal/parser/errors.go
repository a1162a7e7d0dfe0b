package parser

import "errors"

var (
	// ErrUnsupportedFormat 声明的格式既不是 PDF 也不是 DOCX
	ErrUnsupportedFormat = errors.New("不支持的文档格式")
	// ErrCorruptDocument 字节内容无法按声明格式解析
	ErrCorruptDocument = errors.New("文档已损坏或格式不匹配")
)
