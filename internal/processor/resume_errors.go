package processor

import (
	"errors"
	"fmt"

	"resume-parser-go/internal/parser"
)

// 定义基础错误类型
var (
	// ErrUnsupportedFormat 声明的格式不是 PDF/DOCX，直接返回给调用方，不重试
	ErrUnsupportedFormat = parser.ErrUnsupportedFormat
	// ErrCorruptDocument 内容无法按声明格式解析，直接返回给调用方，不重试
	ErrCorruptDocument = parser.ErrCorruptDocument
	// ErrCacheUnavailable 缓存存储读写失败。只在内部记录，Process 不会返回它
	ErrCacheUnavailable = errors.New("缓存存储不可用")
)

// ProcessError 包含详细错误信息的自定义错误
type ProcessError struct {
	Fingerprint string
	Op          string
	BaseErr     error
	Detail      string
}

func (e *ProcessError) Error() string {
	fp := e.Fingerprint
	if len(fp) > 12 {
		fp = fp[:12]
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, 指纹:%s): %s", e.BaseErr, e.Op, fp, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s, 指纹:%s)", e.BaseErr, e.Op, fp)
}

func (e *ProcessError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *ProcessError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// 错误构造函数
func NewUnsupportedFormatError(fingerprint, detail string) error {
	return &ProcessError{
		Fingerprint: fingerprint,
		Op:          "load",
		BaseErr:     ErrUnsupportedFormat,
		Detail:      detail,
	}
}

func NewCorruptDocumentError(fingerprint, detail string) error {
	return &ProcessError{
		Fingerprint: fingerprint,
		Op:          "load",
		BaseErr:     ErrCorruptDocument,
		Detail:      detail,
	}
}

func NewCacheUnavailableError(fingerprint, op string, cause error) error {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	return &ProcessError{
		Fingerprint: fingerprint,
		Op:          "cache_" + op,
		BaseErr:     ErrCacheUnavailable,
		Detail:      detail,
	}
}

// wrapLoadError 把加载器返回的错误转换为 ProcessError
func wrapLoadError(fingerprint string, err error) error {
	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		return NewUnsupportedFormatError(fingerprint, err.Error())
	case errors.Is(err, ErrCorruptDocument):
		return NewCorruptDocumentError(fingerprint, err.Error())
	}
	return &ProcessError{Fingerprint: fingerprint, Op: "load", BaseErr: err}
}
