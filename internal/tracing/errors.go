package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorType 错误分类，写入 span 的 error.type 属性
type ErrorType string

const (
	ErrorTypeHTTP        ErrorType = "http"
	ErrorTypeDB          ErrorType = "db"
	ErrorTypeRedis       ErrorType = "redis"
	ErrorTypeObjectStore ErrorType = "object_store"
	// ErrorTypeDocument 文档格式不支持或内容损坏
	ErrorTypeDocument ErrorType = "document"
	// ErrorTypeCache 缓存不可用，已降级为未命中
	ErrorTypeCache    ErrorType = "cache"
	ErrorTypeInternal ErrorType = "internal"
)

// RecordError 记录错误并把 span 标记为失败
func RecordError(span trace.Span, err error, errorType ErrorType) {
	if span == nil || err == nil {
		return
	}
	msg := TruncateString(err.Error(), DefaultMaxLength)
	span.RecordError(err)
	span.SetAttributes(
		attribute.String("error.type", string(errorType)),
		attribute.String("error.message", msg),
	)
	span.SetStatus(codes.Error, msg)
}

// RecordHTTPError 记录返回给客户端的错误响应。
// 4xx 是调用方的问题，只加属性不改 span 状态；5xx 标记为失败。
func RecordHTTPError(span trace.Span, err error, statusCode int, code string) {
	if span == nil || err == nil {
		return
	}
	category := "client_error"
	if statusCode >= 500 {
		category = "server_error"
	}
	span.SetAttributes(
		attribute.String("error.type", string(ErrorTypeHTTP)),
		attribute.String("error.category", category),
		attribute.String("error.code", code),
		attribute.Int("http.status_code", statusCode),
	)
	if statusCode >= 500 {
		msg := TruncateString(err.Error(), DefaultMaxLength)
		span.RecordError(err)
		span.SetStatus(codes.Error, msg)
	}
}
