package router

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/adaptor"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-parser-go/internal/api/handler"
	"resume-parser-go/internal/constants"
	"resume-parser-go/internal/processor"
	"resume-parser-go/internal/tracing"
	"resume-parser-go/internal/types"
)

var errInvalidAPIKey = errors.New("invalid API key")

// 错误码
const (
	CodeMissingFile       = "missing_file"
	CodeFileTooLarge      = "file_too_large"
	CodeUnsupportedFormat = "unsupported_format"
	CodeCorruptDocument   = "corrupt_document"
	CodeTimeout           = "timeout"
	CodeNotFound          = "not_found"
	CodeUnavailable       = "unavailable"
	CodeUnauthorized      = "unauthorized"
	CodeInternal          = "internal_error"
)

// Options 路由选项
type Options struct {
	APIKeys        []string     // 为空时不校验
	MetricsHandler http.Handler // 为空时不注册
	MetricsPath    string
	Paginated      *handler.ResumePaginatedHandler // 为空时不注册列表接口
}

// RegisterRoutes 注册 API 路由
func RegisterRoutes(h *server.Hertz, resumeHandler *handler.ResumeHandler, opts Options) {
	if opts.MetricsHandler != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		h.GET(path, httpHandler(opts.MetricsHandler))
	}

	api := h.Group("/api/v1")

	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{
			"status":  "ok",
			"service": constants.ServiceName,
			"version": constants.ParserVersion,
			"async":   resumeHandler.AsyncEnabled(),
		})
	})

	api.GET("/supported-formats", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{
			"formats":          resumeHandler.SupportedFormats(),
			"max_file_size_mb": resumeHandler.MaxFileSize() / (1024 * 1024),
		})
	})

	resume := api.Group("/resume")
	if len(opts.APIKeys) > 0 {
		resume.Use(APIKeyAuth(opts.APIKeys))
	}

	resume.POST("/parse", func(c context.Context, ctx *app.RequestContext) {
		doc, filename, ok := readUpload(c, ctx, resumeHandler)
		if !ok {
			return
		}
		resp, err := resumeHandler.HandleParse(c, doc, filename)
		if err != nil {
			WriteError(c, ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	resume.POST("/upload", func(c context.Context, ctx *app.RequestContext) {
		doc, filename, ok := readUpload(c, ctx, resumeHandler)
		if !ok {
			return
		}
		resp, err := resumeHandler.HandleUpload(c, doc, filename)
		if err != nil {
			WriteError(c, ctx, err)
			return
		}
		ctx.JSON(consts.StatusAccepted, resp)
	})

	if opts.Paginated != nil {
		resume.GET("", func(c context.Context, ctx *app.RequestContext) {
			opts.Paginated.HandlePaginatedResults(c, ctx, WriteError)
		})
	}

	resume.GET("/jobs/:id", func(c context.Context, ctx *app.RequestContext) {
		resp, err := resumeHandler.GetJobStatus(c, ctx.Param("id"))
		if err != nil {
			WriteError(c, ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	resume.GET("/:fingerprint", func(c context.Context, ctx *app.RequestContext) {
		resp, err := resumeHandler.GetResult(c, ctx.Param("fingerprint"))
		if err != nil {
			WriteError(c, ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})
}

// httpHandler 在 hertz 上挂载 net/http 的 Handler（promhttp）
func httpHandler(next http.Handler) app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		req, err := adaptor.GetCompatRequest(&ctx.Request)
		if err != nil {
			WriteError(c, ctx, err)
			return
		}
		next.ServeHTTP(adaptor.GetCompatResponseWriter(&ctx.Response), req.WithContext(c))
	}
}

// readUpload 读取 multipart 中的 file 字段，失败时已写好响应
func readUpload(c context.Context, ctx *app.RequestContext, resumeHandler *handler.ResumeHandler) (doc types.RawDocument, filename string, ok bool) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		WriteError(c, ctx, handler.ErrMissingFile)
		return doc, "", false
	}
	file, err := fileHeader.Open()
	if err != nil {
		WriteError(c, ctx, err)
		return doc, "", false
	}
	defer file.Close()

	trace.SpanFromContext(c).SetAttributes(
		attribute.String("upload.filename", tracing.SafeFilename(fileHeader.Filename)),
		attribute.Int64("upload.size", fileHeader.Size),
	)
	doc, err = resumeHandler.ReadDocument(file, fileHeader.Size, fileHeader.Filename, ctx.PostForm("format"))
	if err != nil {
		WriteError(c, ctx, err)
		return doc, "", false
	}
	return doc, fileHeader.Filename, true
}

// APIKeyAuth 校验 X-API-Key 请求头
func APIKeyAuth(keys []string) app.HandlerFunc {
	return keyauth.New(
		keyauth.WithKeyLookUp("header:X-API-Key", ""),
		keyauth.WithValidator(func(c context.Context, ctx *app.RequestContext, key string) (bool, error) {
			for _, k := range keys {
				if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
					return true, nil
				}
			}
			return false, errInvalidAPIKey
		}),
		keyauth.WithErrorHandler(func(c context.Context, ctx *app.RequestContext, err error) {
			ctx.AbortWithStatusJSON(consts.StatusUnauthorized, utils.H{"error": "API Key 无效或缺失", "code": CodeUnauthorized})
		}),
	)
}

// StatusFor 把错误映射为 HTTP 状态码和错误码
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, handler.ErrMissingFile):
		return consts.StatusBadRequest, CodeMissingFile
	case errors.Is(err, handler.ErrFileTooLarge):
		return consts.StatusRequestEntityTooLarge, CodeFileTooLarge
	case errors.Is(err, processor.ErrUnsupportedFormat):
		return consts.StatusUnsupportedMediaType, CodeUnsupportedFormat
	case errors.Is(err, processor.ErrCorruptDocument):
		return consts.StatusUnprocessableEntity, CodeCorruptDocument
	case errors.Is(err, handler.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return consts.StatusGatewayTimeout, CodeTimeout
	case errors.Is(err, handler.ErrNotFound):
		return consts.StatusNotFound, CodeNotFound
	case errors.Is(err, handler.ErrAsyncDisabled):
		return consts.StatusServiceUnavailable, CodeUnavailable
	}
	return consts.StatusInternalServerError, CodeInternal
}

// WriteError 统一的错误响应 {"error": ..., "code": ...}
func WriteError(c context.Context, ctx *app.RequestContext, err error) {
	status, code := StatusFor(err)
	tracing.RecordHTTPError(trace.SpanFromContext(c), err, status, code)
	if status >= consts.StatusInternalServerError {
		hlog.CtxErrorf(c, "请求处理失败: %s %s: %v", ctx.Method(), ctx.Path(), err)
	}
	ctx.JSON(status, utils.H{"error": err.Error(), "code": code})
}

// RequestLogger 记录请求和响应状态
func RequestLogger() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		hlog.CtxInfof(c, "Request: %s %s", string(ctx.Method()), string(ctx.Path()))
		ctx.Next(c)
		hlog.CtxInfof(c, "Response: status %d", ctx.Response.StatusCode())
	}
}
