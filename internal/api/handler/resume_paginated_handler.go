package handler

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/rs/zerolog"

	"resume-parser-go/internal/storage"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// ResultLister 分页读取已保存的解析结果
type ResultLister interface {
	List(ctx context.Context, offset, limit int) ([]storage.ResultSummary, int64, error)
}

// PaginatedResultResponse 分页响应
type PaginatedResultResponse struct {
	Cursor     int64                   `json:"cursor"`
	NextCursor int64                   `json:"next_cursor"`
	Size       int64                   `json:"size"`
	TotalCount int64                   `json:"total_count"`
	Results    []storage.ResultSummary `json:"results"`
}

// ResumePaginatedHandler 处理已保存结果的分页查询
type ResumePaginatedHandler struct {
	lister ResultLister
	logger *zerolog.Logger
}

// NewResumePaginatedHandler 创建分页查询处理器
func NewResumePaginatedHandler(lister ResultLister, lg *zerolog.Logger) *ResumePaginatedHandler {
	if lg == nil {
		nop := zerolog.Nop()
		lg = &nop
	}
	return &ResumePaginatedHandler{lister: lister, logger: lg}
}

// ParsePage 解析 cursor 和 size 查询参数，非法值回退到默认值
func ParsePage(cursorStr, sizeStr string) (cursor, size int64) {
	size = defaultPageSize
	if cursorStr != "" {
		if val, err := strconv.ParseInt(cursorStr, 10, 64); err == nil && val >= 0 {
			cursor = val
		}
	}
	if sizeStr != "" {
		if val, err := strconv.ParseInt(sizeStr, 10, 64); err == nil && val > 0 && val <= maxPageSize {
			size = val
		}
	}
	return cursor, size
}

// ListResults 查询一页结果
func (h *ResumePaginatedHandler) ListResults(ctx context.Context, cursor, size int64) (*PaginatedResultResponse, error) {
	if h.lister == nil {
		return nil, ErrAsyncDisabled
	}
	results, total, err := h.lister.List(ctx, int(cursor), int(size))
	if err != nil {
		return nil, err
	}

	nextCursor := cursor + int64(len(results))
	if nextCursor >= total {
		// 已经是最后一页，游标保持不变
		nextCursor = cursor
	}
	h.logger.Debug().Int64("cursor", cursor).Int64("size", size).Int64("total", total).Int("returned", len(results)).Msg("分页查询解析结果")

	return &PaginatedResultResponse{
		Cursor:     cursor,
		NextCursor: nextCursor,
		Size:       size,
		TotalCount: total,
		Results:    results,
	}, nil
}

// HandlePaginatedResults GET /resume?cursor=&size=
func (h *ResumePaginatedHandler) HandlePaginatedResults(c context.Context, ctx *app.RequestContext, onError func(context.Context, *app.RequestContext, error)) {
	cursor, size := ParsePage(ctx.Query("cursor"), ctx.Query("size"))
	resp, err := h.ListResults(c, cursor, size)
	if err != nil {
		onError(c, ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}
