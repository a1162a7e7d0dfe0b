package handler

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-parser-go/internal/processor"
	"resume-parser-go/internal/storage"
	"resume-parser-go/internal/types"
)

type stubProcessor struct {
	out *processor.Outcome
	err error
}

func (s stubProcessor) ProcessDetailed(context.Context, types.RawDocument) (*processor.Outcome, error) {
	return s.out, s.err
}

func TestReadDocument(t *testing.T) {
	h := NewResumeHandler(stubProcessor{}, Settings{MaxFileSize: 16})

	doc, err := h.ReadDocument(strings.NewReader("%PDF-1.4"), 8, "cv.PDF", "")
	require.NoError(t, err)
	assert.Equal(t, types.FormatPDF, doc.Format)
	assert.Equal(t, []byte("%PDF-1.4"), doc.Data)

	doc, err = h.ReadDocument(strings.NewReader("PK.."), 4, "upload.bin", "docx")
	require.NoError(t, err)
	assert.Equal(t, types.FormatDOCX, doc.Format, "显式声明的格式优先于扩展名")

	_, err = h.ReadDocument(strings.NewReader("hello"), 5, "cv.txt", "")
	assert.ErrorIs(t, err, processor.ErrUnsupportedFormat)

	_, err = h.ReadDocument(strings.NewReader(""), 0, "cv.pdf", "")
	assert.ErrorIs(t, err, ErrMissingFile)

	_, err = h.ReadDocument(strings.NewReader("x"), 17, "cv.pdf", "")
	assert.ErrorIs(t, err, ErrFileTooLarge, "声明的大小超限")

	// multipart 声明的大小可能不准，以实际读取的字节为准
	_, err = h.ReadDocument(bytes.NewReader(make([]byte, 32)), 0, "cv.pdf", "")
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestNewResumeHandlerDefaults(t *testing.T) {
	h := NewResumeHandler(stubProcessor{}, Settings{})
	assert.Equal(t, int64(20*1024*1024), h.MaxFileSize())
	assert.Equal(t, []string{"PDF", "DOCX"}, h.SupportedFormats())
	assert.False(t, h.AsyncEnabled())

	_, err := h.HandleUpload(context.Background(), types.RawDocument{Format: types.FormatPDF, Data: []byte("x")}, "cv.pdf")
	assert.ErrorIs(t, err, ErrAsyncDisabled)
	_, err = h.GetResult(context.Background(), "fp")
	assert.ErrorIs(t, err, ErrAsyncDisabled)
	_, err = h.GetJobStatus(context.Background(), "job")
	assert.ErrorIs(t, err, ErrAsyncDisabled)
}

func TestHandleParsePropagatesErrors(t *testing.T) {
	perr := processor.NewCorruptDocumentError("fp", "bad")
	h := NewResumeHandler(stubProcessor{err: perr}, Settings{})
	_, err := h.HandleParse(context.Background(), types.RawDocument{Format: types.FormatPDF, Data: []byte("x")}, "cv.pdf")
	assert.ErrorIs(t, err, processor.ErrCorruptDocument)
}

type stubLister struct {
	items []storage.ResultSummary
	total int64
	err   error
	got   [2]int
}

func (s *stubLister) List(_ context.Context, offset, limit int) ([]storage.ResultSummary, int64, error) {
	s.got = [2]int{offset, limit}
	return s.items, s.total, s.err
}

func TestParsePage(t *testing.T) {
	tests := []struct {
		cursor, size         string
		wantCursor, wantSize int64
	}{
		{"", "", 0, 10},
		{"20", "5", 20, 5},
		{"-1", "0", 0, 10},
		{"abc", "500", 0, 10},
		{"3", "100", 3, 100},
	}
	for _, tt := range tests {
		cursor, size := ParsePage(tt.cursor, tt.size)
		assert.Equal(t, tt.wantCursor, cursor, "cursor=%q", tt.cursor)
		assert.Equal(t, tt.wantSize, size, "size=%q", tt.size)
	}
}

func TestListResults(t *testing.T) {
	now := time.Now()
	lister := &stubLister{
		items: []storage.ResultSummary{{Fingerprint: "a", CreatedAt: now}, {Fingerprint: "b", CreatedAt: now}},
		total: 5,
	}
	h := NewResumePaginatedHandler(lister, nil)

	resp, err := h.ListResults(context.Background(), 0, 2)
	require.NoError(t, err)
	assert.Equal(t, [2]int{0, 2}, lister.got)
	assert.Equal(t, int64(2), resp.NextCursor)
	assert.Equal(t, int64(5), resp.TotalCount)
	assert.Len(t, resp.Results, 2)

	resp, err = h.ListResults(context.Background(), 4, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(4), resp.NextCursor, "最后一页游标不变")

	lister.err = errors.New("db down")
	_, err = h.ListResults(context.Background(), 0, 2)
	assert.Error(t, err)

	_, err = NewResumePaginatedHandler(nil, nil).ListResults(context.Background(), 0, 2)
	assert.ErrorIs(t, err, ErrAsyncDisabled)
}
