package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"resume-parser-go/internal/api/handler"
	"resume-parser-go/internal/constants"
	"resume-parser-go/internal/metrics"
	"resume-parser-go/internal/processor"
	"resume-parser-go/internal/storage"
	"resume-parser-go/internal/storage/models"
	"resume-parser-go/internal/testutil"
	"resume-parser-go/internal/types"
)

type fakeArchiver struct {
	keys    []string
	deleted []string
}

func (f *fakeArchiver) UploadOriginal(_ context.Context, jobID string, doc types.RawDocument) (string, error) {
	key := storage.OriginalObjectKey(jobID, doc.Format)
	f.keys = append(f.keys, key)
	return key, nil
}

func (f *fakeArchiver) DeleteOriginal(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

type fakePublisher struct {
	msgs []storage.ParseJobMessage
	keys []string
	err  error
}

func (f *fakePublisher) PublishJSON(_ context.Context, _, routingKey string, data interface{}, _ bool) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, data.(storage.ParseJobMessage))
	f.keys = append(f.keys, routingKey)
	return nil
}

type fakeResults struct {
	mu    sync.Mutex
	saved map[string]*models.ParseResult
}

func (f *fakeResults) GetByFingerprint(_ context.Context, fp string) (*models.ParseResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.saved[fp]; ok {
		return r, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeResults) Save(_ context.Context, r *models.ParseResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saved == nil {
		f.saved = map[string]*models.ParseResult{}
	}
	f.saved[r.Fingerprint] = r
	return nil
}

type fakeJobs struct {
	statuses map[string]string
}

func (f *fakeJobs) SetJobStatus(_ context.Context, id, status string) error {
	if f.statuses == nil {
		f.statuses = map[string]string{}
	}
	f.statuses[id] = status
	return nil
}

func (f *fakeJobs) GetJobStatus(_ context.Context, id string) (string, error) {
	if s, ok := f.statuses[id]; ok {
		return s, nil
	}
	return "", storage.ErrNotFound
}

// slowProcessor 阻塞到 ctx 结束后仍返回结果
type slowProcessor struct{}

func (slowProcessor) ProcessDetailed(ctx context.Context, _ types.RawDocument) (*processor.Outcome, error) {
	<-ctx.Done()
	return &processor.Outcome{Record: types.NewEmptyResumeRecord()}, nil
}

type errProcessor struct{ err error }

func (p errProcessor) ProcessDetailed(context.Context, types.RawDocument) (*processor.Outcome, error) {
	return nil, p.err
}

func multipartBody(t *testing.T, filename string, content []byte, fields map[string]string) (*ut.Body, ut.Header) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &ut.Body{Body: bytes.NewReader(buf.Bytes()), Len: buf.Len()},
		ut.Header{Key: "Content-Type", Value: w.FormDataContentType()}
}

func newEngine(t *testing.T, proc handler.Processor, settings handler.Settings, opts Options, hopts ...handler.Option) *server.Hertz {
	t.Helper()
	h := server.New()
	RegisterRoutes(h, handler.NewResumeHandler(proc, settings, hopts...), opts)
	return h
}

func realProcessor(t *testing.T) *processor.ResumeProcessor {
	t.Helper()
	p, err := processor.New(context.Background())
	require.NoError(t, err)
	return p
}

func decode(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out
}

func TestParseEndpoint(t *testing.T) {
	results := &fakeResults{}
	h := newEngine(t, realProcessor(t), handler.Settings{}, Options{}, handler.WithResultWriter(results))

	body, ct := multipartBody(t, "jane.docx", testutil.DOCXFromText(testutil.ScenarioResume), nil)
	w := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/resume/parse", body, ct)
	resp := w.Result()
	require.Equal(t, consts.StatusOK, resp.StatusCode(), string(resp.Body()))

	var out handler.ParseResponse
	require.NoError(t, json.Unmarshal(resp.Body(), &out))
	assert.Len(t, out.Fingerprint, 64)
	assert.False(t, out.CacheHit)
	require.NotNil(t, out.Result)
	require.Len(t, out.Result.PersonalInfo.Records, 1)
	assert.Equal(t, "Jane Doe", out.Result.PersonalInfo.Records[0].Text(types.KeyName))
	assert.Greater(t, out.Result.OverallConfidence, 0.0)

	saved, err := results.GetByFingerprint(context.Background(), out.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, "jane.docx", saved.OriginalFilename)
	assert.Equal(t, models.SourceSync, saved.Source)
}

func TestParseEndpointErrors(t *testing.T) {
	docx := testutil.DOCXFromText(testutil.ScenarioResume)
	tests := []struct {
		name     string
		proc     handler.Processor
		settings handler.Settings
		filename string
		content  []byte
		fields   map[string]string
		status   int
		code     string
	}{
		{"缺少文件", realProcessor(t), handler.Settings{}, "", nil, map[string]string{"format": "pdf"}, consts.StatusBadRequest, CodeMissingFile},
		{"未知扩展名", realProcessor(t), handler.Settings{}, "resume.txt", []byte("plain text"), nil, consts.StatusUnsupportedMediaType, CodeUnsupportedFormat},
		{"声明格式优先", realProcessor(t), handler.Settings{}, "resume.docx", docx, map[string]string{"format": "rtf"}, consts.StatusUnsupportedMediaType, CodeUnsupportedFormat},
		{"损坏的DOCX", realProcessor(t), handler.Settings{}, "resume.docx", []byte("PK not really a zip"), nil, consts.StatusUnprocessableEntity, CodeCorruptDocument},
		{"文件过大", realProcessor(t), handler.Settings{MaxFileSize: 8}, "resume.pdf", []byte("%PDF-1.4 and much more"), nil, consts.StatusRequestEntityTooLarge, CodeFileTooLarge},
		{"解析超时", slowProcessor{}, handler.Settings{ProcessingTimeout: 20 * time.Millisecond}, "resume.pdf", []byte("%PDF-1.4"), nil, consts.StatusGatewayTimeout, CodeTimeout},
		{"内部错误", errProcessor{err: errors.New("boom")}, handler.Settings{}, "resume.pdf", []byte("%PDF-1.4"), nil, consts.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newEngine(t, tt.proc, tt.settings, Options{})
			body, ct := multipartBody(t, tt.filename, tt.content, tt.fields)
			resp := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/resume/parse", body, ct).Result()

			assert.Equal(t, tt.status, resp.StatusCode(), string(resp.Body()))
			out := decode(t, resp.Body())
			assert.Equal(t, tt.code, out["code"])
			assert.NotEmpty(t, out["error"])
		})
	}
}

func TestUploadAndJobStatus(t *testing.T) {
	archiver := &fakeArchiver{}
	publisher := &fakePublisher{}
	jobs := &fakeJobs{}
	h := newEngine(t, realProcessor(t), handler.Settings{Exchange: "resume.events", ParseJobRoutingKey: "resume.parse"}, Options{},
		handler.WithAsync(archiver, publisher),
		handler.WithJobStatusStore(jobs))

	body, ct := multipartBody(t, "jane.pdf", []byte("%PDF-1.4 fake"), nil)
	resp := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/resume/upload", body, ct).Result()
	require.Equal(t, consts.StatusAccepted, resp.StatusCode(), string(resp.Body()))

	var out handler.UploadResponse
	require.NoError(t, json.Unmarshal(resp.Body(), &out))
	assert.NotEmpty(t, out.JobID)
	assert.Equal(t, constants.JobStatusQueued, out.Status)

	require.Len(t, publisher.msgs, 1)
	msg := publisher.msgs[0]
	assert.Equal(t, out.JobID, msg.JobID)
	assert.Equal(t, "resume/"+out.JobID+"/original.pdf", msg.ObjectKey)
	assert.Equal(t, "jane.pdf", msg.OriginalFilename)
	assert.Equal(t, string(types.FormatPDF), msg.Format)
	assert.Equal(t, out.Fingerprint, msg.Fingerprint)
	assert.Equal(t, "resume.parse", publisher.keys[0])

	resp = ut.PerformRequest(h.Engine, consts.MethodGet, "/api/v1/resume/jobs/"+out.JobID, nil).Result()
	require.Equal(t, consts.StatusOK, resp.StatusCode())
	assert.Equal(t, constants.JobStatusQueued, decode(t, resp.Body())["status"])

	resp = ut.PerformRequest(h.Engine, consts.MethodGet, "/api/v1/resume/jobs/unknown", nil).Result()
	assert.Equal(t, consts.StatusNotFound, resp.StatusCode())
}

func TestUploadPublishFailureRollsBack(t *testing.T) {
	archiver := &fakeArchiver{}
	jobs := &fakeJobs{}
	h := newEngine(t, realProcessor(t), handler.Settings{}, Options{},
		handler.WithAsync(archiver, &fakePublisher{err: errors.New("channel closed")}),
		handler.WithJobStatusStore(jobs))

	body, ct := multipartBody(t, "jane.pdf", []byte("%PDF-1.4 fake"), nil)
	resp := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/resume/upload", body, ct).Result()
	assert.Equal(t, consts.StatusInternalServerError, resp.StatusCode())

	require.Len(t, archiver.keys, 1)
	assert.Equal(t, archiver.keys, archiver.deleted, "入队失败后删除已上传的原始文件")
	for _, status := range jobs.statuses {
		assert.Equal(t, constants.JobStatusFailed, status)
	}
}

func TestUploadDisabled(t *testing.T) {
	h := newEngine(t, realProcessor(t), handler.Settings{}, Options{})
	body, ct := multipartBody(t, "jane.pdf", []byte("%PDF-1.4 fake"), nil)
	resp := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/resume/upload", body, ct).Result()
	assert.Equal(t, consts.StatusServiceUnavailable, resp.StatusCode())
	assert.Equal(t, CodeUnavailable, decode(t, resp.Body())["code"])
}

func TestGetStoredResult(t *testing.T) {
	rec := types.NewEmptyResumeRecord()
	rec.OverallConfidence = 0.5
	stored, err := models.NewParseResult("f00d", types.FormatDOCX, rec)
	require.NoError(t, err)
	results := &fakeResults{}
	require.NoError(t, results.Save(context.Background(), stored))

	h := newEngine(t, realProcessor(t), handler.Settings{}, Options{}, handler.WithResultReader(results))

	resp := ut.PerformRequest(h.Engine, consts.MethodGet, "/api/v1/resume/f00d", nil).Result()
	require.Equal(t, consts.StatusOK, resp.StatusCode(), string(resp.Body()))
	var out handler.StoredResultResponse
	require.NoError(t, json.Unmarshal(resp.Body(), &out))
	assert.Equal(t, "f00d", out.Fingerprint)
	assert.Equal(t, string(types.FormatDOCX), out.Format)
	require.NotNil(t, out.Result)
	assert.InDelta(t, 0.5, out.Result.OverallConfidence, 1e-9)

	resp = ut.PerformRequest(h.Engine, consts.MethodGet, "/api/v1/resume/beef", nil).Result()
	assert.Equal(t, consts.StatusNotFound, resp.StatusCode())
}

func TestAPIKeyAuth(t *testing.T) {
	h := newEngine(t, realProcessor(t), handler.Settings{}, Options{APIKeys: []string{"k1", "k2"}})

	body, ct := multipartBody(t, "jane.docx", testutil.DOCXFromText(testutil.ScenarioResume), nil)
	resp := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/resume/parse", body, ct).Result()
	assert.Equal(t, consts.StatusUnauthorized, resp.StatusCode())
	assert.Equal(t, CodeUnauthorized, decode(t, resp.Body())["code"])

	body, ct = multipartBody(t, "jane.docx", testutil.DOCXFromText(testutil.ScenarioResume), nil)
	resp = ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/resume/parse", body, ct, ut.Header{Key: "X-API-Key", Value: "k2"}).Result()
	assert.Equal(t, consts.StatusOK, resp.StatusCode(), string(resp.Body()))

	resp = ut.PerformRequest(h.Engine, consts.MethodGet, "/api/v1/health", nil).Result()
	assert.Equal(t, consts.StatusOK, resp.StatusCode(), "健康检查不需要 API Key")
}

func TestInfoEndpoints(t *testing.T) {
	m := metrics.New()
	h := newEngine(t, realProcessor(t), handler.Settings{}, Options{MetricsHandler: m.Handler()})

	resp := ut.PerformRequest(h.Engine, consts.MethodGet, "/api/v1/health", nil).Result()
	require.Equal(t, consts.StatusOK, resp.StatusCode())
	health := decode(t, resp.Body())
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, false, health["async"])

	resp = ut.PerformRequest(h.Engine, consts.MethodGet, "/api/v1/supported-formats", nil).Result()
	require.Equal(t, consts.StatusOK, resp.StatusCode())
	formats := decode(t, resp.Body())
	assert.Equal(t, []interface{}{"PDF", "DOCX"}, formats["formats"])
	assert.Equal(t, float64(20), formats["max_file_size_mb"])

	m.JobFinished(constants.JobStatusCompleted)
	resp = ut.PerformRequest(h.Engine, consts.MethodGet, "/metrics", nil).Result()
	require.Equal(t, consts.StatusOK, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), "jobs_total")
}

func TestErrorsAreRecordedOnRequestSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	h := server.New()
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		c, span := tp.Tracer("test").Start(c, string(ctx.Path()))
		ctx.Next(c)
		span.End()
	})
	RegisterRoutes(h, handler.NewResumeHandler(realProcessor(t), handler.Settings{}), Options{})

	body, ct := multipartBody(t, "Jane_Doe_CV.txt", []byte("plain text"), nil)
	resp := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/resume/parse", body, ct).Result()
	require.Equal(t, consts.StatusUnsupportedMediaType, resp.StatusCode())

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, CodeUnsupportedFormat, attrs["error.code"])
	assert.Equal(t, "client_error", attrs["error.category"])
	assert.Equal(t, "Ja*******CV.txt", attrs["upload.filename"], "文件名不以明文写入 span")
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestStatusFor(t *testing.T) {
	status, code := StatusFor(processor.NewCorruptDocumentError("fp", "bad"))
	assert.Equal(t, consts.StatusUnprocessableEntity, status)
	assert.Equal(t, CodeCorruptDocument, code)

	status, _ = StatusFor(context.DeadlineExceeded)
	assert.Equal(t, consts.StatusGatewayTimeout, status)
}
