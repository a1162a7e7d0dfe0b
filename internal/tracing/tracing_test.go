package tracing

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"resume-parser-go/internal/config"
)

func TestInitProviderDisabled(t *testing.T) {
	shutdown, err := InitProvider(context.Background(), config.TracingConfig{Enabled: false}, "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestRecordError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	_, span := tp.Tracer("test").Start(context.Background(), "op")
	RecordError(span, errors.New("boom"), ErrorTypeCache)
	RecordError(span, nil, ErrorTypeCache)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "boom", spans[0].Status().Description)

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "cache", attrs["error.type"])
}

func TestMaskPII(t *testing.T) {
	assert.Equal(t, "", MaskPII(""))
	assert.Equal(t, "*", MaskPII("a"))
	assert.Equal(t, "J*", MaskPII("Jo"))
	assert.Equal(t, "J**e", MaskPII("Jane"))
	assert.Equal(t, "ja************om", MaskPII("jane@example.com"))
}

func TestSafeFilename(t *testing.T) {
	assert.Equal(t, "Ja*******CV.pdf", SafeFilename("Jane_Doe_CV.pdf"))
	assert.Equal(t, "c*.docx", SafeFilename("cv.docx"))
	assert.Equal(t, "Ja*******CV.pdf", SafeFilename("C:\\Users\\jane\\Jane_Doe_CV.pdf"), "去掉客户端路径")
	assert.Equal(t, "", SafeFilename(""))

	long := SafeFilename(strings.Repeat("a", 300) + ".pdf")
	assert.True(t, strings.HasSuffix(long, ".pdf"))
	assert.LessOrEqual(t, len([]rune(long)), MaxFilenameLength)
	assert.Equal(t, "abc...xyz", TruncateString("abcdefghijklmnopqrstuvwxyz", 9))
}

func TestRecordHTTPError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, client := tp.Tracer("test").Start(context.Background(), "client")
	RecordHTTPError(client, errors.New("bad format"), 415, "unsupported_format")
	client.End()
	_, server := tp.Tracer("test").Start(context.Background(), "server")
	RecordHTTPError(server, errors.New("db down"), 500, "internal_error")
	server.End()

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	attrs := func(i int) map[string]string {
		out := map[string]string{}
		for _, kv := range spans[i].Attributes() {
			out[string(kv.Key)] = kv.Value.Emit()
		}
		return out
	}
	assert.Equal(t, "client_error", attrs(0)["error.category"])
	assert.Equal(t, "unsupported_format", attrs(0)["error.code"])
	assert.Equal(t, "415", attrs(0)["http.status_code"])
	assert.NotEqual(t, codes.Error, spans[0].Status().Code, "4xx 不标记 span 失败")

	assert.Equal(t, "server_error", attrs(1)["error.category"])
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
