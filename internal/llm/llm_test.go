package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQwenGenerate(t *testing.T) {
	var got chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","model":"qwen-plus","choices":[{"index":0,"message":{"role":"assistant","content":"{\"entities\":[]}"},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":3}}`))
	}))
	defer srv.Close()

	m, err := NewQwenChatModel("test-key", "", srv.URL)
	require.NoError(t, err)

	msg, err := m.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("label entities"),
		schema.UserMessage("Acme Corp"),
	})
	require.NoError(t, err)
	assert.Equal(t, schema.Assistant, msg.Role)
	assert.Equal(t, `{"entities":[]}`, msg.Content)

	assert.Equal(t, DefaultQwenModel, got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
}

func TestQwenGenerateHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	m, err := NewQwenChatModel("k", "qwen-turbo", srv.URL, WithJSONMode(false))
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestQwenEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	m, err := NewQwenChatModel("k", "", srv.URL)
	require.NoError(t, err)
	_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	assert.Error(t, err)
}

func TestQwenStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer srv.Close()

	m, err := NewQwenChatModel("k", "", srv.URL)
	require.NoError(t, err)
	sr, err := m.Stream(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	defer sr.Close()

	chunk, err := sr.Recv()
	require.NoError(t, err)
	assert.Equal(t, "ok", chunk.Content)
	_, err = sr.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestGeminiGenerate(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		assert.True(t, strings.Contains(r.URL.Path, "gemini-test"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"entities\":[]}"}]}}]}`))
	}))
	defer srv.Close()

	m, err := NewGeminiChatModel(context.Background(), "k", "gemini-test", srv.URL)
	require.NoError(t, err)

	msg, err := m.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("label entities"),
		schema.UserMessage("Acme Corp"),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"entities":[]}`, msg.Content)
	assert.Contains(t, body, "label entities")
	assert.Contains(t, body, "Acme Corp")
}

func TestNewChatModel(t *testing.T) {
	m, err := NewChatModel(context.Background(), Config{Backend: "qwen", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &QwenChatModel{}, m)

	_, err = NewChatModel(context.Background(), Config{Backend: "qwen"})
	assert.Error(t, err, "缺少 API 密钥")

	_, err = NewChatModel(context.Background(), Config{Backend: "gemini"})
	assert.Error(t, err)

	_, err = NewChatModel(context.Background(), Config{Backend: "openai", APIKey: "k"})
	assert.Error(t, err)
}
