// Package llm 实体识别使用的聊天模型适配（通义千问兼容接口与 Gemini）
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"resume-parser-go/internal/logger"
)

const (
	// DashScope 的 OpenAI 兼容接口
	DefaultQwenAPIURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	DefaultQwenModel  = "qwen-plus"
)

// QwenChatModel 通过 OpenAI 兼容协议调用通义千问，实现 model.BaseChatModel
type QwenChatModel struct {
	apiKey      string
	modelName   string
	apiURL      string
	temperature float32
	jsonMode    bool
	httpClient  *http.Client
	logger      *zerolog.Logger
}

// QwenOption 模型选项
type QwenOption func(*QwenChatModel)

// WithHTTPClient 替换默认 HTTP 客户端
func WithHTTPClient(c *http.Client) QwenOption {
	return func(q *QwenChatModel) {
		if c != nil {
			q.httpClient = c
		}
	}
}

// WithTemperature 设置采样温度
func WithTemperature(t float32) QwenOption {
	return func(q *QwenChatModel) {
		q.temperature = t
	}
}

// WithJSONMode 要求模型只输出 JSON 对象
func WithJSONMode(on bool) QwenOption {
	return func(q *QwenChatModel) {
		q.jsonMode = on
	}
}

// NewQwenChatModel 创建模型客户端，modelName 与 apiURL 为空时使用默认值
func NewQwenChatModel(apiKey, modelName, apiURL string, opts ...QwenOption) (*QwenChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API 密钥不能为空")
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = DefaultQwenModel
	}
	if strings.TrimSpace(apiURL) == "" {
		apiURL = DefaultQwenAPIURL
	}

	q := &QwenChatModel{
		apiKey:     apiKey,
		modelName:  modelName,
		apiURL:     apiURL,
		jsonMode:   true,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger.Component("qwen"),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.logger.Info().Str("api_url", apiURL).Str("model", modelName).Msg("使用通义千问模型")
	return q, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float32         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Generate 发送一次非流式请求
func (q *QwenChatModel) Generate(ctx context.Context, messages []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	req := chatCompletionRequest{
		Model:       q.modelName,
		Messages:    make([]chatMessage, 0, len(messages)),
		Temperature: q.temperature,
	}
	for _, m := range messages {
		if m == nil {
			continue
		}
		req.Messages = append(req.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	if q.jsonMode {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, q.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+q.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	httpResp, err := q.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("发送 HTTP 请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API 请求失败, status %d: %s", httpResp.StatusCode, truncate(string(respBody), 300))
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("反序列化 API 响应失败: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("从 API 收到空选项")
	}

	choice := parsed.Choices[0]
	content := ""
	if choice.Message.Content != nil {
		content = *choice.Message.Content
	}
	role := schema.RoleType(choice.Message.Role)
	if role == "" {
		role = schema.Assistant
	}

	q.logger.Debug().
		Dur("latency", time.Since(start)).
		Int("prompt_tokens", parsed.Usage.PromptTokens).
		Int("completion_tokens", parsed.Usage.CompletionTokens).
		Msg("模型调用完成")

	return &schema.Message{Role: role, Content: content}, nil
}

// Stream 以单个分片返回 Generate 的结果
func (q *QwenChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := q.Generate(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

var _ model.BaseChatModel = (*QwenChatModel)(nil)

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
