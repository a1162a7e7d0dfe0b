package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"resume-parser-go/internal/logger"
)

// DefaultGeminiModel 默认 Gemini 模型
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiChatModel 基于 Google GenAI SDK 的聊天模型，实现 model.BaseChatModel
type GeminiChatModel struct {
	client    *genai.Client
	modelName string
	logger    *zerolog.Logger
}

// NewGeminiChatModel 创建 Gemini 客户端；baseURL 为空时使用官方地址
func NewGeminiChatModel(ctx context.Context, apiKey, modelName, baseURL string) (*GeminiChatModel, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if modelName = strings.TrimSpace(modelName); modelName == "" {
		modelName = DefaultGeminiModel
	}

	l := logger.Component("gemini")
	l.Info().Str("model", modelName).Msg("使用 Gemini 模型")
	return &GeminiChatModel{client: client, modelName: modelName, logger: l}, nil
}

// Generate system 消息放入 SystemInstruction，其余消息按角色转换
func (g *GeminiChatModel) Generate(ctx context.Context, messages []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	cfg := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	var contents []*genai.Content
	for _, m := range messages {
		if m == nil || strings.TrimSpace(m.Content) == "" {
			continue
		}
		switch m.Role {
		case schema.System:
			cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: m.Content}}}
		case schema.Assistant:
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: m.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: m.Content}}})
		}
	}
	if len(contents) == 0 {
		return nil, errors.New("prompt must not be empty")
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}
	output := strings.TrimSpace(builder.String())
	if output == "" {
		return nil, errors.New("gemini api returned empty response")
	}
	return schema.AssistantMessage(output, nil), nil
}

// Stream 以单个分片返回 Generate 的结果
func (g *GeminiChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := g.Generate(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// Model 当前使用的模型名
func (g *GeminiChatModel) Model() string {
	return g.modelName
}

var _ model.BaseChatModel = (*GeminiChatModel)(nil)
