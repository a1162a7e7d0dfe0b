package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cloudwego/eino/components/model"
)

// Config 模型后端配置
type Config struct {
	Backend string // qwen | gemini
	Model   string
	APIKey  string
	APIURL  string
	Timeout time.Duration
}

// NewChatModel 按后端名创建聊天模型
func NewChatModel(ctx context.Context, cfg Config) (model.BaseChatModel, error) {
	switch cfg.Backend {
	case "qwen":
		var opts []QwenOption
		if cfg.Timeout > 0 {
			opts = append(opts, WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
		}
		m, err := NewQwenChatModel(cfg.APIKey, cfg.Model, cfg.APIURL, opts...)
		if err != nil {
			return nil, err
		}
		return m, nil
	case "gemini":
		m, err := NewGeminiChatModel(ctx, cfg.APIKey, cfg.Model, cfg.APIURL)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown llm backend %q", cfg.Backend)
	}
}
