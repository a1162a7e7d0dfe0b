package recognizer

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/time/rate"

	"resume-parser-go/internal/logger"
)

const entitySystemPrompt = `You label named entities in resume text.
Return ONLY a JSON object of the form {"entities":[{"text":"...","type":"ORG|DATE|DEGREE|TITLE"}]}.
Rules:
- "text" must be copied verbatim from the input, do not paraphrase or translate.
- ORG: companies, universities, schools and other organizations.
- DATE: a single date or a whole date range such as "Jan 2020 - Present".
- DEGREE: academic degrees such as "B.S. Computer Science" or "MBA".
- TITLE: job titles such as "Software Engineer".
- Omit anything that is not one of these four types.`

const entityResponseSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["entities"],
  "properties": {
    "entities": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["text", "type"],
        "properties": {
          "text": {"type": "string", "minLength": 1},
          "type": {"enum": ["ORG", "DATE", "DEGREE", "TITLE"]}
        }
      }
    }
  }
}`

var (
	entitySchemaOnce sync.Once
	entitySchema     *jsonschema.Schema
	entitySchemaErr  error

	jsonBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
)

func compiledEntitySchema() (*jsonschema.Schema, error) {
	entitySchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		const url = "mem://recognizer/entities.json"
		if err := compiler.AddResource(url, strings.NewReader(entityResponseSchema)); err != nil {
			entitySchemaErr = err
			return
		}
		entitySchema, entitySchemaErr = compiler.Compile(url)
	})
	return entitySchema, entitySchemaErr
}

// LLMConfig 大模型识别器参数
type LLMConfig struct {
	MaxRetries  int
	RetryDelay  time.Duration
	CallTimeout time.Duration
	QPM         int // 每分钟最多请求数，0 表示不限流
}

// DefaultLLMConfig 默认参数
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		MaxRetries:  2,
		RetryDelay:  2 * time.Second,
		CallTimeout: 60 * time.Second,
		QPM:         60,
	}
}

// LLMRecognizer 通过聊天模型识别实体。模型输出先经过 JSON Schema 校验，
// 不在原文中出现的实体一律丢弃。
type LLMRecognizer struct {
	model    model.BaseChatModel
	cfg      LLMConfig
	limiter  *rate.Limiter
	fallback EntityRecognizer
	logger   *zerolog.Logger
}

// LLMOption 识别器选项
type LLMOption func(*LLMRecognizer)

// WithLLMConfig 覆盖默认参数
func WithLLMConfig(cfg LLMConfig) LLMOption {
	return func(r *LLMRecognizer) {
		r.cfg = cfg
	}
}

// WithFallback 模型调用失败时改用的识别器
func WithFallback(fb EntityRecognizer) LLMOption {
	return func(r *LLMRecognizer) {
		r.fallback = fb
	}
}

// WithLLMLogger 设置日志记录器
func WithLLMLogger(l *zerolog.Logger) LLMOption {
	return func(r *LLMRecognizer) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewLLMRecognizer 创建大模型识别器
func NewLLMRecognizer(m model.BaseChatModel, opts ...LLMOption) (*LLMRecognizer, error) {
	if m == nil {
		return nil, fmt.Errorf("chat model is nil")
	}
	r := &LLMRecognizer{
		model:  m,
		cfg:    DefaultLLMConfig(),
		logger: logger.Component("llm_recognizer"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cfg.QPM > 0 {
		r.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(r.cfg.QPM)), 1)
	}
	if _, err := compiledEntitySchema(); err != nil {
		return nil, fmt.Errorf("compile entity schema: %w", err)
	}
	return r, nil
}

// Recognize 调用模型识别实体；失败时若配置了回退识别器则使用回退结果
func (r *LLMRecognizer) Recognize(ctx context.Context, text string) ([]Entity, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	entities, err := r.recognize(ctx, text)
	if err == nil {
		return entities, nil
	}
	if r.fallback == nil || ctx.Err() != nil {
		return nil, err
	}
	r.logger.Warn().Err(err).Msg("模型识别失败，使用回退识别器")
	return r.fallback.Recognize(ctx, text)
}

func (r *LLMRecognizer) recognize(ctx context.Context, text string) ([]Entity, error) {
	content, err := r.callLLM(ctx, text)
	if err != nil {
		return nil, err
	}
	raw := extractJSON(content)
	if raw == "" {
		r.logger.Debug().Str("response", truncate(content, 200)).Msg("模型响应中没有 JSON")
		return nil, fmt.Errorf("no JSON object in model response")
	}
	return parseEntities(raw, text)
}

func (r *LLMRecognizer) callLLM(ctx context.Context, text string) (string, error) {
	messages := []*einoschema.Message{
		einoschema.SystemMessage(entitySystemPrompt),
		einoschema.UserMessage(text),
	}

	delay := r.cfg.RetryDelay
	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("上下文已取消: %w", ctx.Err())
			case <-time.After(delay):
				delay *= 2
				r.logger.Debug().Int("attempt", attempt).Msg("重试模型调用")
			}
		}
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return "", fmt.Errorf("rate limiter: %w", err)
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
		resp, err := r.model.Generate(callCtx, messages)
		cancel()
		if err == nil {
			if resp == nil {
				return "", fmt.Errorf("model returned empty message")
			}
			return resp.Content, nil
		}
		lastErr = err
		if !isRetryableError(err) {
			break
		}
	}
	return "", fmt.Errorf("LLM Generate failed: %w", lastErr)
}

// parseEntities 校验模型输出并回填位置，找不到原文的实体视为幻觉丢弃
func parseEntities(raw, text string) ([]Entity, error) {
	var doc interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("解析JSON失败: %w", err)
	}
	sch, err := compiledEntitySchema()
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("model response does not match schema: %w", err)
	}

	var resp struct {
		Entities []struct {
			Text string     `json:"text"`
			Type EntityType `json:"type"`
		} `json:"entities"`
	}
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("解析JSON失败: %w", err)
	}

	out := make([]Entity, 0, len(resp.Entities))
	for _, e := range resp.Entities {
		needle := strings.TrimSpace(e.Text)
		if needle == "" {
			continue
		}
		start, end := strings.Index(text, needle), 0
		if start >= 0 {
			end = start + len(needle)
		} else {
			// 大小写不一致时在原文上做不区分大小写的匹配，大小写转换可能改变字节长度
			loc := regexp.MustCompile("(?i)" + regexp.QuoteMeta(needle)).FindStringIndex(text)
			if loc == nil {
				continue
			}
			start, end = loc[0], loc[1]
		}
		out = append(out, Entity{Text: text[start:end], Type: e.Type, Position: start})
	}
	sortEntities(out)
	return out, nil
}

// isRetryableError 判断错误是否应该重试
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "EOF") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "status 429") ||
		strings.Contains(errStr, "status 5")
}

// extractJSON 从模型响应中取出 JSON 对象，兼容代码块包裹和前后夹杂说明文字
func extractJSON(text string) string {
	if m := jsonBlockRe.FindStringSubmatch(text); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}
	level := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			level++
		case '}':
			level--
			if level == 0 {
				return strings.TrimSpace(text[start : i+1])
			}
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
