// Package recognizer 简历文本中的命名实体识别（机构、日期、学位、职位）
package recognizer

import (
	"context"
)

// EntityType 实体类型
type EntityType string

const (
	EntityOrg    EntityType = "ORG"
	EntityDate   EntityType = "DATE"
	EntityDegree EntityType = "DEGREE"
	EntityTitle  EntityType = "TITLE"
)

// Entity 识别出的实体，Position 为实体在输入文本中的字节偏移
type Entity struct {
	Text     string     `json:"text"`
	Type     EntityType `json:"type"`
	Position int        `json:"position"`
}

// EntityRecognizer 实体识别策略
type EntityRecognizer interface {
	Recognize(ctx context.Context, text string) ([]Entity, error)
}

// First 返回第一个指定类型的实体
func First(entities []Entity, t EntityType) (Entity, bool) {
	for _, e := range entities {
		if e.Type == t {
			return e, true
		}
	}
	return Entity{}, false
}

// Backends 可配置的识别器后端名称
const (
	BackendRule   = "rule"
	BackendQwen   = "qwen"
	BackendGemini = "gemini"
)
