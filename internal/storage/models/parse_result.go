package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"resume-parser-go/internal/types"
)

// 解析任务来源
const (
	SourceSync  = "sync"
	SourceAsync = "async"
)

// ParseResult 已完成的解析结果，以文档指纹为主键
type ParseResult struct {
	Fingerprint       string         `gorm:"type:char(64);primaryKey"`
	JobID             string         `gorm:"type:char(36);index:idx_parse_results_job_id"`
	Format            string         `gorm:"type:varchar(16);not null"`
	OriginalFilename  string         `gorm:"type:varchar(255)"`
	ObjectKey         string         `gorm:"type:varchar(512)"` // MinIO 中的原始文件
	Source            string         `gorm:"type:varchar(16);default:'sync'"`
	OverallConfidence float64        `gorm:"type:decimal(5,4);not null;default:0"`
	RecordJSON        datatypes.JSON `gorm:"type:json;not null"`
	ParserVersion     string         `gorm:"type:varchar(32)"`
	DurationMS        int64          `gorm:"default:0"`
	CreatedAt         time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt         time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (ParseResult) TableName() string {
	return "parse_results"
}

// NewParseResult 由解析结果构造数据库行
func NewParseResult(fingerprint string, format types.DocumentFormat, rec *types.ResumeRecord) (*ParseResult, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return &ParseResult{
		Fingerprint:       fingerprint,
		Format:            string(format),
		Source:            SourceSync,
		OverallConfidence: rec.OverallConfidence,
		RecordJSON:        datatypes.JSON(data),
	}, nil
}

// Record 反序列化保存的解析结果
func (p *ParseResult) Record() (*types.ResumeRecord, error) {
	rec := types.NewEmptyResumeRecord()
	if err := json.Unmarshal(p.RecordJSON, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// CachedResult MySQL 缓存后端使用的键值表
type CachedResult struct {
	CacheKey  string    `gorm:"type:varchar(191);primaryKey"`
	Value     []byte    `gorm:"type:mediumblob;not null"`
	ExpiresAt time.Time `gorm:"type:datetime(6);index:idx_cached_results_expires_at"`
	CreatedAt time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
}

func (CachedResult) TableName() string {
	return "cached_results"
}
