package constants

import "time"

const (
	// ServiceName 用于日志、追踪和指标
	ServiceName = "resume-parser"

	// ParserVersion 写入解析结果，便于追溯是哪一版规则产出的数据
	ParserVersion = "1.0.0"

	// DefaultMaxFileSize 上传文件大小上限
	DefaultMaxFileSize = 20 * 1024 * 1024

	// DefaultProcessingTimeout 单次解析的超时时间
	DefaultProcessingTimeout = 30 * time.Second

	// DefaultCacheTTL 解析结果缓存有效期
	DefaultCacheTTL = time.Hour
	// DefaultCacheMaxEntries 进程内缓存最大条目数
	DefaultCacheMaxEntries = 1000

	// JobStatusTTL 异步任务状态在Redis中的保留时间
	JobStatusTTL = 24 * time.Hour
)

// 异步任务状态
const (
	JobStatusQueued    = "QUEUED"
	JobStatusCompleted = "COMPLETED"
	JobStatusFailed    = "FAILED"
)
