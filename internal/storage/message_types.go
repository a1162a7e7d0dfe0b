package storage

import "time"

// 事件类型
const (
	EventResumeParsed      = "resume.parsed"
	EventResumeParseFailed = "resume.parse_failed"
)

// ParseJobMessage 异步解析任务消息
type ParseJobMessage struct {
	JobID            string    `json:"job_id"`                      // 任务ID (uuid v7)
	ObjectKey        string    `json:"object_key"`                  // MinIO中的对象路径
	OriginalFilename string    `json:"original_filename,omitempty"` // 原始文件名
	Format           string    `json:"format"`                      // PDF | DOCX
	Fingerprint      string    `json:"fingerprint"`                 // 上传时计算的文档指纹
	SubmittedAt      time.Time `json:"submitted_at"`
	Attempt          int       `json:"attempt,omitempty"` // 已重试次数
}

// ResumeParsedEvent 解析完成后经由发件箱发布的事件
type ResumeParsedEvent struct {
	MessageID         string    `json:"message_id"`
	JobID             string    `json:"job_id,omitempty"`
	Fingerprint       string    `json:"fingerprint"`
	Status            string    `json:"status"`
	OverallConfidence float64   `json:"overall_confidence"`
	Error             string    `json:"error,omitempty"`
	ParsedAt          time.Time `json:"parsed_at"`
}
