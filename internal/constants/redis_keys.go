package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// ResumeModulePrefix 简历解析模块
	ResumeModulePrefix = "resume"

	// EntityResult 解析结果实体
	EntityResult = "result"
	// EntityJob 异步解析任务实体
	EntityJob = "job"

	// KeyResumeResult 解析结果缓存 (STRING, JSON)
	// 格式: app:resume:result:{fingerprint}
	KeyResumeResult = AppPrefix + ":" + ResumeModulePrefix + ":" + EntityResult + ":%s"

	// KeyResumeJobStatus 异步任务状态 (STRING)
	// 格式: app:resume:job:{jobID}
	KeyResumeJobStatus = AppPrefix + ":" + ResumeModulePrefix + ":" + EntityJob + ":%s"
)
