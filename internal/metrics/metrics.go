// Package metrics Prometheus 指标
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"resume-parser-go/internal/constants"
)

// 解析结果标签
const (
	ResultOK          = "ok"
	ResultUnsupported = "unsupported_format"
	ResultCorrupt     = "corrupt_document"
	ResultError       = "error"
)

// 缓存查询结果标签
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Metrics 服务指标集合。所有方法对 nil 接收者安全，未启用指标时可以直接传 nil。
type Metrics struct {
	registry *prometheus.Registry

	processTotal      *prometheus.CounterVec
	processDuration   *prometheus.HistogramVec
	stageDuration     *prometheus.HistogramVec
	cacheOps          *prometheus.CounterVec
	sectionConfidence *prometheus.HistogramVec
	overallConfidence prometheus.Histogram
	recognizerErrors  prometheus.Counter
	jobsTotal         *prometheus.CounterVec
}

// New 创建独立的 Registry 并注册全部指标
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ns := "resume_parser"
	m := &Metrics{
		registry: reg,
		processTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "process_total",
			Help:      "解析请求数，按结果和是否命中缓存区分",
		}, []string{"result", "cache"}),
		processDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "process_duration_seconds",
			Help:      "单次解析耗时",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"cache"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "stage_duration_seconds",
			Help:      "流水线各阶段耗时",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"stage"}),
		cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "cache_operations_total",
			Help:      "缓存读写次数",
		}, []string{"op", "result"}),
		sectionConfidence: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "section_confidence",
			Help:      "章节置信度分布",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}, []string{"section"}),
		overallConfidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "overall_confidence",
			Help:      "整体置信度分布",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		recognizerErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "recognizer_errors_total",
			Help:      "实体识别失败并回退到启发式规则的次数",
		}),
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "jobs_total",
			Help:      "异步解析任务数",
		}, []string{"status"}),
	}
	reg.MustRegister(m.processTotal, m.processDuration, m.stageDuration, m.cacheOps,
		m.sectionConfidence, m.overallConfidence, m.recognizerErrors, m.jobsTotal)
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   ns,
		Name:        "build_info",
		Help:        "解析规则版本",
		ConstLabels: prometheus.Labels{"version": constants.ParserVersion},
	}, func() float64 { return 1 }))
	return m
}

// Registry 供测试读取指标
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler /metrics 的 net/http 处理器
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveProcess 记录一次 Process 调用
func (m *Metrics) ObserveProcess(result string, cacheHit bool, d time.Duration) {
	if m == nil {
		return
	}
	cache := CacheMiss
	if cacheHit {
		cache = CacheHit
	}
	m.processTotal.WithLabelValues(result, cache).Inc()
	m.processDuration.WithLabelValues(cache).Observe(d.Seconds())
}

// ObserveStage 记录流水线阶段耗时
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// CacheOp 记录缓存读写，op 为 get/put
func (m *Metrics) CacheOp(op, result string) {
	if m == nil {
		return
	}
	m.cacheOps.WithLabelValues(op, result).Inc()
}

// ObserveConfidence 记录章节置信度和整体置信度
func (m *Metrics) ObserveConfidence(sections map[string]float64, overall float64) {
	if m == nil {
		return
	}
	for name, c := range sections {
		m.sectionConfidence.WithLabelValues(name).Observe(c)
	}
	m.overallConfidence.Observe(overall)
}

// RecognizerError 实体识别失败一次
func (m *Metrics) RecognizerError() {
	if m == nil {
		return
	}
	m.recognizerErrors.Inc()
}

// JobFinished 异步任务结束
func (m *Metrics) JobFinished(status string) {
	if m == nil {
		return
	}
	m.jobsTotal.WithLabelValues(status).Inc()
}
