// Package metrics 提供基于Prometheus的指标收集框架
//
// # 什么是Metrics（指标）？
//
// Metrics是可观测性三支柱之一（Tracing、Metrics、Logging）：
// - **Tracing（追踪）**: 回答"为什么慢？"
// - **Metrics（指标）**: 回答"有多少？多快？"（本模块）
// - **Logging（日志）**: 回答"发生了什么？"
//
// # 核心概念
//
// **1. Counter（计数器）**：只增不减的累计值
//   - 示例：调度周期总数、调拨总数、采购单总数
//   - 特点：只能调用Inc()递增
//
// **2. Gauge（仪表盘）**：可增可减的瞬时值
//   - 示例：正在处理的物资数、熔断器状态
//   - 特点：可以调用Inc()、Dec()、Set()
//
// **3. Histogram（直方图）**：观测值的分布
//   - 示例：周期耗时、单物资流水线耗时
//   - 特点：自动计算分位数（P50、P90、P99）
//
// # 使用示例
//
//	// 1. 初始化Metrics
//	metrics.InitMetrics()
//
//	// 2. 在HTTP服务中暴露/metrics端点
//	http.Handle("/metrics", promhttp.Handler())
//
//	// 3. 在业务代码中记录指标
//	func RunCycle(ctx context.Context) error {
//	    start := time.Now()
//
//	    if err := doRunCycle(ctx); err != nil {
//	        metrics.IncCounterVec(metrics.CyclesTotal, map[string]string{"result": "failure"})
//	        return err
//	    }
//
//	    metrics.IncCounterVec(metrics.CyclesTotal, map[string]string{"result": "success"})
//	    metrics.ObserveHistogram(metrics.CycleDuration, time.Since(start).Seconds())
//	    return nil
//	}
//
// # 常见指标命名规范
//
// 1. **Counter**: 以`_total`结尾
//   - `rebalance_cycles_total`（调度周期总数）
//   - `transfers_executed_total`（调拨执行总数）
//
// 2. **Histogram**: 以单位结尾（`_seconds`、`_bytes`）
//   - `rebalance_cycle_duration_seconds`（周期耗时）
//
// 3. **Gauge**: 使用现在时态
//   - `items_in_progress`（正在处理的物资数）
//
// # 最佳实践
//
// 避免高基数标签（High Cardinality）：
//   - ❌ 不要用item_id作为标签（可能上万种物资）
//   - ✅ 用result、rationale作为标签（有限个值）
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// initialized 标记是否已初始化（防止重复注册）
	initialized bool

	// HTTP请求相关指标

	// HTTPRequestsTotal HTTP请求总数（Counter）
	// 标签：method（GET/POST）、path（/api/engine/status）、status（200/500）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration HTTP请求耗时（Histogram）
	HTTPRequestDuration *prometheus.HistogramVec

	// 调度周期指标

	// CyclesTotal 调度周期总数（Counter）
	// 标签：result（success/partial/failure/skipped）
	CyclesTotal *prometheus.CounterVec

	// CycleDuration 调度周期耗时（Histogram）
	CycleDuration prometheus.Histogram

	// ItemsInProgress 正在处理的物资数（Gauge）
	ItemsInProgress prometheus.Gauge

	// 调拨与采购指标

	// TransfersExecutedTotal 调拨执行总数（Counter）
	// 标签：rationale（EMERGENCY/PREVENTIVE/GLOBAL_OPTIMIZATION）
	TransfersExecutedTotal *prometheus.CounterVec

	// TransfersFailedTotal 调拨失败总数（Counter）
	TransfersFailedTotal prometheus.Counter

	// OrdersPlacedTotal 采购单创建总数（Counter）
	// 标签：priority（NORMAL/HIGH/CRITICAL）
	OrdersPlacedTotal *prometheus.CounterVec

	// OrdersFailedTotal 采购单创建失败总数（Counter）
	OrdersFailedTotal prometheus.Counter

	// OrdersDedupedTotal 去重窗口内被跳过的采购请求数（Counter）
	OrdersDedupedTotal prometheus.Counter

	// 告警指标

	// AlertsRaisedTotal 告警触发总数（Counter）
	// 标签：type（LOW_STOCK/CYCLE_FAILURE）
	AlertsRaisedTotal *prometheus.CounterVec

	// AlertsResolvedTotal 告警解除总数（Counter）
	AlertsResolvedTotal prometheus.Counter

	// 熔断器指标

	// CircuitBreakerState 熔断器状态（Gauge）
	// 0=CLOSED, 1=OPEN, 2=HALF_OPEN
	CircuitBreakerState *prometheus.GaugeVec

	// CircuitBreakerRequests 熔断器请求总数（Counter）
	// 标签：name（熔断器名称）、result（success/failure/rejected）
	CircuitBreakerRequests *prometheus.CounterVec

	// 消息队列指标

	// MessagesPublishedTotal 消息发布总数（Counter）
	// 标签：exchange（交换机）、routing_key（路由键）
	MessagesPublishedTotal *prometheus.CounterVec
)

// InitMetrics 初始化所有Prometheus指标
//
// 必须在程序启动时调用一次，用于注册所有指标到全局Registry
//
// 设计要点：
// 1. 使用promauto.New*自动注册到默认Registry
// 2. Counter使用*Vec支持标签（多维度统计）
// 3. Histogram的Buckets根据业务场景定制
func InitMetrics() {
	// 防止重复初始化
	if initialized {
		return
	}
	initialized = true

	// HTTP请求指标
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP请求总数",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP请求耗时（秒）",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method", "path"},
	)

	// 调度周期指标
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rebalance_cycles_total",
			Help: "调度周期总数",
		},
		[]string{"result"}, // 标签：结果（success/partial/failure/skipped）
	)

	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "rebalance_cycle_duration_seconds",
			Help: "调度周期耗时（秒）",
			// 周期耗时取决于物资种类数和数据库往返次数
			// 桶设置：100ms、500ms、1s、5s、10s、30s、60s、180s
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 180},
		},
	)

	ItemsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "items_in_progress",
			Help: "正在处理的物资数",
		},
	)

	// 调拨与采购指标
	TransfersExecutedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transfers_executed_total",
			Help: "调拨执行总数",
		},
		[]string{"rationale"},
	)

	TransfersFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "transfers_failed_total",
			Help: "调拨失败总数",
		},
	)

	OrdersPlacedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_placed_total",
			Help: "采购单创建总数",
		},
		[]string{"priority"},
	)

	OrdersFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_failed_total",
			Help: "采购单创建失败总数",
		},
	)

	OrdersDedupedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_deduped_total",
			Help: "去重窗口内被跳过的采购请求数",
		},
	)

	// 告警指标
	AlertsRaisedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_raised_total",
			Help: "告警触发总数",
		},
		[]string{"type"},
	)

	AlertsResolvedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alerts_resolved_total",
			Help: "告警解除总数",
		},
	)

	// 熔断器指标
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "熔断器状态（0=CLOSED, 1=OPEN, 2=HALF_OPEN）",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "熔断器请求总数",
		},
		[]string{"name", "result"},
	)

	// 消息队列指标
	MessagesPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_published_total",
			Help: "消息发布总数",
		},
		[]string{"exchange", "routing_key"},
	)
}

// IncCounter 递增Counter（便捷函数）
func IncCounter(counter prometheus.Counter) {
	counter.Inc()
}

// IncCounterVec 递增CounterVec（带标签）
func IncCounterVec(counter *prometheus.CounterVec, labels map[string]string) {
	counter.With(labels).Inc()
}

// IncGauge 递增Gauge
func IncGauge(gauge prometheus.Gauge) {
	gauge.Inc()
}

// DecGauge 递减Gauge
func DecGauge(gauge prometheus.Gauge) {
	gauge.Dec()
}

// SetGauge 设置Gauge值
func SetGauge(gauge prometheus.Gauge, value float64) {
	gauge.Set(value)
}

// SetGaugeVec 设置GaugeVec值（带标签）
func SetGaugeVec(gauge *prometheus.GaugeVec, labels map[string]string, value float64) {
	gauge.With(labels).Set(value)
}

// ObserveHistogram 记录Histogram观测值
func ObserveHistogram(histogram prometheus.Histogram, value float64) {
	histogram.Observe(value)
}

// ObserveHistogramVec 记录HistogramVec观测值（带标签）
func ObserveHistogramVec(histogram *prometheus.HistogramVec, labels map[string]string, value float64) {
	histogram.With(labels).Observe(value)
}
