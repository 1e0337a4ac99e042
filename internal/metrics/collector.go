package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 网关指标收集器
type Collector struct {
	registry *prometheus.Registry

	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRequestSize     *prometheus.HistogramVec

	// 提供方指标
	providerRequestsTotal   *prometheus.CounterVec
	providerRequestDuration *prometheus.HistogramVec

	// 校验与限流
	validationDropped *prometheus.CounterVec
	actionsAccepted   *prometheus.CounterVec
	rateLimited       *prometheus.CounterVec
	rateLimitErrors   prometheus.Counter

	// 执行器
	executorActions *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器。每个 Collector 拥有独立的 Registry，
// 同一进程内可创建多个实例（测试中常见）。
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c := &Collector{
		registry: reg,
		logger:   logger.With(zap.String("component", "metrics")),
	}

	c.httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	c.httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	c.httpRequestSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_size_bytes",
		Help:      "HTTP request size in bytes",
		Buckets:   prometheus.ExponentialBuckets(256, 8, 8),
	}, []string{"method", "path"})

	c.providerRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_requests_total",
		Help:      "Dispatches to model providers by outcome",
	}, []string{"provider", "status"})

	c.providerRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provider_request_duration_seconds",
		Help:      "Model provider round-trip duration in seconds",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	}, []string{"provider"})

	c.validationDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "validation_dropped_total",
		Help:      "Action candidates dropped during validation",
	}, []string{"reason"})

	c.actionsAccepted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "actions_accepted_total",
		Help:      "Validated actions returned to callers",
	}, []string{"provider"})

	c.rateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_rejections_total",
		Help:      "Requests rejected by the rate limiter",
	}, []string{"path"})

	c.rateLimitErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_store_errors_total",
		Help:      "Limiter store failures (requests were allowed)",
	})

	c.executorActions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "executor_actions_total",
		Help:      "Actions sent to the executor by kind and outcome",
	}, []string{"kind", "status"})

	reg.MustRegister(
		c.httpRequestsTotal, c.httpRequestDuration, c.httpRequestSize,
		c.providerRequestsTotal, c.providerRequestDuration,
		c.validationDropped, c.actionsAccepted,
		c.rateLimited, c.rateLimitErrors,
		c.executorActions,
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// =============================================================================
// 🎯 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration, requestSize int64) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusClass(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	if requestSize > 0 {
		c.httpRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	}
}

// =============================================================================
// 🤖 提供方与校验指标
// =============================================================================

// RecordProviderRequest 记录一次提供方调用；status 为 "ok" 或错误码
func (c *Collector) RecordProviderRequest(provider, status string, duration time.Duration) {
	c.providerRequestsTotal.WithLabelValues(provider, status).Inc()
	c.providerRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordDropped 记录一个被丢弃的候选动作
func (c *Collector) RecordDropped(reason string) {
	c.validationDropped.WithLabelValues(reason).Inc()
}

// RecordAccepted 记录返回给调用方的动作数
func (c *Collector) RecordAccepted(provider string, n int) {
	c.actionsAccepted.WithLabelValues(provider).Add(float64(n))
}

// =============================================================================
// 🚦 限流与执行器指标
// =============================================================================

// RecordRateLimited 记录一次限流拒绝
func (c *Collector) RecordRateLimited(path string) {
	c.rateLimited.WithLabelValues(path).Inc()
}

// RecordRateLimitError 记录限流存储故障
func (c *Collector) RecordRateLimitError() {
	c.rateLimitErrors.Inc()
}

// RecordExecutorAction 记录执行器动作结果
func (c *Collector) RecordExecutorAction(kind string, ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	c.executorActions.WithLabelValues(kind, status).Inc()
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// statusClass 将 HTTP 状态码归类为 2xx/4xx 等；429 单独保留
func statusClass(code int) string {
	switch {
	case code == http.StatusTooManyRequests:
		return strconv.Itoa(code)
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
