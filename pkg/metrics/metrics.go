// Package metrics 图书目录服务的Prometheus指标
//
// 指标分四组:
//   - HTTP:请求总数、耗时、处理中请求数
//   - 存储:每种操作的调用次数与耗时(按driver/operation/result区分)
//   - 熔断器:状态与请求结果
//   - 变更事件:发布成功/失败次数
//
// 使用方式:
//
//	metrics.InitMetrics()               // 启动时调用,重复调用无副作用
//	router.GET("/metrics", gin.WrapH(metrics.Handler()))
//
// 命名规范:Counter以 _total 结尾,Histogram以单位结尾(_seconds)。
// 标签只使用有限取值(method、路由模板、driver),不要把图书ID放进标签。
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bookcatalog"

var (
	initOnce sync.Once

	// HTTPRequestsTotal HTTP请求总数
	// 标签:method、path(路由模板,如 /books/:id)、status
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration HTTP请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestsInProgress 正在处理的HTTP请求数
	HTTPRequestsInProgress prometheus.Gauge

	// StoreOperationsTotal 存储操作总数
	// 标签:driver(mongo/mysql/redis/memory)、operation(find/find_one/insert_one/...)、result
	StoreOperationsTotal *prometheus.CounterVec

	// StoreOperationDuration 存储操作耗时
	StoreOperationDuration *prometheus.HistogramVec

	// CircuitBreakerState 熔断器状态 0=CLOSED 1=OPEN 2=HALF_OPEN
	CircuitBreakerState *prometheus.GaugeVec

	// CircuitBreakerRequests 熔断器请求结果
	// 标签:name、result(success/failure/rejected)
	CircuitBreakerRequests *prometheus.CounterVec

	// EventsPublishedTotal 变更事件发布次数
	// 标签:routing_key(book.created/...)、result(success/failure)
	EventsPublishedTotal *prometheus.CounterVec
)

// 存储操作结果标签
const (
	ResultSuccess     = "success"
	ResultClientError = "client_error" // 标识格式错误、标识不可修改等,存储本身正常
	ResultFailure     = "failure"
	ResultRejected    = "rejected" // 熔断器打开,没有真正调用存储
)

// InitMetrics 注册所有指标到默认Registry
// 使用sync.Once保证只注册一次(测试中多次调用不会panic)
func InitMetrics() {
	initOnce.Do(func() {
		register(prometheus.DefaultRegisterer)
	})
}

func register(reg prometheus.Registerer) {
	factory := promauto.With(reg)

	HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInProgress = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_requests_in_progress",
		Help:      "Number of HTTP requests currently being served",
	})

	StoreOperationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Total number of record store operations",
		},
		[]string{"driver", "operation", "result"},
	)

	StoreOperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Record store round-trip latency in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"driver", "operation"},
	)

	CircuitBreakerState = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_requests_total",
			Help:      "Requests seen by the circuit breaker",
		},
		[]string{"name", "result"},
	)

	EventsPublishedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Book change events published to the message broker",
		},
		[]string{"routing_key", "result"},
	)
}

// Handler /metrics 端点
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest 记录一次HTTP请求
func ObserveHTTPRequest(method, path string, status int, elapsed time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// ObserveStoreOperation 记录一次存储操作
func ObserveStoreOperation(driver, operation, result string, elapsed time.Duration) {
	StoreOperationsTotal.WithLabelValues(driver, operation, result).Inc()
	if result != ResultRejected {
		StoreOperationDuration.WithLabelValues(driver, operation).Observe(elapsed.Seconds())
	}
}

// SetCircuitBreakerState 更新熔断器状态(state取 circuitbreaker.State 的整数值)
func SetCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// IncCircuitBreakerRequest 记录熔断器请求结果
func IncCircuitBreakerRequest(name, result string) {
	CircuitBreakerRequests.WithLabelValues(name, result).Inc()
}

// IncEventPublished 记录事件发布结果
func IncEventPublished(routingKey string, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	EventsPublishedTotal.WithLabelValues(routingKey, result).Inc()
}
