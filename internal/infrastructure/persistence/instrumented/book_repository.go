// Package instrumented 存储装饰器
//
// 包在任意 book.Repository 外层,按调用顺序依次处理:
//
//	span(store.<op>) → 单次调用超时 → 熔断器 → 真实存储 → 指标 + 调试日志
//
// 错误语义不变:客户端错误原样返回,其他错误统一为 book.ErrStoreUnavailable。
package instrumented

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.uber.org/zap"

	"github.com/xiebiao/bookcatalog/internal/domain/book"
	"github.com/xiebiao/bookcatalog/internal/infrastructure/config"
	"github.com/xiebiao/bookcatalog/pkg/circuitbreaker"
	apperrors "github.com/xiebiao/bookcatalog/pkg/errors"
	"github.com/xiebiao/bookcatalog/pkg/logger"
	"github.com/xiebiao/bookcatalog/pkg/metrics"
	"github.com/xiebiao/bookcatalog/pkg/tracing"
)

// 操作名(指标标签和span名称)
const (
	opFind      = "find"
	opFindOne   = "find_one"
	opInsertOne = "insert_one"
	opUpdateOne = "update_one"
	opDeleteOne = "delete_one"
	opPing      = "ping"
)

// Options 装饰器配置
type Options struct {
	Driver  string                         // 存储驱动名(mongo/mysql/redis/memory)
	Timeout time.Duration                  // 单次调用超时,0表示只跟随请求上下文
	Breaker *circuitbreaker.CircuitBreaker // nil表示不启用熔断
	Logger  *zap.Logger
}

type bookRepository struct {
	next    book.Repository
	driver  string
	timeout time.Duration
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewBookRepository 为存储加上追踪、超时、熔断和指标
func NewBookRepository(next book.Repository, opts Options) book.Repository {
	metrics.InitMetrics()
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &bookRepository{
		next:    next,
		driver:  opts.Driver,
		timeout: opts.Timeout,
		breaker: opts.Breaker,
		logger:  opts.Logger.Named("store"),
	}
}

// NewBreaker 按配置创建存储熔断器
// 只有 ErrStoreUnavailable 计为失败;客户端错误和请求被调用方取消都说明存储本身正常
func NewBreaker(driver string, cfg config.BreakerConfig, log *zap.Logger) *circuitbreaker.CircuitBreaker {
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}
	name := "store." + driver
	metrics.InitMetrics()
	metrics.SetCircuitBreakerState(name, int(circuitbreaker.StateClosed))

	return circuitbreaker.New(name, circuitbreaker.Config{
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: IsStoreHealthy,
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			log.Warn("熔断器状态变化",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.SetCircuitBreakerState(name, int(to))
		},
	})
}

// IsStoreHealthy 判断一次存储调用的结果是否说明存储可用
func IsStoreHealthy(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	return !errors.Is(err, book.ErrStoreUnavailable)
}

func (r *bookRepository) Find(ctx context.Context, filter book.Predicate) ([]*book.Record, error) {
	var out []*book.Record
	err := r.do(ctx, opFind, true, func(ctx context.Context) error {
		var err error
		out, err = r.next.Find(ctx, filter)
		return err
	}, attribute.String("store.filter", filter.String()))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *bookRepository) FindOne(ctx context.Context, filter book.Predicate) (*book.Record, error) {
	var out *book.Record
	err := r.do(ctx, opFindOne, true, func(ctx context.Context) error {
		var err error
		out, err = r.next.FindOne(ctx, filter)
		return err
	}, attribute.String("store.filter", filter.String()))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *bookRepository) InsertOne(ctx context.Context, record *book.Record) (book.InsertResult, error) {
	var out book.InsertResult
	err := r.do(ctx, opInsertOne, true, func(ctx context.Context) error {
		var err error
		out, err = r.next.InsertOne(ctx, record)
		return err
	})
	if err != nil {
		return book.InsertResult{}, err
	}
	return out, nil
}

func (r *bookRepository) UpdateOne(ctx context.Context, filter book.Predicate, update *book.MergeDocument) (book.UpdateResult, error) {
	var out book.UpdateResult
	err := r.do(ctx, opUpdateOne, true, func(ctx context.Context) error {
		var err error
		out, err = r.next.UpdateOne(ctx, filter, update)
		return err
	}, attribute.String("store.filter", filter.String()))
	if err != nil {
		return book.UpdateResult{}, err
	}
	return out, nil
}

func (r *bookRepository) DeleteOne(ctx context.Context, filter book.Predicate) (book.DeleteResult, error) {
	var out book.DeleteResult
	err := r.do(ctx, opDeleteOne, true, func(ctx context.Context) error {
		var err error
		out, err = r.next.DeleteOne(ctx, filter)
		return err
	}, attribute.String("store.filter", filter.String()))
	if err != nil {
		return book.DeleteResult{}, err
	}
	return out, nil
}

// Ping 不经过熔断器,健康检查需要看到存储的真实状态
func (r *bookRepository) Ping(ctx context.Context) error {
	return r.do(ctx, opPing, false, r.next.Ping)
}

func (r *bookRepository) Close(ctx context.Context) error {
	return r.next.Close(ctx)
}

// do 执行一次存储调用
func (r *bookRepository) do(ctx context.Context, op string, guarded bool, call func(ctx context.Context) error, attrs ...attribute.KeyValue) error {
	attrs = append(attrs,
		semconv.DBSystemKey.String(r.driver),
		semconv.DBOperation(op),
	)
	ctx, span := tracing.StartSpan(ctx, "store."+op, attrs...)

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	var err error
	if guarded && r.breaker != nil {
		err = r.breaker.ExecuteContext(ctx, call)
	} else {
		err = call(ctx)
	}
	elapsed := time.Since(start)

	result := metrics.ResultSuccess
	switch {
	case errors.Is(err, circuitbreaker.ErrOpenState):
		result = metrics.ResultRejected
		err = apperrors.WithCause(book.ErrStoreUnavailable, err)
	case err != nil:
		err = book.StoreUnavailable(err)
		if errors.Is(err, book.ErrStoreUnavailable) {
			result = metrics.ResultFailure
		} else {
			result = metrics.ResultClientError
		}
	}

	metrics.ObserveStoreOperation(r.driver, op, result, elapsed)
	if guarded && r.breaker != nil {
		metrics.IncCircuitBreakerRequest(r.breaker.Name(), result)
	}

	log := logger.FromContext(ctx, r.logger)
	if result == metrics.ResultFailure || result == metrics.ResultRejected {
		log.Warn("存储调用失败",
			zap.String("driver", r.driver),
			zap.String("op", op),
			zap.String("result", result),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		tracing.EndSpan(span, err)
	} else {
		log.Debug("存储调用",
			zap.String("driver", r.driver),
			zap.String("op", op),
			zap.String("result", result),
			zap.Duration("elapsed", elapsed),
		)
		span.SetAttributes(attribute.String("store.result", result))
		tracing.EndSpan(span, nil)
	}
	return err
}
