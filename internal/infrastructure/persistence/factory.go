// Package persistence 按配置组装图书存储
package persistence

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xiebiao/bookcatalog/internal/domain/book"
	"github.com/xiebiao/bookcatalog/internal/infrastructure/config"
	"github.com/xiebiao/bookcatalog/internal/infrastructure/persistence/instrumented"
	"github.com/xiebiao/bookcatalog/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/bookcatalog/internal/infrastructure/persistence/mongo"
	"github.com/xiebiao/bookcatalog/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/bookcatalog/internal/infrastructure/persistence/redis"
)

// NewBookRepository 根据 store.driver 创建存储,并加上追踪、超时、熔断和指标
// 连接在这里建立一次,整个进程共享;连接失败直接返回错误,由启动流程退出
func NewBookRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (book.Repository, error) {
	base, err := newDriver(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	opts := instrumented.Options{
		Driver:  cfg.Store.Driver,
		Timeout: cfg.Store.OperationTimeout,
		Logger:  logger,
	}
	if cfg.Breaker.Enabled {
		opts.Breaker = instrumented.NewBreaker(cfg.Store.Driver, cfg.Breaker, logger)
	}
	return instrumented.NewBookRepository(base, opts), nil
}

func newDriver(ctx context.Context, cfg *config.Config, logger *zap.Logger) (book.Repository, error) {
	switch cfg.Store.Driver {
	case config.DriverMongo:
		client, err := mongo.NewClient(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return mongo.NewBookRepository(client, cfg.Mongo.Database, cfg.Mongo.Collection), nil

	case config.DriverMySQL:
		db, err := mysql.NewDB(cfg, logger)
		if err != nil {
			return nil, err
		}
		return mysql.NewBookRepository(db, cfg.Database.Table), nil

	case config.DriverRedis:
		client, err := redis.NewClient(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return redis.NewBookRepository(client, cfg.Redis.KeyPrefix), nil

	case config.DriverMemory:
		logger.Warn("使用内存存储,进程退出后数据丢失")
		return memory.NewBookRepository(), nil

	default:
		return nil, fmt.Errorf("未知的存储驱动: %q", cfg.Store.Driver)
	}
}
