// Package redis 基于Redis的图书存储
//
// 键设计(prefix 来自 redis.key_prefix):
//
//	<prefix>:doc:<id>   STRING  记录JSON
//	<prefix>:seq        ZSET    member=id score=插入序号(决定返回顺序)
//	<prefix>:counter    STRING  插入序号计数器
//
// Redis没有二级索引,按字段过滤时读出全部记录后在进程内判断,适合小规模目录。
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xiebiao/bookcatalog/internal/infrastructure/config"
)

// NewClient 创建Redis客户端
// 设计说明:
// 1. 配置连接池参数(PoolSize、MinIdleConns)
// 2. 配置超时参数(DialTimeout、ReadTimeout、WriteTimeout)
// 3. 测试连接可用性
func NewClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("Redis连接失败: %w", err)
	}

	logger.Info("Redis连接成功",
		zap.String("addr", cfg.Redis.Addr()),
		zap.Int("db", cfg.Redis.DB),
		zap.String("key_prefix", cfg.Redis.KeyPrefix),
	)
	return client, nil
}
