// Package mongo 基于MongoDB的图书存储(默认驱动)
//
// 集合结构即图书记录本身,_id 为 ObjectId。
// 查询条件和合并文档在 query.go 中翻译为原生的 bson 过滤器和 $set 更新。
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/zap"

	"github.com/xiebiao/bookcatalog/internal/infrastructure/config"
)

// NewClient 创建MongoDB客户端
// 设计说明:
// 1. 使用Stable API v1(strict + deprecationErrors),服务端升级时行为不变
// 2. 配置连接池和超时参数
// 3. 启动时Ping一次主节点,连接失败直接退出而不是等第一个请求才暴露
func NewClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*mongo.Client, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1).
		SetStrict(true).
		SetDeprecationErrors(true)

	opts := options.Client().
		ApplyURI(cfg.Mongo.ConnectionURI()).
		SetServerAPIOptions(serverAPI).
		SetAppName(cfg.Mongo.AppName).
		SetConnectTimeout(cfg.Mongo.ConnectTimeout).
		SetServerSelectionTimeout(cfg.Mongo.ServerSelectionTimeout)
	if cfg.Mongo.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.Mongo.MaxPoolSize)
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("创建MongoDB客户端失败: %w", err)
	}

	pingCtx := ctx
	if cfg.Mongo.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.Mongo.ConnectTimeout)
		defer cancel()
	}
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("MongoDB连接失败: %w", err)
	}

	logger.Info("MongoDB连接成功",
		zap.String("database", cfg.Mongo.Database),
		zap.String("collection", cfg.Mongo.Collection),
	)
	return client, nil
}
