package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	_ "github.com/xiebiao/bookcatalog/docs"
	"github.com/xiebiao/bookcatalog/internal/infrastructure/config"
	"github.com/xiebiao/bookcatalog/pkg/logger"
	"github.com/xiebiao/bookcatalog/pkg/metrics"
	"github.com/xiebiao/bookcatalog/pkg/tracing"
)

// @title           Book Catalog API
// @version         1.0
// @description     图书目录服务:对任意JSON结构的图书记录做增删改查和搜索
// @BasePath        /
// @schemes         http

func main() {
	// 1. 加载配置(config.yaml + .env + 环境变量)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 2. 日志
	zapLogger := logger.Must(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
		Caller: cfg.Log.EnableCaller,
	})
	defer func() { _ = zapLogger.Sync() }()

	zapLogger.Info("配置加载成功",
		zap.Int("port", cfg.Server.Port),
		zap.String("mode", cfg.Server.Mode),
		zap.String("store", cfg.Store.Driver),
		zap.Bool("grpc", cfg.GRPC.Enabled),
		zap.Bool("events", cfg.Events.Enabled),
	)

	if err := run(cfg, zapLogger); err != nil {
		zapLogger.Error("服务异常退出", zap.Error(err))
		_ = zapLogger.Sync()
		os.Exit(1)
	}
	zapLogger.Info("服务已退出")
}

func run(cfg *config.Config, zapLogger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 追踪和指标
	shutdownTracer, err := tracing.InitTracer(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracer(flushCtx); err != nil {
			zapLogger.Warn("关闭追踪导出器失败", zap.Error(err))
		}
	}()
	metrics.InitMetrics()

	// 4. 依赖注入(连接存储失败时直接退出)
	app, cleanup, err := InitializeApp(ctx, cfg, zapLogger)
	if err != nil {
		return err
	}
	defer cleanup()

	// 5. 启动,收到SIGINT/SIGTERM后优雅关闭
	return app.Run(ctx)
}
