package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	appbook "github.com/xiebiao/bookcatalog/internal/application/book"
	"github.com/xiebiao/bookcatalog/internal/domain/book"
	"github.com/xiebiao/bookcatalog/internal/infrastructure/config"
	"github.com/xiebiao/bookcatalog/internal/infrastructure/persistence"
	"github.com/xiebiao/bookcatalog/pkg/mq"
)

// App 组装完成的进程:HTTP服务、可选的gRPC服务
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	http   *http.Server
	grpc   *grpc.Server
}

func newApp(cfg *config.Config, logger *zap.Logger, httpServer *http.Server, grpcServer *grpc.Server) *App {
	return &App{cfg: cfg, logger: logger, http: httpServer, grpc: grpcServer}
}

// Run 启动服务,ctx取消后优雅关闭
func (a *App) Run(ctx context.Context) error {
	var lis net.Listener
	if a.cfg.GRPC.Enabled {
		var err error
		lis, err = net.Listen("tcp", fmt.Sprintf(":%d", a.cfg.GRPC.Port))
		if err != nil {
			return fmt.Errorf("监听gRPC端口失败: %w", err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP服务启动", zap.String("addr", a.http.Addr))
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP服务异常退出: %w", err)
		}
		return nil
	})

	if lis != nil {
		g.Go(func() error {
			a.logger.Info("gRPC服务启动", zap.String("addr", lis.Addr().String()))
			if err := a.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("gRPC服务异常退出: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("正在关闭服务...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
		defer cancel()

		if lis != nil {
			stopped := make(chan struct{})
			go func() {
				a.grpc.GracefulStop()
				close(stopped)
			}()
			select {
			case <-stopped:
			case <-shutdownCtx.Done():
				a.grpc.Stop()
			}
		}
		if err := a.http.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP服务关闭失败: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// provideRepository 建立存储连接,cleanup 关闭连接
func provideRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (book.Repository, func(), error) {
	repo, err := persistence.NewBookRepository(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := repo.Close(closeCtx); err != nil {
			logger.Warn("关闭存储连接失败", zap.Error(err))
		}
	}
	return repo, cleanup, nil
}

// provideEventPublisher 事件关闭时使用空实现
func provideEventPublisher(cfg *config.Config, logger *zap.Logger) (appbook.EventPublisher, func(), error) {
	if !cfg.Events.Enabled {
		return appbook.NopPublisher{}, func() {}, nil
	}
	publisher, err := mq.NewPublisher(cfg.Events.URL, cfg.Events.Exchange, cfg.Events.ExchangeType, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("关闭消息发布器失败", zap.Error(err))
		}
	}
	return appbook.NewMQPublisher(publisher, cfg.Events.Timeout), cleanup, nil
}

func provideHTTPServer(cfg *config.Config, engine *gin.Engine) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
