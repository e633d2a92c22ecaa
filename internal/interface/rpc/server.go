package rpc

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/xiebiao/bookcatalog/internal/infrastructure/config"
	"github.com/xiebiao/bookcatalog/pkg/logger"
)

const maxMsgSize = 10 * 1024 * 1024 // 10MB

// NewServer 创建gRPC服务器并注册图书服务、健康检查和反射
func NewServer(cfg *config.Config, log *zap.Logger, svc *BookCatalogService) *grpc.Server {
	server := grpc.NewServer(
		grpc.MaxRecvMsgSize(maxMsgSize),
		grpc.MaxSendMsgSize(maxMsgSize),
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor(log),
			LoggingInterceptor(log),
		),
	)

	RegisterBookCatalogServer(server, svc)

	healthServer := health.NewServer()
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)

	if cfg.GRPC.Reflection {
		reflection.Register(server)
	}
	return server
}

// LoggingInterceptor 访问日志,并把logger放进请求上下文
func LoggingInterceptor(base *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		reqLogger := base.With(zap.String("grpc_method", info.FullMethod))
		ctx = logger.WithContext(ctx, reqLogger)

		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)

		fields := []zap.Field{
			zap.String("code", code.String()),
			zap.Duration("latency", time.Since(start)),
		}
		switch code {
		case codes.OK:
			reqLogger.Info("grpc request", fields...)
		case codes.Internal, codes.Unavailable, codes.Unknown:
			reqLogger.Error("grpc request", append(fields, zap.Error(err))...)
		default:
			reqLogger.Warn("grpc request", append(fields, zap.Error(err))...)
		}
		return resp, err
	}
}

// RecoveryInterceptor panic → Internal
func RecoveryInterceptor(base *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.FromContext(ctx, base).Error("panic recovered",
					zap.String("grpc_method", info.FullMethod),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()),
				)
				err = status.Error(codes.Internal, fmt.Sprintf("panic: %v", r))
			}
		}()
		return handler(ctx, req)
	}
}
