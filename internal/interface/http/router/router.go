// Package router HTTP路由注册
package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/xiebiao/bookcatalog/internal/infrastructure/config"
	"github.com/xiebiao/bookcatalog/internal/interface/http/handler"
	"github.com/xiebiao/bookcatalog/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/bookcatalog/pkg/errors"
	"github.com/xiebiao/bookcatalog/pkg/metrics"
	"github.com/xiebiao/bookcatalog/pkg/response"
)

// New 创建Gin引擎并注册全部路由
//
// 中间件顺序:Recovery → Tracing → Logger → Metrics → CORS → BodyLimit
// Tracing 在 Logger 之前,访问日志才能带上 trace_id
func New(
	cfg *config.Config,
	logger *zap.Logger,
	bookHandler *handler.BookHandler,
	healthHandler *handler.HealthHandler,
) *gin.Engine {
	switch cfg.Server.Mode {
	case gin.ReleaseMode, gin.TestMode, gin.DebugMode:
		gin.SetMode(cfg.Server.Mode)
	}

	r := gin.New()
	r.Use(
		middleware.Recovery(logger),
		middleware.Tracing(),
		middleware.Logger(logger),
	)
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics())
	}
	r.Use(
		middleware.CORS(cfg.CORS),
		middleware.BodyLimit(cfg.Server.MaxBodyBytes),
	)

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, apperrors.ErrNotFound)
	})

	// 系统接口
	r.GET("/", healthHandler.Root)
	r.GET("/ping", healthHandler.Ping)
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(metrics.Handler()))
	}
	if cfg.Server.Mode != gin.ReleaseMode {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// 图书模块
	books := r.Group("/books")
	{
		books.GET("", bookHandler.ListBooks)
		books.POST("", bookHandler.CreateBook)
		books.GET("/:id", bookHandler.GetBook)
		books.PATCH("/:id", bookHandler.UpdateBook)
		books.DELETE("/:id", bookHandler.DeleteBook)
	}

	return r
}
