//go:build wireinject
// +build wireinject

// Wire依赖注入配置
// 修改Provider后运行 `wire gen ./cmd/api` 重新生成 wire_gen.go
package main

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	appbook "github.com/xiebiao/bookcatalog/internal/application/book"
	"github.com/xiebiao/bookcatalog/internal/domain/book"
	"github.com/xiebiao/bookcatalog/internal/infrastructure/config"
	"github.com/xiebiao/bookcatalog/internal/interface/http/handler"
	"github.com/xiebiao/bookcatalog/internal/interface/http/router"
	"github.com/xiebiao/bookcatalog/internal/interface/rpc"
)

// infrastructureSet 存储连接和事件发布
var infrastructureSet = wire.NewSet(
	provideRepository,
	provideEventPublisher,
)

// domainSet 领域服务
var domainSet = wire.NewSet(
	book.NewService,
)

// applicationSet 用例
var applicationSet = wire.NewSet(
	appbook.NewListBooksUseCase,
	appbook.NewGetBookUseCase,
	appbook.NewCreateBookUseCase,
	appbook.NewUpdateBookUseCase,
	appbook.NewDeleteBookUseCase,
)

// interfaceSet HTTP和gRPC接口
var interfaceSet = wire.NewSet(
	handler.NewBookHandler,
	handler.NewHealthHandler,
	router.New,
	provideHTTPServer,
	rpc.NewBookCatalogService,
	rpc.NewServer,
)

// InitializeApp 组装整个应用
// cleanup 按创建的逆序关闭事件发布器和存储连接
func InitializeApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, func(), error) {
	wire.Build(
		infrastructureSet,
		domainSet,
		applicationSet,
		interfaceSet,
		newApp,
	)
	return nil, nil, nil
}
