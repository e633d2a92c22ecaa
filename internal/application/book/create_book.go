package book

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/bookcatalog/internal/domain/book"
)

// CreateBookUseCase 新建图书用例
// 设计说明:
// 1. 应用层负责用例编排:领域服务写入 → 发布 book.created 事件
// 2. 记录内容不做校验,任意JSON对象都可以写入
type CreateBookUseCase struct {
	bookService book.Service
	events      EventPublisher
	logger      *zap.Logger
}

// NewCreateBookUseCase 创建新建图书用例
func NewCreateBookUseCase(bookService book.Service, events EventPublisher, logger *zap.Logger) *CreateBookUseCase {
	return &CreateBookUseCase{
		bookService: bookService,
		events:      events,
		logger:      logger,
	}
}

// Execute 执行新建图书用例
func (uc *CreateBookUseCase) Execute(ctx context.Context, record *book.Record) (book.InsertResult, error) {
	result, err := uc.bookService.CreateBook(ctx, record)
	if err != nil {
		return book.InsertResult{}, err
	}

	event := newEvent(EventBookCreated, result.InsertedID)
	event.Record = record.WithIDFirst(result.InsertedID)
	publish(ctx, uc.events, uc.logger, event)

	return result, nil
}
