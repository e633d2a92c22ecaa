package book

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/bookcatalog/internal/domain/book"
)

// UpdateBookUseCase 合并更新用例
type UpdateBookUseCase struct {
	bookService book.Service
	events      EventPublisher
	logger      *zap.Logger
}

// NewUpdateBookUseCase 创建合并更新用例
func NewUpdateBookUseCase(bookService book.Service, events EventPublisher, logger *zap.Logger) *UpdateBookUseCase {
	return &UpdateBookUseCase{
		bookService: bookService,
		events:      events,
		logger:      logger,
	}
}

// Execute 执行合并更新
// 只有内容真正发生变化时才发布 book.updated
func (uc *UpdateBookUseCase) Execute(ctx context.Context, id string, payload *book.Record) (book.UpdateResult, error) {
	result, err := uc.bookService.UpdateBook(ctx, id, payload)
	if err != nil {
		return book.UpdateResult{}, err
	}

	if result.ModifiedCount > 0 {
		// 更新成功说明id已通过校验
		bookID, _ := book.ParseID(id)
		event := newEvent(EventBookUpdated, bookID)
		event.Changes = payload.Clone()
		publish(ctx, uc.events, uc.logger, event)
	}
	return result, nil
}
