package book

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/bookcatalog/internal/domain/book"
)

// DeleteBookUseCase 删除图书用例
type DeleteBookUseCase struct {
	bookService book.Service
	events      EventPublisher
	logger      *zap.Logger
}

// NewDeleteBookUseCase 创建删除图书用例
func NewDeleteBookUseCase(bookService book.Service, events EventPublisher, logger *zap.Logger) *DeleteBookUseCase {
	return &DeleteBookUseCase{
		bookService: bookService,
		events:      events,
		logger:      logger,
	}
}

// Execute 执行删除,重复删除返回 deletedCount=0
func (uc *DeleteBookUseCase) Execute(ctx context.Context, id string) (book.DeleteResult, error) {
	result, err := uc.bookService.DeleteBook(ctx, id)
	if err != nil {
		return book.DeleteResult{}, err
	}

	if result.DeletedCount > 0 {
		bookID, _ := book.ParseID(id)
		publish(ctx, uc.events, uc.logger, newEvent(EventBookDeleted, bookID))
	}
	return result, nil
}
