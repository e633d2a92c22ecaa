package book

import (
	"context"

	"github.com/xiebiao/bookcatalog/internal/domain/book"
)

// GetBookUseCase 图书详情用例
type GetBookUseCase struct {
	bookService book.Service
}

// NewGetBookUseCase 创建详情用例
func NewGetBookUseCase(bookService book.Service) *GetBookUseCase {
	return &GetBookUseCase{bookService: bookService}
}

// Execute 根据ID查询图书,不存在时返回 nil, nil
func (uc *GetBookUseCase) Execute(ctx context.Context, id string) (*book.Record, error) {
	return uc.bookService.GetBook(ctx, id)
}
