package book

import (
	"context"

	"github.com/xiebiao/bookcatalog/internal/domain/book"
)

// ListBooksUseCase 图书列表查询用例
// 设计说明:
// 1. 不分页、不排序,结果按存储的插入顺序返回
// 2. 过滤规则见 book.BuildFilterQuery 的决策表
type ListBooksUseCase struct {
	bookService book.Service
}

// NewListBooksUseCase 创建列表查询用例
func NewListBooksUseCase(bookService book.Service) *ListBooksUseCase {
	return &ListBooksUseCase{
		bookService: bookService,
	}
}

// ListBooksRequest 列表查询请求DTO
// nil 表示未提供该参数
type ListBooksRequest struct {
	Field      *string // 过滤字段名
	SearchTerm *string // 搜索词
}

// Execute 执行列表查询用例
func (uc *ListBooksUseCase) Execute(ctx context.Context, req ListBooksRequest) ([]*book.Record, error) {
	return uc.bookService.ListBooks(ctx, book.FilterRequest{
		Field:      req.Field,
		SearchTerm: req.SearchTerm,
	})
}
