package rpc

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	appbook "github.com/xiebiao/bookcatalog/internal/application/book"
	apperrors "github.com/xiebiao/bookcatalog/pkg/errors"
)

// BookCatalogService gRPC服务实现
// 职责:协议转换(protobuf通用类型 ↔ 记录)和错误码转换,业务编排复用HTTP接口的同一组用例
type BookCatalogService struct {
	listBooks  *appbook.ListBooksUseCase
	getBook    *appbook.GetBookUseCase
	createBook *appbook.CreateBookUseCase
	updateBook *appbook.UpdateBookUseCase
	deleteBook *appbook.DeleteBookUseCase
}

var _ BookCatalogServer = (*BookCatalogService)(nil)

// NewBookCatalogService 创建gRPC服务实现
func NewBookCatalogService(
	listBooks *appbook.ListBooksUseCase,
	getBook *appbook.GetBookUseCase,
	createBook *appbook.CreateBookUseCase,
	updateBook *appbook.UpdateBookUseCase,
	deleteBook *appbook.DeleteBookUseCase,
) *BookCatalogService {
	return &BookCatalogService{
		listBooks:  listBooks,
		getBook:    getBook,
		createBook: createBook,
		updateBook: updateBook,
		deleteBook: deleteBook,
	}
}

// ListBooks 请求 {field?, searchTerm?}
func (s *BookCatalogService) ListBooks(ctx context.Context, req *structpb.Struct) (*structpb.ListValue, error) {
	field, err := optionalString(req, "field")
	if err != nil {
		return nil, toStatus(apperrors.WithCause(apperrors.ErrInvalidParams, err))
	}
	term, err := optionalString(req, "searchTerm")
	if err != nil {
		return nil, toStatus(apperrors.WithCause(apperrors.ErrInvalidParams, err))
	}

	records, err := s.listBooks.Execute(ctx, appbook.ListBooksRequest{Field: field, SearchTerm: term})
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := toListValue(records)
	if err != nil {
		return nil, toStatus(err)
	}
	return out, nil
}

// GetBook 不存在时返回null
func (s *BookCatalogService) GetBook(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Value, error) {
	record, err := s.getBook.Execute(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := toValue(record)
	if err != nil {
		return nil, toStatus(err)
	}
	return out, nil
}

// CreateBook 请求体即图书记录
func (s *BookCatalogService) CreateBook(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	record, err := structToRecord(req)
	if err != nil {
		return nil, toStatus(err)
	}
	result, err := s.createBook.Execute(ctx, record)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := toStruct(result)
	if err != nil {
		return nil, toStatus(err)
	}
	return out, nil
}

// UpdateBook 请求 {id, book}
func (s *BookCatalogService) UpdateBook(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := optionalString(req, "id")
	if err != nil || id == nil {
		return nil, toStatus(apperrors.New(apperrors.ErrCodeInvalidParams, "id必须是字符串"))
	}
	payload, err := structToRecord(req.GetFields()["book"].GetStructValue())
	if err != nil {
		return nil, toStatus(err)
	}

	result, err := s.updateBook.Execute(ctx, *id, payload)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := toStruct(result)
	if err != nil {
		return nil, toStatus(err)
	}
	return out, nil
}

// DeleteBook 重复删除返回 deletedCount=0
func (s *BookCatalogService) DeleteBook(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	result, err := s.deleteBook.Execute(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := toStruct(result)
	if err != nil {
		return nil, toStatus(err)
	}
	return out, nil
}
