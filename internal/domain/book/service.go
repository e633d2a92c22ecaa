package book

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/xiebiao/bookcatalog/pkg/errors"
)

// Service 图书领域服务接口
// 设计说明:
// 1. 每个操作只调用存储一次,不做重试,不持有请求之间的状态
// 2. 返回值三选一:成功结果 | ErrInvalidIdentifier(客户端错误) | ErrStoreUnavailable(服务端错误)
// 3. 查不到记录返回 nil 记录;更新/删除命中0条返回0计数,都不是错误
type Service interface {
	// ListBooks 按过滤参数查询图书
	ListBooks(ctx context.Context, filter FilterRequest) ([]*Record, error)

	// GetBook 根据ID获取图书,不存在时返回 nil, nil
	GetBook(ctx context.Context, id string) (*Record, error)

	// CreateBook 新建图书,由存储分配ID
	CreateBook(ctx context.Context, record *Record) (InsertResult, error)

	// UpdateBook 字段级合并更新
	UpdateBook(ctx context.Context, id string, payload *Record) (UpdateResult, error)

	// DeleteBook 根据ID删除图书
	DeleteBook(ctx context.Context, id string) (DeleteResult, error)
}

// service 领域服务实现
type service struct {
	repo Repository
}

// NewService 创建图书领域服务
// repo 是进程级共享的存储句柄,由启动流程创建后注入
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// ListBooks 查询图书列表
func (s *service) ListBooks(ctx context.Context, filter FilterRequest) ([]*Record, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Find(ctx, filter.Predicate())
}

// GetBook 根据ID获取图书
func (s *service) GetBook(ctx context.Context, id string) (*Record, error) {
	filter, err := IDPredicate(id)
	if err != nil {
		return nil, err
	}
	return s.repo.FindOne(ctx, filter)
}

// CreateBook 新建图书
// 记录原样写入;只有字符串形式的 _id 会被规范化为存储标识
func (s *service) CreateBook(ctx context.Context, record *Record) (InsertResult, error) {
	if record == nil {
		return InsertResult{}, ErrInvalidRecord
	}
	for _, k := range record.Keys() {
		if strings.HasPrefix(k, "$") {
			return InsertResult{}, apperrors.WithCause(ErrInvalidFieldPath, fmt.Errorf("字段名 %q 不能以$开头", k))
		}
	}
	doc := record.Clone()
	if err := NormalizeRecordID(doc); err != nil {
		return InsertResult{}, err
	}
	return s.repo.InsertOne(ctx, doc)
}

// UpdateBook 合并更新图书
func (s *service) UpdateBook(ctx context.Context, id string, payload *Record) (UpdateResult, error) {
	filter, update, err := BuildUpdateDocument(id, payload)
	if err != nil {
		return UpdateResult{}, err
	}
	return s.repo.UpdateOne(ctx, filter, update)
}

// DeleteBook 删除图书
func (s *service) DeleteBook(ctx context.Context, id string) (DeleteResult, error) {
	filter, err := IDPredicate(id)
	if err != nil {
		return DeleteResult{}, err
	}
	return s.repo.DeleteOne(ctx, filter)
}
