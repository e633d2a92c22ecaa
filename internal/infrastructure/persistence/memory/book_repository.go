// Package memory 进程内图书存储
//
// 用途:本地开发(store.driver=memory)和测试。
// 条件判断直接使用 book.Predicate.Matches,是其他存储实现的语义参照。
package memory

import (
	"context"
	"sync"

	"github.com/xiebiao/bookcatalog/internal/domain/book"
)

// bookRepository 内存图书仓储
// 设计说明:
// 1. records 按插入顺序保存,index 用于按ID定位
// 2. 写入和读出都做深拷贝,调用方修改返回值不会影响存储内容
type bookRepository struct {
	mu      sync.RWMutex
	records []*book.Record
	index   map[book.ID]int
}

// NewBookRepository 创建内存图书仓储
func NewBookRepository() book.Repository {
	return &bookRepository{index: make(map[book.ID]int)}
}

// Find 按条件查询
func (r *bookRepository) Find(ctx context.Context, filter book.Predicate) ([]*book.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, book.StoreUnavailable(err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*book.Record, 0)
	for _, rec := range r.records {
		if filter.Matches(rec) {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

// FindOne 查询第一条匹配记录
func (r *bookRepository) FindOne(ctx context.Context, filter book.Predicate) (*book.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, book.StoreUnavailable(err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i := r.locate(filter); i >= 0 {
		return r.records[i].Clone(), nil
	}
	return nil, nil
}

// InsertOne 插入记录
func (r *bookRepository) InsertOne(ctx context.Context, record *book.Record) (book.InsertResult, error) {
	if err := ctx.Err(); err != nil {
		return book.InsertResult{}, book.StoreUnavailable(err)
	}
	id, ok := record.ID()
	if !ok {
		id = book.NewID()
	}
	doc := record.WithIDFirst(id)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[id]; exists {
		return book.InsertResult{}, book.ErrDuplicateIdentifier
	}
	r.index[id] = len(r.records)
	r.records = append(r.records, doc)

	return book.InsertResult{Acknowledged: true, InsertedID: id}, nil
}

// UpdateOne 合并更新第一条匹配记录
func (r *bookRepository) UpdateOne(ctx context.Context, filter book.Predicate, update *book.MergeDocument) (book.UpdateResult, error) {
	if err := ctx.Err(); err != nil {
		return book.UpdateResult{}, book.StoreUnavailable(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	result := book.UpdateResult{Acknowledged: true}
	i := r.locate(filter)
	if i < 0 {
		return result, nil
	}
	target := r.records[i]
	id, _ := target.ID()
	if err := update.CheckIdentifier(id); err != nil {
		return book.UpdateResult{}, err
	}

	changed, err := update.ApplyTo(target)
	if err != nil {
		return book.UpdateResult{}, err
	}
	result.MatchedCount = 1
	if changed {
		result.ModifiedCount = 1
	}
	return result, nil
}

// DeleteOne 删除第一条匹配记录
func (r *bookRepository) DeleteOne(ctx context.Context, filter book.Predicate) (book.DeleteResult, error) {
	if err := ctx.Err(); err != nil {
		return book.DeleteResult{}, book.StoreUnavailable(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	result := book.DeleteResult{Acknowledged: true}
	i := r.locate(filter)
	if i < 0 {
		return result, nil
	}

	id, _ := r.records[i].ID()
	delete(r.index, id)
	r.records = append(r.records[:i], r.records[i+1:]...)
	for j := i; j < len(r.records); j++ {
		rid, _ := r.records[j].ID()
		r.index[rid] = j
	}

	result.DeletedCount = 1
	return result, nil
}

// Ping 内存存储始终可用
func (r *bookRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close 无需释放资源
func (r *bookRepository) Close(ctx context.Context) error {
	return nil
}

// locate 返回第一条匹配记录的下标,没有时返回-1(调用方需持有锁)
func (r *bookRepository) locate(filter book.Predicate) int {
	if filter.Op == book.OpIDEquals {
		if i, ok := r.index[filter.ID]; ok {
			return i
		}
		return -1
	}
	for i, rec := range r.records {
		if filter.Matches(rec) {
			return i
		}
	}
	return -1
}
