package book

import (
	"context"
)

// Repository 图书记录存储接口(依赖倒置原则)
// 设计说明:
// 1. 由domain层定义接口,infrastructure层实现(MongoDB、MySQL、Redis、内存)
// 2. 每个方法对应存储的一次往返,实现方不得自行重试整个请求
// 3. 实现方必须响应ctx取消;原始驱动错误通过 StoreUnavailable 包装后返回
// 4. 实现方返回的记录必须是独立拷贝,调用方可以随意修改
type Repository interface {
	// Find 按条件查询,结果按插入顺序排列(不分页)
	Find(ctx context.Context, filter Predicate) ([]*Record, error)

	// FindOne 查询第一条匹配记录,没有匹配时返回 nil, nil
	FindOne(ctx context.Context, filter Predicate) (*Record, error)

	// InsertOne 插入记录,没有 _id 时由存储分配
	InsertOne(ctx context.Context, record *Record) (InsertResult, error)

	// UpdateOne 对第一条匹配记录执行字段级合并
	UpdateOne(ctx context.Context, filter Predicate, update *MergeDocument) (UpdateResult, error)

	// DeleteOne 删除第一条匹配记录
	DeleteOne(ctx context.Context, filter Predicate) (DeleteResult, error)

	// Ping 存储连通性检查(健康检查使用)
	Ping(ctx context.Context) error

	// Close 释放连接(进程退出时调用一次)
	Close(ctx context.Context) error
}

// InsertResult 插入确认
type InsertResult struct {
	Acknowledged bool `json:"acknowledged"`
	InsertedID   ID   `json:"insertedId"`
}

// UpdateResult 更新确认
// MatchedCount 表示命中条数,ModifiedCount 表示内容真正发生变化的条数
type UpdateResult struct {
	Acknowledged  bool  `json:"acknowledged"`
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
	UpsertedCount int64 `json:"upsertedCount"`
	UpsertedID    *ID   `json:"upsertedId"`
}

// DeleteResult 删除确认
type DeleteResult struct {
	Acknowledged bool  `json:"acknowledged"`
	DeletedCount int64 `json:"deletedCount"`
}
