package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/xiebiao/bookcatalog/internal/domain/book"
	apperrors "github.com/xiebiao/bookcatalog/pkg/errors"
)

// errCodeImmutableField MongoDB错误码66:$set 试图修改 _id
const errCodeImmutableField = 66

// fieldPathErrorCodes 由客户端字段名引起的服务端错误码
// BadValue(2) FailedToParse(9) PathNotViable(28) ConflictingUpdateOperators(40)
// DollarPrefixedFieldName(52) EmptyFieldName(56) DottedFieldName(57)
var fieldPathErrorCodes = []int{2, 9, 28, 40, 52, 56, 57}

// bookRepository MongoDB图书仓储实现
type bookRepository struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewBookRepository 创建图书仓储
// client 由启动流程创建,仓储只持有引用,Close 时负责断开
func NewBookRepository(client *mongo.Client, database, collection string) book.Repository {
	return &bookRepository{
		client: client,
		coll:   client.Database(database).Collection(collection),
	}
}

// Find 按条件查询(自然顺序,即插入顺序)
func (r *bookRepository) Find(ctx context.Context, filter book.Predicate) ([]*book.Record, error) {
	cursor, err := r.coll.Find(ctx, filterDocument(filter))
	if err != nil {
		return nil, storeError(err)
	}

	var docs []bson.D
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storeError(err)
	}

	records := make([]*book.Record, 0, len(docs))
	for _, doc := range docs {
		rec, err := fromDocument(doc)
		if err != nil {
			return nil, book.StoreUnavailable(err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// FindOne 查询第一条匹配记录
func (r *bookRepository) FindOne(ctx context.Context, filter book.Predicate) (*book.Record, error) {
	var doc bson.D
	err := r.coll.FindOne(ctx, filterDocument(filter)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, storeError(err)
	}

	rec, err := fromDocument(doc)
	if err != nil {
		return nil, book.StoreUnavailable(err)
	}
	return rec, nil
}

// InsertOne 插入记录
// 没有 _id 时在客户端生成(与驱动行为一致),保证返回的 insertedId 就是存储中的标识
func (r *bookRepository) InsertOne(ctx context.Context, record *book.Record) (book.InsertResult, error) {
	id, ok := record.ID()
	if !ok {
		id = book.NewID()
	}

	res, err := r.coll.InsertOne(ctx, toDocument(record.WithIDFirst(id)))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return book.InsertResult{}, book.ErrDuplicateIdentifier
		}
		return book.InsertResult{}, storeError(err)
	}

	return book.InsertResult{Acknowledged: res.Acknowledged, InsertedID: id}, nil
}

// UpdateOne 合并更新
func (r *bookRepository) UpdateOne(ctx context.Context, filter book.Predicate, update *book.MergeDocument) (book.UpdateResult, error) {
	query := filterDocument(filter)

	// 空的 $set 会被服务端拒绝,此时只统计是否命中
	if update.IsEmpty() {
		n, err := r.coll.CountDocuments(ctx, query, options.Count().SetLimit(1))
		if err != nil {
			return book.UpdateResult{}, storeError(err)
		}
		return book.UpdateResult{Acknowledged: true, MatchedCount: n}, nil
	}

	res, err := r.coll.UpdateOne(ctx, query, updateDocument(update))
	if err != nil {
		return book.UpdateResult{}, storeError(err)
	}

	result := book.UpdateResult{
		Acknowledged:  res.Acknowledged,
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
		UpsertedCount: res.UpsertedCount,
	}
	if oid, ok := res.UpsertedID.(bson.ObjectID); ok {
		id := book.ID(oid)
		result.UpsertedID = &id
	}
	return result, nil
}

// DeleteOne 删除第一条匹配记录
func (r *bookRepository) DeleteOne(ctx context.Context, filter book.Predicate) (book.DeleteResult, error) {
	res, err := r.coll.DeleteOne(ctx, filterDocument(filter))
	if err != nil {
		return book.DeleteResult{}, storeError(err)
	}
	return book.DeleteResult{Acknowledged: res.Acknowledged, DeletedCount: res.DeletedCount}, nil
}

// Ping 检查主节点连通性
func (r *bookRepository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx, readpref.Primary()); err != nil {
		return book.StoreUnavailable(err)
	}
	return nil
}

// Close 断开连接
func (r *bookRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

// storeError 把驱动错误归类为领域错误
// 字段名不合法属于客户端错误,不计入存储故障;其余一律视为存储不可用
func storeError(err error) error {
	var se mongo.ServerError
	if errors.As(err, &se) {
		if se.HasErrorCode(errCodeImmutableField) {
			return book.ErrImmutableIdentifier
		}
		for _, code := range fieldPathErrorCodes {
			if se.HasErrorCode(code) {
				return apperrors.WithCause(book.ErrInvalidFieldPath, err)
			}
		}
	}
	return book.StoreUnavailable(err)
}
