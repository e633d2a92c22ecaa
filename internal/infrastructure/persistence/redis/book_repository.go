package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/xiebiao/bookcatalog/internal/domain/book"
)

const (
	// scanBatch 每次MGET读取的记录数
	scanBatch = 500
	// maxTxRetries 乐观锁冲突时的最大尝试次数
	maxTxRetries = 3
)

// errTxConflict 多次重试后仍有并发修改
var errTxConflict = errors.New("记录被并发修改,更新放弃")

// insertScript 原子插入:标识已存在返回0,否则写入记录并追加到顺序集合
//
//	KEYS[1]=doc键 KEYS[2]=seq键 KEYS[3]=counter键
//	ARGV[1]=标识 ARGV[2]=记录JSON
var insertScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
local seq = redis.call('INCR', KEYS[3])
redis.call('SET', KEYS[1], ARGV[2])
redis.call('ZADD', KEYS[2], seq, ARGV[1])
return 1
`)

// keyspace 键名生成
type keyspace struct {
	prefix string
}

func (k keyspace) doc(id book.ID) string {
	return k.docHex(id.Hex())
}

func (k keyspace) docHex(hex string) string {
	return k.prefix + ":doc:" + hex
}

func (k keyspace) seq() string {
	return k.prefix + ":seq"
}

func (k keyspace) counter() string {
	return k.prefix + ":counter"
}

// bookRepository Redis图书仓储
// 设计说明:
// 1. 插入使用Lua脚本保证"查重+写入+排序"原子完成
// 2. 更新使用 WATCH/MULTI 乐观锁,冲突时有限次重试
// 3. 删除在 MULTI 中同时移除记录和顺序集合成员
type bookRepository struct {
	client redis.UniversalClient
	keys   keyspace
}

// NewBookRepository 创建Redis图书仓储
func NewBookRepository(client redis.UniversalClient, keyPrefix string) book.Repository {
	return &bookRepository{client: client, keys: keyspace{prefix: keyPrefix}}
}

// Find 按条件查询
func (r *bookRepository) Find(ctx context.Context, filter book.Predicate) ([]*book.Record, error) {
	if filter.Op == book.OpIDEquals {
		rec, err := r.get(ctx, filter.ID)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return []*book.Record{}, nil
		}
		return []*book.Record{rec}, nil
	}

	out := make([]*book.Record, 0)
	err := r.scan(ctx, func(rec *book.Record) bool {
		if filter.Matches(rec) {
			out = append(out, rec)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FindOne 查询第一条匹配记录
func (r *bookRepository) FindOne(ctx context.Context, filter book.Predicate) (*book.Record, error) {
	if filter.Op == book.OpIDEquals {
		return r.get(ctx, filter.ID)
	}

	var found *book.Record
	err := r.scan(ctx, func(rec *book.Record) bool {
		if filter.Matches(rec) {
			found = rec
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// InsertOne 插入记录
func (r *bookRepository) InsertOne(ctx context.Context, record *book.Record) (book.InsertResult, error) {
	id, ok := record.ID()
	if !ok {
		id = book.NewID()
	}
	body, err := record.WithIDFirst(id).MarshalJSON()
	if err != nil {
		return book.InsertResult{}, book.StoreUnavailable(err)
	}

	keys := []string{r.keys.doc(id), r.keys.seq(), r.keys.counter()}
	created, err := insertScript.Run(ctx, r.client, keys, id.Hex(), string(body)).Int()
	if err != nil {
		return book.InsertResult{}, book.StoreUnavailable(err)
	}
	if created == 0 {
		return book.InsertResult{}, book.ErrDuplicateIdentifier
	}
	return book.InsertResult{Acknowledged: true, InsertedID: id}, nil
}

// UpdateOne 合并更新第一条匹配记录
func (r *bookRepository) UpdateOne(ctx context.Context, filter book.Predicate, update *book.MergeDocument) (book.UpdateResult, error) {
	id, ok, err := r.locate(ctx, filter)
	if err != nil {
		return book.UpdateResult{}, err
	}
	if !ok {
		return book.UpdateResult{Acknowledged: true}, nil
	}

	key := r.keys.doc(id)
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		result := book.UpdateResult{Acknowledged: true}
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, key).Result()
			if errors.Is(err, redis.Nil) {
				// 定位之后被删除
				return nil
			}
			if err != nil {
				return err
			}

			rec, err := decodeDocument(id.Hex(), raw)
			if err != nil {
				return err
			}
			if err := update.CheckIdentifier(id); err != nil {
				return err
			}

			changed, err := update.ApplyTo(rec)
			if err != nil {
				return err
			}
			result.MatchedCount = 1
			if !changed {
				return nil
			}
			body, err := rec.MarshalJSON()
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, string(body), 0)
				return nil
			})
			if err == nil {
				result.ModifiedCount = 1
			}
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return book.UpdateResult{}, book.StoreUnavailable(err)
		}
		return result, nil
	}
	return book.UpdateResult{}, book.StoreUnavailable(errTxConflict)
}

// DeleteOne 删除第一条匹配记录
func (r *bookRepository) DeleteOne(ctx context.Context, filter book.Predicate) (book.DeleteResult, error) {
	id, ok, err := r.locate(ctx, filter)
	if err != nil {
		return book.DeleteResult{}, err
	}
	if !ok {
		return book.DeleteResult{Acknowledged: true}, nil
	}

	var del *redis.IntCmd
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, r.keys.doc(id))
		pipe.ZRem(ctx, r.keys.seq(), id.Hex())
		return nil
	})
	if err != nil {
		return book.DeleteResult{}, book.StoreUnavailable(err)
	}
	return book.DeleteResult{Acknowledged: true, DeletedCount: del.Val()}, nil
}

// Ping 连通性检查
func (r *bookRepository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return book.StoreUnavailable(err)
	}
	return nil
}

// Close 关闭连接池
func (r *bookRepository) Close(ctx context.Context) error {
	return r.client.Close()
}

// get 按标识读取,不存在时返回 nil, nil
func (r *bookRepository) get(ctx context.Context, id book.ID) (*book.Record, error) {
	raw, err := r.client.Get(ctx, r.keys.doc(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, book.StoreUnavailable(err)
	}
	rec, err := decodeDocument(id.Hex(), raw)
	if err != nil {
		return nil, book.StoreUnavailable(err)
	}
	return rec, nil
}

// locate 返回第一条匹配记录的标识
func (r *bookRepository) locate(ctx context.Context, filter book.Predicate) (book.ID, bool, error) {
	if filter.Op == book.OpIDEquals {
		return filter.ID, true, nil
	}
	rec, err := r.FindOne(ctx, filter)
	if err != nil || rec == nil {
		return book.NilID, false, err
	}
	id, _ := rec.ID()
	return id, true, nil
}

// scan 按插入顺序遍历全部记录,fn 返回false时停止
// 遍历期间被删除的记录直接跳过
func (r *bookRepository) scan(ctx context.Context, fn func(*book.Record) bool) error {
	ids, err := r.client.ZRange(ctx, r.keys.seq(), 0, -1).Result()
	if err != nil {
		return book.StoreUnavailable(err)
	}

	for start := 0; start < len(ids); start += scanBatch {
		end := min(start+scanBatch, len(ids))
		batch := ids[start:end]

		keys := make([]string, len(batch))
		for i, hex := range batch {
			keys[i] = r.keys.docHex(hex)
		}
		values, err := r.client.MGet(ctx, keys...).Result()
		if err != nil {
			return book.StoreUnavailable(err)
		}

		for i, v := range values {
			raw, ok := v.(string)
			if !ok {
				continue
			}
			rec, err := decodeDocument(batch[i], raw)
			if err != nil {
				return book.StoreUnavailable(err)
			}
			if !fn(rec) {
				return nil
			}
		}
	}
	return nil
}

// decodeDocument 解析存储的记录JSON,_id 以键中的标识为准
// 数据损坏属于存储故障,返回普通错误由调用方包装
func decodeDocument(hex, raw string) (*book.Record, error) {
	id, err := book.ParseID(hex)
	if err != nil {
		return nil, fmt.Errorf("非法的记录标识: %q", hex)
	}
	rec, err := book.DecodeRecord([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("记录%s不是合法JSON对象: %v", hex, err)
	}
	return rec.WithIDFirst(id), nil
}
