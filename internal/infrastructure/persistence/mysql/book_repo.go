package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/bookcatalog/internal/domain/book"
)

// bookRepository 图书仓储实现(MySQL文档表)
// 设计说明:
// 1. 实现domain/book/repository.go定义的接口
// 2. 负责 book.Record 与文档行之间的转换(body列保存记录JSON)
// 3. 处理数据库特定的错误(唯一索引冲突),转换为领域错误
type bookRepository struct {
	db    *gorm.DB
	table string
}

// NewBookRepository 创建图书仓储
func NewBookRepository(db *gorm.DB, table string) book.Repository {
	return &bookRepository{db: db, table: table}
}

// scoped 按条件限定查询范围
func (r *bookRepository) scoped(db *gorm.DB, filter book.Predicate) *gorm.DB {
	q := db.Table(r.table)
	if where, args := compileWhere(filter); where != "" {
		q = q.Where(where, args...)
	}
	return q
}

// Find 按条件查询(按seq排序,即插入顺序)
func (r *bookRepository) Find(ctx context.Context, filter book.Predicate) ([]*book.Record, error) {
	var rows []DocumentModel
	if err := r.scoped(r.db.WithContext(ctx), filter).Order("seq").Find(&rows).Error; err != nil {
		return nil, book.StoreUnavailable(err)
	}

	records := make([]*book.Record, 0, len(rows))
	for i := range rows {
		rec, err := toRecord(&rows[i])
		if err != nil {
			return nil, book.StoreUnavailable(err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// FindOne 查询第一条匹配记录
func (r *bookRepository) FindOne(ctx context.Context, filter book.Predicate) (*book.Record, error) {
	var row DocumentModel
	err := r.scoped(r.db.WithContext(ctx), filter).Order("seq").Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, book.StoreUnavailable(err)
	}

	rec, err := toRecord(&row)
	if err != nil {
		return nil, book.StoreUnavailable(err)
	}
	return rec, nil
}

// InsertOne 插入记录
func (r *bookRepository) InsertOne(ctx context.Context, record *book.Record) (book.InsertResult, error) {
	id, ok := record.ID()
	if !ok {
		id = book.NewID()
	}

	row, err := toModel(id, record.WithIDFirst(id))
	if err != nil {
		return book.InsertResult{}, book.StoreUnavailable(err)
	}

	if err := r.db.WithContext(ctx).Table(r.table).Create(row).Error; err != nil {
		if isDuplicateError(err) {
			return book.InsertResult{}, book.ErrDuplicateIdentifier
		}
		return book.InsertResult{}, book.StoreUnavailable(err)
	}

	return book.InsertResult{Acknowledged: true, InsertedID: id}, nil
}

// UpdateOne 合并更新
// 流程:事务内 SELECT ... FOR UPDATE 锁定第一条匹配记录 → 内存中合并 → 有变化时回写body
func (r *bookRepository) UpdateOne(ctx context.Context, filter book.Predicate, update *book.MergeDocument) (book.UpdateResult, error) {
	result := book.UpdateResult{Acknowledged: true}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row DocumentModel
		err := r.scoped(tx, filter).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Order("seq").
			Take(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		rec, err := toRecord(&row)
		if err != nil {
			return err
		}
		id, _ := rec.ID()
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
		err = tx.Table(r.table).Where("seq = ?", row.Seq).Updates(map[string]any{
			"body":       string(body),
			"updated_at": time.Now(),
		}).Error
		if err != nil {
			return err
		}
		result.ModifiedCount = 1
		return nil
	})
	if err != nil {
		return book.UpdateResult{}, book.StoreUnavailable(err)
	}
	return result, nil
}

// DeleteOne 删除第一条匹配记录
func (r *bookRepository) DeleteOne(ctx context.Context, filter book.Predicate) (book.DeleteResult, error) {
	// MatchAll 没有WHERE子句,需要显式允许
	db := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	res := r.scoped(db, filter).Order("seq").Limit(1).Delete(&DocumentModel{})
	if res.Error != nil {
		return book.DeleteResult{}, book.StoreUnavailable(res.Error)
	}
	return book.DeleteResult{Acknowledged: true, DeletedCount: res.RowsAffected}, nil
}

// Ping 数据库连通性检查
func (r *bookRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return book.StoreUnavailable(err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return book.StoreUnavailable(err)
	}
	return nil
}

// Close 关闭连接池
func (r *bookRepository) Close(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// toModel 领域记录 → 文档行
func toModel(id book.ID, rec *book.Record) (*DocumentModel, error) {
	body, err := rec.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return &DocumentModel{DocID: id.Hex(), Body: string(body)}, nil
}

// toRecord 文档行 → 领域记录(body中的 _id 还原为标识类型)
// 行数据损坏属于存储故障,不能以客户端错误的形式返回
func toRecord(row *DocumentModel) (*book.Record, error) {
	rec, err := book.DecodeRecord([]byte(row.Body))
	if err != nil {
		return nil, fmt.Errorf("文档%d的body不是合法JSON对象: %v", row.Seq, err)
	}
	id, err := book.ParseID(row.DocID)
	if err != nil {
		return nil, fmt.Errorf("文档%d的doc_id格式错误: %q", row.Seq, row.DocID)
	}
	return rec.WithIDFirst(id), nil
}
