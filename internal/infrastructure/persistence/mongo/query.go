package mongo

import (
	"regexp"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xiebiao/bookcatalog/internal/domain/book"
)

// filterDocument 查询条件 → MongoDB过滤器
//
//	MatchAll           → {}
//	IDEquals(id)       → {_id: ObjectId(id)}
//	Equals(f, s)       → {f: s}
//	ContainsFold(f, t) → {f: {$regex: QuoteMeta(t), $options: "i"}}
//	Or(a, b)           → {$or: [a, b]}
func filterDocument(p book.Predicate) bson.D {
	switch p.Op {
	case book.OpIDEquals:
		return bson.D{{Key: book.IDField, Value: bson.ObjectID(p.ID)}}
	case book.OpEquals:
		return bson.D{{Key: p.Field, Value: p.Value}}
	case book.OpContainsFold:
		return bson.D{{Key: p.Field, Value: bson.D{
			{Key: "$regex", Value: regexp.QuoteMeta(p.Value)},
			{Key: "$options", Value: "i"},
		}}}
	case book.OpOr:
		clauses := make(bson.A, len(p.Any))
		for i, sub := range p.Any {
			clauses[i] = filterDocument(sub)
		}
		return bson.D{{Key: "$or", Value: clauses}}
	default:
		return bson.D{}
	}
}

// updateDocument 合并文档 → {$set: {...}}
// 点分字段名由MongoDB按嵌套路径处理
func updateDocument(m *book.MergeDocument) bson.D {
	return bson.D{{Key: "$set", Value: toDocument(m.Set)}}
}
