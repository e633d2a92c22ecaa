package mongo

import (
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xiebiao/bookcatalog/internal/domain/book"
)

// toDocument 领域记录 → bson.D(保持字段顺序)
func toDocument(r *book.Record) bson.D {
	doc := make(bson.D, 0, r.Len())
	for _, k := range r.Keys() {
		v, _ := r.Get(k)
		doc = append(doc, bson.E{Key: k, Value: toBSONValue(v)})
	}
	return doc
}

// toBSONValue 整数能放进int32时按int32存储,与其他语言驱动写入的数值类型保持一致
func toBSONValue(v book.Value) any {
	switch v.Kind() {
	case book.KindString:
		s, _ := v.Str()
		return s
	case book.KindInt:
		n, _ := v.Int64()
		if n >= math.MinInt32 && n <= math.MaxInt32 {
			return int32(n)
		}
		return n
	case book.KindFloat:
		f, _ := v.Float64()
		return f
	case book.KindBool:
		b, _ := v.BoolValue()
		return b
	case book.KindObject:
		obj, _ := v.Object()
		return toDocument(obj)
	case book.KindArray:
		items, _ := v.Items()
		arr := make(bson.A, len(items))
		for i, item := range items {
			arr[i] = toBSONValue(item)
		}
		return arr
	case book.KindID:
		id, _ := v.ID()
		return bson.ObjectID(id)
	default:
		return nil
	}
}

// fromDocument bson.D → 领域记录
func fromDocument(doc bson.D) (*book.Record, error) {
	r := book.NewRecord()
	for _, e := range doc {
		v, err := fromBSONValue(e.Value)
		if err != nil {
			return nil, fmt.Errorf("字段%s: %w", e.Key, err)
		}
		r.Set(e.Key, v)
	}
	return r, nil
}

// fromBSONValue 文档库中可能出现其他客户端写入的类型(日期、Decimal128等),
// 无法精确表示的按字符串透传
func fromBSONValue(raw any) (book.Value, error) {
	switch x := raw.(type) {
	case nil:
		return book.Null(), nil
	case string:
		return book.String(x), nil
	case int32:
		return book.Int(int64(x)), nil
	case int64:
		return book.Int(x), nil
	case int:
		return book.Int(int64(x)), nil
	case float64:
		return book.Float(x), nil
	case bool:
		return book.Bool(x), nil
	case bson.ObjectID:
		return book.IDValue(book.ID(x)), nil
	case bson.D:
		obj, err := fromDocument(x)
		if err != nil {
			return book.Value{}, err
		}
		return book.Object(obj), nil
	case bson.M:
		obj := book.NewRecord()
		for k, item := range x {
			v, err := fromBSONValue(item)
			if err != nil {
				return book.Value{}, err
			}
			obj.Set(k, v)
		}
		return book.Object(obj), nil
	case bson.A:
		return fromArray(x)
	case []any:
		return fromArray(x)
	case bson.DateTime:
		return book.String(x.Time().UTC().Format(time.RFC3339Nano)), nil
	case bson.Decimal128:
		if v, err := book.NumberValue(x.String()); err == nil {
			return v, nil
		}
		return book.String(x.String()), nil
	case bson.Null, bson.Undefined:
		return book.Null(), nil
	default:
		return book.String(fmt.Sprint(x)), nil
	}
}

func fromArray(items []any) (book.Value, error) {
	out := make([]book.Value, len(items))
	for i, item := range items {
		v, err := fromBSONValue(item)
		if err != nil {
			return book.Value{}, err
		}
		out[i] = v
	}
	return book.Array(out...), nil
}
