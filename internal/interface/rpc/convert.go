package rpc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/xiebiao/bookcatalog/internal/domain/book"
)

// 记录与protobuf通用类型之间通过JSON转换,数值、嵌套对象、数组的规则与HTTP接口一致
// 注意:Struct是无序map,gRPC响应不保证字段顺序

// structToRecord Struct → 记录
func structToRecord(s *structpb.Struct) (*book.Record, error) {
	if s == nil {
		return nil, book.ErrInvalidRecord
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return nil, book.ErrInvalidRecord
	}
	return book.DecodeRecord(data)
}

// toStruct 任意可JSON序列化的对象 → Struct
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("序列化响应失败: %w", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("转换响应失败: %w", err)
	}
	return out, nil
}

// toListValue 记录列表 → ListValue
func toListValue(records []*book.Record) (*structpb.ListValue, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("序列化响应失败: %w", err)
	}
	out := new(structpb.ListValue)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("转换响应失败: %w", err)
	}
	return out, nil
}

// toValue 记录 → Value,nil 记录为 null
func toValue(record *book.Record) (*structpb.Value, error) {
	if record == nil {
		return structpb.NewNullValue(), nil
	}
	s, err := toStruct(record)
	if err != nil {
		return nil, err
	}
	return structpb.NewStructValue(s), nil
}

// optionalString 读取可选的字符串字段,缺失或null时返回nil
func optionalString(s *structpb.Struct, key string) (*string, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return nil, nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return nil, nil
	case *structpb.Value_StringValue:
		str := kind.StringValue
		return &str, nil
	default:
		return nil, fmt.Errorf("%s必须是字符串", key)
	}
}
