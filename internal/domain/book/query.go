package book

import (
	"fmt"
	"strings"
)

// 默认搜索字段:只给出searchTerm时,在书名和作者中做模糊匹配
const (
	TitleField  = "title"
	AuthorField = "author"
)

// Operator 查询条件类型
type Operator string

const (
	OpMatchAll     Operator = "all"       // 无条件匹配
	OpEquals       Operator = "eq"        // 字段等于字面量
	OpContainsFold Operator = "icontains" // 字段包含子串(忽略大小写)
	OpOr           Operator = "or"        // 任一子条件成立
	OpIDEquals     Operator = "id"        // 标识相等
)

// Predicate 存储查询条件
// 设计说明:
// 1. 领域层只描述"查什么",由各存储实现翻译成自己的查询语言:
// MongoDB的bson过滤器、MySQL的JSON_EXTRACT条件、Redis/内存中的逐条判断
// 2. Matches 给出进程内的参考语义,所有存储实现必须与之一致
type Predicate struct {
	Op    Operator
	Field string
	Value string
	ID    ID
	Any   []Predicate
}

// MatchAll 无条件匹配
func MatchAll() Predicate { return Predicate{Op: OpMatchAll} }

// Equals 字段等于字面量
func Equals(field, literal string) Predicate {
	return Predicate{Op: OpEquals, Field: field, Value: literal}
}

// ContainsFold 字段包含子串(忽略大小写,子串按字面量处理)
func ContainsFold(field, term string) Predicate {
	return Predicate{Op: OpContainsFold, Field: field, Value: term}
}

// Or 任一子条件成立
func Or(preds ...Predicate) Predicate {
	return Predicate{Op: OpOr, Any: preds}
}

// IDEquals 标识相等
func IDEquals(id ID) Predicate {
	return Predicate{Op: OpIDEquals, ID: id}
}

// FilterRequest 列表过滤参数,两个字段都可选
type FilterRequest struct {
	Field      *string
	SearchTerm *string
}

// Predicate 构造查询条件
func (f FilterRequest) Predicate() Predicate {
	return BuildFilterQuery(f.Field, f.SearchTerm)
}

// Validate 校验字段名(空串视为未提供)
func (f FilterRequest) Validate() error {
	if f.Field == nil || *f.Field == "" {
		return nil
	}
	return ValidateFieldPath(*f.Field)
}

// BuildFilterQuery 根据过滤参数构造查询条件
//
// 决策表:
//
//	field | searchTerm | 结果
//	有    | 有         | field 包含 searchTerm(忽略大小写)
//	有    | 无         | field 等于空字符串
//	无    | 有         | title 或 author 包含 searchTerm(忽略大小写)
//	无    | 无         | 匹配全部
//
// 注意:只给field时匹配"值为空串"的记录,这是线上已有行为,保持不变。
// 空字符串参数视为未提供(?field= 与不传field相同)。
func BuildFilterQuery(field, searchTerm *string) Predicate {
	hasField := field != nil && *field != ""
	hasTerm := searchTerm != nil && *searchTerm != ""

	switch {
	case hasField && hasTerm:
		return ContainsFold(*field, *searchTerm)
	case hasField:
		return Equals(*field, "")
	case hasTerm:
		return Or(
			ContainsFold(TitleField, *searchTerm),
			ContainsFold(AuthorField, *searchTerm),
		)
	default:
		return MatchAll()
	}
}

// Matches 判断记录是否满足条件
func (p Predicate) Matches(r *Record) bool {
	switch p.Op {
	case OpMatchAll:
		return true
	case OpIDEquals:
		id, ok := r.ID()
		return ok && id == p.ID
	case OpEquals:
		return matchStrings(r, p.Field, func(s string) bool {
			return s == p.Value
		})
	case OpContainsFold:
		term := strings.ToLower(p.Value)
		return matchStrings(r, p.Field, func(s string) bool {
			return strings.Contains(strings.ToLower(s), term)
		})
	case OpOr:
		for _, sub := range p.Any {
			if sub.Matches(r) {
				return true
			}
		}
	}
	return false
}

// matchStrings 字符串字段直接判断;数组字段任一字符串元素满足即可
// 非字符串值永远不匹配
func matchStrings(r *Record, field string, fn func(string) bool) bool {
	v, ok := r.Lookup(field)
	if !ok {
		return false
	}
	if s, ok := v.Str(); ok {
		return fn(s)
	}
	if items, ok := v.Items(); ok {
		for _, item := range items {
			if s, ok := item.Str(); ok && fn(s) {
				return true
			}
		}
	}
	return false
}

// String 可读形式(用于日志和追踪属性)
func (p Predicate) String() string {
	switch p.Op {
	case OpMatchAll:
		return "*"
	case OpIDEquals:
		return fmt.Sprintf("_id = %s", p.ID.Hex())
	case OpEquals:
		return fmt.Sprintf("%s = %q", p.Field, p.Value)
	case OpContainsFold:
		return fmt.Sprintf("%s ~* %q", p.Field, p.Value)
	case OpOr:
		parts := make([]string, len(p.Any))
		for i, sub := range p.Any {
			parts[i] = sub.String()
		}
		return "(" + strings.Join(parts, " OR ") + ")"
	}
	return string(p.Op)
}
