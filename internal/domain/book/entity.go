package book

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	apperrors "github.com/xiebiao/bookcatalog/pkg/errors"
)

// IDField 记录标识字段名(与文档库的主键字段保持一致)
const IDField = "_id"

// Kind 字段值的类型标签
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindObject
	KindArray
	KindID
)

// String 类型名(便于日志)
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindID:
		return "id"
	default:
		return "unknown"
	}
}

// Value 图书字段值(标签联合体)
// 设计说明:
// 1. 图书字段是开放的,客户端可以提交任意字段,服务端原样透传
// 2. 整数与浮点数分开存储,避免 price=12 经过存储后变成 12.0
// 3. KindID 只出现在 _id 字段,线上表现为24位十六进制字符串
type Value struct {
	kind Kind
	str  string
	num  int64
	flt  float64
	b    bool
	obj  *Record
	arr  []Value
	id   ID
}

// Null 空值
func Null() Value { return Value{kind: KindNull} }

// String 字符串值
func String(s string) Value { return Value{kind: KindString, str: s} }

// Int 整数值
func Int(n int64) Value { return Value{kind: KindInt, num: n} }

// Float 浮点值
func Float(f float64) Value { return Value{kind: KindFloat, flt: f} }

// Bool 布尔值
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Object 嵌套对象值
func Object(r *Record) Value {
	if r == nil {
		r = NewRecord()
	}
	return Value{kind: KindObject, obj: r}
}

// Array 数组值
func Array(items ...Value) Value {
	return Value{kind: KindArray, arr: items}
}

// IDValue 标识值
func IDValue(id ID) Value { return Value{kind: KindID, id: id} }

// Kind 返回值类型
func (v Value) Kind() Kind { return v.kind }

// IsNull 是否为空值
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str 返回字符串内容
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Int64 返回整数内容
func (v Value) Int64() (int64, bool) { return v.num, v.kind == KindInt }

// Float64 返回数值内容(整数也可以取浮点)
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.flt, true
	case KindInt:
		return float64(v.num), true
	}
	return 0, false
}

// BoolValue 返回布尔内容
func (v Value) BoolValue() (bool, bool) { return v.b, v.kind == KindBool }

// Object 返回嵌套对象
func (v Value) Object() (*Record, bool) { return v.obj, v.kind == KindObject }

// Items 返回数组元素
func (v Value) Items() ([]Value, bool) { return v.arr, v.kind == KindArray }

// ID 返回标识
func (v Value) ID() (ID, bool) { return v.id, v.kind == KindID }

// Equal 深度比较两个值
// 用途:合并更新时判断字段是否真的发生变化(modifiedCount)
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == o.str
	case KindInt:
		return v.num == o.num
	case KindFloat:
		return v.flt == o.flt
	case KindBool:
		return v.b == o.b
	case KindObject:
		return v.obj.Equal(o.obj)
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case KindID:
		return v.id == o.id
	}
	return false
}

// Clone 深拷贝
func (v Value) Clone() Value {
	switch v.kind {
	case KindObject:
		return Object(v.obj.Clone())
	case KindArray:
		items := make([]Value, len(v.arr))
		for i, item := range v.arr {
			items[i] = item.Clone()
		}
		return Array(items...)
	}
	return v
}

// MarshalJSON 序列化为JSON
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindString:
		b, err := json.Marshal(v.str)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindInt:
		buf.WriteString(strconv.FormatInt(v.num, 10))
	case KindFloat:
		if math.IsNaN(v.flt) || math.IsInf(v.flt, 0) {
			return fmt.Errorf("无法序列化数值: %v", v.flt)
		}
		buf.WriteString(strconv.FormatFloat(v.flt, 'g', -1, 64))
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindObject:
		return v.obj.writeJSON(buf)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindID:
		buf.WriteByte('"')
		buf.WriteString(v.id.Hex())
		buf.WriteByte('"')
	}
	return nil
}

// Record 图书记录(有序字段映射)
// DDD设计说明:
// 1. 记录是开放结构,除 _id 外不约束任何字段
// 2. 字段顺序保持首次出现的顺序,序列化结果与客户端提交顺序一致
// 3. 零值不可用,请使用 NewRecord 创建
type Record struct {
	keys   []string
	fields map[string]Value
}

// NewRecord 创建空记录
func NewRecord() *Record {
	return &Record{fields: make(map[string]Value)}
}

// Len 字段数量
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Keys 按顺序返回字段名
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	keys := make([]string, len(r.keys))
	copy(keys, r.keys)
	return keys
}

// Get 获取顶层字段
func (r *Record) Get(key string) (Value, bool) {
	if r == nil {
		return Value{}, false
	}
	v, ok := r.fields[key]
	return v, ok
}

// Set 设置顶层字段(已存在的字段保持原位置)
func (r *Record) Set(key string, v Value) *Record {
	if r.fields == nil {
		r.fields = make(map[string]Value)
	}
	if _, ok := r.fields[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.fields[key] = v
	return r
}

// Delete 删除顶层字段
func (r *Record) Delete(key string) {
	if r == nil {
		return
	}
	if _, ok := r.fields[key]; !ok {
		return
	}
	delete(r.fields, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
}

// Lookup 按点分路径查找字段(如 "meta.pages")
// 与文档库的字段路径语义一致:中间节点必须是对象,字段名中的"."总是路径分隔符
func (r *Record) Lookup(path string) (Value, bool) {
	head, rest, found := strings.Cut(path, ".")
	v, ok := r.Get(head)
	if !ok || !found {
		return v, ok
	}
	child, ok := v.Object()
	if !ok {
		return Value{}, false
	}
	return child.Lookup(rest)
}

// SetPath 按点分路径设置字段,返回字段内容是否发生变化
//
// 规则与文档库的 $set 一致:
//   - 缺失的中间节点自动创建为对象
//   - 中间节点是数组时,下一段必须是非负整数下标,越界时用null补齐
//   - 中间节点是字符串、数字、null等标量时返回 ErrInvalidFieldPath,记录不变
func (r *Record) SetPath(path string, v Value) (bool, error) {
	head, rest, found := strings.Cut(path, ".")
	if !found {
		old, ok := r.Get(path)
		if ok && old.Equal(v) {
			return false, nil
		}
		r.Set(path, v)
		return true, nil
	}

	cur, ok := r.Get(head)
	if !ok {
		child := NewRecord()
		if _, err := child.SetPath(rest, v); err != nil {
			return false, err
		}
		r.Set(head, Object(child))
		return true, nil
	}

	next, changed, err := setIn(cur, rest, v)
	if err != nil || !changed {
		return false, err
	}
	r.Set(head, next)
	return true, nil
}

// setIn 在已有的值 cur 下按路径设置字段,返回新值
func setIn(cur Value, path string, v Value) (Value, bool, error) {
	switch cur.Kind() {
	case KindObject:
		changed, err := cur.obj.SetPath(path, v)
		return cur, changed, err

	case KindArray:
		head, rest, found := strings.Cut(path, ".")
		idx, ok := arrayIndex(head)
		if !ok {
			return cur, false, ErrInvalidFieldPath
		}
		items := make([]Value, len(cur.arr), max(len(cur.arr), idx+1))
		copy(items, cur.arr)
		padded := idx >= len(items)
		for len(items) <= idx {
			items = append(items, Null())
		}

		if !found {
			if !padded && items[idx].Equal(v) {
				return cur, false, nil
			}
			items[idx] = v
			return Array(items...), true, nil
		}
		if padded {
			child := NewRecord()
			if _, err := child.SetPath(rest, v); err != nil {
				return cur, false, err
			}
			items[idx] = Object(child)
			return Array(items...), true, nil
		}
		elem, changed, err := setIn(items[idx], rest, v)
		if err != nil || !changed {
			return cur, false, err
		}
		items[idx] = elem
		return Array(items...), true, nil

	default:
		return cur, false, ErrInvalidFieldPath
	}
}

// arrayIndex 解析数组下标,只接受十进制数字
func arrayIndex(seg string) (int, bool) {
	if seg == "" || len(seg) > 9 {
		return 0, false
	}
	n := 0
	for _, c := range seg {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// ValidateFieldPath 校验客户端提供的字段路径
// 每一段都不能为空,也不能以 $ 开头(会被文档库当作操作符)
func ValidateFieldPath(path string) error {
	for _, seg := range strings.Split(path, ".") {
		if seg == "" || strings.HasPrefix(seg, "$") {
			return apperrors.WithCause(ErrInvalidFieldPath, fmt.Errorf("字段路径 %q 不合法", path))
		}
	}
	return nil
}

// ID 返回记录标识
func (r *Record) ID() (ID, bool) {
	v, ok := r.Get(IDField)
	if !ok {
		return NilID, false
	}
	return v.ID()
}

// WithIDFirst 返回一份 _id 位于首位的拷贝(与文档库的返回格式一致)
func (r *Record) WithIDFirst(id ID) *Record {
	out := NewRecord()
	out.Set(IDField, IDValue(id))
	for _, k := range r.Keys() {
		if k == IDField {
			continue
		}
		v, _ := r.Get(k)
		out.Set(k, v.Clone())
	}
	return out
}

// Clone 深拷贝
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := &Record{
		keys:   make([]string, len(r.keys)),
		fields: make(map[string]Value, len(r.fields)),
	}
	copy(out.keys, r.keys)
	for k, v := range r.fields {
		out.fields[k] = v.Clone()
	}
	return out
}

// Equal 深度比较(字段顺序不参与比较)
func (r *Record) Equal(o *Record) bool {
	if r.Len() != o.Len() {
		return false
	}
	for _, k := range r.Keys() {
		a, _ := r.Get(k)
		b, ok := o.Get(k)
		if !ok || !a.Equal(b) {
			return false
		}
	}
	return true
}

// MarshalJSON 按字段顺序序列化
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Record) writeJSON(buf *bytes.Buffer) error {
	if r == nil {
		buf.WriteString("null")
		return nil
	}
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if err := r.fields[k].writeJSON(buf); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

// UnmarshalJSON 解析JSON对象并保持字段顺序
// 注意:顶层必须是对象,否则返回 ErrInvalidRecord
func (r *Record) UnmarshalJSON(data []byte) error {
	rec, err := DecodeRecord(data)
	if err != nil {
		return err
	}
	*r = *rec
	return nil
}

// DecodeRecord 从JSON解析记录
func DecodeRecord(data []byte) (*Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	// 对象之后不允许再有其他内容
	if _, err := dec.Token(); err == nil {
		return nil, ErrInvalidRecord
	}
	obj, ok := v.Object()
	if !ok {
		return nil, ErrInvalidRecord
	}
	return obj, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, ErrInvalidRecord
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := NewRecord()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, ErrInvalidRecord
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, ErrInvalidRecord
				}
				v, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				obj.Set(key, v)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, ErrInvalidRecord
			}
			return Object(obj), nil
		case '[':
			items := make([]Value, 0)
			for dec.More() {
				v, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, v)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, ErrInvalidRecord
			}
			return Array(items...), nil
		}
		return Value{}, ErrInvalidRecord
	case string:
		return String(t), nil
	case json.Number:
		return NumberValue(t.String())
	case bool:
		return Bool(t), nil
	case nil:
		return Null(), nil
	}
	return Value{}, ErrInvalidRecord
}

// NumberValue 解析数值字面量,能表示为int64的按整数保存
func NumberValue(lit string) (Value, error) {
	if n, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return Int(n), nil
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return Value{}, ErrInvalidRecord
	}
	return Float(f), nil
}
