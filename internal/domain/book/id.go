package book

import (
	"go.mongodb.org/mongo-driver/v2/bson"
)

// ID 记录标识(12字节,线上为24位十六进制字符串)
// 设计说明:
// 1. 与MongoDB的ObjectID二进制兼容,所有存储后端共用同一种标识格式
// 2. 标识由存储层在插入时分配,领域层只负责格式校验
type ID [12]byte

// NilID 零值标识
var NilID ID

// NewID 生成新标识(时间戳+随机数,按创建时间大致有序)
func NewID() ID {
	return ID(bson.NewObjectID())
}

// ParseID 将外部字符串标识规范化为存储标识
// 规则:必须是24位十六进制字符;空串、长度不符、非十六进制字符一律返回 ErrInvalidIdentifier
func ParseID(external string) (ID, error) {
	oid, err := bson.ObjectIDFromHex(external)
	if err != nil {
		return NilID, ErrInvalidIdentifier
	}
	return ID(oid), nil
}

// IDPredicate 构造按标识查找的条件 {_id = ParseID(external)}
// 用于详情、更新、删除三个单记录操作
func IDPredicate(external string) (Predicate, error) {
	id, err := ParseID(external)
	if err != nil {
		return Predicate{}, err
	}
	return IDEquals(id), nil
}

// Hex 十六进制表示
func (id ID) Hex() string {
	return bson.ObjectID(id).Hex()
}

// String 实现fmt.Stringer
func (id ID) String() string {
	return id.Hex()
}

// IsZero 是否为零值
func (id ID) IsZero() bool {
	return id == NilID
}

// MarshalJSON 序列化为十六进制字符串
func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.Hex() + `"`), nil
}

// UnmarshalJSON 从十六进制字符串解析
func (id *ID) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return ErrInvalidIdentifier
	}
	parsed, err := ParseID(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
