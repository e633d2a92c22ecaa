package book

import (
	"fmt"
	"strings"

	apperrors "github.com/xiebiao/bookcatalog/pkg/errors"
)

// MergeDocument 合并更新文档($set语义)
// 只覆盖 Set 中出现的字段,记录中的其他字段保持不变
type MergeDocument struct {
	Set *Record
}

// IsEmpty 是否没有任何字段需要更新
func (m *MergeDocument) IsEmpty() bool {
	return m == nil || m.Set.Len() == 0
}

// ApplyTo 将合并文档应用到记录上,返回记录是否发生变化
// 调用方需先通过 CheckIdentifier 校验 _id
// 任一字段路径无法设置时返回 ErrInvalidFieldPath,记录保持不变
func (m *MergeDocument) ApplyTo(r *Record) (bool, error) {
	if m.IsEmpty() {
		return false, nil
	}
	work := r.Clone()
	changed := false
	for _, k := range m.Set.Keys() {
		v, _ := m.Set.Get(k)
		ok, err := work.SetPath(k, v.Clone())
		if err != nil {
			return false, apperrors.WithCause(ErrInvalidFieldPath, fmt.Errorf("无法设置字段 %q: %w", k, err))
		}
		changed = changed || ok
	}
	if changed {
		*r = *work
	}
	return changed, nil
}

// CheckIdentifier 校验合并文档不会改写记录标识
// 负载中携带的 _id 与目标记录一致时允许(冗余指定),不一致时返回 ErrImmutableIdentifier
func (m *MergeDocument) CheckIdentifier(current ID) error {
	if m.IsEmpty() {
		return nil
	}
	v, ok := m.Set.Get(IDField)
	if !ok {
		return nil
	}
	id, ok := v.ID()
	if !ok || id != current {
		return ErrImmutableIdentifier
	}
	return nil
}

// BuildUpdateDocument 构造更新操作的目标条件和合并文档
//
// 处理流程:
// 1. 由路径参数计算目标条件,与负载内容无关
// 2. 负载自带 _id 时,同样规范化为存储标识并并入合并集合
// 3. 合并集合 = 负载的全部字段(按负载顺序) + 规范化后的 _id
//
// 负载中的 _id 是已有的兼容行为:与路径一致时是冗余指定,不一致时由存储层拒绝。
func BuildUpdateDocument(pathID string, payload *Record) (Predicate, *MergeDocument, error) {
	target, err := IDPredicate(pathID)
	if err != nil {
		return Predicate{}, nil, err
	}

	if err := checkMergePaths(payload.Keys()); err != nil {
		return Predicate{}, nil, err
	}

	set := NewRecord()
	for _, k := range payload.Keys() {
		v, _ := payload.Get(k)
		set.Set(k, v.Clone())
	}

	if v, ok := payload.Get(IDField); ok {
		id, err := normalizeIDValue(v)
		if err != nil {
			return Predicate{}, nil, err
		}
		set.Set(IDField, IDValue(id))
	}

	return target, &MergeDocument{Set: set}, nil
}

// checkMergePaths 字段路径逐个合法,且两两之间不能是前缀关系(如 meta 与 meta.isbn)
func checkMergePaths(keys []string) error {
	for i, k := range keys {
		if err := ValidateFieldPath(k); err != nil {
			return err
		}
		for _, other := range keys[:i] {
			if strings.HasPrefix(k, other+".") || strings.HasPrefix(other, k+".") {
				return apperrors.WithCause(ErrInvalidFieldPath, fmt.Errorf("字段路径 %q 与 %q 冲突", other, k))
			}
		}
	}
	return nil
}

// NormalizeRecordID 把新建记录中字符串形式的 _id 规范化为存储标识
// 没有 _id 时原样返回,由存储层分配
func NormalizeRecordID(r *Record) error {
	v, ok := r.Get(IDField)
	if !ok {
		return nil
	}
	id, err := normalizeIDValue(v)
	if err != nil {
		return err
	}
	r.Set(IDField, IDValue(id))
	return nil
}

func normalizeIDValue(v Value) (ID, error) {
	if id, ok := v.ID(); ok {
		return id, nil
	}
	s, ok := v.Str()
	if !ok {
		return NilID, ErrInvalidIdentifier
	}
	return ParseID(s)
}
