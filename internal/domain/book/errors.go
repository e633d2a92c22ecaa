package book

import (
	apperrors "github.com/xiebiao/bookcatalog/pkg/errors"
)

// 图书领域错误定义
// 说明:查不到记录、更新/删除命中0条都不是错误,分别用nil记录和0计数表示
var (
	// ErrInvalidIdentifier 标识格式错误(客户端错误,不重试)
	ErrInvalidIdentifier = apperrors.New(apperrors.ErrCodeInvalidIdentifier, "无效的图书ID")

	// ErrInvalidRecord 请求体不是JSON对象
	ErrInvalidRecord = apperrors.New(apperrors.ErrCodeInvalidRecord, "图书数据必须是JSON对象")

	// ErrInvalidFieldPath 字段路径非法或互相冲突
	ErrInvalidFieldPath = apperrors.New(apperrors.ErrCodeInvalidFieldPath, "无效的字段路径")

	// ErrImmutableIdentifier 更新负载中的 _id 与目标记录不一致
	ErrImmutableIdentifier = apperrors.New(apperrors.ErrCodeImmutableIdentifier, "图书ID不允许修改")

	// ErrDuplicateIdentifier 新建记录的 _id 已存在
	ErrDuplicateIdentifier = apperrors.New(apperrors.ErrCodeDuplicateIdentifier, "图书ID已存在")

	// ErrStoreUnavailable 记录存储不可达或出错(服务端错误,核心层不重试)
	ErrStoreUnavailable = apperrors.New(apperrors.ErrCodeStoreUnavailable, "图书存储暂不可用")
)

// StoreUnavailable 包装存储层原始错误
// 领域错误原样返回,其他错误统一归为 ErrStoreUnavailable(保留原因便于日志排查)
func StoreUnavailable(err error) error {
	if err == nil {
		return nil
	}
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.WithCause(ErrStoreUnavailable, err)
}
