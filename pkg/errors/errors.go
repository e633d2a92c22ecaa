package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError 自定义应用错误
// 设计说明：
// 1. Code用于客户端判断错误类型，HTTP状态码由Code推导（见HTTPStatus）
// 2. Message是用户友好的提示信息
// 3. Err是内部错误，仅记录到日志，不返回给客户端（防止泄露敏感信息）
type AppError struct {
	Code    int    `json:"code"`    // 业务错误码
	Message string `json:"message"` // 用户友好的错误提示
	Err     error  `json:"-"`       // 内部错误（不序列化）
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持errors.Is和errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 错误码相同即视为同一类错误
// 用途：Wrap出来的新实例也能与预定义错误匹配
//
//	err := apperrors.WithCause(ErrStoreUnavailable, driverErr)
//	errors.Is(err, ErrStoreUnavailable) // true
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New 创建新的AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装系统错误（如数据库错误、网络错误）
// 用途：将底层错误转换为业务错误，隐藏实现细节
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// Wrapf 格式化包装错误
func Wrapf(err error, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// WithCause 基于预定义错误附加内部原因（保留错误码和提示）
func WithCause(base *AppError, err error) *AppError {
	return &AppError{
		Code:    base.Code,
		Message: base.Message,
		Err:     err,
	}
}

// =========================================
// 错误码定义
// =========================================
// 规范：
// - 4xxxx: 客户端错误（参数错误、标识格式错误）
// - 5xxxx: 服务端错误（存储不可用、内部异常）

const (
	// 系统级错误码（50000-50099）
	ErrCodeInternal = 50000 // 内部错误

	// 依赖服务错误（50300-50399）
	ErrCodeStoreUnavailable = 50301 // 记录存储不可用

	// 资源错误（40400-40499）
	ErrCodeNotFound = 40400 // 路由或资源不存在

	// 冲突错误（40920-40929）
	ErrCodeImmutableIdentifier = 40920 // 试图改写记录标识
	ErrCodeDuplicateIdentifier = 40921 // 标识已存在

	// 参数错误（40900-40919）
	ErrCodeInvalidParams     = 40900 // 参数错误
	ErrCodeBindError         = 40901 // 参数绑定失败
	ErrCodeInvalidIdentifier = 40910 // 标识格式错误
	ErrCodeInvalidRecord     = 40911 // 记录不是JSON对象
	ErrCodeInvalidFieldPath  = 40912 // 字段路径非法或互相冲突

	// 请求体错误（41300-41399）
	ErrCodeBodyTooLarge = 41300 // 请求体超过上限
)

// =========================================
// 预定义错误（避免每次都New）
// =========================================

var (
	ErrInternal      = New(ErrCodeInternal, "系统内部错误")
	ErrNotFound      = New(ErrCodeNotFound, "资源不存在")
	ErrInvalidParams = New(ErrCodeInvalidParams, "参数错误")
	ErrBindError     = New(ErrCodeBindError, "参数格式错误")
	ErrBodyTooLarge  = New(ErrCodeBodyTooLarge, "请求体过大")
)

// =========================================
// 辅助函数
// =========================================

// IsAppError 判断是否为AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError 提取AppError（如果不是AppError则包装成Internal错误）
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, "系统内部错误")
}

// HTTPStatus 由业务错误码推导HTTP状态码
//
//	0           → 200
//	40920-40929 → 409（标识冲突）
//	409xx       → 400（参数错误）
//	404xx       → 404
//	413xx       → 413
//	503xx       → 503（依赖不可用）
//	其他        → 500
func HTTPStatus(code int) int {
	switch {
	case code == 0:
		return http.StatusOK
	case code >= 40920 && code < 40930:
		return http.StatusConflict
	case code >= 40900 && code < 41000:
		return http.StatusBadRequest
	case code >= 40400 && code < 40500:
		return http.StatusNotFound
	case code >= 41300 && code < 41400:
		return http.StatusRequestEntityTooLarge
	case code >= 50300 && code < 50400:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
