package rpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "github.com/xiebiao/bookcatalog/pkg/errors"
)

// toStatus 业务错误 → gRPC状态
//
//	标识格式错误、请求体错误 → InvalidArgument
//	试图修改标识           → FailedPrecondition
//	标识已存在             → AlreadyExists
//	存储不可用             → Unavailable
//	其他                   → Internal
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return status.Error(codes.Canceled, err.Error())
	}

	appErr := apperrors.GetAppError(err)
	var code codes.Code
	switch appErr.Code {
	case apperrors.ErrCodeInvalidIdentifier, apperrors.ErrCodeInvalidRecord,
		apperrors.ErrCodeInvalidParams, apperrors.ErrCodeBindError, apperrors.ErrCodeInvalidFieldPath:
		code = codes.InvalidArgument
	case apperrors.ErrCodeImmutableIdentifier:
		code = codes.FailedPrecondition
	case apperrors.ErrCodeDuplicateIdentifier:
		code = codes.AlreadyExists
	case apperrors.ErrCodeStoreUnavailable:
		code = codes.Unavailable
	case apperrors.ErrCodeNotFound:
		code = codes.NotFound
	default:
		code = codes.Internal
	}
	return status.Error(code, appErr.Message)
}
