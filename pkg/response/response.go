package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/xiebiao/bookcatalog/pkg/errors"
	"github.com/xiebiao/bookcatalog/pkg/logger"
)

// Response 错误响应结构
// 设计说明:
// 1. 成功响应直接返回业务数据(图书记录、确认结构),保持与已有客户端兼容
// 2. 失败响应统一为 {code, message},Code是业务错误码,HTTP状态码由Code推导
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Success 成功响应(200 + 原始JSON)
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Error 错误响应(自动处理AppError)
// 用法:
//
//	result, err := h.createBook.Execute(ctx, record)
//	if err != nil {
//	    response.Error(c, err)
//	    return
//	}
func Error(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)
	status := apperrors.HTTPStatus(appErr.Code)

	// 内部原因只进日志,不返回给客户端
	log := logger.FromContext(c.Request.Context(), nil)
	fields := []zap.Field{
		zap.Int("code", appErr.Code),
		zap.String("message", appErr.Message),
	}
	if appErr.Err != nil {
		fields = append(fields, zap.Error(appErr.Err))
	}
	switch {
	case status >= http.StatusInternalServerError:
		log.Error("request failed", fields...)
	case appErr.Err != nil:
		log.Warn("request rejected", fields...)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, Response{
		Code:    appErr.Code,
		Message: appErr.Message,
	})
}

// ErrorWithCode 自定义错误码和消息
func ErrorWithCode(c *gin.Context, code int, message string) {
	Error(c, apperrors.New(code, message))
}

// BindError 请求体解析失败
func BindError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		Error(c, err)
		return
	}
	Error(c, apperrors.WithCause(apperrors.ErrBindError, err))
}
