package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xiebiao/bookcatalog/pkg/logger"
	"github.com/xiebiao/bookcatalog/pkg/tracing"
)

// RequestIDHeader 请求ID头
const RequestIDHeader = "X-Request-ID"

// slowRequestThreshold 慢请求阈值
const slowRequestThreshold = 3 * time.Second

// Logger 请求日志中间件
//
// 1. 沿用客户端传入的 X-Request-ID,没有时生成一个
// 2. 把带 request_id / trace_id 的logger放进请求上下文,下游用 logger.FromContext 取出
// 3. 请求结束后输出一条结构化访问日志
func Logger(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		fields := []zap.Field{zap.String("request_id", requestID)}
		if traceID := tracing.ExtractTraceID(c.Request.Context()); traceID != "" {
			fields = append(fields, zap.String("trace_id", traceID))
		}
		reqLogger := base.With(fields...)
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), reqLogger))

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		status := c.Writer.Status()
		accessFields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("bytes", c.Writer.Size()),
		}
		if len(c.Errors) > 0 {
			accessFields = append(accessFields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			reqLogger.Error("http request", accessFields...)
		case latency > slowRequestThreshold:
			reqLogger.Warn("slow http request", accessFields...)
		default:
			reqLogger.Info("http request", accessFields...)
		}
	}
}
