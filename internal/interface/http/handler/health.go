package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xiebiao/bookcatalog/internal/domain/book"
	"github.com/xiebiao/bookcatalog/internal/infrastructure/config"
	"github.com/xiebiao/bookcatalog/internal/interface/http/dto"
	"github.com/xiebiao/bookcatalog/pkg/logger"
)

// RootMessage GET / 的响应文本
const RootMessage = "Book catalog server connected"

const pingTimeout = 2 * time.Second

// HealthHandler 存活和健康检查
type HealthHandler struct {
	repo   book.Repository
	driver string
	logger *zap.Logger
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(repo book.Repository, cfg *config.Config, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{repo: repo, driver: cfg.Store.Driver, logger: logger}
}

// Root 存活检查
// @Summary  存活检查
// @Tags     系统
// @Produce  plain
// @Success  200 {string} string "Book catalog server connected"
// @Router   / [get]
func (h *HealthHandler) Root(c *gin.Context) {
	c.String(http.StatusOK, RootMessage)
}

// Ping 健康检查(包含存储连通性)
// @Summary  健康检查
// @Tags     系统
// @Produce  json
// @Success  200 {object} dto.HealthResponse
// @Failure  503 {object} dto.HealthResponse
// @Router   /ping [get]
func (h *HealthHandler) Ping(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	if err := h.repo.Ping(ctx); err != nil {
		logger.FromContext(c.Request.Context(), h.logger).Warn("存储健康检查失败", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, dto.HealthResponse{
			Message: "pong",
			Status:  "unhealthy",
			Store:   "down",
			Driver:  h.driver,
		})
		return
	}

	c.JSON(http.StatusOK, dto.HealthResponse{
		Message: "pong",
		Status:  "healthy",
		Store:   "up",
		Driver:  h.driver,
	})
}
