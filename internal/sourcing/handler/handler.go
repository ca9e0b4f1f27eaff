package handler

import (
	"github.com/andrespineda/bom-parts-sourcing/internal/sourcing/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers 处理器集合
type Handlers struct {
	Search *SearchHandler
	BOM    *BOMHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(searchSvc *service.SearchService, bomSvc *service.BOMService, logger *zap.Logger) *Handlers {
	return &Handlers{
		Search: NewSearchHandler(searchSvc),
		BOM:    NewBOMHandler(bomSvc, searchSvc, logger),
	}
}

// RegisterRoutes 注册全部API路由
func (h *Handlers) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	api.POST("/search", h.Search.Search)
	api.GET("/suppliers", h.Search.Suppliers)
	api.POST("/bom/upload", h.BOM.Upload)
}
