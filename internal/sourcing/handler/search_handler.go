package handler

import (
	"net/http"

	"github.com/andrespineda/bom-parts-sourcing/internal/sourcing/entity"
	"github.com/andrespineda/bom-parts-sourcing/internal/sourcing/service"
	"github.com/gin-gonic/gin"
)

// SearchHandler 元件搜索接口
type SearchHandler struct {
	searchSvc *service.SearchService
}

// NewSearchHandler 创建搜索处理器
func NewSearchHandler(searchSvc *service.SearchService) *SearchHandler {
	return &SearchHandler{searchSvc: searchSvc}
}

// SearchRequest 搜索请求体
type SearchRequest struct {
	Value                  string   `json:"value"`
	Footprint              string   `json:"footprint"`
	ComponentType          string   `json:"componentType"`
	Manufacturer           string   `json:"manufacturer"`
	ManufacturerPartNumber string   `json:"manufacturerPartNumber"`
	Limit                  int      `json:"limit"`
	Suppliers              []string `json:"suppliers"` // 供应商ID子集，空为全部
}

// SearchResponse 搜索响应
// 供应商级别的失败不会变成HTTP错误，最多是results里少一个键；
// 只有请求本身不合法时success才为false，且仍带配置状态
type SearchResponse struct {
	Success    bool                     `json:"success"`
	Error      string                   `json:"error,omitempty"`
	Query      entity.Query             `json:"query"`
	Results    map[string][]entity.Part `json:"results"`
	Configured map[string]bool          `json:"configured"`
}

// Search 多供应商元件搜索
// POST /api/v1/search
func (h *SearchHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, SearchResponse{
			Success:    false,
			Error:      "invalid request body: " + err.Error(),
			Configured: h.searchSvc.ConfiguredFlags(),
		})
		return
	}

	query := entity.Query{
		Value:                  req.Value,
		Footprint:              req.Footprint,
		ComponentType:          req.ComponentType,
		Manufacturer:           req.Manufacturer,
		ManufacturerPartNumber: req.ManufacturerPartNumber,
		Limit:                  req.Limit,
	}

	results := h.searchSvc.Search(c.Request.Context(), query, req.Suppliers)

	c.JSON(http.StatusOK, SearchResponse{
		Success:    true,
		Query:      query,
		Results:    results,
		Configured: h.searchSvc.ConfiguredFlags(),
	})
}

// SuppliersResponse 供应商配置查询响应
type SuppliersResponse struct {
	Success   bool                   `json:"success"`
	Suppliers []service.SupplierInfo `json:"suppliers"`
}

// Suppliers 供应商配置状态
// GET /api/v1/suppliers
func (h *SearchHandler) Suppliers(c *gin.Context) {
	c.JSON(http.StatusOK, SuppliersResponse{
		Success:   true,
		Suppliers: h.searchSvc.SupplierInfos(),
	})
}
