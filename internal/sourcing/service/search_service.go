package service

import (
	"context"

	"github.com/andrespineda/bom-parts-sourcing/internal/sourcing/entity"
	"github.com/andrespineda/bom-parts-sourcing/internal/sourcing/supplier"
	"go.uber.org/zap"
)

// SearchService 搜索编排
// 把一个查询并发分发给启用的供应商适配器，聚合非空结果
type SearchService struct {
	registry *supplier.Registry
	logger   *zap.Logger
}

// NewSearchService 创建搜索服务
func NewSearchService(registry *supplier.Registry, logger *zap.Logger) *SearchService {
	return &SearchService{registry: registry, logger: logger}
}

// Search 执行一次多供应商搜索
// enabled 传供应商ID列表，空表示全部启用；
// 返回 展示名→结果列表，零结果的供应商不在映射里
func (s *SearchService) Search(ctx context.Context, q entity.Query, enabled []string) map[string][]entity.Part {
	if q.IsEmpty() {
		return map[string][]entity.Part{}
	}
	results := s.registry.FanOut(ctx, q, enabled)
	s.logger.Debug("supplier search completed",
		zap.String("keyword", q.Keyword()),
		zap.Int("suppliers_with_results", len(results)),
	)
	return results
}

// ConfiguredFlags 各供应商（展示名）的配置状态
func (s *SearchService) ConfiguredFlags() map[string]bool {
	flags := make(map[string]bool, len(s.registry.All()))
	for _, sup := range s.registry.All() {
		flags[sup.Name()] = sup.IsConfigured()
	}
	return flags
}

// CascadeOrder 选型级联的供应商展示名，优先级从高到低
// 即注册顺序：JLCPCB > DigiKey > Mouser
func (s *SearchService) CascadeOrder() []string {
	order := make([]string, 0, len(s.registry.All()))
	for _, sup := range s.registry.All() {
		order = append(order, sup.Name())
	}
	return order
}

// SupplierInfo 配置查询接口返回的单个供应商条目
type SupplierInfo struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Configured        bool   `json:"configured"`
	SetupInstructions string `json:"setup_instructions"`
}

// SupplierInfos 全部供应商的配置信息
func (s *SearchService) SupplierInfos() []SupplierInfo {
	infos := make([]SupplierInfo, 0, len(s.registry.All()))
	for _, sup := range s.registry.All() {
		infos = append(infos, SupplierInfo{
			ID:                sup.ID(),
			Name:              sup.Name(),
			Configured:        sup.IsConfigured(),
			SetupInstructions: sup.SetupInstructions(),
		})
	}
	return infos
}
