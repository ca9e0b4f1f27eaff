package supplier

import (
	"context"
	"sync"

	"github.com/andrespineda/bom-parts-sourcing/internal/sourcing/entity"
	"go.uber.org/zap"
)

// 供应商标识（接口入参用小写ID，展示用Name）
const (
	IDJLCPCB  = "jlcpcb"
	IDDigiKey = "digikey"
	IDMouser  = "mouser"
)

// Supplier 供应商适配器统一能力
// Search 永远不向调用方返回错误：任何传输、鉴权、解析失败
// 都在适配器内部消化并降级为空列表，单个供应商故障不能拖垮整体搜索
type Supplier interface {
	// ID 供应商标识（小写，接口参数用）
	ID() string
	// Name 展示名，也是搜索结果映射的键
	Name() string
	// IsConfigured 凭据是否齐全；未配置的适配器不发起任何网络调用
	IsConfigured() bool
	// SetupInstructions 配置说明，供配置查询接口返回
	SetupInstructions() string
	// Search 执行搜索并返回归一化结果，失败时返回空列表
	Search(ctx context.Context, q entity.Query) []entity.Part
}

// Registry 按固定优先级排列的供应商集合
// 顺序即选型级联的顺序：JLCPCB > DigiKey > Mouser
type Registry struct {
	suppliers []Supplier
	logger    *zap.Logger
}

// NewRegistry 创建供应商集合，传入顺序即优先级顺序
func NewRegistry(logger *zap.Logger, suppliers ...Supplier) *Registry {
	return &Registry{suppliers: suppliers, logger: logger}
}

// All 按优先级返回全部供应商
func (r *Registry) All() []Supplier {
	return r.suppliers
}

// Get 按ID查找供应商
func (r *Registry) Get(id string) (Supplier, bool) {
	for _, s := range r.suppliers {
		if s.ID() == id {
			return s, true
		}
	}
	return nil, false
}

// FanOut 把一个查询并发分发给启用的供应商
// enabled 为空表示全部启用；每个适配器独立goroutine执行，
// 全部结束后返回 展示名→非空结果列表 的映射，
// 零结果的供应商不出现在映射里（前端以"键存在"判断该供应商有结果）
func (r *Registry) FanOut(ctx context.Context, q entity.Query, enabled []string) map[string][]entity.Part {
	results := make(map[string][]entity.Part)
	if q.IsEmpty() {
		return results
	}

	enabledSet := make(map[string]bool, len(enabled))
	for _, id := range enabled {
		enabledSet[id] = true
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, s := range r.suppliers {
		if len(enabled) > 0 && !enabledSet[s.ID()] {
			continue
		}
		wg.Add(1)
		go func(s Supplier) {
			defer wg.Done()
			parts := s.Search(ctx, q)
			if len(parts) == 0 {
				return
			}
			mu.Lock()
			results[s.Name()] = parts
			mu.Unlock()
		}(s)
	}
	wg.Wait()

	return results
}
