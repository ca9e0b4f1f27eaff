package service

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/andrespineda/bom-parts-sourcing/internal/sourcing/entity"
)

// 加权打分参数
// 有货是硬门槛（1000分基底），库存量和低价只做细粒度排序；
// JLCPCB候选有LCSC编号加50分（可直接下贴片单），
// 分销商候选有datasheet加20分
const (
	inStockBonus   = 1000.0
	stockDivisor   = 100000.0
	stockScoreCap  = 100.0
	priceScoreBase = 50.0
	priceWeight    = 10.0
	lcscBonus      = 50.0
	datasheetBonus = 20.0
)

// ScorePart 给单个候选打分
// 分数对库存单调不减、对价格（>0时）单调不增
func ScorePart(p entity.Part) float64 {
	score := 0.0
	if p.Stock > 0 {
		score += inStockBonus
	}
	score += math.Min(float64(p.Stock)/stockDivisor, stockScoreCap)
	if p.Price > 0 {
		score += math.Max(0, priceScoreBase-p.Price*priceWeight)
	}
	if p.Supplier == "JLCPCB" {
		if p.LCSCPart != "" {
			score += lcscBonus
		}
	} else if p.DatasheetURL != "" {
		score += datasheetBonus
	}
	return score
}

// rankParts 按分数降序排列，返回排好序的副本和各自分数
func rankParts(parts []entity.Part) ([]entity.Part, []float64) {
	ranked := make([]entity.Part, len(parts))
	copy(ranked, parts)
	sort.SliceStable(ranked, func(a, b int) bool {
		return ScorePart(ranked[a]) > ScorePart(ranked[b])
	})
	scores := make([]float64, len(ranked))
	for i, p := range ranked {
		scores[i] = ScorePart(p)
	}
	return ranked, scores
}

// SelectBest 跨供应商选出最优候选
// 严格按供应商优先级级联，不做全局最高分比较：
// JLCPCB有非零分结果就选JLCPCB，哪怕分销商那边分数更高
// （JLCPCB单区发货免进口关税，这是固定的采购策略）
// 级联顺序由cascade给出（展示名，优先级从高到低）
func SelectBest(results map[string][]entity.Part, cascade []string) (*entity.Part, string, bool) {
	for _, supplierName := range cascade {
		parts, ok := results[supplierName]
		if !ok || len(parts) == 0 {
			continue
		}
		ranked, scores := rankParts(parts)
		// 0分意味着无库存、无价格贡献、无加分项，视为不可用
		if scores[0] <= 0 {
			continue
		}
		best := ranked[0]
		return &best, matchNote(best), true
	}
	return nil, "", false
}

// matchNote 生成选中说明：供应商、编号、库存
func matchNote(p entity.Part) string {
	code := p.LCSCPart
	if code == "" {
		code = p.SupplierPartNumber
	}
	if code == "" {
		code = p.ManufacturerPartNumber
	}
	return fmt.Sprintf("Matched on %s: %s (%s in stock)", p.Supplier, code, formatStock(p.Stock))
}

// formatStock 库存数加千分位分隔符
func formatStock(n int) string {
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	return string(out)
}
