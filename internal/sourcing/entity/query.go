package entity

import "strings"

// DefaultLimit 单次搜索默认返回条数
const DefaultLimit = 10

// Query 一次元件搜索请求
// 所有字段都可为空，但value/footprint/MPN至少要有一个，
// 否则适配器直接短路返回空结果，不发起上游调用
type Query struct {
	Value                  string `json:"value"`
	Footprint              string `json:"footprint"`
	ComponentType          string `json:"component_type,omitempty"`
	Manufacturer           string `json:"manufacturer,omitempty"`
	ManufacturerPartNumber string `json:"manufacturer_part_number,omitempty"`
	Limit                  int    `json:"limit"`
}

// EffectiveLimit 返回结果条数上限，未设置时取默认值
func (q Query) EffectiveLimit() int {
	if q.Limit <= 0 {
		return DefaultLimit
	}
	return q.Limit
}

// IsEmpty 判断查询是否没有任何可检索内容
func (q Query) IsEmpty() bool {
	return strings.TrimSpace(q.Value) == "" &&
		strings.TrimSpace(q.Footprint) == "" &&
		strings.TrimSpace(q.ManufacturerPartNumber) == ""
}

// Keyword 构造自由文本检索词
// 优先级：制造商料号 > 制造商+值 > 值
func (q Query) Keyword() string {
	if mpn := strings.TrimSpace(q.ManufacturerPartNumber); mpn != "" {
		return mpn
	}
	value := strings.TrimSpace(q.Value)
	if mfr := strings.TrimSpace(q.Manufacturer); mfr != "" && value != "" {
		return mfr + " " + value
	}
	return value
}

// DistributorKeyword 构造分销商检索词
// 制造商料号优先，否则把值、封装、类别拼成一个关键字
func (q Query) DistributorKeyword() string {
	if mpn := strings.TrimSpace(q.ManufacturerPartNumber); mpn != "" {
		return mpn
	}
	parts := make([]string, 0, 3)
	for _, s := range []string{q.Value, q.Footprint, q.ComponentType} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
