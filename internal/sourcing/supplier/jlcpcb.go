package supplier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/andrespineda/bom-parts-sourcing/internal/sourcing/entity"
	"go.uber.org/zap"
)

// 社区元件搜索服务地址（JLCPCB贴片元件库镜像）
const defaultJLCSearchURL = "https://jlcsearch.tscircuit.com"

// categoryEndpoints 元件类别 → 专用子端点
// 静态配置数据，类别名和BOM解析的推断结果保持一致
var categoryEndpoints = map[string]string{
	"resistor":        "resistors",
	"capacitor":       "capacitors",
	"inductor":        "inductors",
	"led":             "leds",
	"diode":           "diodes",
	"transistor":      "transistors",
	"mosfet":          "mosfets",
	"bjt":             "bjts",
	"ic":              "chips",
	"microcontroller": "microcontrollers",
	"crystal":         "crystals",
	"oscillator":      "oscillators",
	"resonator":       "resonators",
	"switch":          "switches",
	"connector":       "headers",
	"fuse":            "fuses",
	"relay":           "relays",
	"potentiometer":   "potentiometers",
	"microphone":      "microphones",
	"regulator":       "voltage_regulators",
}

// chipPackages 常见贴片封装码，封装归一化的兜底匹配表
var chipPackages = []string{"0402", "0603", "0805", "1206", "1210", "2010", "2512"}

var (
	packageCodeRe = regexp.MustCompile(`\b\d{4}\b`)
	// 值形态推断：数字开头、K/R结尾是电阻，容值单位结尾是电容
	resistorValueRe  = regexp.MustCompile(`(?i)^\d+(\.\d+)?[kr]`)
	capacitorValueRe = regexp.MustCompile(`(?i)^\d+(\.\d+)?[unp]f?`)
)

// JLCPCB 社区元件库搜索适配器
// 免费服务、无需凭据，永远视为已配置
type JLCPCB struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewJLCPCB 创建JLCPCB搜索适配器
func NewJLCPCB(logger *zap.Logger) *JLCPCB {
	return &JLCPCB{
		baseURL: defaultJLCSearchURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

func (j *JLCPCB) ID() string   { return IDJLCPCB }
func (j *JLCPCB) Name() string { return "JLCPCB" }

// IsConfigured 社区搜索服务不需要任何凭据
func (j *JLCPCB) IsConfigured() bool { return true }

func (j *JLCPCB) SetupInstructions() string {
	return "No setup required. Uses the free JLCPCB community parts search."
}

// Search 搜索JLCPCB元件库
// 流程：类别端点（有分类时）→ 通用端点 → 值形态推断后重试类别端点，
// 任何一步失败都降级为空结果
func (j *JLCPCB) Search(ctx context.Context, q entity.Query) []entity.Part {
	keyword := q.Keyword()
	if keyword == "" {
		return nil
	}
	limit := q.EffectiveLimit()
	pkg := NormalizeFootprint(q.Footprint)

	var raw []map[string]interface{}
	if ep, ok := categoryEndpoints[strings.ToLower(strings.TrimSpace(q.ComponentType))]; ok {
		raw = j.fetchCategory(ctx, ep, keyword, pkg, limit)
	}
	if len(raw) == 0 {
		raw = j.fetchGeneric(ctx, keyword, pkg, limit)
	}
	if len(raw) == 0 {
		// 通用端点无结果时按值形态猜一次类别
		if ep := inferCategoryEndpoint(keyword); ep != "" {
			raw = j.fetchCategory(ctx, ep, keyword, pkg, limit)
		}
	}
	if len(raw) == 0 {
		return nil
	}

	parts := make([]entity.Part, 0, len(raw))
	for _, m := range raw {
		parts = append(parts, j.mapPart(m, q))
	}

	// 库存降序、价格升序，截断到limit
	// 这是适配器自身的排序，与跨供应商选型打分无关
	sort.SliceStable(parts, func(a, b int) bool {
		if parts[a].Stock != parts[b].Stock {
			return parts[a].Stock > parts[b].Stock
		}
		return parts[a].Price < parts[b].Price
	})
	if len(parts) > limit {
		parts = parts[:limit]
	}
	return parts
}

// fetchCategory 请求类别专用端点 /<category>/list.json
func (j *JLCPCB) fetchCategory(ctx context.Context, endpoint, keyword, pkg string, limit int) []map[string]interface{} {
	params := url.Values{}
	params.Set("search", keyword)
	params.Set("limit", fmt.Sprintf("%d", limit))
	if pkg != "" {
		params.Set("package", pkg)
	}
	return j.fetchList(ctx, fmt.Sprintf("/%s/list.json?%s", endpoint, params.Encode()), endpoint)
}

// fetchGeneric 请求通用搜索端点 /api/search
func (j *JLCPCB) fetchGeneric(ctx context.Context, keyword, pkg string, limit int) []map[string]interface{} {
	params := url.Values{}
	params.Set("q", keyword)
	params.Set("limit", fmt.Sprintf("%d", limit))
	if pkg != "" {
		params.Set("package", pkg)
	}
	return j.fetchList(ctx, "/api/search?"+params.Encode(), "")
}

// fetchList 执行GET请求并从响应里摸出元件列表
// 列表可能挂在端点同名键、components或parts下
func (j *JLCPCB) fetchList(ctx context.Context, path, endpointKey string) []map[string]interface{} {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.baseURL+path, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Accept", "application/json")

	resp, err := j.httpClient.Do(req)
	if err != nil {
		j.logger.Warn("jlcpcb search request failed", zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		j.logger.Warn("jlcpcb search returned non-OK status",
			zap.Int("status", resp.StatusCode), zap.String("path", path))
		return nil
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		j.logger.Warn("jlcpcb response decode failed", zap.Error(err))
		return nil
	}

	keys := []string{"components", "parts", "results"}
	if endpointKey != "" {
		keys = append([]string{endpointKey}, keys...)
	}
	for _, k := range keys {
		if list, ok := body[k].([]interface{}); ok {
			items := make([]map[string]interface{}, 0, len(list))
			for _, it := range list {
				if m, ok := it.(map[string]interface{}); ok {
					items = append(items, m)
				}
			}
			return items
		}
	}
	return nil
}

// mapPart 把一条上游记录归一化成Part
// 上游字段命名不稳定，逐个候选键探测；数值缺失或畸形一律归零
func (j *JLCPCB) mapPart(m map[string]interface{}, q entity.Query) entity.Part {
	p := entity.Part{
		Supplier:  j.Name(),
		Currency:  "USD",
		Value:     q.Value,
		Footprint: q.Footprint,
	}

	p.LCSCPart = normalizeLCSC(m)
	p.SupplierPartNumber = p.LCSCPart
	p.Stock = probeInt(m, "stock", "in_stock", "quantity")
	p.Price = probeFloat(m, "price", "price_usd")
	p.Manufacturer = probeString(m, "manufacturer", "mfr", "brand")
	p.ManufacturerPartNumber = probeString(m, "mfr_part_number", "mpn", "part_number")
	p.Description = probeString(m, "description", "describe", "title")
	p.Package = probeString(m, "package", "footprint", "encapsulation")
	p.DatasheetURL = probeString(m, "datasheet", "datasheet_url")
	p.ImageURL = probeString(m, "image_url", "image")

	// 电阻记录经常没有description，用阻值+公差拼一个
	if p.Description == "" {
		if r, ok := toFloat(m["resistance"]); ok && r > 0 {
			p.Description = formatResistance(r)
			if tf, ok := toFloat(m["tolerance_fraction"]); ok && tf > 0 {
				p.Description += fmt.Sprintf(" ±%g%%", tf*100)
			}
		}
	}

	if attrs, ok := m["attributes"].(map[string]interface{}); ok && len(attrs) > 0 {
		p.Specs = make(map[string]string, len(attrs))
		for k, v := range attrs {
			if s := toString(v); s != "" {
				p.Specs[k] = s
			}
		}
	}

	if p.LCSCPart != "" {
		p.ProductURL = "https://jlcpcb.com/partdetail/" + p.LCSCPart
	}
	return p
}

// normalizeLCSC 把三种形态的LCSC编号统一成C前缀形式
// 可能是裸数字id（lcsc: 5137468）、带前缀字符串，
// 或单独的已带前缀字段（lcsc_part: "C5137468"）
func normalizeLCSC(m map[string]interface{}) string {
	if s := probeString(m, "lcsc_part", "lcsc_part_number"); s != "" {
		if strings.HasPrefix(strings.ToUpper(s), "C") {
			return "C" + s[1:]
		}
		return "C" + s
	}
	if v, ok := m["lcsc"]; ok {
		s := toString(v)
		if s == "" {
			return ""
		}
		if strings.HasPrefix(strings.ToUpper(s), "C") {
			return "C" + s[1:]
		}
		return "C" + s
	}
	return ""
}

// NormalizeFootprint 把自由文本封装描述归一化成4位封装码
// 优先取4位数字token，其次在固定封装表里做子串匹配，
// 都对不上时原样返回（幂等：已归一化的码再过一遍不变）
func NormalizeFootprint(fp string) string {
	fp = strings.TrimSpace(fp)
	if fp == "" {
		return ""
	}
	if token := packageCodeRe.FindString(fp); token != "" {
		return token
	}
	lower := strings.ToLower(fp)
	for _, code := range chipPackages {
		if strings.Contains(lower, code) {
			return code
		}
	}
	return fp
}

// inferCategoryEndpoint 从检索词形态猜类别端点
// 纯启发式：把碰巧数字开头的料号误判成阻容是可接受的，
// 误判的结果只是多打一次空查询
func inferCategoryEndpoint(keyword string) string {
	if resistorValueRe.MatchString(keyword) {
		return categoryEndpoints["resistor"]
	}
	if capacitorValueRe.MatchString(keyword) {
		return categoryEndpoints["capacitor"]
	}
	return ""
}

// formatResistance 阻值格式化（欧姆 → 人类可读）
func formatResistance(ohms float64) string {
	switch {
	case ohms >= 1e6:
		return fmt.Sprintf("%gMΩ", ohms/1e6)
	case ohms >= 1e3:
		return fmt.Sprintf("%gkΩ", ohms/1e3)
	default:
		return fmt.Sprintf("%gΩ", ohms)
	}
}
