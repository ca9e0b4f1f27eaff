package entity

// Part 归一化后的元件候选记录
// 三个供应商适配器都必须把各自的响应映射成这一种形状，
// 数值字段（库存、单价）永远是非负数，缺失或无法解析时归零，
// 保证打分引擎不需要做任何空值判断
type Part struct {
	Supplier               string            `json:"supplier"`
	SupplierPartNumber     string            `json:"supplier_part_number"`
	Manufacturer           string            `json:"manufacturer"`
	ManufacturerPartNumber string            `json:"manufacturer_part_number"`
	Description            string            `json:"description"`
	Value                  string            `json:"value"`     // 回显自Query，不从供应商数据解析
	Footprint              string            `json:"footprint"` // 回显自Query
	Stock                  int               `json:"stock"`
	Price                  float64           `json:"price"`
	Currency               string            `json:"currency"`
	ProductURL             string            `json:"product_url"`
	DatasheetURL           string            `json:"datasheet_url"`
	LCSCPart               string            `json:"lcsc_part,omitempty"` // LCSC编号（C开头），用于JLCPCB贴片
	ImageURL               string            `json:"image_url,omitempty"`
	Package                string            `json:"package,omitempty"`
	Specs                  map[string]string `json:"specs,omitempty"`
}
