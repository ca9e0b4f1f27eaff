package entity

import "strings"

// BOMLine 上传BOM中的一行
// 字段按列名存放，未识别的列原样保留，输出时逐列回写
type BOMLine struct {
	Fields map[string]string `json:"fields"`
}

// NewBOMLine 创建空行
func NewBOMLine() BOMLine {
	return BOMLine{Fields: make(map[string]string)}
}

// Get 按候选列名的优先顺序取值（列名大小写不敏感，忽略首尾空白）
func (l BOMLine) Get(names ...string) string {
	v, _ := l.Lookup(names...)
	return v
}

// Lookup 同Get，同时返回命中的实际列名
// 合并结果时需要知道真实列名才能做"仅填空"写回
func (l BOMLine) Lookup(names ...string) (value, column string) {
	for _, want := range names {
		for col, v := range l.Fields {
			if strings.EqualFold(strings.TrimSpace(col), want) {
				return strings.TrimSpace(v), col
			}
		}
	}
	return "", ""
}

// Set 写入某列的值
func (l BOMLine) Set(column, value string) {
	l.Fields[column] = value
}

// SetIfEmpty 仅当该列当前为空时写入，不覆盖已有数据
func (l BOMLine) SetIfEmpty(column, value string) {
	if value == "" || column == "" {
		return
	}
	if existing, ok := l.Fields[column]; ok && strings.TrimSpace(existing) != "" {
		return
	}
	l.Fields[column] = value
}

// BOMFile 解析后的整个BOM
// Columns 是所有行出现过的列名并集，保持首次出现的顺序，
// 输出CSV的表头即为该并集
type BOMFile struct {
	Columns []string  `json:"columns"`
	Rows    []BOMLine `json:"rows"`
}

// AddColumn 登记列名（去重，保持顺序）
func (f *BOMFile) AddColumn(name string) {
	for _, c := range f.Columns {
		if c == name {
			return
		}
	}
	f.Columns = append(f.Columns, name)
}
