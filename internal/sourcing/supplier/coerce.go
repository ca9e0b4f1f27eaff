package supplier

import (
	"regexp"
	"strconv"
	"strings"
)

// 上游payload的防御性取值工具
// 规则：取不到、解析不了的数值一律归零，字符串归空串，绝不panic

var digitRunRe = regexp.MustCompile(`\d+`)

// probeString 按优先顺序探测多个候选键，返回第一个非空字符串
func probeString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s := toString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// probeInt 按优先顺序探测多个候选键，返回第一个可解析的非负整数
func probeInt(m map[string]interface{}, keys ...string) int {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if n, ok := toInt(v); ok {
				return n
			}
		}
	}
	return 0
}

// probeFloat 按优先顺序探测多个候选键，返回第一个可解析的非负浮点数
func probeFloat(m map[string]interface{}, keys ...string) float64 {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if f, ok := toFloat(v); ok {
				return f
			}
		}
	}
	return 0
}

func toString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		// JSON数字统一是float64，整数值去掉小数点输出
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return ""
}

// toInt 解析整数，容忍千分位逗号（"15,900,000"）和字符串形式
func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n < 0 {
			return 0, false
		}
		return int(n), true
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(n), ",", "")
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed < 0 {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

// toFloat 解析非负浮点数，容忍千分位逗号和货币符号前缀（"$0.12"）
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if n < 0 {
			return 0, false
		}
		return n, true
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(n), ",", "")
		// 去掉开头的非数字字符（货币符号等）
		s = strings.TrimLeftFunc(s, func(r rune) bool {
			return (r < '0' || r > '9') && r != '.' && r != '-'
		})
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil || parsed < 0 {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

// parsePrice 字符串价格解析（分销商价格带"$"前缀时先剥掉）
func parsePrice(s string) float64 {
	if f, ok := toFloat(s); ok {
		return f
	}
	return 0
}

// extractDigits 从自由文本里提取第一段连续数字
// 用于"15000 In Stock"这类可用性描述的库存兜底解析
func extractDigits(s string) int {
	match := digitRunRe.FindString(s)
	if match == "" {
		return 0
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return n
}
