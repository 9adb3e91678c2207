package nutrition

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	// DefaultQuantityValue 無法解析數量時的預設值
	DefaultQuantityValue = 100.0
	// DefaultUnit 預設單位
	DefaultUnit = "g"
)

// Quantity 解析後的數量
type Quantity struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// "1 1/2 cup", "0,5 kg", "200g", "2 muỗng canh"
var quantityPattern = regexp.MustCompile(`^\s*(?:(\d+)\s+)?(\d+(?:[.,]\d+)?)(?:\s*/\s*(\d+(?:[.,]\d+)?))?\s*(.*?)\s*$`)

// ParseQuantity 解析數量文字，無法解析時回傳 100 克
func ParseQuantity(text string) Quantity {
	m := quantityPattern.FindStringSubmatch(text)
	if m == nil {
		return Quantity{Value: DefaultQuantityValue, Unit: DefaultUnit}
	}

	value, ok := parseNumber(m[2])
	if !ok {
		return Quantity{Value: DefaultQuantityValue, Unit: DefaultUnit}
	}
	if m[3] != "" {
		den, ok := parseNumber(m[3])
		if !ok || den == 0 {
			return Quantity{Value: DefaultQuantityValue, Unit: DefaultUnit}
		}
		value /= den
	}
	if m[1] != "" {
		whole, _ := strconv.ParseFloat(m[1], 64)
		if m[3] == "" {
			// "1 2" 不是帶分數，只取第一個數字
			value = whole
		} else {
			value += whole
		}
	}
	if value <= 0 {
		return Quantity{Value: DefaultQuantityValue, Unit: DefaultUnit}
	}

	unit := strings.TrimSpace(m[4])
	if unit == "" {
		unit = DefaultUnit
	}
	return Quantity{Value: value, Unit: unit}
}

func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
