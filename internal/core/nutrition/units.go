package nutrition

import (
	_ "embed"
	"fmt"

	"ingredient-engine/internal/core/ingredient"

	"gopkg.in/yaml.v3"
)

//go:embed units.yaml
var defaultUnitsYAML []byte

type unitSpec struct {
	Names []string `yaml:"names"`
	Grams float64  `yaml:"grams"`
}

type ingredientSpec struct {
	Keys  []string   `yaml:"keys"`
	Units []unitSpec `yaml:"units"`
}

type unitsFile struct {
	Units       []unitSpec       `yaml:"units"`
	Ingredients []ingredientSpec `yaml:"ingredients"`
}

// UnitTable 單位換算表，鍵皆為正規化後的名稱
type UnitTable struct {
	generic   map[string]float64
	overrides map[string]map[string]float64
}

// DefaultUnits 載入內嵌的換算表
func DefaultUnits() (*UnitTable, error) {
	return ParseUnits(defaultUnitsYAML)
}

// ParseUnits 解析 YAML 換算表
func ParseUnits(data []byte) (*UnitTable, error) {
	var file unitsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse unit table: %w", err)
	}

	table := &UnitTable{
		generic:   make(map[string]float64),
		overrides: make(map[string]map[string]float64),
	}
	if err := addUnits(table.generic, file.Units); err != nil {
		return nil, err
	}
	for _, spec := range file.Ingredients {
		units := make(map[string]float64)
		if err := addUnits(units, spec.Units); err != nil {
			return nil, err
		}
		for _, key := range spec.Keys {
			k := ingredient.Normalize(key)
			if k == "" {
				return nil, fmt.Errorf("empty ingredient key in unit table")
			}
			table.overrides[k] = units
		}
	}
	return table, nil
}

func addUnits(dst map[string]float64, specs []unitSpec) error {
	for _, spec := range specs {
		if spec.Grams <= 0 {
			return fmt.Errorf("unit %v: grams must be positive", spec.Names)
		}
		for _, name := range spec.Names {
			n := ingredient.Normalize(name)
			if n == "" {
				return fmt.Errorf("empty unit name in unit table")
			}
			if _, dup := dst[n]; dup {
				return fmt.Errorf("duplicate unit %q in unit table", n)
			}
			dst[n] = spec.Grams
		}
	}
	return nil
}

// Grams 將數量換算成克。依序查食材專屬換算（reverse key、normalized key）、
// 一般單位表，都沒有時當作克。
func (t *UnitTable) Grams(q Quantity, keys ...string) float64 {
	unit := ingredient.Normalize(q.Unit)
	if unit == "" {
		return q.Value
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		if factor, ok := t.overrides[key][unit]; ok {
			return q.Value * factor
		}
	}
	if factor, ok := t.generic[unit]; ok {
		return q.Value * factor
	}
	return q.Value
}
