package nutrition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Quantity
	}{
		{"grams attached", "500g", Quantity{500, "g"}},
		{"grams spaced", "200 g", Quantity{200, "g"}},
		{"no unit", "150", Quantity{150, "g"}},
		{"decimal point", "1.5 kg", Quantity{1.5, "kg"}},
		{"decimal comma", "0,5 kg", Quantity{0.5, "kg"}},
		{"fraction", "1/2 cup", Quantity{0.5, "cup"}},
		{"mixed fraction", "1 1/2 cup", Quantity{1.5, "cup"}},
		{"vietnamese unit", "2 muỗng canh", Quantity{2, "muỗng canh"}},
		{"surrounding space", "  3 quả  ", Quantity{3, "quả"}},
		{"empty", "", Quantity{100, "g"}},
		{"no number", "một ít", Quantity{100, "g"}},
		{"zero", "0 g", Quantity{100, "g"}},
		{"zero denominator", "1/0 cup", Quantity{100, "g"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseQuantity(tt.text)
			assert.InDelta(t, tt.want.Value, got.Value, 1e-9)
			assert.Equal(t, tt.want.Unit, got.Unit)
		})
	}
}

func TestUnitTable_Grams(t *testing.T) {
	units, err := DefaultUnits()
	require.NoError(t, err)

	tests := []struct {
		name string
		text string
		keys []string
		want float64
	}{
		{"grams", "250 g", nil, 250},
		{"kilograms", "0,5 kg", nil, 500},
		{"vietnamese tablespoon", "2 muỗng canh", nil, 30},
		{"teaspoon without diacritics", "1 muong ca phe", nil, 5},
		{"lang", "3 lạng", nil, 300},
		{"egg by reverse key", "2 quả", []string{"egg", "trung-ga"}, 100},
		{"egg by normalized key", "2 quả", []string{"", "trung-ga"}, 100},
		{"override beats generic", "1 tbsp", []string{"fish-sauce"}, 18},
		{"generic when no override", "1 tbsp", []string{"pork-belly"}, 15},
		{"unknown unit treated as grams", "2 bó", []string{"water-spinach"}, 2},
		{"default quantity", "", nil, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := units.Grams(ParseQuantity(tt.text), tt.keys...)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseUnits_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"not yaml", "units: [a"},
		{"zero grams", "units:\n  - names: [g]\n    grams: 0\n"},
		{"duplicate unit", "units:\n  - names: [g]\n    grams: 1\n  - names: [G]\n    grams: 2\n"},
		{"empty name", "units:\n  - names: [\"!!\"]\n    grams: 1\n"},
		{"empty ingredient key", "ingredients:\n  - keys: [\"\"]\n    units:\n      - names: [qua]\n        grams: 50\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseUnits([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}
