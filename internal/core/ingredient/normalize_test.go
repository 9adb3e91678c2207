package ingredient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "vietnamese tones", input: "Thịt Ba Chỉ", want: "thit-ba-chi"},
		{name: "d with stroke", input: "Đậu Phụ", want: "dau-phu"},
		{name: "extra whitespace", input: "  thịt   bò \t xay ", want: "thit-bo-xay"},
		{name: "punctuation removed", input: "hành (lá)!", want: "hanh-la"},
		{name: "hyphen runs collapsed", input: "cà -- chua", want: "ca-chua"},
		{name: "digits kept", input: "Gạo ST25", want: "gao-st25"},
		{name: "other locale accents", input: "Crème Brûlée", want: "creme-brulee"},
		{name: "only symbols", input: "!!!", want: ""},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalize_Equivalence(t *testing.T) {
	variants := []string{
		"Thịt Ba Chỉ",
		"thịt ba chỉ",
		"THỊT BA CHỈ",
		"thit ba chi",
		"  Thit   Ba   Chi  ",
		"thit-ba-chi",
		// decomposed form: i + combining dot below, i + combining hook above
		"thịt ba chỉ",
	}

	for _, v := range variants {
		assert.Equal(t, "thit-ba-chi", Normalize(v), "variant %q", v)
	}
}

func TestNormalize_TableComplete(t *testing.T) {
	for from := range vietnameseFold {
		got := Normalize(string(from))
		assert.Regexp(t, `^[a-z]$`, got, "rune %q", from)
	}
}
