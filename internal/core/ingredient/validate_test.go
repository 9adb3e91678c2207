package ingredient

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateInput(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantReason string
	}{
		{name: "valid vietnamese", input: "Thịt Ba Chỉ"},
		{name: "valid english", input: "chicken breast"},
		{name: "valid with digits", input: "gạo ST25"},
		{name: "empty", input: "   ", wantReason: "empty input"},
		{name: "too short", input: "a", wantReason: "too short"},
		{name: "digits only", input: "12345", wantReason: "digits only"},
		{name: "decimal digits only", input: "1.5", wantReason: "digits only"},
		{name: "no letters", input: "!!@#", wantReason: "no letters"},
		{name: "placeholder", input: "Test", wantReason: "placeholder text"},
		{name: "vietnamese placeholder", input: "không biết", wantReason: "placeholder text"},
		{name: "custard apple", input: "Na"},
		{name: "custard apple with classifier", input: "quả na"},
		{name: "not applicable", input: "N/A", wantReason: "placeholder text"},
		{name: "repeated characters", input: "aaaab", wantReason: "repeated characters"},
		{name: "three repeats allowed", input: "cơm ggg", wantReason: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInput(tt.input)
			if tt.wantReason == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidIngredient))

			var invalid *InvalidIngredientError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.wantReason, invalid.Reason)
			assert.Equal(t, tt.input, invalid.Text)
		})
	}
}

func TestCoerceCategory(t *testing.T) {
	tests := []struct {
		raw  string
		want Category
	}{
		{raw: "meat", want: CategoryMeat},
		{raw: "Poultry", want: CategoryMeat},
		{raw: "unknown", want: CategoryCondiments},
		{raw: "Fish", want: CategorySeafood},
		{raw: "Vegetables", want: CategoryVegetables},
		{raw: "nuts & seeds", want: CategoryNuts},
		{raw: "fruits", want: CategoryFruits},
		{raw: "sauces", want: CategoryCondiments},
		{raw: "", want: DefaultCategory},
		{raw: "🍕 pizza stuff", want: DefaultCategory},
		{raw: "{\"nested\": true}", want: DefaultCategory},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := CoerceCategory(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Valid())
		})
	}
}

func TestCategories_Count(t *testing.T) {
	assert.Len(t, Categories, 13)
	for _, c := range categorySynonyms {
		assert.True(t, c.Valid(), "synonym target %q", c)
	}
}

func TestCacheEntry_PromotedCopy(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	expires := now.Add(365 * 24 * time.Hour)
	entry := &CacheEntry{
		Tier:          TierTranslationCache,
		NormalizedKey: "thit-ba-chi",
		UsageCount:    100,
		ExpiresAt:     &expires,
	}

	promoted := entry.PromotedCopy(now)

	assert.Equal(t, TierDictionary, promoted.Tier)
	assert.Nil(t, promoted.ExpiresAt)
	require.NotNil(t, promoted.PromotedAt)
	assert.Equal(t, now, *promoted.PromotedAt)
	assert.Equal(t, int64(100), promoted.UsageCount)
	// the original is untouched
	assert.Equal(t, TierTranslationCache, entry.Tier)
	assert.NotNil(t, entry.ExpiresAt)
}
