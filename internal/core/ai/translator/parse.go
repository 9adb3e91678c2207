package translator

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"ingredient-engine/internal/core/ingredient"
	"ingredient-engine/internal/pkg/common"

	"github.com/go-playground/validator/v10"
)

// Outcome 模型回覆解析後的結果，只會是 ParsedTranslation 或 RejectedInput
type Outcome interface {
	isOutcome()
}

// ParsedTranslation 模型判定為食材並給出翻譯
type ParsedTranslation struct {
	Translation ingredient.Translation
}

// RejectedInput 模型判定輸入不是食材
type RejectedInput struct {
	Reason string
}

func (ParsedTranslation) isOutcome() {}
func (RejectedInput) isOutcome()     {}

var (
	errNoJSON = errors.New("no JSON object found in response")

	fencePattern         = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
	numberPrefixPattern  = regexp.MustCompile(`^-?\d+(?:[.,]\d+)?`)

	validate = validator.New()
)

// translationPayload 驗證翻譯欄位
type translationPayload struct {
	Specific string `validate:"required,max=100"`
	General  string `validate:"required,max=100"`
	Category string `validate:"max=64"`
}

// nutritionPayload 每 100 克的合理上限
type nutritionPayload struct {
	Calories float64 `validate:"gte=0,lte=950"`
	Protein  float64 `validate:"gte=0,lte=100"`
	Carbs    float64 `validate:"gte=0,lte=100"`
	Fat      float64 `validate:"gte=0,lte=100"`
	Fiber    float64 `validate:"gte=0,lte=100"`
}

// extractJSON 從模型回覆中取出第一個完整的 JSON 物件
func extractJSON(content string) (string, error) {
	content = strings.TrimSpace(content)
	if m := fencePattern.FindStringSubmatch(content); m != nil {
		content = strings.TrimSpace(m[1])
	}

	start := -1
	depth := 0
	inString := false
	escaped := false
	for i, ch := range content {
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch ch {
		case '{':
			if start == -1 {
				start = i
			}
			depth++
		case '}':
			if start == -1 {
				continue
			}
			depth--
			if depth == 0 {
				return content[start : i+1], nil
			}
		}
	}

	// 沒有配對的右括號時退回第一個 { 到最後一個 }
	if s, e := strings.Index(content, "{"), strings.LastIndex(content, "}"); s != -1 && e > s {
		return content[s : e+1], nil
	}
	return "", errNoJSON
}

// decodeObject 先照原樣解析，失敗時補上鍵的引號、移除尾逗號再試一次
func decodeObject(content string) (map[string]interface{}, error) {
	raw, err := extractJSON(content)
	if err != nil {
		return nil, err
	}

	var fields map[string]interface{}
	if err := common.ParseJSON(raw, &fields); err == nil {
		return fields, nil
	}

	repaired := trailingCommaPattern.ReplaceAllString(common.QuoteJSONKeys(raw), "$1")
	fields = nil
	if err := common.ParseJSON(repaired, &fields); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return fields, nil
}

// ParseOutcome 將不可信的模型回覆轉成 Outcome
func ParseOutcome(content string) (Outcome, error) {
	fields, err := decodeObject(content)
	if err != nil {
		return nil, err
	}

	isFood, known := boolField(fields, "is_food")
	if !known {
		// 沒有 is_food 但有翻譯欄位時視為食材
		_, hasSpecific := fields["specific"]
		if !hasSpecific {
			return nil, errors.New("missing is_food field")
		}
		isFood = true
	}

	if !isFood {
		reason := strings.TrimSpace(stringField(fields, "reason"))
		if reason == "" {
			reason = "not a food ingredient"
		}
		return RejectedInput{Reason: reason}, nil
	}

	payload := translationPayload{
		Specific: strings.TrimSpace(stringField(fields, "specific")),
		General:  strings.TrimSpace(stringField(fields, "general")),
		Category: strings.TrimSpace(stringField(fields, "category")),
	}
	if payload.General == "" {
		payload.General = payload.Specific
	}
	if err := validate.Struct(payload); err != nil {
		return nil, fmt.Errorf("invalid translation fields: %w", err)
	}

	return ParsedTranslation{Translation: ingredient.Translation{
		Specific: payload.Specific,
		General:  payload.General,
		Category: ingredient.CoerceCategory(payload.Category),
	}}, nil
}

// ParseNutrition 解析每 100 克營養資料，負值歸零並四捨五入到小數點後一位
func ParseNutrition(content string) (ingredient.Nutrition, error) {
	fields, err := decodeObject(content)
	if err != nil {
		return ingredient.Nutrition{}, err
	}
	// 有些模型會再包一層
	if inner, ok := fields["nutrition"].(map[string]interface{}); ok {
		fields = inner
	}

	var n ingredient.Nutrition
	found := 0
	for key, dst := range map[string]*float64{
		"calories": &n.Calories,
		"protein":  &n.Protein,
		"carbs":    &n.Carbs,
		"fat":      &n.Fat,
		"fiber":    &n.Fiber,
	} {
		if v, ok := numberField(fields, key); ok {
			*dst = v
			found++
		}
	}
	if found == 0 {
		return ingredient.Nutrition{}, errors.New("no nutrition fields in response")
	}

	n = n.Clamp().Round()
	if err := validate.Struct(nutritionPayload(n)); err != nil {
		return ingredient.Nutrition{}, fmt.Errorf("implausible nutrition values: %w", err)
	}
	return n, nil
}

func stringField(fields map[string]interface{}, key string) string {
	switch v := fields[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func boolField(fields map[string]interface{}, key string) (bool, bool) {
	switch v := fields[key].(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(strings.ToLower(v)))
		if err != nil {
			return false, false
		}
		return b, true
	default:
		return false, false
	}
}

// numberField 接受 JSON 數字或以數字開頭的字串（例如 "165 kcal"）
func numberField(fields map[string]interface{}, key string) (float64, bool) {
	switch v := fields[key].(type) {
	case float64:
		return v, true
	case interface{ Float64() (float64, error) }:
		f, err := v.Float64()
		return f, err == nil
	case string:
		m := numberPrefixPattern.FindString(strings.TrimSpace(v))
		if m == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
