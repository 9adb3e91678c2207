package ingredient

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minLetters    = 2
	maxInputRunes = 100
	maxRepeatRun  = 4
)

// placeholderTokens 常見的測試或佔位字串（以 Normalize 後的形式比對）
var placeholderTokens = map[string]struct{}{
	"test": {}, "testing": {}, "tests": {}, "test-test": {}, "abc": {}, "abcd": {}, "xyz": {},
	"asdf": {}, "qwerty": {}, "foo": {}, "bar": {}, "baz": {}, "foobar": {}, "null": {}, "nil": {},
	"none": {}, "undefined": {}, "xxx": {}, "lorem-ipsum": {}, "lorem": {},
	"sample": {}, "demo": {}, "placeholder": {}, "example": {}, "hello": {}, "hi": {},
	"khong": {}, "khong-biet": {}, "khong-co": {}, "thu-nghiem": {}, "vi-du": {},
}

// rawPlaceholders 正規化後會與食材撞名的佔位字串（例如 n/a 與 na 果），以原始小寫比對
var rawPlaceholders = map[string]struct{}{
	"n/a": {}, "n.a.": {},
}

// ValidateInput 在呼叫 AI 之前先用本地規則過濾明顯無效的輸入
func ValidateInput(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return NewInvalidIngredientError(text, "empty input")
	}
	if utf8.RuneCountInString(trimmed) > maxInputRunes {
		return NewInvalidIngredientError(text, "input too long")
	}

	if _, ok := rawPlaceholders[strings.ToLower(trimmed)]; ok {
		return NewInvalidIngredientError(text, "placeholder text")
	}

	letters, digits := 0, 0
	for _, r := range trimmed {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			digits++
		}
	}

	if letters == 0 && digits > 0 && onlyDigitsAndSeparators(trimmed) {
		return NewInvalidIngredientError(text, "digits only")
	}
	if letters == 0 {
		return NewInvalidIngredientError(text, "no letters")
	}
	if letters < minLetters {
		return NewInvalidIngredientError(text, "too short")
	}
	if _, ok := placeholderTokens[Normalize(trimmed)]; ok {
		return NewInvalidIngredientError(text, "placeholder text")
	}
	if hasRepeatedRun(strings.ToLower(trimmed), maxRepeatRun) {
		return NewInvalidIngredientError(text, "repeated characters")
	}
	return nil
}

func onlyDigitsAndSeparators(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && !unicode.IsSpace(r) && r != '.' && r != ',' {
			return false
		}
	}
	return true
}

// hasRepeatedRun 檢查是否有同一字元連續出現 n 次以上（空白不計）
func hasRepeatedRun(s string, n int) bool {
	var prev rune
	run := 0
	for _, r := range s {
		if unicode.IsSpace(r) {
			prev, run = 0, 0
			continue
		}
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run >= n {
			return true
		}
	}
	return false
}
