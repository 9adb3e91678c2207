package ingredient

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidIngredient 輸入不是有效的食材（本地規則或 AI 判定）
	ErrInvalidIngredient = errors.New("invalid ingredient")
	// ErrStoreUnavailable 鍵值儲存暫時不可用，可重試
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrTranslationService 外部 AI 服務錯誤或逾時，可重試
	ErrTranslationService = errors.New("translation service failure")
	// ErrAlreadyExists 條件寫入失敗，代表有其他寫入者先完成（僅內部使用）
	ErrAlreadyExists = errors.New("entry already exists")
	// ErrNotFound 條目不存在或已過期
	ErrNotFound = errors.New("entry not found")
)

// InvalidIngredientError 帶有原始文字與原因的無效食材錯誤
type InvalidIngredientError struct {
	Text   string
	Reason string
}

func (e *InvalidIngredientError) Error() string {
	return fmt.Sprintf("%q is not a valid ingredient: %s", e.Text, e.Reason)
}

// Is 讓 errors.Is(err, ErrInvalidIngredient) 成立
func (e *InvalidIngredientError) Is(target error) bool {
	return target == ErrInvalidIngredient
}

// NewInvalidIngredientError 創建無效食材錯誤
func NewInvalidIngredientError(text, reason string) error {
	return &InvalidIngredientError{Text: text, Reason: reason}
}

// IsRetryable 判斷錯誤是否屬於暫時性依賴失敗
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrTranslationService)
}
