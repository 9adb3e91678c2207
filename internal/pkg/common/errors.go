package common

import (
	"context"
	"errors"
	"net/http"

	"ingredient-engine/internal/core/ingredient"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code      string `json:"code"`                // 錯誤代碼
	Message   string `json:"message"`             // 錯誤信息
	Details   string `json:"details,omitempty"`   // 詳細信息（僅在開發模式顯示）
	Retryable bool   `json:"retryable,omitempty"` // 呼叫端可稍後重試
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code      string // 錯誤代碼
	Message   string // 錯誤信息
	Err       error  // 原始錯誤
	Status    int    // HTTP 狀態碼
	Retryable bool
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// WithErr 複製預定義錯誤並附上原始錯誤
func (e *CustomError) WithErr(err error) *CustomError {
	cp := *e
	cp.Err = err
	return &cp
}

// WithMessage 複製預定義錯誤並替換訊息
func (e *CustomError) WithMessage(message string) *CustomError {
	cp := *e
	cp.Message = message
	return &cp
}

// Response 轉成 API 錯誤響應，details 只在開發模式附上
func (e *CustomError) Response(debug bool) ErrorResponse {
	resp := ErrorResponse{
		Code:      e.Code,
		Message:   e.Message,
		Retryable: e.Retryable,
	}
	if debug && e.Err != nil {
		resp.Details = e.Err.Error()
	}
	return resp
}

// ValidationError 表示驗證錯誤
type ValidationError struct {
	message string
}

// Error 實現 error 介面
func (e *ValidationError) Error() string {
	return e.message
}

// NewValidationError 創建新的驗證錯誤
func NewValidationError(message string) error {
	return &ValidationError{
		message: message,
	}
}

// IsValidationError 檢查是否為驗證錯誤
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest    = "INVALID_REQUEST"    // 400
	ErrCodeInvalidIngredient = "INVALID_INGREDIENT" // 400
	ErrCodeNotFound          = "NOT_FOUND"          // 404
	ErrCodeMethodNotAllowed  = "METHOD_NOT_ALLOWED" // 405
	ErrCodeRequestTimeout    = "REQUEST_TIMEOUT"    // 408
	ErrCodeRequestTooLarge   = "REQUEST_TOO_LARGE"  // 413

	// 服務器錯誤 (5xx)
	ErrCodeInternalError             = "INTERNAL_ERROR"              // 500
	ErrCodeStoreUnavailable          = "STORE_UNAVAILABLE"           // 503
	ErrCodeTranslationServiceFailure = "TRANSLATION_SERVICE_FAILURE" // 503
	ErrCodeTranslationServiceTimeout = "TRANSLATION_SERVICE_TIMEOUT" // 504
)

// 預定義錯誤
var (
	// 客戶端錯誤
	ErrInvalidRequest    = NewError(ErrCodeInvalidRequest, "invalid request", http.StatusBadRequest, nil)
	ErrInvalidIngredient = NewError(ErrCodeInvalidIngredient, "invalid ingredient", http.StatusBadRequest, nil)
	ErrNotFound          = NewError(ErrCodeNotFound, "resource not found", http.StatusNotFound, nil)
	ErrMethodNotAllowed  = NewError(ErrCodeMethodNotAllowed, "method not allowed", http.StatusMethodNotAllowed, nil)
	ErrRequestTimeout    = NewError(ErrCodeRequestTimeout, "request timed out", http.StatusRequestTimeout, nil)
	ErrRequestTooLarge   = NewError(ErrCodeRequestTooLarge, "request body too large", http.StatusRequestEntityTooLarge, nil)

	// 服務器錯誤
	ErrInternalError             = NewError(ErrCodeInternalError, "internal server error", http.StatusInternalServerError, nil)
	ErrStoreUnavailable          = newRetryableError(ErrCodeStoreUnavailable, "ingredient store is temporarily unavailable", http.StatusServiceUnavailable)
	ErrTranslationServiceFailure = newRetryableError(ErrCodeTranslationServiceFailure, "translation service failed", http.StatusServiceUnavailable)
	ErrTranslationServiceTimeout = newRetryableError(ErrCodeTranslationServiceTimeout, "translation service timed out", http.StatusGatewayTimeout)
)

func newRetryableError(code, message string, status int) *CustomError {
	e := NewError(code, message, status, nil)
	e.Retryable = true
	return e
}

// FromDomainError 將領域錯誤轉成對應的 API 錯誤
func FromDomainError(err error) *CustomError {
	var custom *CustomError
	if errors.As(err, &custom) {
		return custom
	}

	var invalid *ingredient.InvalidIngredientError
	switch {
	case errors.As(err, &invalid):
		return ErrInvalidIngredient.WithErr(err).WithMessage(invalid.Error())
	case errors.Is(err, ingredient.ErrInvalidIngredient):
		return ErrInvalidIngredient.WithErr(err).WithMessage(err.Error())
	case IsValidationError(err):
		return ErrInvalidRequest.WithErr(err).WithMessage(err.Error())
	case errors.Is(err, ingredient.ErrStoreUnavailable):
		return ErrStoreUnavailable.WithErr(err)
	case errors.Is(err, ingredient.ErrTranslationService) && errors.Is(err, context.DeadlineExceeded):
		return ErrTranslationServiceTimeout.WithErr(err)
	case errors.Is(err, ingredient.ErrTranslationService):
		return ErrTranslationServiceFailure.WithErr(err)
	case errors.Is(err, context.DeadlineExceeded):
		return ErrRequestTimeout.WithErr(err)
	default:
		return ErrInternalError.WithErr(err)
	}
}
