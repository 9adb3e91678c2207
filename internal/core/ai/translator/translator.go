// Package translator 以 chat completion 模型翻譯食材名稱並估算營養。
// 模型輸出視為不可信資料：先抽取、修正、驗證，失敗時帶著原因重新詢問。
package translator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ingredient-engine/internal/core/ai/provider"
	"ingredient-engine/internal/core/ingredient"
	"ingredient-engine/internal/core/metrics"
	"ingredient-engine/internal/pkg/common"

	"go.uber.org/zap"
)

const (
	OperationTranslate = "translate"
	OperationNutrition = "nutrition"

	defaultMaxAttempts = 3
	defaultMaxTokens   = 256
	defaultTemperature = 0.1
)

// Service AI 翻譯服務
type Service struct {
	completer   provider.Completer
	metrics     *metrics.Metrics
	maxAttempts int
	maxTokens   int
	temperature float64
}

// Option 服務選項
type Option func(*Service)

// WithMaxAttempts 設定解析失敗時的最大嘗試次數
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithMaxTokens 設定單次回覆的 token 上限
func WithMaxTokens(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

// WithTemperature 設定取樣溫度
func WithTemperature(t float64) Option {
	return func(s *Service) {
		s.temperature = t
	}
}

// NewService 創建翻譯服務
func NewService(completer provider.Completer, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{
		completer:   completer,
		metrics:     m,
		maxAttempts: defaultMaxAttempts,
		maxTokens:   defaultMaxTokens,
		temperature: defaultTemperature,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Translate 翻譯食材名稱。
// 本地規則或模型判定無效時回傳 ingredient.ErrInvalidIngredient，
// 服務錯誤或逾時回傳 ingredient.ErrTranslationService。
func (s *Service) Translate(ctx context.Context, sourceText string) (ingredient.Translation, error) {
	if err := ingredient.ValidateInput(sourceText); err != nil {
		return ingredient.Translation{}, err
	}

	reason := ""
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		content, err := s.complete(ctx, OperationTranslate, buildTranslatePrompt(sourceText, reason))
		if err != nil {
			return ingredient.Translation{}, err
		}

		outcome, err := ParseOutcome(content)
		if err != nil {
			reason = err.Error()
			common.LogWarn("Unusable translation output",
				zap.String("source_text", sourceText),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}

		switch o := outcome.(type) {
		case RejectedInput:
			return ingredient.Translation{}, ingredient.NewInvalidIngredientError(sourceText, o.Reason)
		case ParsedTranslation:
			return o.Translation, nil
		}
	}

	return ingredient.Translation{}, ingredient.NewInvalidIngredientError(sourceText,
		fmt.Sprintf("translation output unusable after %d attempts: %s", s.maxAttempts, reason))
}

// EstimateNutrition 估算每 100 克營養，任何失敗都回傳全零
func (s *Service) EstimateNutrition(ctx context.Context, specific string) ingredient.Nutrition {
	reason := ""
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		content, err := s.complete(ctx, OperationNutrition, buildNutritionPrompt(specific, reason))
		if err != nil {
			common.LogWarn("Nutrition estimate unavailable",
				zap.String("ingredient", specific),
				zap.Error(err),
			)
			return ingredient.Nutrition{}
		}

		n, err := ParseNutrition(content)
		if err == nil {
			return n
		}
		reason = err.Error()
		common.LogWarn("Unusable nutrition output",
			zap.String("ingredient", specific),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	return ingredient.Nutrition{}
}

// complete 呼叫模型並記錄耗時；錯誤一律歸類為翻譯服務錯誤
func (s *Service) complete(ctx context.Context, operation, prompt string) (string, error) {
	req := &provider.Request{
		Messages: []provider.Message{
			{Role: provider.RoleSystem, Content: systemPrompt},
			{Role: provider.RoleUser, Content: prompt},
		},
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	}

	start := time.Now()
	resp, err := s.completer.Generate(ctx, req)
	duration := time.Since(start)
	common.LogAICall(operation, duration, err)

	if err != nil {
		s.metrics.ObserveAICall(operation, metrics.StatusError, duration)
		if !errors.Is(err, ingredient.ErrTranslationService) {
			err = fmt.Errorf("%w: %w", ingredient.ErrTranslationService, err)
		}
		return "", err
	}
	if resp == nil {
		s.metrics.ObserveAICall(operation, metrics.StatusError, duration)
		return "", fmt.Errorf("%w: empty response", ingredient.ErrTranslationService)
	}

	s.metrics.ObserveAICall(operation, metrics.StatusSuccess, duration)
	return resp.Content, nil
}
