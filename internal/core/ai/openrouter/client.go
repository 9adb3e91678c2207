package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ingredient-engine/internal/core/ai/provider"
	"ingredient-engine/internal/core/ingredient"
	"ingredient-engine/internal/pkg/common"

	"github.com/avast/retry-go"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultTimeout = 30 * time.Second
	retryDelay     = 500 * time.Millisecond
)

// Client OpenRouter API 客戶端
type Client struct {
	client     *resty.Client
	model      string
	maxTokens  int
	timeout    time.Duration
	maxRetries uint
	retryDelay time.Duration
}

var _ provider.Completer = (*Client)(nil)

// chatRequest 表示 API 請求
type chatRequest struct {
	Model       string             `json:"model"`
	Messages    []provider.Message `json:"messages"`
	MaxTokens   int                `json:"max_tokens,omitempty"`
	Temperature float64            `json:"temperature"`
}

// chatResponse OpenRouter 響應結構
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage provider.Usage `json:"usage"`
}

// APIError 非 2xx 的 HTTP 響應
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openrouter returned status %d: %s", e.StatusCode, e.Body)
}

// Retryable 429 與 5xx 可重試
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// NewClient 創建新的 OpenRouter 客戶端
func NewClient(cfg provider.Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	referer := cfg.Referer
	if referer == "" {
		referer = "https://github.com/ingredient-engine"
	}
	title := cfg.Title
	if title == "" {
		title = "Ingredient Engine"
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.APIKey)).
		SetHeader("Content-Type", "application/json").
		SetHeader("HTTP-Referer", referer).
		SetHeader("X-Title", title)

	return &Client{
		client:     client,
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		timeout:    timeout,
		maxRetries: cfg.MaxRetries,
		retryDelay: retryDelay,
	}
}

// GetModel 獲取當前使用的模型名稱
func (c *Client) GetModel() string {
	return c.model
}

// Generate 發送 chat completion 請求。整個呼叫（含重試）受 timeout 限制，
// 失敗一律包裝成 ingredient.ErrTranslationService。
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body := chatRequest{
		Model:       c.model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if body.MaxTokens == 0 {
		body.MaxTokens = c.maxTokens
	}

	var result *provider.Response
	err := retry.Do(
		func() error {
			resp, err := c.send(ctx, &body)
			if err != nil {
				if !isRetryable(ctx, err) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			result = resp
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.maxRetries+1),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			common.LogWarn("Retrying OpenRouter request",
				zap.Uint("attempt", n+1),
				zap.String("model", c.model),
				zap.Error(err),
			)
		}),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", ingredient.ErrTranslationService, ctxErr)
		}
		return nil, fmt.Errorf("%w: %v", ingredient.ErrTranslationService, err)
	}
	return result, nil
}

func (c *Client) send(ctx context.Context, body *chatRequest) (*provider.Response, error) {
	common.LogDebug("Sending request to OpenRouter",
		zap.String("model", body.Model),
		zap.Int("messages", len(body.Messages)),
	)

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("failed to send request to OpenRouter: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: truncate(resp.String(), 512)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse OpenRouter response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, errors.New("no choices in OpenRouter response")
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return nil, errors.New("empty content in OpenRouter response")
	}

	model := parsed.Model
	if model == "" {
		model = body.Model
	}
	return &provider.Response{
		Content: content,
		Model:   model,
		Usage:   parsed.Usage,
	}, nil
}

// isRetryable 網路錯誤、429、5xx 與空響應可重試；呼叫端取消或逾時則不重試
func isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
