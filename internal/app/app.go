// Package app 組裝儲存、AI 翻譯、查詢與營養彙總等服務，供 API 伺服器與 CLI 共用。
package app

import (
	"context"
	"fmt"

	"ingredient-engine/internal/core/ai/openrouter"
	"ingredient-engine/internal/core/ai/translator"
	"ingredient-engine/internal/core/ingredient/store"
	"ingredient-engine/internal/core/lookup"
	"ingredient-engine/internal/core/metrics"
	"ingredient-engine/internal/core/nutrition"
	"ingredient-engine/internal/infrastructure/config"
	"ingredient-engine/internal/pkg/common"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// App 已組裝完成的服務集合
type App struct {
	Store      store.Store
	Metrics    *metrics.Metrics
	Lookup     *lookup.Service
	Aggregator *nutrition.Aggregator
}

// New 依設定開啟儲存並建立所有服務
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	st, err := store.Open(ctx, cfg.StoreConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Driver, err)
	}

	a, err := NewWithStore(cfg, st)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return a, nil
}

// NewWithStore 使用既有的儲存建立服務
func NewWithStore(cfg *config.Config, st store.Store) (*App, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	if cfg.OpenRouter.APIKey == "" {
		common.LogWarn("OpenRouter API key is empty, AI fallback requests will fail")
	}
	client := openrouter.NewClient(cfg.ProviderConfig())
	tr := translator.NewService(client, m,
		translator.WithMaxAttempts(cfg.AI.MaxAttempts),
		translator.WithMaxTokens(cfg.AI.MaxTokens),
		translator.WithTemperature(cfg.AI.Temperature),
	)

	svc := lookup.NewService(st, tr, m, cfg.LookupOptions())
	agg, err := nutrition.NewAggregator(svc, nutrition.Options{Concurrency: cfg.Nutrition.Concurrency})
	if err != nil {
		return nil, fmt.Errorf("failed to create nutrition aggregator: %w", err)
	}

	common.LogInfo("Services initialized",
		zap.String("store_driver", cfg.Store.Driver),
		zap.String("model", client.GetModel()),
		zap.String("openrouter_key", config.MaskAPIKey(cfg.OpenRouter.APIKey)),
		zap.Int64("promotion_threshold", cfg.Cache.PromotionThreshold),
		zap.Duration("retention", cfg.Cache.Retention),
	)

	return &App{
		Store:      st,
		Metrics:    m,
		Lookup:     svc,
		Aggregator: agg,
	}, nil
}

// Close 釋放儲存連線
func (a *App) Close() error {
	return a.Store.Close()
}
