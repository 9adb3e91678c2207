package app

import (
	"context"
	"testing"
	"time"

	"ingredient-engine/internal/core/ingredient/store"
	"ingredient-engine/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func badgerConfig() *config.Config {
	return &config.Config{
		OpenRouter: config.OpenRouterConfig{Model: "test/model", BaseURL: "http://127.0.0.1:0"},
		AI:         config.AIConfig{Timeout: time.Second, MaxAttempts: 1},
		Store:      config.StoreConfig{Driver: store.DriverBadger, Badger: config.BadgerConfig{InMemory: true, ConflictRetries: 10}},
		Cache:      config.CacheConfig{Retention: time.Hour, PromotionThreshold: 100},
		Nutrition:  config.NutritionConfig{Concurrency: 2},
	}
}

func TestNew(t *testing.T) {
	a, err := New(context.Background(), badgerConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.NotNil(t, a.Lookup)
	assert.NotNil(t, a.Aggregator)
	assert.NoError(t, a.Store.Ping(context.Background()))

	families, err := a.Metrics.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := badgerConfig()
	cfg.Store.Driver = "memcached"

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}
