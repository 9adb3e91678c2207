package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ingredient-engine/internal/core/ingredient/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, store.DriverRedis, cfg.Store.Driver)
	assert.Equal(t, "localhost:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, 365*24*time.Hour, cfg.Cache.Retention)
	assert.Equal(t, int64(100), cfg.Cache.PromotionThreshold)
	assert.Equal(t, 30*time.Second, cfg.AI.Timeout)
	assert.Equal(t, 3, cfg.AI.MaxAttempts)
	assert.Equal(t, 8, cfg.Nutrition.Concurrency)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("OPENROUTER_API_KEY", "sk-or-test-1234567890")
	t.Setenv("STORE_DRIVER", "badger")
	t.Setenv("BADGER_PATH", "/tmp/ingredients")
	t.Setenv("PROMOTION_THRESHOLD", "5")
	t.Setenv("APP_SERVER_PORT", "9090")
	t.Setenv("APP_AI_TIMEOUT", "5s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sk-or-test-1234567890", cfg.OpenRouter.APIKey)
	assert.Equal(t, store.DriverBadger, cfg.Store.Driver)
	assert.Equal(t, "/tmp/ingredients", cfg.Store.Badger.Path)
	assert.Equal(t, int64(5), cfg.Cache.PromotionThreshold)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.AI.Timeout)

	sc := cfg.StoreConfig()
	assert.Equal(t, "/tmp/ingredients", sc.Badger.Path)
	assert.Equal(t, uint(20), sc.Badger.ConflictRetries)

	pc := cfg.ProviderConfig()
	assert.Equal(t, 5*time.Second, pc.Timeout)
	assert.Equal(t, "sk-or-test-1234567890", pc.APIKey)

	assert.Equal(t, int64(5), cfg.LookupOptions().PromotionThreshold)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("REDIS_ADDR=redis:6380\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("REDIS_ADDR") })

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "redis:6380", cfg.Store.Redis.Addr)
}

func TestLoad_ConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  driver: badger
  badger:
    in_memory: true
cache:
  retention: 720h
nutrition:
  concurrency: 2
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, store.DriverBadger, cfg.Store.Driver)
	assert.True(t, cfg.Store.Badger.InMemory)
	assert.Equal(t, 720*time.Hour, cfg.Cache.Retention)
	assert.Equal(t, 2, cfg.Nutrition.Concurrency)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:     ServerConfig{Port: 8080, MaxBodyBytes: 1024, RequestTimeout: time.Second, ShutdownTimeout: time.Second},
			OpenRouter: OpenRouterConfig{Model: "m"},
			AI:         AIConfig{Timeout: time.Second, MaxAttempts: 3},
			Store:      StoreConfig{Driver: store.DriverRedis, Redis: RedisConfig{Addr: "localhost:6379"}},
			Cache:      CacheConfig{Retention: time.Hour, PromotionThreshold: 100},
			Nutrition:  NutritionConfig{Concurrency: 4},
			Metrics:    MetricsConfig{Enabled: true, Path: "/metrics"},
		}
	}
	require.NoError(t, validateConfig(valid()))

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }},
		{"body size", func(c *Config) { c.Server.MaxBodyBytes = 0 }},
		{"request timeout", func(c *Config) { c.Server.RequestTimeout = 0 }},
		{"shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = 0 }},
		{"ai timeout", func(c *Config) { c.AI.Timeout = 0 }},
		{"attempts", func(c *Config) { c.AI.MaxAttempts = 0 }},
		{"model", func(c *Config) { c.OpenRouter.Model = "" }},
		{"driver", func(c *Config) { c.Store.Driver = "sqlite" }},
		{"redis addr", func(c *Config) { c.Store.Redis.Addr = "" }},
		{"badger path", func(c *Config) { c.Store = StoreConfig{Driver: store.DriverBadger} }},
		{"retention", func(c *Config) { c.Cache.Retention = 0 }},
		{"threshold", func(c *Config) { c.Cache.PromotionThreshold = 1 }},
		{"concurrency", func(c *Config) { c.Nutrition.Concurrency = 0 }},
		{"metrics path", func(c *Config) { c.Metrics.Path = "metrics" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, validateConfig(cfg))
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", MaskAPIKey("short"))
	assert.Equal(t, "sk-o...7890", MaskAPIKey("sk-or-test-1234567890"))
}
