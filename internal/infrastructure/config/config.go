package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"ingredient-engine/internal/core/ai/provider"
	"ingredient-engine/internal/core/ingredient/store"
	"ingredient-engine/internal/core/lookup"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`
	AI         AIConfig         `mapstructure:"ai"`
	Store      StoreConfig      `mapstructure:"store"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Nutrition  NutritionConfig  `mapstructure:"nutrition"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	LogLevel   string           `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

// OpenRouterConfig OpenRouter 配置
type OpenRouterConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	BaseURL    string `mapstructure:"base_url"`
	MaxRetries uint   `mapstructure:"max_retries"`
	Referer    string `mapstructure:"referer"`
	Title      string `mapstructure:"title"`
}

// AIConfig AI 翻譯設定
type AIConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
}

// StoreConfig 儲存後端設定
type StoreConfig struct {
	Driver string       `mapstructure:"driver"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Badger BadgerConfig `mapstructure:"badger"`
}

// RedisConfig Redis 連線設定
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// BadgerConfig Badger 設定
type BadgerConfig struct {
	Path            string `mapstructure:"path"`
	InMemory        bool   `mapstructure:"in_memory"`
	SyncWrites      bool   `mapstructure:"sync_writes"`
	ConflictRetries uint   `mapstructure:"conflict_retries"`
}

// CacheConfig 翻譯快取設定
type CacheConfig struct {
	Retention          time.Duration `mapstructure:"retention"`
	PromotionThreshold int64         `mapstructure:"promotion_threshold"`
}

// NutritionConfig 營養彙總設定
type NutritionConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// MetricsConfig Prometheus 指標設定
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoadConfig 載入設定：.env（可選）、設定檔（可選）、APP_ 前綴環境變數
func LoadConfig() (*Config, error) {
	return Load("")
}

// Load 載入設定，configFile 為空時在目前目錄與 ./configs 尋找 config.yaml
func Load(configFile string) (*Config, error) {
	// 加載 .env 文件，不存在時略過
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定環境變量
	bindings := map[string]string{
		"openrouter.api_key":        "OPENROUTER_API_KEY",
		"openrouter.model":          "OPENROUTER_MODEL",
		"ai.max_tokens":             "MODEL_MAX_TOKENS",
		"ai.timeout":                "AI_TIMEOUT",
		"store.driver":              "STORE_DRIVER",
		"store.redis.addr":          "REDIS_ADDR",
		"store.redis.password":      "REDIS_PASSWORD",
		"store.badger.path":         "BADGER_PATH",
		"cache.promotion_threshold": "PROMOTION_THRESHOLD",
		"log_level":                 "LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, "APP_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	// 設定檔
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 解析設定
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// MaskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "ingredient-engine")
	v.SetDefault("log_level", "info")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "45s")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("server.max_body_bytes", 1<<20) // 1MB

	// OpenRouter 設定
	v.SetDefault("openrouter.model", "openai/gpt-4o-mini")
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.max_retries", 2)
	v.SetDefault("openrouter.title", "Ingredient Engine")

	// AI 設定
	v.SetDefault("ai.timeout", "30s")
	v.SetDefault("ai.max_attempts", 3)
	v.SetDefault("ai.max_tokens", 256)
	v.SetDefault("ai.temperature", 0.1)

	// 儲存設定
	v.SetDefault("store.driver", store.DriverRedis)
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.pool_size", 20)
	v.SetDefault("store.redis.dial_timeout", "5s")
	v.SetDefault("store.redis.read_timeout", "3s")
	v.SetDefault("store.redis.write_timeout", "3s")
	v.SetDefault("store.badger.path", "data/badger")
	v.SetDefault("store.badger.in_memory", false)
	v.SetDefault("store.badger.sync_writes", true)
	v.SetDefault("store.badger.conflict_retries", 20)

	// 快取設定
	v.SetDefault("cache.retention", lookup.DefaultRetention.String())
	v.SetDefault("cache.promotion_threshold", lookup.DefaultPromotionThreshold)

	// 營養彙總
	v.SetDefault("nutrition.concurrency", 8)

	// 指標
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	// 驗證伺服器設定
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", config.Server.Port)
	}
	if config.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("invalid server max body bytes")
	}
	if config.Server.RequestTimeout <= 0 {
		return fmt.Errorf("invalid server request timeout")
	}
	if config.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid server shutdown timeout")
	}

	// 驗證 AI 設定
	if config.AI.Timeout <= 0 {
		return fmt.Errorf("invalid ai timeout")
	}
	if config.AI.MaxAttempts <= 0 {
		return fmt.Errorf("invalid ai max attempts")
	}
	if config.OpenRouter.Model == "" {
		return fmt.Errorf("openrouter model is required")
	}

	// 驗證儲存設定
	switch config.Store.Driver {
	case store.DriverRedis:
		if config.Store.Redis.Addr == "" {
			return fmt.Errorf("redis addr is required")
		}
	case store.DriverBadger:
		if !config.Store.Badger.InMemory && config.Store.Badger.Path == "" {
			return fmt.Errorf("badger path is required")
		}
	default:
		return fmt.Errorf("unknown store driver %q", config.Store.Driver)
	}

	// 驗證快取設定
	if config.Cache.Retention <= 0 {
		return fmt.Errorf("invalid cache retention")
	}
	if config.Cache.PromotionThreshold < 2 {
		return fmt.Errorf("cache promotion threshold must be at least 2")
	}

	if config.Nutrition.Concurrency <= 0 {
		return fmt.Errorf("invalid nutrition concurrency")
	}
	if config.Metrics.Enabled && !strings.HasPrefix(config.Metrics.Path, "/") {
		return fmt.Errorf("metrics path must start with /")
	}

	return nil
}

// StoreConfig 轉成儲存層設定
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		Driver: c.Store.Driver,
		Redis: store.RedisConfig{
			Addr:         c.Store.Redis.Addr,
			Password:     c.Store.Redis.Password,
			DB:           c.Store.Redis.DB,
			PoolSize:     c.Store.Redis.PoolSize,
			DialTimeout:  c.Store.Redis.DialTimeout,
			ReadTimeout:  c.Store.Redis.ReadTimeout,
			WriteTimeout: c.Store.Redis.WriteTimeout,
		},
		Badger: store.BadgerConfig{
			Path:            c.Store.Badger.Path,
			InMemory:        c.Store.Badger.InMemory,
			SyncWrites:      c.Store.Badger.SyncWrites,
			ConflictRetries: c.Store.Badger.ConflictRetries,
		},
	}
}

// ProviderConfig 轉成 AI 客戶端設定
func (c *Config) ProviderConfig() provider.Config {
	return provider.Config{
		APIKey:      c.OpenRouter.APIKey,
		Model:       c.OpenRouter.Model,
		BaseURL:     c.OpenRouter.BaseURL,
		MaxTokens:   c.AI.MaxTokens,
		Temperature: c.AI.Temperature,
		Timeout:     c.AI.Timeout,
		MaxRetries:  c.OpenRouter.MaxRetries,
		Referer:     c.OpenRouter.Referer,
		Title:       c.OpenRouter.Title,
	}
}

// LookupOptions 轉成查詢服務設定
func (c *Config) LookupOptions() lookup.Options {
	return lookup.Options{
		PromotionThreshold: c.Cache.PromotionThreshold,
		Retention:          c.Cache.Retention,
	}
}
