// Package store 提供字典與翻譯快取兩個層級共用的鍵值儲存介面與實作。
//
// 每個條目以「分區 + INGREDIENT#{normalizedKey}」為鍵，另有一組以反向鍵
// （翻譯後名稱的正規化結果）為索引的指標，只用於重複偵測。
package store

import (
	"context"
	"fmt"
	"strings"

	"ingredient-engine/internal/core/ingredient"
)

const (
	entryPrefix   = "INGREDIENT#"
	reversePrefix = "REVERSE#"
	pointerSep    = "|"
)

// Store 鍵值儲存轉接器
type Store interface {
	// Get 依層級與正規化鍵取得條目，不存在或已過期回傳 ingredient.ErrNotFound
	Get(ctx context.Context, tier ingredient.Tier, key string) (*ingredient.CacheEntry, error)

	// PutIfAbsent 條件寫入；鍵已存在時回傳 ingredient.ErrAlreadyExists。
	// 寫入翻譯快取時，字典中已有同一個鍵也視為已存在。
	PutIfAbsent(ctx context.Context, tier ingredient.Tier, entry *ingredient.CacheEntry) error

	// IncrementUsage 原子地遞增使用次數並回傳遞增後的條目
	IncrementUsage(ctx context.Context, tier ingredient.Tier, key string) (*ingredient.CacheEntry, error)

	// Delete 刪除條目，不存在時不視為錯誤
	Delete(ctx context.Context, tier ingredient.Tier, key string) error

	// QueryByReverseKey 透過反向索引查詢兩個層級，回傳條目的 Tier 標示命中的層級
	QueryByReverseKey(ctx context.Context, reverseKey string) (*ingredient.CacheEntry, error)

	// Ping 檢查儲存是否可用
	Ping(ctx context.Context) error

	// Close 釋放連線
	Close() error
}

// EntryKey 產生條目在儲存中的完整鍵，例如 DICTIONARY#INGREDIENT#thit-ba-chi
func EntryKey(tier ingredient.Tier, normalizedKey string) string {
	return string(tier) + "#" + entryPrefix + normalizedKey
}

// ReverseIndexKey 產生反向索引鍵
func ReverseIndexKey(reverseKey string) string {
	return reversePrefix + reverseKey
}

func encodePointer(tier ingredient.Tier, normalizedKey string) string {
	return string(tier) + pointerSep + normalizedKey
}

func decodePointer(ptr string) (ingredient.Tier, string, error) {
	tier, key, ok := strings.Cut(ptr, pointerSep)
	if !ok || !ingredient.Tier(tier).Valid() || key == "" {
		return "", "", fmt.Errorf("malformed reverse index pointer %q", ptr)
	}
	return ingredient.Tier(tier), key, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ingredient.ErrStoreUnavailable, err)
}

func validateEntry(tier ingredient.Tier, entry *ingredient.CacheEntry) error {
	if !tier.Valid() {
		return fmt.Errorf("invalid tier %q", tier)
	}
	if entry == nil || entry.NormalizedKey == "" {
		return fmt.Errorf("entry without normalized key")
	}
	if tier == ingredient.TierTranslationCache && entry.ExpiresAt == nil {
		return fmt.Errorf("translation cache entry %s has no expiry", entry.NormalizedKey)
	}
	return nil
}

// 支援的儲存後端
const (
	DriverRedis  = "redis"
	DriverBadger = "badger"
)

// Config 儲存後端設定
type Config struct {
	Driver string
	Redis  RedisConfig
	Badger BadgerConfig
}

// Open 依設定開啟對應的儲存後端
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverRedis:
		s, err := NewRedisStore(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverBadger:
		s, err := OpenBadger(cfg.Badger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
