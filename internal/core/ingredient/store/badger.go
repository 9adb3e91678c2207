package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"ingredient-engine/internal/core/ingredient"
	"ingredient-engine/internal/pkg/common"

	"github.com/avast/retry-go"
	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// BadgerConfig 內嵌 Badger 儲存設定
type BadgerConfig struct {
	// Path 資料目錄，InMemory 為 true 時忽略
	Path string
	// InMemory 僅存於記憶體（測試與單機開發用）
	InMemory bool
	// SyncWrites 每次寫入都 fsync
	SyncWrites bool
	// ConflictRetries 交易衝突時的重試次數
	ConflictRetries uint
}

// DefaultBadgerConfig 預設的持久化設定
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{
		Path:            path,
		SyncWrites:      true,
		ConflictRetries: 20,
	}
}

// InMemoryBadgerConfig 記憶體模式設定
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{
		InMemory:        true,
		ConflictRetries: 50,
	}
}

// BadgerStore 以 Badger 交易實作的儲存轉接器。
// 條件寫入與遞增都在可序列化交易內完成，衝突時整筆交易重試。
type BadgerStore struct {
	db      *badger.DB
	retries uint
	now     func() time.Time
}

// badgerLogger 將 Badger 內部日誌轉接到 zap
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	common.LogError("badger", zap.String("detail", fmt.Sprintf(format, args...)))
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	common.LogWarn("badger", zap.String("detail", fmt.Sprintf(format, args...)))
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	common.LogDebug("badger", zap.String("detail", fmt.Sprintf(format, args...)))
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	common.LogDebug("badger", zap.String("detail", fmt.Sprintf(format, args...)))
}

// OpenBadger 開啟 Badger 資料庫
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("badger path is required for persistent store")
		}
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create badger directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if common.Logger != nil {
		opts = opts.WithLogger(badgerLogger{})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	retries := cfg.ConflictRetries
	if retries == 0 {
		retries = 20
	}
	return &BadgerStore{db: db, retries: retries, now: time.Now}, nil
}

// update 執行讀寫交易，遇到 badger.ErrConflict 時重試
func (s *BadgerStore) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	return retry.Do(
		func() error {
			return s.db.Update(fn)
		},
		retry.Context(ctx),
		retry.Attempts(s.retries),
		retry.DelayType(retry.RandomDelay),
		retry.MaxJitter(2*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, badger.ErrConflict)
		}),
	)
}

func (s *BadgerStore) Get(ctx context.Context, tier ingredient.Tier, key string) (*ingredient.CacheEntry, error) {
	var entry *ingredient.CacheEntry
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		entry, err = readEntry(txn, EntryKey(tier, key))
		return err
	})
	if err != nil {
		return nil, s.mapError("get "+key, err)
	}
	return entry, nil
}

func (s *BadgerStore) PutIfAbsent(ctx context.Context, tier ingredient.Tier, entry *ingredient.CacheEntry) error {
	if err := validateEntry(tier, entry); err != nil {
		return err
	}
	stored := entry.Clone()
	stored.Tier = tier
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal entry %s: %w", entry.NormalizedKey, err)
	}
	ttl := stored.TTL(s.now())

	err = s.update(ctx, func(txn *badger.Txn) error {
		keys := []string{EntryKey(tier, stored.NormalizedKey)}
		if tier == ingredient.TierTranslationCache {
			keys = append(keys, EntryKey(ingredient.TierDictionary, stored.NormalizedKey))
		}
		for _, k := range keys {
			exists, err := keyExists(txn, k)
			if err != nil {
				return err
			}
			if exists {
				return ingredient.ErrAlreadyExists
			}
		}

		if err := txn.SetEntry(withTTL(badger.NewEntry([]byte(keys[0]), data), ttl)); err != nil {
			return err
		}
		if stored.ReverseKey == "" {
			return nil
		}
		return s.pointReverseIndex(txn, stored, ttl)
	})
	if err != nil {
		return s.mapError("put "+stored.NormalizedKey, err)
	}
	return nil
}

// pointReverseIndex 反向索引指標不存在、已失效或指向同一個正規化鍵時才覆寫
func (s *BadgerStore) pointReverseIndex(txn *badger.Txn, entry *ingredient.CacheEntry, ttl time.Duration) error {
	idxKey := []byte(ReverseIndexKey(entry.ReverseKey))
	item, err := txn.Get(idxKey)
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
	case err != nil:
		return err
	default:
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if tier, key, derr := decodePointer(string(raw)); derr == nil && key != entry.NormalizedKey {
			alive, err := keyExists(txn, EntryKey(tier, key))
			if err != nil {
				return err
			}
			if alive {
				return nil
			}
		}
	}
	ptr := encodePointer(entry.Tier, entry.NormalizedKey)
	return txn.SetEntry(withTTL(badger.NewEntry(idxKey, []byte(ptr)), ttl))
}

func (s *BadgerStore) IncrementUsage(ctx context.Context, tier ingredient.Tier, key string) (*ingredient.CacheEntry, error) {
	var updated *ingredient.CacheEntry
	err := s.update(ctx, func(txn *badger.Txn) error {
		updated = nil
		entry, err := readEntry(txn, EntryKey(tier, key))
		if err != nil {
			return err
		}
		now := s.now()
		entry.UsageCount++
		entry.LastUsedAt = now

		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		if err := txn.SetEntry(withTTL(badger.NewEntry([]byte(EntryKey(tier, key)), data), entry.TTL(now))); err != nil {
			return err
		}
		updated = entry
		return nil
	})
	if err != nil {
		return nil, s.mapError("increment "+key, err)
	}
	return updated, nil
}

func (s *BadgerStore) Delete(ctx context.Context, tier ingredient.Tier, key string) error {
	err := s.update(ctx, func(txn *badger.Txn) error {
		entry, err := readEntry(txn, EntryKey(tier, key))
		if errors.Is(err, ingredient.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := txn.Delete([]byte(EntryKey(tier, key))); err != nil {
			return err
		}
		if entry.ReverseKey == "" {
			return nil
		}
		idxKey := []byte(ReverseIndexKey(entry.ReverseKey))
		item, err := txn.Get(idxKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if string(raw) == encodePointer(tier, key) {
			return txn.Delete(idxKey)
		}
		return nil
	})
	if err != nil {
		return s.mapError("delete "+key, err)
	}
	return nil
}

func (s *BadgerStore) QueryByReverseKey(ctx context.Context, reverseKey string) (*ingredient.CacheEntry, error) {
	var entry *ingredient.CacheEntry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(ReverseIndexKey(reverseKey)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ingredient.ErrNotFound
		}
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		tier, key, err := decodePointer(string(raw))
		if err != nil {
			common.LogWarn("Ignoring malformed reverse index pointer",
				zap.String("reverse_key", reverseKey),
				zap.Error(err),
			)
			return ingredient.ErrNotFound
		}
		entry, err = readEntry(txn, EntryKey(tier, key))
		return err
	})
	if err != nil {
		return nil, s.mapError("reverse query "+reverseKey, err)
	}
	return entry, nil
}

func (s *BadgerStore) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return unavailable("ping", errors.New("badger is closed"))
	}
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// mapError 保留領域錯誤，其餘一律視為儲存不可用
func (s *BadgerStore) mapError(op string, err error) error {
	if errors.Is(err, ingredient.ErrNotFound) || errors.Is(err, ingredient.ErrAlreadyExists) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return unavailable(op, err)
}

func readEntry(txn *badger.Txn, key string) (*ingredient.CacheEntry, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ingredient.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var entry ingredient.CacheEntry
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &entry)
	}); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &entry, nil
}

func keyExists(txn *badger.Txn, key string) (bool, error) {
	_, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func withTTL(e *badger.Entry, ttl time.Duration) *badger.Entry {
	if ttl > 0 {
		return e.WithTTL(ttl)
	}
	return e
}
