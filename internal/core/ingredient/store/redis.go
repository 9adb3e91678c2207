package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"ingredient-engine/internal/core/ingredient"
	"ingredient-engine/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisConfig Redis 連線設定
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// 每個條目是一個 hash：entry（JSON）、usage_count、last_used_at。
// 使用次數獨立成欄位才能用 HINCRBY 原子遞增。
const (
	fieldEntry      = "entry"
	fieldUsageCount = "usage_count"
	fieldLastUsedAt = "last_used_at"
)

// putIfAbsentScript 條件寫入條目並維護反向索引
//
// KEYS[1] 條目鍵  KEYS[2] 防重鍵（翻譯快取寫入時為字典鍵）  KEYS[3] 反向索引鍵
// KEYS[4] 目前指標擁有者的條目鍵（沒有其他擁有者時與 KEYS[1] 相同）
// ARGV[1] 條目 JSON  ARGV[2] 使用次數  ARGV[3] 最後使用時間  ARGV[4] TTL 毫秒（0 為永久）
// ARGV[5] 反向索引指標（空字串表示不寫）  ARGV[6] 讀取 KEYS[4] 時看到的指標
//
// 指標在讀取之後被改寫時不覆蓋，由後寫入者保有。
var putIfAbsentScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 or redis.call('EXISTS', KEYS[2]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], 'entry', ARGV[1], 'usage_count', ARGV[2], 'last_used_at', ARGV[3])
local ttl = tonumber(ARGV[4])
if ttl > 0 then
  redis.call('PEXPIRE', KEYS[1], ttl)
end
if ARGV[5] ~= '' then
  local cur = redis.call('GET', KEYS[3]) or ''
  local write = cur == ARGV[6]
  if write and cur ~= '' and KEYS[4] ~= KEYS[1] and redis.call('EXISTS', KEYS[4]) == 1 then
    write = false
  end
  if write then
    if ttl > 0 then
      redis.call('SET', KEYS[3], ARGV[5], 'PX', ttl)
    else
      redis.call('SET', KEYS[3], ARGV[5])
    end
  end
end
return 1
`)

// incrementScript 條目存在時遞增使用次數，回傳遞增後的欄位
var incrementScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return false
end
redis.call('HINCRBY', KEYS[1], 'usage_count', 1)
redis.call('HSET', KEYS[1], 'last_used_at', ARGV[1])
return redis.call('HMGET', KEYS[1], 'entry', 'usage_count', 'last_used_at')
`)

// deleteScript 刪除條目，反向索引仍指向它時一併刪除
//
// KEYS[1] 條目鍵  KEYS[2] 反向索引鍵（條目沒有反向鍵時與 KEYS[1] 相同）  ARGV[1] 條目的指標
var deleteScript = redis.NewScript(`
if redis.call('DEL', KEYS[1]) == 0 then
  return 0
end
if KEYS[2] ~= KEYS[1] and redis.call('GET', KEYS[2]) == ARGV[1] then
  redis.call('DEL', KEYS[2])
end
return 1
`)

// RedisStore 以 Redis hash 與 Lua 腳本實作的儲存轉接器。
//
// 腳本同時操作條目鍵與反向索引鍵，這些鍵不在同一個 hash slot，
// 因此只支援單節點（或主從）部署，不支援 Redis Cluster。
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore 建立 Redis 儲存並測試連線
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// 測試連接
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}

	common.LogInfo("Redis store connected",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB),
		zap.Int("pool_size", cfg.PoolSize),
	)

	return NewRedisStoreFromClient(client), nil
}

// NewRedisStoreFromClient 使用既有的 client
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (s *RedisStore) Get(ctx context.Context, tier ingredient.Tier, key string) (*ingredient.CacheEntry, error) {
	vals, err := s.client.HMGet(ctx, EntryKey(tier, key), fieldEntry, fieldUsageCount, fieldLastUsedAt).Result()
	if err != nil {
		return nil, s.mapError("get "+key, err)
	}
	entry, err := decodeHashFields(vals)
	if err != nil {
		return nil, s.mapError("get "+key, err)
	}
	return entry, nil
}

func (s *RedisStore) PutIfAbsent(ctx context.Context, tier ingredient.Tier, entry *ingredient.CacheEntry) error {
	if err := validateEntry(tier, entry); err != nil {
		return err
	}
	stored := entry.Clone()
	stored.Tier = tier
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal entry %s: %w", entry.NormalizedKey, err)
	}

	guardKey := EntryKey(tier, stored.NormalizedKey)
	if tier == ingredient.TierTranslationCache {
		guardKey = EntryKey(ingredient.TierDictionary, stored.NormalizedKey)
	}
	entryKey := EntryKey(tier, stored.NormalizedKey)
	pointer, seen, ownerKey := "", "", entryKey
	if stored.ReverseKey != "" {
		pointer = encodePointer(tier, stored.NormalizedKey)
		seen, err = s.client.Get(ctx, ReverseIndexKey(stored.ReverseKey)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return s.mapError("put "+stored.NormalizedKey, err)
		}
		if curTier, curKey, derr := decodePointer(seen); derr == nil && curKey != stored.NormalizedKey {
			ownerKey = EntryKey(curTier, curKey)
		}
	}

	res, err := putIfAbsentScript.Run(ctx, s.client,
		[]string{entryKey, guardKey, ReverseIndexKey(stored.ReverseKey), ownerKey},
		string(data),
		stored.UsageCount,
		stored.LastUsedAt.Format(time.RFC3339Nano),
		stored.TTL(s.now()).Milliseconds(),
		pointer,
		seen,
	).Int()
	if err != nil {
		return s.mapError("put "+stored.NormalizedKey, err)
	}
	if res == 0 {
		return fmt.Errorf("put %s: %w", stored.NormalizedKey, ingredient.ErrAlreadyExists)
	}
	return nil
}

func (s *RedisStore) IncrementUsage(ctx context.Context, tier ingredient.Tier, key string) (*ingredient.CacheEntry, error) {
	vals, err := incrementScript.Run(ctx, s.client,
		[]string{EntryKey(tier, key)},
		s.now().Format(time.RFC3339Nano),
	).Slice()
	if err != nil {
		return nil, s.mapError("increment "+key, err)
	}
	entry, err := decodeHashFields(vals)
	if err != nil {
		return nil, s.mapError("increment "+key, err)
	}
	return entry, nil
}

func (s *RedisStore) Delete(ctx context.Context, tier ingredient.Tier, key string) error {
	entryKey := EntryKey(tier, key)
	raw, err := s.client.HGet(ctx, entryKey, fieldEntry).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return s.mapError("delete "+key, err)
	}

	idxKey := entryKey
	var entry ingredient.CacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err == nil && entry.ReverseKey != "" {
		idxKey = ReverseIndexKey(entry.ReverseKey)
	}

	err = deleteScript.Run(ctx, s.client,
		[]string{entryKey, idxKey},
		encodePointer(tier, key),
	).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return s.mapError("delete "+key, err)
	}
	return nil
}

func (s *RedisStore) QueryByReverseKey(ctx context.Context, reverseKey string) (*ingredient.CacheEntry, error) {
	ptr, err := s.client.Get(ctx, ReverseIndexKey(reverseKey)).Result()
	if err != nil {
		return nil, s.mapError("reverse query "+reverseKey, err)
	}
	tier, key, err := decodePointer(ptr)
	if err != nil {
		common.LogWarn("Ignoring malformed reverse index pointer",
			zap.String("reverse_key", reverseKey),
			zap.Error(err),
		)
		return nil, fmt.Errorf("reverse query %s: %w", reverseKey, ingredient.ErrNotFound)
	}
	return s.Get(ctx, tier, key)
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) mapError(op string, err error) error {
	switch {
	case errors.Is(err, redis.Nil), errors.Is(err, ingredient.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ingredient.ErrNotFound)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return unavailable(op, err)
	}
}

// decodeHashFields 將 [entry, usage_count, last_used_at] 還原成條目
func decodeHashFields(vals []interface{}) (*ingredient.CacheEntry, error) {
	if len(vals) != 3 || vals[0] == nil {
		return nil, ingredient.ErrNotFound
	}
	raw, ok := vals[0].(string)
	if !ok {
		return nil, fmt.Errorf("unexpected entry field type %T", vals[0])
	}

	var entry ingredient.CacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, fmt.Errorf("decode entry: %w", err)
	}
	if s, ok := vals[1].(string); ok {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			entry.UsageCount = n
		}
	}
	if s, ok := vals[2].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			entry.LastUsedAt = t
		}
	}
	return &entry, nil
}
