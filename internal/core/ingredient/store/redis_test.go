package store

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"ingredient-engine/internal/core/ingredient"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRedis 預設使用行程內的 miniredis；設定 TEST_REDIS_ADDR 時改連真實 Redis（會清空 DB 15）。
// 回傳的 *miniredis.Miniredis 在真實 Redis 模式下為 nil。
func newTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	ctx := context.Background()

	var (
		mr     *miniredis.Miniredis
		client *redis.Client
	)
	if addr := os.Getenv("TEST_REDIS_ADDR"); addr != "" {
		client = redis.NewClient(&redis.Options{Addr: addr, DB: 15})
		require.NoError(t, client.Ping(ctx).Err())
		require.NoError(t, client.FlushDB(ctx).Err())
	} else {
		mr = miniredis.RunT(t)
		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	}

	s := NewRedisStoreFromClient(client)
	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = s.Close()
	})
	return s, mr
}

func TestRedisStore_PutGetAndConflict(t *testing.T) {
	s, _ := newTestRedis(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.PutIfAbsent(ctx, ingredient.TierTranslationCache, cacheEntry("thit-ba-chi", "pork belly", now, time.Hour)))

	got, err := s.Get(ctx, ingredient.TierTranslationCache, "thit-ba-chi")
	require.NoError(t, err)
	assert.Equal(t, "pork belly", got.Translation.Specific)
	assert.Equal(t, int64(1), got.UsageCount)

	err = s.PutIfAbsent(ctx, ingredient.TierTranslationCache, cacheEntry("thit-ba-chi", "bacon", now, time.Hour))
	assert.True(t, errors.Is(err, ingredient.ErrAlreadyExists))

	ttl, err := s.client.PTTL(ctx, EntryKey(ingredient.TierTranslationCache, "thit-ba-chi")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestRedisStore_IncrementUsage_Concurrent(t *testing.T) {
	s, _ := newTestRedis(t)
	ctx := context.Background()
	require.NoError(t, s.PutIfAbsent(ctx, ingredient.TierTranslationCache, cacheEntry("gao", "rice", time.Now(), time.Hour)))

	const workers = 25
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.IncrementUsage(ctx, ingredient.TierTranslationCache, "gao")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, ingredient.TierTranslationCache, "gao")
	require.NoError(t, err)
	assert.Equal(t, int64(workers+1), got.UsageCount)

	_, err = s.IncrementUsage(ctx, ingredient.TierTranslationCache, "missing")
	assert.True(t, errors.Is(err, ingredient.ErrNotFound))
}

func TestRedisStore_ReverseIndexAndPromotion(t *testing.T) {
	s, _ := newTestRedis(t)
	ctx := context.Background()
	now := time.Now().UTC()

	entry := cacheEntry("dau-phu", "tofu", now, time.Hour)
	require.NoError(t, s.PutIfAbsent(ctx, ingredient.TierTranslationCache, entry))

	got, err := s.QueryByReverseKey(ctx, "tofu")
	require.NoError(t, err)
	assert.Equal(t, ingredient.TierTranslationCache, got.Tier)

	require.NoError(t, s.PutIfAbsent(ctx, ingredient.TierDictionary, entry.PromotedCopy(now)))
	require.NoError(t, s.Delete(ctx, ingredient.TierTranslationCache, "dau-phu"))

	got, err = s.QueryByReverseKey(ctx, "tofu")
	require.NoError(t, err)
	assert.Equal(t, ingredient.TierDictionary, got.Tier)

	err = s.PutIfAbsent(ctx, ingredient.TierTranslationCache, cacheEntry("dau-phu", "bean curd", now, time.Hour))
	assert.True(t, errors.Is(err, ingredient.ErrAlreadyExists))

	ttl, err := s.client.PTTL(ctx, EntryKey(ingredient.TierDictionary, "dau-phu")).Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl, "dictionary entries never expire")
}

func TestRedisStore_DictionaryGuardsCacheInsert(t *testing.T) {
	s, _ := newTestRedis(t)
	ctx := context.Background()
	now := time.Now().UTC()

	dict := cacheEntry("hanh-la", "scallion", now, 0).PromotedCopy(now)
	require.NoError(t, s.PutIfAbsent(ctx, ingredient.TierDictionary, dict))

	err := s.PutIfAbsent(ctx, ingredient.TierTranslationCache, cacheEntry("hanh-la", "green onion", now, time.Hour))
	assert.True(t, errors.Is(err, ingredient.ErrAlreadyExists))

	_, err = s.Get(ctx, ingredient.TierTranslationCache, "hanh-la")
	assert.True(t, errors.Is(err, ingredient.ErrNotFound), "rejected insert leaves nothing behind")

	err = s.PutIfAbsent(ctx, ingredient.TierDictionary, dict)
	assert.True(t, errors.Is(err, ingredient.ErrAlreadyExists))
}

func TestRedisStore_ReverseIndexOwnership(t *testing.T) {
	s, _ := newTestRedis(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.PutIfAbsent(ctx, ingredient.TierTranslationCache, cacheEntry("thit-ba-chi", "pork belly", now, time.Hour)))
	// another spelling with the same English name does not take over the pointer
	require.NoError(t, s.PutIfAbsent(ctx, ingredient.TierTranslationCache, cacheEntry("ba-chi-heo", "pork belly", now, time.Hour)))

	owner, err := s.QueryByReverseKey(ctx, "pork-belly")
	require.NoError(t, err)
	assert.Equal(t, "thit-ba-chi", owner.NormalizedKey)

	// deleting the non-owner keeps the pointer
	require.NoError(t, s.Delete(ctx, ingredient.TierTranslationCache, "ba-chi-heo"))
	owner, err = s.QueryByReverseKey(ctx, "pork-belly")
	require.NoError(t, err)
	assert.Equal(t, "thit-ba-chi", owner.NormalizedKey)

	// deleting the owner drops it
	require.NoError(t, s.Delete(ctx, ingredient.TierTranslationCache, "thit-ba-chi"))
	_, err = s.QueryByReverseKey(ctx, "pork-belly")
	assert.True(t, errors.Is(err, ingredient.ErrNotFound))

	assert.NoError(t, s.Delete(ctx, ingredient.TierTranslationCache, "thit-ba-chi"), "deleting twice is a no-op")
}

func TestRedisStore_ReverseIndexStaleOwnerReplaced(t *testing.T) {
	s, mr := newTestRedis(t)
	if mr == nil {
		t.Skip("needs miniredis to fast-forward time")
	}
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.PutIfAbsent(ctx, ingredient.TierTranslationCache, cacheEntry("dau-phu", "tofu", now, time.Minute)))
	// drop only the entry so the pointer goes stale
	mr.Del(EntryKey(ingredient.TierTranslationCache, "dau-phu"))

	require.NoError(t, s.PutIfAbsent(ctx, ingredient.TierTranslationCache, cacheEntry("dau-hu", "tofu", now, time.Hour)))
	owner, err := s.QueryByReverseKey(ctx, "tofu")
	require.NoError(t, err)
	assert.Equal(t, "dau-hu", owner.NormalizedKey)

	mr.FastForward(2 * time.Hour)
	_, err = s.Get(ctx, ingredient.TierTranslationCache, "dau-hu")
	assert.True(t, errors.Is(err, ingredient.ErrNotFound), "cache entries expire")
	_, err = s.IncrementUsage(ctx, ingredient.TierTranslationCache, "dau-hu")
	assert.True(t, errors.Is(err, ingredient.ErrNotFound))
}

func TestRedisStore_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	s := NewRedisStoreFromClient(client)
	t.Cleanup(func() { _ = s.Close() })
	mr.Close()

	ctx := context.Background()
	_, err := s.Get(ctx, ingredient.TierDictionary, "gao")
	assert.True(t, errors.Is(err, ingredient.ErrStoreUnavailable))
	assert.True(t, errors.Is(s.Ping(ctx), ingredient.ErrStoreUnavailable))
}
