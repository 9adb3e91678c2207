// Package lookup 實作兩層快取的查詢流程：字典 → 翻譯快取 → AI 翻譯，
// 以及翻譯快取條目達到使用門檻後晉升到字典。
package lookup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ingredient-engine/internal/core/ingredient"
	"ingredient-engine/internal/core/ingredient/store"
	"ingredient-engine/internal/core/metrics"
	"ingredient-engine/internal/pkg/common"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultPromotionThreshold 翻譯快取條目晉升到字典所需的使用次數
	DefaultPromotionThreshold = 100
	// DefaultRetention 翻譯快取條目的保存期限
	DefaultRetention = 365 * 24 * time.Hour
)

// Translator AI 翻譯後備
type Translator interface {
	Translate(ctx context.Context, sourceText string) (ingredient.Translation, error)
	EstimateNutrition(ctx context.Context, specific string) ingredient.Nutrition
}

// Options 查詢服務設定
type Options struct {
	PromotionThreshold int64
	Retention          time.Duration
	Now                func() time.Time
}

// DefaultOptions 預設設定
func DefaultOptions() Options {
	return Options{
		PromotionThreshold: DefaultPromotionThreshold,
		Retention:          DefaultRetention,
		Now:                time.Now,
	}
}

// Result 查詢結果
type Result struct {
	Found         bool                   `json:"found"`
	SourceText    string                 `json:"source_text"`
	NormalizedKey string                 `json:"normalized_key"`
	Translation   ingredient.Translation `json:"translation"`
	Category      ingredient.Category    `json:"category"`
	Provenance    ingredient.Provenance  `json:"provenance"`
	ReverseKey    string                 `json:"reverse_key,omitempty"`
	Nutrition     ingredient.Nutrition   `json:"nutrition_per_100"`
	UsageCount    int64                  `json:"usage_count"`
}

// Service 查詢協調器。本身不保存狀態，所有共享狀態都在 store 中。
type Service struct {
	store      store.Store
	translator Translator
	metrics    *metrics.Metrics
	opts       Options
	tracer     trace.Tracer

	// 同一個 normalizedKey 的 AI 後備與寫入在同一個行程內只會跑一次
	flight singleflight.Group
}

// NewService 創建查詢服務
func NewService(st store.Store, tr Translator, m *metrics.Metrics, opts Options) *Service {
	defaults := DefaultOptions()
	if opts.PromotionThreshold <= 0 {
		opts.PromotionThreshold = defaults.PromotionThreshold
	}
	if opts.Retention <= 0 {
		opts.Retention = defaults.Retention
	}
	if opts.Now == nil {
		opts.Now = defaults.Now
	}
	return &Service{
		store:      st,
		translator: tr,
		metrics:    m,
		opts:       opts,
		tracer:     otel.Tracer("ingredient-engine/lookup"),
	}
}

// Lookup 解析一個食材名稱
func (s *Service) Lookup(ctx context.Context, sourceText string) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "lookup.Lookup")
	defer span.End()

	res, err := s.lookup(ctx, sourceText)
	if err != nil {
		s.metrics.LookupError(ErrorKind(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorKind(err))
		return nil, err
	}

	s.metrics.ObserveLookup(string(res.Provenance))
	span.SetAttributes(
		attribute.String("ingredient.normalized_key", res.NormalizedKey),
		attribute.String("ingredient.provenance", string(res.Provenance)),
	)
	return res, nil
}

func (s *Service) lookup(ctx context.Context, sourceText string) (*Result, error) {
	if strings.TrimSpace(sourceText) == "" {
		return nil, ingredient.NewInvalidIngredientError(sourceText, "empty input")
	}
	key := ingredient.Normalize(sourceText)
	if key == "" {
		return nil, ingredient.NewInvalidIngredientError(sourceText, "no usable characters")
	}

	res, err := s.resolveExisting(ctx, sourceText, key)
	if err != nil || res != nil {
		return res, err
	}

	// flight 不跟隨任何單一呼叫者取消，AI 呼叫本身有逾時上限
	ch := s.flight.DoChan(key, func() (interface{}, error) {
		return s.fallback(context.WithoutCancel(ctx), sourceText, key)
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("lookup %s: %w", key, ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		out := *r.Val.(*Result)
		if r.Shared {
			out.SourceText = sourceText
		}
		return &out, nil
	}
}

// resolveExisting 依序查字典與翻譯快取，都沒有時回傳 nil, nil
func (s *Service) resolveExisting(ctx context.Context, sourceText, key string) (*Result, error) {
	entry, err := s.store.Get(ctx, ingredient.TierDictionary, key)
	switch {
	case err == nil:
		common.LogCacheHit(string(ingredient.TierDictionary), key)
		return newResult(entry, sourceText, key, ingredient.ProvenanceDictionary), nil
	case !errors.Is(err, ingredient.ErrNotFound):
		return nil, err
	}

	if _, err := s.store.Get(ctx, ingredient.TierTranslationCache, key); err != nil {
		if errors.Is(err, ingredient.ErrNotFound) {
			common.LogCacheMiss(string(ingredient.TierTranslationCache), key)
			return nil, nil
		}
		return nil, err
	}
	return s.cacheHit(ctx, sourceText, key, key)
}

// cacheHit 遞增使用次數，剛好達到門檻時執行晉升。
// 條目在讀取與遞增之間過期或被晉升時，改查字典；仍沒有則視為未命中。
func (s *Service) cacheHit(ctx context.Context, sourceText, inputKey, entryKey string) (*Result, error) {
	updated, err := s.store.IncrementUsage(ctx, ingredient.TierTranslationCache, entryKey)
	if errors.Is(err, ingredient.ErrNotFound) {
		entry, derr := s.store.Get(ctx, ingredient.TierDictionary, entryKey)
		if derr == nil {
			return newResult(entry, sourceText, inputKey, ingredient.ProvenanceDictionary), nil
		}
		if errors.Is(derr, ingredient.ErrNotFound) {
			return nil, nil
		}
		return nil, derr
	}
	if err != nil {
		return nil, err
	}
	common.LogCacheHit(string(ingredient.TierTranslationCache), entryKey)

	if updated.UsageCount == s.opts.PromotionThreshold {
		promoted, err := s.promote(ctx, updated)
		if err != nil {
			return nil, err
		}
		return newResult(promoted, sourceText, inputKey, ingredient.ProvenanceDictionary), nil
	}
	return newResult(updated, sourceText, inputKey, ingredient.ProvenanceCache), nil
}

// promote 兩階段晉升：先複製到字典（已存在視為成功），再刪除快取副本。
// 刪除失敗只記錄，殘留的快取副本會由 TTL 回收。
func (s *Service) promote(ctx context.Context, entry *ingredient.CacheEntry) (*ingredient.CacheEntry, error) {
	ctx, span := s.tracer.Start(ctx, "lookup.promote",
		trace.WithAttributes(attribute.String("ingredient.normalized_key", entry.NormalizedKey)))
	defer span.End()

	promoted := entry.PromotedCopy(s.opts.Now())
	err := s.store.PutIfAbsent(ctx, ingredient.TierDictionary, promoted)
	switch {
	case err == nil:
		s.metrics.Promotion()
		common.LogInfo("Promoted ingredient to dictionary",
			zap.String("key", entry.NormalizedKey),
			zap.Int64("usage_count", entry.UsageCount),
		)
	case errors.Is(err, ingredient.ErrAlreadyExists):
		common.LogDebug("Dictionary already holds promoted entry", zap.String("key", entry.NormalizedKey))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "promotion copy failed")
		return nil, fmt.Errorf("promote %s: %w", entry.NormalizedKey, err)
	}

	if err := s.store.Delete(ctx, ingredient.TierTranslationCache, entry.NormalizedKey); err != nil {
		common.LogWarn("Failed to delete promoted cache entry",
			zap.String("key", entry.NormalizedKey),
			zap.Error(err),
		)
	}
	return promoted, nil
}

// Promote 強制把翻譯快取條目晉升到字典，已在字典中時直接回傳
func (s *Service) Promote(ctx context.Context, sourceText string) (*Result, error) {
	key := ingredient.Normalize(sourceText)
	if key == "" {
		return nil, ingredient.NewInvalidIngredientError(sourceText, "no usable characters")
	}

	entry, err := s.store.Get(ctx, ingredient.TierDictionary, key)
	if err == nil {
		return newResult(entry, sourceText, key, ingredient.ProvenanceDictionary), nil
	}
	if !errors.Is(err, ingredient.ErrNotFound) {
		return nil, err
	}

	entry, err = s.store.Get(ctx, ingredient.TierTranslationCache, key)
	if err != nil {
		return nil, err
	}
	promoted, err := s.promote(ctx, entry)
	if err != nil {
		return nil, err
	}
	return newResult(promoted, sourceText, key, ingredient.ProvenanceDictionary), nil
}

// fallback AI 翻譯並寫入翻譯快取，寫入前後共四層重複防護；反向鍵命中時另存別名條目
func (s *Service) fallback(ctx context.Context, sourceText, key string) (*Result, error) {
	// 前一個 flight 可能剛寫完
	if res, err := s.resolveExisting(ctx, sourceText, key); err != nil || res != nil {
		return res, err
	}

	ctx, span := s.tracer.Start(ctx, "lookup.fallback")
	defer span.End()

	translation, err := s.translator.Translate(ctx, sourceText)
	if err != nil {
		return nil, err
	}

	// 1. AI 呼叫期間其他寫入者可能已完成
	if res, err := s.resolveExisting(ctx, sourceText, key); err != nil || res != nil {
		if res != nil {
			s.metrics.DuplicateRace(metrics.LayerRecheck)
		}
		return res, err
	}

	// 2. 同一個英文名稱已經存在於任一層
	reverseKey := ingredient.Normalize(translation.Specific)
	if reverseKey != "" {
		res, err := s.adoptByReverseKey(ctx, sourceText, key, reverseKey)
		if err != nil || res != nil {
			if res != nil {
				s.metrics.DuplicateRace(metrics.LayerReverseKey)
			}
			return res, err
		}
	}

	// 3. 條件寫入，營養估算只在確定要新增條目時才呼叫
	nutrition := s.translator.EstimateNutrition(ctx, translation.Specific)
	now := s.opts.Now()
	expires := now.Add(s.opts.Retention)
	entry := &ingredient.CacheEntry{
		ID:              common.GenerateUUID(),
		Tier:            ingredient.TierTranslationCache,
		SourceText:      sourceText,
		NormalizedKey:   key,
		Translation:     translation,
		ReverseKey:      reverseKey,
		NutritionPer100: nutrition,
		UsageCount:      1,
		CreatedAt:       now,
		LastUsedAt:      now,
		ExpiresAt:       &expires,
	}
	err = s.store.PutIfAbsent(ctx, ingredient.TierTranslationCache, entry)
	if err == nil {
		common.LogInfo("Cached new translation",
			zap.String("key", key),
			zap.String("specific", translation.Specific),
			zap.String("category", string(translation.Category)),
		)
		return newResult(entry, sourceText, key, ingredient.ProvenanceAI), nil
	}
	if !errors.Is(err, ingredient.ErrAlreadyExists) {
		return nil, err
	}

	// 4. 寫入競爭失敗，改用勝出者的條目
	s.metrics.DuplicateRace(metrics.LayerInsert)
	return s.adoptWinner(ctx, entry)
}

// adoptByReverseKey 反向索引命中時沿用既有條目；命中翻譯快取則視為一次快取命中
func (s *Service) adoptByReverseKey(ctx context.Context, sourceText, key, reverseKey string) (*Result, error) {
	existing, err := s.store.QueryByReverseKey(ctx, reverseKey)
	if errors.Is(err, ingredient.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	common.LogInfo("Reusing entry with same translation",
		zap.String("key", key),
		zap.String("existing_key", existing.NormalizedKey),
		zap.String("reverse_key", reverseKey),
	)
	var res *Result
	if existing.Tier == ingredient.TierDictionary {
		res = newResult(existing, sourceText, key, ingredient.ProvenanceDictionary)
	} else {
		res, err = s.cacheHit(ctx, sourceText, key, existing.NormalizedKey)
		if err != nil || res == nil {
			return res, err
		}
	}
	s.putAlias(ctx, sourceText, key, existing)
	return res, nil
}

// putAlias 以新拼法另存一份翻譯快取條目，下次同樣拼法直接命中而不再呼叫 AI。
// 失敗只記錄，本次查詢已經有結果。
func (s *Service) putAlias(ctx context.Context, sourceText, key string, existing *ingredient.CacheEntry) {
	now := s.opts.Now()
	expires := now.Add(s.opts.Retention)
	alias := &ingredient.CacheEntry{
		ID:              common.GenerateUUID(),
		Tier:            ingredient.TierTranslationCache,
		SourceText:      sourceText,
		NormalizedKey:   key,
		Translation:     existing.Translation,
		ReverseKey:      existing.ReverseKey,
		NutritionPer100: existing.NutritionPer100,
		UsageCount:      1,
		CreatedAt:       now,
		LastUsedAt:      now,
		ExpiresAt:       &expires,
	}

	err := s.store.PutIfAbsent(ctx, ingredient.TierTranslationCache, alias)
	switch {
	case err == nil:
		common.LogInfo("Cached alias spelling",
			zap.String("key", key),
			zap.String("existing_key", existing.NormalizedKey),
		)
	case errors.Is(err, ingredient.ErrAlreadyExists):
	default:
		common.LogWarn("Failed to cache alias spelling",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

// adoptWinner 依正規化鍵、再依反向鍵找回勝出的條目
func (s *Service) adoptWinner(ctx context.Context, lost *ingredient.CacheEntry) (*Result, error) {
	for _, tier := range []ingredient.Tier{ingredient.TierDictionary, ingredient.TierTranslationCache} {
		winner, err := s.store.Get(ctx, tier, lost.NormalizedKey)
		if err == nil {
			return newResult(winner, lost.SourceText, lost.NormalizedKey, provenanceOf(winner.Tier)), nil
		}
		if !errors.Is(err, ingredient.ErrNotFound) {
			return nil, err
		}
	}

	if lost.ReverseKey != "" {
		winner, err := s.store.QueryByReverseKey(ctx, lost.ReverseKey)
		if err == nil {
			return newResult(winner, lost.SourceText, lost.NormalizedKey, provenanceOf(winner.Tier)), nil
		}
		if !errors.Is(err, ingredient.ErrNotFound) {
			return nil, err
		}
	}

	// 勝出者已消失（過期或被刪除），回傳本次翻譯但不寫入
	common.LogWarn("Insert race winner not found, returning unsaved translation",
		zap.String("key", lost.NormalizedKey))
	return newResult(lost, lost.SourceText, lost.NormalizedKey, ingredient.ProvenanceAI), nil
}

func provenanceOf(tier ingredient.Tier) ingredient.Provenance {
	if tier == ingredient.TierDictionary {
		return ingredient.ProvenanceDictionary
	}
	return ingredient.ProvenanceCache
}

func newResult(e *ingredient.CacheEntry, sourceText, key string, p ingredient.Provenance) *Result {
	return &Result{
		Found:         p != ingredient.ProvenanceAI,
		SourceText:    sourceText,
		NormalizedKey: key,
		Translation:   e.Translation,
		Category:      e.Translation.Category,
		Provenance:    p,
		ReverseKey:    e.ReverseKey,
		Nutrition:     e.NutritionPer100,
		UsageCount:    e.UsageCount,
	}
}

// ErrorKind 將錯誤歸類為指標與日誌使用的標籤
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ingredient.ErrInvalidIngredient):
		return "invalid_ingredient"
	case errors.Is(err, ingredient.ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, ingredient.ErrTranslationService):
		return "translation_service"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "internal"
	}
}
