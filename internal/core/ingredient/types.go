package ingredient

import (
	"math"
	"time"
)

// Tier 快取層級
type Tier string

const (
	// TierDictionary 永久字典，不會過期
	TierDictionary Tier = "DICTIONARY"
	// TierTranslationCache 翻譯快取，有保存期限與使用次數
	TierTranslationCache Tier = "TRANSLATION_CACHE"
)

// Valid 檢查層級是否合法
func (t Tier) Valid() bool {
	return t == TierDictionary || t == TierTranslationCache
}

// Provenance 查詢結果的來源
type Provenance string

const (
	ProvenanceDictionary Provenance = "dictionary"
	ProvenanceCache      Provenance = "cache"
	ProvenanceAI         Provenance = "ai"
)

// Translation 結構化翻譯結果
type Translation struct {
	Specific string   `json:"specific"`
	General  string   `json:"general"`
	Category Category `json:"category"`
}

// Nutrition 每 100 單位（克）的營養資料
type Nutrition struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Fiber    float64 `json:"fiber"`
}

// IsZero 所有欄位皆為 0 時視為沒有營養資料
func (n Nutrition) IsZero() bool {
	return n.Calories == 0 && n.Protein == 0 && n.Carbs == 0 && n.Fat == 0 && n.Fiber == 0
}

// Scale 依倍數線性縮放
func (n Nutrition) Scale(multiplier float64) Nutrition {
	return Nutrition{
		Calories: n.Calories * multiplier,
		Protein:  n.Protein * multiplier,
		Carbs:    n.Carbs * multiplier,
		Fat:      n.Fat * multiplier,
		Fiber:    n.Fiber * multiplier,
	}
}

// Add 逐欄相加
func (n Nutrition) Add(o Nutrition) Nutrition {
	return Nutrition{
		Calories: n.Calories + o.Calories,
		Protein:  n.Protein + o.Protein,
		Carbs:    n.Carbs + o.Carbs,
		Fat:      n.Fat + o.Fat,
		Fiber:    n.Fiber + o.Fiber,
	}
}

// Round 逐欄四捨五入到小數點後一位
func (n Nutrition) Round() Nutrition {
	return Nutrition{
		Calories: Round1(n.Calories),
		Protein:  Round1(n.Protein),
		Carbs:    Round1(n.Carbs),
		Fat:      Round1(n.Fat),
		Fiber:    Round1(n.Fiber),
	}
}

// Clamp 將負值歸零
func (n Nutrition) Clamp() Nutrition {
	return Nutrition{
		Calories: math.Max(0, n.Calories),
		Protein:  math.Max(0, n.Protein),
		Carbs:    math.Max(0, n.Carbs),
		Fat:      math.Max(0, n.Fat),
		Fiber:    math.Max(0, n.Fiber),
	}
}

// Round1 四捨五入到小數點後一位
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// CacheEntry 字典與翻譯快取共用的條目結構
type CacheEntry struct {
	ID              string      `json:"id"`
	Tier            Tier        `json:"tier"`
	SourceText      string      `json:"source_text"`
	NormalizedKey   string      `json:"normalized_key"`
	Translation     Translation `json:"translation"`
	ReverseKey      string      `json:"reverse_key"`
	NutritionPer100 Nutrition   `json:"nutrition_per_100"`
	UsageCount      int64       `json:"usage_count"`
	CreatedAt       time.Time   `json:"created_at"`
	LastUsedAt      time.Time   `json:"last_used_at"`
	ExpiresAt       *time.Time  `json:"expires_at,omitempty"`
	PromotedAt      *time.Time  `json:"promoted_at,omitempty"`
}

// Clone 複製條目，指標欄位也一併複製
func (e *CacheEntry) Clone() *CacheEntry {
	if e == nil {
		return nil
	}
	cp := *e
	if e.ExpiresAt != nil {
		t := *e.ExpiresAt
		cp.ExpiresAt = &t
	}
	if e.PromotedAt != nil {
		t := *e.PromotedAt
		cp.PromotedAt = &t
	}
	return &cp
}

// TTL 計算剩餘保存時間，字典條目回傳 0
func (e *CacheEntry) TTL(now time.Time) time.Duration {
	if e.Tier == TierDictionary || e.ExpiresAt == nil {
		return 0
	}
	d := e.ExpiresAt.Sub(now)
	if d < time.Second {
		// 已到期或即將到期的條目至少保留一秒，交由儲存層回收
		return time.Second
	}
	return d
}

// PromotedCopy 產生晉升到字典層的副本
func (e *CacheEntry) PromotedCopy(now time.Time) *CacheEntry {
	cp := e.Clone()
	cp.Tier = TierDictionary
	cp.ExpiresAt = nil
	cp.PromotedAt = &now
	return cp
}
