// Package metrics 定義查詢、晉升與 AI 呼叫的 Prometheus 指標。
//
// 所有方法對 nil *Metrics 皆為 no-op，未啟用指標時直接傳 nil 即可。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ingredient"

// 重複偵測發生的層
const (
	LayerRecheck    = "recheck"
	LayerReverseKey = "reverse_key"
	LayerInsert     = "insert"
)

// AI 呼叫狀態
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics 指標集合
type Metrics struct {
	Registry prometheus.Gatherer

	LookupsTotal          *prometheus.CounterVec
	LookupErrorsTotal     *prometheus.CounterVec
	PromotionsTotal       prometheus.Counter
	DuplicateRacesTotal   *prometheus.CounterVec
	AICallsTotal          *prometheus.CounterVec
	AICallDurationSeconds *prometheus.HistogramVec
}

// New 在指定的 registry 註冊所有指標；reg 為 nil 時建立新的 registry
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		LookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lookups_total",
				Help:      "Resolved lookups by provenance",
			},
			[]string{"provenance"},
		),

		LookupErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lookup_errors_total",
				Help:      "Failed lookups by error kind",
			},
			[]string{"kind"},
		),

		PromotionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "promotions_total",
				Help:      "Translation cache entries promoted to the dictionary",
			},
		),

		DuplicateRacesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "duplicate_races_total",
				Help:      "Duplicates caught after the AI fallback, by detection layer",
			},
			[]string{"layer"},
		),

		AICallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ai_calls_total",
				Help:      "Completion calls by operation and status",
			},
			[]string{"operation", "status"},
		),

		AICallDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ai_call_duration_seconds",
				Help:      "Completion call latency in seconds",
				Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"operation"},
		),
	}
}

// ObserveLookup 記錄一次成功的查詢
func (m *Metrics) ObserveLookup(provenance string) {
	if m == nil {
		return
	}
	m.LookupsTotal.WithLabelValues(provenance).Inc()
}

// LookupError 記錄一次失敗的查詢
func (m *Metrics) LookupError(kind string) {
	if m == nil {
		return
	}
	m.LookupErrorsTotal.WithLabelValues(kind).Inc()
}

// Promotion 記錄一次晉升
func (m *Metrics) Promotion() {
	if m == nil {
		return
	}
	m.PromotionsTotal.Inc()
}

// DuplicateRace 記錄在某一層攔下的重複寫入
func (m *Metrics) DuplicateRace(layer string) {
	if m == nil {
		return
	}
	m.DuplicateRacesTotal.WithLabelValues(layer).Inc()
}

// ObserveAICall 記錄 AI 呼叫結果與耗時
func (m *Metrics) ObserveAICall(operation, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.AICallsTotal.WithLabelValues(operation, status).Inc()
	m.AICallDurationSeconds.WithLabelValues(operation).Observe(d.Seconds())
}
