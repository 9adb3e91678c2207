package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveLookup("ai")
	m.ObserveLookup("ai")
	m.ObserveLookup("dictionary")
	m.LookupError("invalid_ingredient")
	m.Promotion()
	m.DuplicateRace(LayerInsert)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LookupsTotal.WithLabelValues("ai")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LookupsTotal.WithLabelValues("dictionary")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LookupErrorsTotal.WithLabelValues("invalid_ingredient")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PromotionsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DuplicateRacesTotal.WithLabelValues(LayerInsert)))
}

func TestMetrics_AICallHistogram(t *testing.T) {
	m := New(nil)
	m.ObserveAICall("translate", StatusSuccess, 1200*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AICallsTotal.WithLabelValues("translate", StatusSuccess)))

	expected := `
# HELP ingredient_ai_calls_total Completion calls by operation and status
# TYPE ingredient_ai_calls_total counter
ingredient_ai_calls_total{operation="translate",status="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry, strings.NewReader(expected), "ingredient_ai_calls_total"))

	count, err := testutil.GatherAndCount(m.Registry, "ingredient_ai_call_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveLookup("cache")
		m.LookupError("store_unavailable")
		m.Promotion()
		m.DuplicateRace(LayerRecheck)
		m.ObserveAICall("nutrition", StatusError, time.Second)
	})
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
