package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementRunOutcome("ready", "")
		m.ObserveLookup("static", "hit", time.Millisecond)
		m.ObserveRepairIterations(2)
		m.IncrementCoverageVerdict("minimum", "pass")
		m.ObserveRunLatency(time.Second)
	})
	assert.Nil(t, m.Registry())
}

func TestCounters(t *testing.T) {
	m := New()
	m.IncrementRunOutcome("blocked", "RepairBudgetExhausted")
	m.IncrementRunOutcome("blocked", "RepairBudgetExhausted")
	m.IncrementCoverageVerdict("comprehensive", "fail")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RunOutcome.WithLabelValues("blocked", "RepairBudgetExhausted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CoverageVerdict.WithLabelValues("comprehensive", "fail")))
}

func TestSeparateRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	a, b := New(), New()
	a.IncrementRunOutcome("ready", "")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RunOutcome.WithLabelValues("ready", "")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.IncrementRunOutcome("ready", "")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "propgate_run_outcomes_total"))
}
