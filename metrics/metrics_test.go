package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodGet, "/health", 200, 5*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "/health", 200, 5*time.Millisecond)
	m.ObserveRequest(http.MethodPost, "", 404, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/health", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("POST", "unmatched", "404")))
	assert.Equal(t, int64(3), m.TotalRequestsToday())
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RequestsToday))
}

func TestDailyCounterResets(t *testing.T) {
	var d dailyCounter
	day1 := time.Date(2026, 2, 5, 23, 59, 0, 0, time.UTC)
	d.inc(day1)
	d.inc(day1)
	assert.Equal(t, int64(2), d.value(day1))
	assert.Equal(t, int64(0), d.value(day1.Add(2*time.Minute)))
	assert.Equal(t, int64(1), d.inc(day1.Add(2*time.Minute)))
}

func TestOutcomeAndHandler(t *testing.T) {
	m := New()
	m.Outcome(m.AutomationRuns, nil)
	m.Outcome(m.AutomationRuns, errors.New("boom"))
	m.Outcome(m.NotificationsSent, nil, "sms")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AutomationRuns.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsSent.WithLabelValues("sms", "success")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "checked_automation_runs_total")
}
