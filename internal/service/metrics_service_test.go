package service

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

func scrape(t *testing.T, m *MetricsService) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.ObserveHTTPRequest("GET", "/", 200, time.Millisecond)
		m.RecordCacheOperation(true, time.Millisecond)
		m.ObserveCacheWrite(time.Millisecond)
		m.ObserveSlotLoad("courses", "ok")
		m.ObserveRefresh(true)
		m.ObserveEnrollmentOp("enroll", nil)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestObserveEnrollmentOpLabelsByCode(t *testing.T) {
	m := NewMetricsService()
	m.ObserveEnrollmentOp("enroll", nil)
	m.ObserveEnrollmentOp("enroll", appErrors.ErrAlreadyEnrolled)
	m.ObserveEnrollmentOp("enroll", errors.New("boom"))

	body := scrape(t, m)
	assert.Contains(t, body, `enrollment_operations_total{operation="enroll",outcome="ok"} 1`)
	assert.Contains(t, body, `enrollment_operations_total{operation="enroll",outcome="ALREADY_ENROLLED"} 1`)
	assert.Contains(t, body, `enrollment_operations_total{operation="enroll",outcome="INTERNAL_ERROR"} 1`)
}

func TestStoreObserverCounters(t *testing.T) {
	m := NewMetricsService()
	m.ObserveSlotLoad("progress", "malformed")
	m.ObserveRefresh(false)
	m.ObserveRefresh(true)
	m.ObserveRefresh(true)

	body := scrape(t, m)
	assert.Contains(t, body, `store_slot_loads_total{collection="progress",outcome="malformed"} 1`)
	assert.Contains(t, body, `store_refreshes_total{changed="true"} 2`)
	assert.Contains(t, body, `store_refreshes_total{changed="false"} 1`)
}

func TestCacheHitRatio(t *testing.T) {
	m := NewMetricsService()
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)

	body := scrape(t, m)
	assert.Contains(t, body, `dashboard_cache_lookups_total{result="hit"} 2`)
	assert.Contains(t, body, `dashboard_cache_lookups_total{result="miss"} 1`)
	assert.Contains(t, body, "dashboard_cache_hit_ratio 0.666")
}
