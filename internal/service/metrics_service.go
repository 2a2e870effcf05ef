package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

// MetricsService owns a private Prometheus registry for the HTTP surface, the
// dashboard cache, the entity store and the enrollment engine. All observe
// methods are safe on a nil receiver.
type MetricsService struct {
	handler http.Handler

	httpDuration *prometheus.HistogramVec
	httpTotal    *prometheus.CounterVec

	cacheLookups  *prometheus.CounterVec
	cacheLatency  prometheus.Histogram
	cacheWrites   prometheus.Histogram
	cacheHitRatio prometheus.Gauge
	hits, lookups atomic.Uint64

	slotLoads      *prometheus.CounterVec
	storeRefreshes *prometheus.CounterVec
	enrollmentOps  *prometheus.CounterVec
}

// NewMetricsService registers every collector on a fresh registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	f := promauto.With(registry)

	m := &MetricsService{
		handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		httpTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_cache_lookups_total",
			Help: "Dashboard cache lookups by result",
		}, []string{"result"}),
		cacheLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "dashboard_cache_get_seconds",
			Help:    "Latency of dashboard cache reads",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		cacheWrites: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "dashboard_cache_set_seconds",
			Help:    "Latency of dashboard cache writes",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		cacheHitRatio: f.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_cache_hit_ratio",
			Help: "Hits over lookups since process start",
		}),
		slotLoads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "store_slot_loads_total",
			Help: "Durable slot reads by collection and outcome",
		}, []string{"collection", "outcome"}),
		storeRefreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "store_refreshes_total",
			Help: "Store refresh passes by whether any collection changed",
		}, []string{"changed"}),
		enrollmentOps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "enrollment_operations_total",
			Help: "Enrollment and progress operations by outcome code",
		}, []string{"operation", "outcome"}),
	}
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Number of live goroutines",
	}, func() float64 { return float64(runtime.NumGoroutine()) })
	return m
}

// Handler exposes the Prometheus scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	m.httpTotal.WithLabelValues(method, path, code).Inc()
}

// RecordCacheOperation records a dashboard cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	result := "miss"
	if hit {
		result = "hit"
		m.hits.Add(1)
	}
	m.cacheLookups.WithLabelValues(result).Inc()
	lookups := m.lookups.Add(1)
	m.cacheHitRatio.Set(float64(m.hits.Load()) / float64(lookups))
}

// ObserveCacheWrite records a dashboard cache write.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrites.Observe(duration.Seconds())
}

// ObserveSlotLoad counts a durable slot read.
func (m *MetricsService) ObserveSlotLoad(kind, outcome string) {
	if m == nil {
		return
	}
	m.slotLoads.WithLabelValues(kind, outcome).Inc()
}

// ObserveRefresh counts a store refresh pass.
func (m *MetricsService) ObserveRefresh(changed bool) {
	if m == nil {
		return
	}
	m.storeRefreshes.WithLabelValues(strconv.FormatBool(changed)).Inc()
}

// ObserveEnrollmentOp counts an enrollment engine operation labelled with its error code.
func (m *MetricsService) ObserveEnrollmentOp(op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = appErrors.FromError(err).Code
	}
	m.enrollmentOps.WithLabelValues(op, outcome).Inc()
}
