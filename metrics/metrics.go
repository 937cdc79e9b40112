// Package metrics exposes Prometheus counters for the log service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all the application metrics.
type Metrics struct {
	// Cache effectiveness per cache kind (log, filtered, uniqueEntities)
	CacheRequestTotal *prometheus.CounterVec

	// Filtered search latency split by where the ID set came from
	SearchDuration *prometheus.HistogramVec

	// Persistence operation metrics
	StoreOperationTotal *prometheus.CounterVec

	// Validation outcomes
	ValidationTotal *prometheus.CounterVec
}

var (
	globalMetrics *Metrics
	metricsMutex  sync.Mutex
)

// NewMetrics creates the metrics instance, reusing the registered
// collectors when called more than once.
func NewMetrics() *Metrics {
	metricsMutex.Lock()
	defer metricsMutex.Unlock()

	if globalMetrics != nil {
		return globalMetrics
	}

	m := &Metrics{
		CacheRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "log_cache_requests_total",
			Help: "Cache lookups by cache kind and result",
		}, []string{"cache", "result"}),

		SearchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "log_search_duration_seconds",
			Help:    "Filtered search duration by ID set source",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),

		StoreOperationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "log_store_operations_total",
			Help: "Persistence operations by name and status",
		}, []string{"operation", "status"}),

		ValidationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "log_validation_total",
			Help: "Log validation outcomes",
		}, []string{"status"}),
	}

	registerMetrics(m)
	globalMetrics = m

	return m
}

func registerMetrics(m *Metrics) {
	m.CacheRequestTotal = registerOrGet(m.CacheRequestTotal).(*prometheus.CounterVec)
	m.SearchDuration = registerOrGet(m.SearchDuration).(*prometheus.HistogramVec)
	m.StoreOperationTotal = registerOrGet(m.StoreOperationTotal).(*prometheus.CounterVec)
	m.ValidationTotal = registerOrGet(m.ValidationTotal).(*prometheus.CounterVec)
}

// registerOrGet registers a collector, returning the existing one when the
// name is already taken.
func registerOrGet(c prometheus.Collector) prometheus.Collector {
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
	}
	return c
}

// RecordCacheHit marks a hit on the named cache.
func (m *Metrics) RecordCacheHit(cache string) {
	m.CacheRequestTotal.WithLabelValues(cache, "hit").Inc()
}

// RecordCacheMiss marks a miss on the named cache.
func (m *Metrics) RecordCacheMiss(cache string) {
	m.CacheRequestTotal.WithLabelValues(cache, "miss").Inc()
}

// RecordStoreOperation counts a persistence call and its outcome.
func (m *Metrics) RecordStoreOperation(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.StoreOperationTotal.WithLabelValues(operation, status).Inc()
}

// RecordValidation counts a validation outcome.
func (m *Metrics) RecordValidation(err error) {
	status := "ok"
	if err != nil {
		status = "rejected"
	}
	m.ValidationTotal.WithLabelValues(status).Inc()
}

// ObserveSearchDuration records a filtered search's latency and whether the
// ID set came from the cache or the store.
func (m *Metrics) ObserveSearchDuration(source string, seconds float64) {
	m.SearchDuration.WithLabelValues(source).Observe(seconds)
}
