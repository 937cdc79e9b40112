package metrics

import (
	"errors"
	"testing"
)

func TestNewMetricsReusesCollectors(t *testing.T) {
	first := NewMetrics()
	second := NewMetrics()

	if first != second {
		t.Error("NewMetrics() built a second instance, want the shared one")
	}
	if first.CacheRequestTotal == nil || first.SearchDuration == nil ||
		first.StoreOperationTotal == nil || first.ValidationTotal == nil {
		t.Error("NewMetrics() left a collector nil")
	}
}

func TestRecordHelpers(t *testing.T) {
	m := NewMetrics()
	failure := errors.New("test failure")

	// Exercise every label combination the service emits; a typo in a
	// label name panics inside the prometheus client.
	m.RecordCacheHit("log")
	m.RecordCacheMiss("filtered")
	m.RecordStoreOperation("insertLog", nil)
	m.RecordStoreOperation("deleteLog", failure)
	m.RecordValidation(nil)
	m.RecordValidation(failure)
	m.ObserveSearchDuration("cache", 0.004)
	m.ObserveSearchDuration("store", 0.2)
}
