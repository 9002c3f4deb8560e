package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	conversions       atomic.Uint64 // price elements rewritten
	skippedElements   atomic.Uint64 // price elements with unparsable text
	reverts           atomic.Uint64
	rateFetches       atomic.Uint64
	rateFailures      atomic.Uint64
	cacheHits         atomic.Uint64
	cacheMisses       atomic.Uint64
	settingsFallbacks atomic.Uint64
	overrides         atomic.Uint64

	// Latency tracking
	rateLatencySumNs atomic.Int64
	rateLatencyCount atomic.Uint64

	// Gauges
	editorConnections atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordConversion records one rewritten price element.
func (m *Metrics) RecordConversion() { m.conversions.Add(1) }

// RecordSkipped records a price element left untouched.
func (m *Metrics) RecordSkipped() { m.skippedElements.Add(1) }

// RecordRevert records a price element restored to its original text.
func (m *Metrics) RecordRevert() { m.reverts.Add(1) }

// RecordRateFetch records a rates request with its latency.
func (m *Metrics) RecordRateFetch(latency time.Duration, err error) {
	m.rateFetches.Add(1)
	m.rateLatencySumNs.Add(latency.Nanoseconds())
	m.rateLatencyCount.Add(1)
	if err != nil {
		m.rateFailures.Add(1)
	}
}

// RecordCache records a rate cache lookup.
func (m *Metrics) RecordCache(hit bool) {
	if hit {
		m.cacheHits.Add(1)
	} else {
		m.cacheMisses.Add(1)
	}
}

// RecordSettingsFallback records a settings load that used the fallback.
func (m *Metrics) RecordSettingsFallback() { m.settingsFallbacks.Add(1) }

// RecordOverride records a live theme-editor override.
func (m *Metrics) RecordOverride() { m.overrides.Add(1) }

// IncrementConnections increments active editor connections by 1.
func (m *Metrics) IncrementConnections() { m.editorConnections.Add(1) }

// DecrementConnections decrements active editor connections by 1.
func (m *Metrics) DecrementConnections() { m.editorConnections.Add(-1) }

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	Conversions       uint64    `json:"conversions"`
	SkippedElements   uint64    `json:"skipped_elements"`
	Reverts           uint64    `json:"reverts"`
	RateFetches       uint64    `json:"rate_fetches"`
	RateFailures      uint64    `json:"rate_failures"`
	AvgRateLatencyNs  int64     `json:"avg_rate_latency_ns"`
	CacheHits         uint64    `json:"cache_hits"`
	CacheMisses       uint64    `json:"cache_misses"`
	SettingsFallbacks uint64    `json:"settings_fallbacks"`
	Overrides         uint64    `json:"overrides"`
	EditorConnections int32     `json:"editor_connections"`
	Timestamp         time.Time `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.rateLatencyCount.Load()
	if count > 0 {
		avgLatency = m.rateLatencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		Conversions:       m.conversions.Load(),
		SkippedElements:   m.skippedElements.Load(),
		Reverts:           m.reverts.Load(),
		RateFetches:       m.rateFetches.Load(),
		RateFailures:      m.rateFailures.Load(),
		AvgRateLatencyNs:  avgLatency,
		CacheHits:         m.cacheHits.Load(),
		CacheMisses:       m.cacheMisses.Load(),
		SettingsFallbacks: m.settingsFallbacks.Load(),
		Overrides:         m.overrides.Load(),
		EditorConnections: m.editorConnections.Load(),
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.conversions.Store(0)
	m.skippedElements.Store(0)
	m.reverts.Store(0)
	m.rateFetches.Store(0)
	m.rateFailures.Store(0)
	m.cacheHits.Store(0)
	m.cacheMisses.Store(0)
	m.settingsFallbacks.Store(0)
	m.overrides.Store(0)
	m.rateLatencySumNs.Store(0)
	m.rateLatencyCount.Store(0)
	m.editorConnections.Store(0)
}
