package infra

import (
	"errors"
	"testing"
	"time"
)

func TestMetrics_RecordRateFetch(t *testing.T) {
	m := &Metrics{}

	m.RecordRateFetch(1000*time.Nanosecond, nil)
	m.RecordRateFetch(2000*time.Nanosecond, errors.New("502"))
	m.RecordRateFetch(3000*time.Nanosecond, nil)

	snap := m.Snapshot()

	if snap.RateFetches != 3 {
		t.Errorf("Expected 3 fetches, got %d", snap.RateFetches)
	}
	if snap.RateFailures != 1 {
		t.Errorf("Expected 1 failure, got %d", snap.RateFailures)
	}

	// Average latency: (1000 + 2000 + 3000) / 3 = 2000
	if snap.AvgRateLatencyNs != 2000 {
		t.Errorf("Expected avg latency 2000, got %d", snap.AvgRateLatencyNs)
	}
}

func TestMetrics_Connections(t *testing.T) {
	m := &Metrics{}

	m.IncrementConnections()
	m.IncrementConnections()
	m.IncrementConnections()

	snap := m.Snapshot()
	if snap.EditorConnections != 3 {
		t.Errorf("Expected 3 connections, got %d", snap.EditorConnections)
	}

	m.DecrementConnections()
	snap = m.Snapshot()
	if snap.EditorConnections != 2 {
		t.Errorf("Expected 2 connections, got %d", snap.EditorConnections)
	}
}

func TestMetrics_CountersAndReset(t *testing.T) {
	m := &Metrics{}

	m.RecordConversion()
	m.RecordConversion()
	m.RecordSkipped()
	m.RecordRevert()
	m.RecordCache(true)
	m.RecordCache(false)
	m.RecordCache(false)
	m.RecordSettingsFallback()
	m.RecordOverride()

	snap := m.Snapshot()
	if snap.Conversions != 2 || snap.SkippedElements != 1 || snap.Reverts != 1 {
		t.Errorf("unexpected element counters: %+v", snap)
	}
	if snap.CacheHits != 1 || snap.CacheMisses != 2 {
		t.Errorf("unexpected cache counters: %+v", snap)
	}
	if snap.SettingsFallbacks != 1 || snap.Overrides != 1 {
		t.Errorf("unexpected settings counters: %+v", snap)
	}

	m.Reset()
	snap = m.Snapshot()
	if snap.Conversions != 0 || snap.CacheMisses != 0 || snap.AvgRateLatencyNs != 0 {
		t.Errorf("Reset did not clear counters: %+v", snap)
	}
}
