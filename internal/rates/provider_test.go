package rates

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"currency_switcher/internal/cache"
	"currency_switcher/internal/domain"
	"currency_switcher/internal/infra"

	"github.com/shopspring/decimal"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }

func newTestProvider(t *testing.T, h http.HandlerFunc) (*Provider, *fakeClock, *infra.Metrics) {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c := cache.New(cache.NewMemoryStore(), cache.WithClock(clock.Now))
	m := &infra.Metrics{}
	return NewProvider(server.URL, c, WithMetrics(m)), clock, m
}

func TestGetRates_FetchesAndCaches(t *testing.T) {
	var calls atomic.Int32
	var gotBase, gotSymbols string
	p, clock, m := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		gotBase = r.URL.Query().Get("base")
		gotSymbols = r.URL.Query().Get("symbols")
		w.Write([]byte(`{"ok":true,"rates":{"EUR":0.92}}`))
	})

	table, err := p.GetRates(context.Background(), "usd", []string{"eur"})
	if err != nil {
		t.Fatalf("GetRates failed: %v", err)
	}
	if gotBase != "USD" || gotSymbols != "EUR" {
		t.Errorf("query base=%q symbols=%q", gotBase, gotSymbols)
	}
	if r, ok := table.Rate("EUR"); !ok || !r.Equal(decimal.RequireFromString("0.92")) {
		t.Errorf("EUR rate = %v, %v", r, ok)
	}

	// Served from cache within the TTL.
	clock.t = clock.t.Add(14 * time.Minute)
	table, err = p.GetRates(context.Background(), "USD", []string{"EUR"})
	if err != nil {
		t.Fatalf("cached GetRates failed: %v", err)
	}
	if r, _ := table.Rate("EUR"); !r.Equal(decimal.RequireFromString("0.92")) {
		t.Errorf("cached EUR rate = %v", r)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 upstream call, got %d", calls.Load())
	}

	// Re-fetched after expiry.
	clock.t = clock.t.Add(2 * time.Minute)
	if _, err := p.GetRates(context.Background(), "USD", []string{"EUR"}); err != nil {
		t.Fatalf("GetRates after expiry failed: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected re-fetch after ttl, got %d calls", calls.Load())
	}

	snap := m.Snapshot()
	if snap.CacheHits != 1 || snap.CacheMisses != 2 {
		t.Errorf("cache hits/misses = %d/%d, want 1/2", snap.CacheHits, snap.CacheMisses)
	}
}

func TestGetRates_FailuresAreNotCached(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"bad gateway", http.StatusBadGateway, `{"ok":false,"error":"upstream_failed"}`, domain.ErrRatesUnavailable},
		{"missing rates", http.StatusOK, `{"ok":true}`, domain.ErrRatesUnavailable},
		{"null rates", http.StatusOK, `{"rates":null}`, domain.ErrRatesUnavailable},
		{"not json", http.StatusOK, `<html>`, domain.ErrRatesUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			p, _, m := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			for i := 0; i < 2; i++ {
				table, err := p.GetRates(context.Background(), "USD", []string{"EUR"})
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				if table != nil {
					t.Errorf("table = %v, want nil", table)
				}
			}
			if calls.Load() != 2 {
				t.Errorf("failures must not be cached: %d calls", calls.Load())
			}
			if m.Snapshot().RateFailures != 2 {
				t.Errorf("RateFailures = %d, want 2", m.Snapshot().RateFailures)
			}
		})
	}
}

func TestGetRates_DropsUnusableEntries(t *testing.T) {
	p, _, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rates":{"EUR":0.92,"GBP":"n/a","JPY":-1,"inr":83.1}}`))
	})

	table, err := p.GetRates(context.Background(), "USD", []string{"EUR", "GBP", "JPY", "INR"})
	if err != nil {
		t.Fatalf("GetRates failed: %v", err)
	}
	if len(table) != 2 {
		t.Errorf("table = %v, want EUR and INR only", table)
	}
	if _, ok := table.Rate("INR"); !ok {
		t.Error("lower-case keys should be normalized")
	}
}

func TestGetRates_CacheKeyIgnoresTargetOrder(t *testing.T) {
	var calls atomic.Int32
	p, _, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"rates":{"EUR":0.92,"GBP":0.79}}`))
	})

	p.GetRates(context.Background(), "USD", []string{"EUR", "GBP"})
	p.GetRates(context.Background(), "USD", []string{"GBP", "EUR"})

	if calls.Load() != 1 {
		t.Errorf("expected one upstream call, got %d", calls.Load())
	}
}

func TestGetRates_InvalidInput(t *testing.T) {
	p, _, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	if _, err := p.GetRates(context.Background(), "dollars", []string{"EUR"}); !errors.Is(err, domain.ErrInvalidCurrency) {
		t.Errorf("invalid base: err = %v", err)
	}
	if _, err := p.GetRates(context.Background(), "USD", nil); !errors.Is(err, domain.ErrInvalidCurrency) {
		t.Errorf("no targets: err = %v", err)
	}
}

func TestGetRates_WithFetcher(t *testing.T) {
	var calls int
	c := cache.New(cache.NewMemoryStore())
	p := NewProvider("", c, WithMetrics(&infra.Metrics{}), WithFetcher(
		func(_ context.Context, base string, symbols []string) (domain.RateTable, error) {
			calls++
			if base != "USD" || len(symbols) != 1 || symbols[0] != "INR" {
				t.Errorf("fetcher got base=%q symbols=%v", base, symbols)
			}
			return domain.RateTable{"INR": decimal.NewFromInt(83)}, nil
		}))

	for i := 0; i < 2; i++ {
		table, err := p.GetRates(context.Background(), "usd", []string{"inr"})
		if err != nil {
			t.Fatalf("GetRates failed: %v", err)
		}
		if r, ok := table.Rate("INR"); !ok || !r.Equal(decimal.NewFromInt(83)) {
			t.Errorf("INR = %v, %v", r, ok)
		}
	}
	if calls != 1 {
		t.Errorf("fetcher calls = %d, want 1", calls)
	}
}
