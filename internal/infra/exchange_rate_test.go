package infra

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"currency_switcher/internal/domain"

	"github.com/shopspring/decimal"
)

func noBackoff(int) time.Duration { return time.Millisecond }

func TestExchangeRateClient_Latest(t *testing.T) {
	var gotBase, gotSymbols, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBase = r.URL.Query().Get("base")
		gotSymbols = r.URL.Query().Get("symbols")
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`{"amount":1.0,"base":"USD","date":"2026-10-16","rates":{"EUR":0.92,"inr":83.1,"BAD":"x","ZERO":0}}`))
	}))
	defer server.Close()

	client := NewExchangeRateClient(server.URL+"/latest", time.Second, WithRetryBackoff(noBackoff))
	table, err := client.Latest(context.Background(), "USD", []string{"EUR", "INR"})
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}

	if gotBase != "USD" || gotSymbols != "EUR,INR" {
		t.Errorf("query base=%q symbols=%q", gotBase, gotSymbols)
	}
	if gotUA != DefaultUserAgent {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if len(table) != 2 {
		t.Errorf("table = %v, want EUR and INR only", table)
	}
	if r, ok := table.Rate("INR"); !ok || !r.Equal(decimal.RequireFromString("83.1")) {
		t.Errorf("INR = %v, %v", r, ok)
	}
}

func TestExchangeRateClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"rates":{"EUR":0.9}}`))
	}))
	defer server.Close()

	client := NewExchangeRateClient(server.URL, time.Second, WithRetryBackoff(noBackoff))
	if _, err := client.Latest(context.Background(), "USD", []string{"EUR"}); err != nil {
		t.Fatalf("Latest failed after retries: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestExchangeRateClient_Failures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCalls int32
		check     func(*testing.T, error)
	}{
		{
			name:      "client error is not retried",
			status:    http.StatusUnprocessableEntity,
			body:      `{"message":"not found"}`,
			wantCalls: 1,
			check: func(t *testing.T, err error) {
				var netErr *domain.NetworkError
				if !errors.As(err, &netErr) || netErr.Status != http.StatusUnprocessableEntity {
					t.Errorf("error = %v, want NetworkError with status 422", err)
				}
			},
		},
		{
			name:      "server error exhausts attempts",
			status:    http.StatusBadGateway,
			wantCalls: 3,
			check: func(t *testing.T, err error) {
				var netErr *domain.NetworkError
				if !errors.As(err, &netErr) || netErr.Status != http.StatusBadGateway {
					t.Errorf("error = %v, want NetworkError with status 502", err)
				}
			},
		},
		{
			name:      "missing rates",
			status:    http.StatusOK,
			body:      `{"base":"USD"}`,
			wantCalls: 1,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, domain.ErrRatesUnavailable) {
					t.Errorf("error = %v, want ErrRatesUnavailable", err)
				}
			},
		},
		{
			name:      "invalid json",
			status:    http.StatusOK,
			body:      `not json`,
			wantCalls: 1,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, domain.ErrRatesUnavailable) {
					t.Errorf("error = %v, want ErrRatesUnavailable", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewExchangeRateClient(server.URL, time.Second, WithRetryBackoff(noBackoff))
			_, err := client.Latest(context.Background(), "USD", []string{"EUR"})
			if err == nil {
				t.Fatal("expected error")
			}
			tt.check(t, err)
			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestExchangeRateClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client := NewExchangeRateClient(server.URL, time.Second, WithRetryBackoff(func(int) time.Duration {
		cancel()
		return time.Minute
	}))
	if _, err := client.Latest(ctx, "USD", []string{"EUR"}); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
