// Package rates fetches exchange-rate tables from the rates endpoint and
// caches them for cache.DefaultTTL.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"currency_switcher/internal/cache"
	"currency_switcher/internal/domain"
	"currency_switcher/internal/infra"

	"github.com/shopspring/decimal"
)

const maxBody = 1 << 20

// ratesResponse is the rates endpoint payload: {"ok":true,"rates":{"EUR":0.92}}
type ratesResponse struct {
	Rates map[string]json.RawMessage `json:"rates"`
}

// Provider implements domain.RateSource over HTTP.
type Provider struct {
	endpoint   string
	cache      *cache.Cache
	ttl        time.Duration
	httpClient *http.Client
	fetcher    Fetcher
	metrics    *infra.Metrics
}

// Option configures a Provider.
type Option func(*Provider)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// WithTTL overrides how long fetched tables stay cached.
func WithTTL(ttl time.Duration) Option {
	return func(p *Provider) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// WithMetrics records into m instead of the global metrics.
func WithMetrics(m *infra.Metrics) Option {
	return func(p *Provider) { p.metrics = m }
}

// Fetcher loads a rate table directly, bypassing the rates endpoint.
type Fetcher func(ctx context.Context, base string, symbols []string) (domain.RateTable, error)

// WithFetcher makes the provider load misses through f, e.g. an upstream
// client in the same process as the rates proxy.
func WithFetcher(f Fetcher) Option {
	return func(p *Provider) { p.fetcher = f }
}

// NewProvider creates a provider for the rates endpoint, e.g.
// "https://shop.example/apps/currency-switcher/api/rates". A nil cache
// disables caching.
func NewProvider(endpoint string, c *cache.Cache, opts ...Option) *Provider {
	p := &Provider{
		endpoint: endpoint,
		cache:    c,
		ttl:      cache.DefaultTTL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		metrics: infra.GlobalMetrics,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetRates returns the table for base against targets. Failed requests
// return an error and are not cached. A successful table may still lack
// some targets; callers check with RateTable.Rate.
func (p *Provider) GetRates(ctx context.Context, base string, targets []string) (domain.RateTable, error) {
	code, err := domain.NormalizeCode(base)
	if err != nil {
		return nil, fmt.Errorf("base %q: %w", base, err)
	}
	base = code
	symbols := make([]string, 0, len(targets))
	for _, t := range targets {
		if code, err := domain.NormalizeCode(t); err == nil {
			symbols = append(symbols, code)
		}
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: no valid target currencies", domain.ErrInvalidCurrency)
	}

	key := domain.RateKey(base, symbols)
	var cached domain.RateTable
	if p.cache.Get(key, &cached) {
		p.metrics.RecordCache(true)
		slog.Debug("Using cached rates", slog.String("key", key))
		return cached, nil
	}
	p.metrics.RecordCache(false)

	fetch := p.fetch
	if p.fetcher != nil {
		fetch = p.fetcher
	}
	start := time.Now()
	table, err := fetch(ctx, base, symbols)
	p.metrics.RecordRateFetch(time.Since(start), err)
	if err != nil {
		return nil, err
	}

	p.cache.Set(key, table, p.ttl)
	return table, nil
}

func (p *Provider) fetch(ctx context.Context, base string, symbols []string) (domain.RateTable, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return nil, &domain.ConfigError{Field: "rates endpoint", Err: err}
	}
	q := u.Query()
	q.Set("base", base)
	q.Set("symbols", strings.Join(symbols, ","))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", infra.DefaultUserAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewNetworkError("rates", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.NewStatusError("rates", resp.StatusCode,
			fmt.Errorf("%w: status %d", domain.ErrRatesUnavailable, resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, domain.NewNetworkError("rates", err)
	}

	var payload ratesResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRatesUnavailable, err)
	}
	if payload.Rates == nil {
		return nil, fmt.Errorf("%w: payload has no rates object", domain.ErrRatesUnavailable)
	}

	table := make(domain.RateTable, len(payload.Rates))
	for code, raw := range payload.Rates {
		var r decimal.Decimal
		if err := json.Unmarshal(raw, &r); err != nil || !r.IsPositive() {
			slog.Debug("Dropping unusable rate", slog.String("currency", code), slog.String("raw", string(raw)))
			continue
		}
		table[strings.ToUpper(code)] = r
	}
	return table, nil
}
