// Package settings resolves merchant widget settings from the settings
// endpoint. Resolution never fails: anything missing comes from
// domain.Fallback.
package settings

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"currency_switcher/internal/domain"
	"currency_switcher/internal/infra"
)

// maxBody bounds how much of a settings response is read.
const maxBody = 1 << 20

// Resolver loads settings over HTTP.
type Resolver struct {
	endpoint   string
	httpClient *http.Client
	metrics    *infra.Metrics
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.httpClient = c }
}

// WithMetrics records fallbacks into m instead of the global metrics.
func WithMetrics(m *infra.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// NewResolver creates a resolver for the settings endpoint, e.g.
// "https://shop.example/apps/currency-switcher/api/settings".
func NewResolver(endpoint string, opts ...Option) *Resolver {
	r := &Resolver{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		metrics: infra.GlobalMetrics,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load returns the settings for shop. Transport errors, non-2xx answers and
// unusable bodies all resolve to the fallback configuration.
func (r *Resolver) Load(ctx context.Context, shop string) domain.MerchantSettings {
	s, err := r.fetch(ctx, shop)
	if err != nil {
		slog.Warn("Settings unavailable, using defaults",
			slog.String("shop", shop),
			slog.Any("error", err),
		)
		r.metrics.RecordSettingsFallback()
		s = domain.Fallback()
	}
	if s.Shop == "" {
		s.Shop = shop
	}
	return s
}

func (r *Resolver) fetch(ctx context.Context, shop string) (domain.MerchantSettings, error) {
	u, err := url.Parse(r.endpoint)
	if err != nil {
		return domain.MerchantSettings{}, &domain.ConfigError{Field: "settings endpoint", Err: err}
	}
	q := u.Query()
	q.Set("shop", shop)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return domain.MerchantSettings{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", infra.DefaultUserAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return domain.MerchantSettings{}, domain.NewNetworkError("settings", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.MerchantSettings{}, domain.NewStatusError("settings", resp.StatusCode,
			fmt.Errorf("%w: status %d", domain.ErrSettingsUnavailable, resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return domain.MerchantSettings{}, domain.NewNetworkError("settings", err)
	}

	s, ok := domain.DecodeSettings(body)
	if !ok {
		return domain.MerchantSettings{}, fmt.Errorf("%w: body is not a settings object", domain.ErrSettingsUnavailable)
	}
	return s, nil
}
