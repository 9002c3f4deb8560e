package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"currency_switcher/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	upstreamMaxAttempts = 3
	upstreamMaxBody     = 1 << 20
)

// frankfurterResponse is the body of GET /latest.
type frankfurterResponse struct {
	Amount float64                    `json:"amount"`
	Base   string                     `json:"base"`
	Date   string                     `json:"date"`
	Rates  map[string]json.RawMessage `json:"rates"`
}

// ExchangeRateClient fetches latest reference rates from a Frankfurter
// compatible upstream.
type ExchangeRateClient struct {
	apiURL     string
	httpClient *http.Client
	attempts   int
	backoff    func(retry int) time.Duration
}

// ExchangeRateOption configures an ExchangeRateClient.
type ExchangeRateOption func(*ExchangeRateClient)

// WithRetryBackoff replaces the delay between attempts.
func WithRetryBackoff(fn func(retry int) time.Duration) ExchangeRateOption {
	return func(c *ExchangeRateClient) { c.backoff = fn }
}

// NewExchangeRateClient creates a client for apiURL, e.g.
// "https://api.frankfurter.app/latest".
func NewExchangeRateClient(apiURL string, timeout time.Duration, opts ...ExchangeRateOption) *ExchangeRateClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &ExchangeRateClient{
		apiURL: apiURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		attempts: upstreamMaxAttempts,
		backoff:  CalculateBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Latest returns rates for symbols against base. Transient failures
// (transport errors, 429, 5xx) are retried with exponential backoff; other
// statuses fail at once with a *domain.NetworkError carrying the status. An
// answer without a rates object fails with domain.ErrRatesUnavailable.
func (c *ExchangeRateClient) Latest(ctx context.Context, base string, symbols []string) (domain.RateTable, error) {
	var lastErr error
	for i := 0; i < c.attempts; i++ {
		if i > 0 {
			delay := c.backoff(i - 1)
			slog.Info("Retrying upstream rates fetch", slog.Int("attempt", i), slog.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		table, err := c.doFetch(ctx, base, symbols)
		if err == nil {
			return table, nil
		}
		lastErr = err
		slog.Warn("Upstream rates fetch attempt failed",
			slog.Int("attempt", i+1),
			slog.String("base", base),
			slog.Any("error", err),
		)
		if !domain.IsRetriable(err) {
			break
		}
	}
	return nil, lastErr
}

func (c *ExchangeRateClient) doFetch(ctx context.Context, base string, symbols []string) (domain.RateTable, error) {
	u, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("upstream url: %w", err)
	}
	q := u.Query()
	q.Set("base", base)
	if len(symbols) > 0 {
		q.Set("symbols", strings.Join(symbols, ","))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.NewNetworkError("upstream rates", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, upstreamMaxBody))
	if err != nil {
		return nil, domain.NewNetworkError("upstream rates", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewStatusError("upstream rates", resp.StatusCode,
			fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	var data frankfurterResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("decode upstream rates: %w", errors.Join(err, domain.ErrRatesUnavailable))
	}
	if data.Rates == nil {
		return nil, fmt.Errorf("upstream answered without rates: %w", domain.ErrRatesUnavailable)
	}

	table := make(domain.RateTable, len(data.Rates))
	for code, raw := range data.Rates {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			continue
		}
		d, err := decimal.NewFromString(n.String())
		if err != nil || !d.IsPositive() {
			continue
		}
		table[strings.ToUpper(code)] = d
	}
	return table, nil
}
