package settings

import (
	"context"
	"log/slog"

	"currency_switcher/internal/domain"
	"currency_switcher/internal/infra"
)

// RepositoryLoader resolves settings straight from the settings store, for
// code running in the same process as the settings endpoint.
type RepositoryLoader struct {
	repo    domain.SettingsRepository
	metrics *infra.Metrics
}

// NewRepositoryLoader wraps repo. A nil m records into the global metrics.
func NewRepositoryLoader(repo domain.SettingsRepository, m *infra.Metrics) *RepositoryLoader {
	if m == nil {
		m = infra.GlobalMetrics
	}
	return &RepositoryLoader{repo: repo, metrics: m}
}

// Load returns the saved settings for shop, or the fallback when none are
// saved or the store fails.
func (l *RepositoryLoader) Load(_ context.Context, shop string) domain.MerchantSettings {
	saved, err := l.repo.GetSettings(shop)
	if err != nil {
		slog.Warn("Settings store unavailable, using defaults",
			slog.String("shop", shop),
			slog.Any("error", err),
		)
	}
	if err != nil || saved == nil {
		l.metrics.RecordSettingsFallback()
		s := domain.Fallback()
		s.Shop = shop
		return s
	}
	return saved.Clone()
}
