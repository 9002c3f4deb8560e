package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"currency_switcher/internal/api"
	"currency_switcher/internal/cache"
	"currency_switcher/internal/domain"
	"currency_switcher/internal/editor"
	"currency_switcher/internal/infra"
	"currency_switcher/internal/infra/storage"
	"currency_switcher/internal/rates"
	"currency_switcher/internal/settings"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config   *infra.Config
	Logger   *slog.Logger
	Storage  *storage.Storage
	Flags    *infra.FlagDownloader
	Upstream *infra.ExchangeRateClient
	Rates    *rates.Provider
	Loader   *settings.RepositoryLoader
	Hub      *editor.Hub
	Metrics  *infra.Metrics
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{Metrics: infra.GlobalMetrics}
}

// Initialize loads the config at configPath (defaults only when empty) and
// opens everything the server and the CLI commands share.
func (b *Bootstrap) Initialize(configPath string) error {
	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	b.Logger = infra.NewLogger(cfg)
	slog.SetDefault(b.Logger)
	slog.Info("🚀 Bootstrapping Currency Switcher...", slog.String("version", cfg.App.Version))

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Storage = store
	b.Loader = settings.NewRepositoryLoader(store, b.Metrics)
	slog.Info("✅ Database initialized")

	// 4. Rates: upstream client behind the persistent cache
	b.Upstream = infra.NewExchangeRateClient(cfg.Upstream.RatesURL, cfg.UpstreamTimeout())
	b.Rates = rates.NewProvider("", cache.New(store, cache.WithDefaultTTL(cfg.RateTTL())),
		rates.WithTTL(cfg.RateTTL()),
		rates.WithMetrics(b.Metrics),
		rates.WithFetcher(b.Upstream.Latest),
	)
	slog.Info("✅ Rate provider ready", slog.String("upstream", cfg.Upstream.RatesURL))

	// 5. Initialize Flag Downloader
	flags, err := infra.NewFlagDownloader(cfg.Assets.Dir, cfg.Assets.FlagSourceURL)
	if err != nil {
		store.Close()
		return err
	}
	b.Flags = flags
	slog.Info("✅ Flag downloader ready", slog.String("dir", flags.Dir()))

	b.Hub = editor.NewHub(b.Metrics)
	return nil
}

// Handler builds the HTTP surface over the initialized components.
func (b *Bootstrap) Handler() http.Handler {
	h := api.New(api.Deps{
		Settings:    b.Storage,
		Upstream:    b.Upstream,
		Hub:         b.Hub,
		Loader:      b.Loader,
		Rates:       b.Rates,
		FlagBaseURL: b.Config.Widget.FlagBaseURL,
		Flags:       b.Flags,
		Metrics:     b.Metrics,
		Logger:      b.Logger,
	})
	return h.Router()
}

// Serve runs the HTTP server until ctx is done, then shuts it down within
// the configured timeout.
func (b *Bootstrap) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              b.Config.Server.Addr,
		Handler:           b.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("🌐 HTTP server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	slog.Info("👋 Shutting down gracefully...")
	b.Hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), b.Config.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// SyncAssets downloads flag icons for every currency any shop offers, plus
// the fallback list. It returns how many icons are available locally.
func (b *Bootstrap) SyncAssets(ctx context.Context) int {
	slog.Info("🔄 Starting asset synchronization...")

	codes, err := b.offeredCurrencies()
	if err != nil {
		slog.Warn("Failed to list shop currencies", slog.Any("error", err))
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		ready int
	)
	semaphore := make(chan struct{}, 5) // Limit concurrent downloads

	for _, code := range codes {
		wg.Add(1)
		go func(code string) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				return
			case semaphore <- struct{}{}: // Acquire
			}
			defer func() { <-semaphore }() // Release

			if _, err := b.Flags.DownloadFlag(ctx, code); err != nil {
				slog.Warn("Failed to download flag", slog.String("currency", code), slog.Any("error", err))
				return
			}
			mu.Lock()
			ready++
			mu.Unlock()
		}(code)
	}

	wg.Wait()
	slog.Info("✨ Asset synchronization completed", slog.Int("flags", ready), slog.Int("currencies", len(codes)))
	return ready
}

func (b *Bootstrap) offeredCurrencies() ([]string, error) {
	unique := make(map[string]bool)
	for _, c := range domain.FallbackCurrencies {
		unique[c] = true
	}

	shops, err := b.Storage.ListShops()
	for _, shop := range shops {
		s, getErr := b.Storage.GetSettings(shop)
		if getErr != nil || s == nil {
			continue
		}
		for _, c := range s.SelectedCurrencies {
			unique[c] = true
		}
	}

	codes := make([]string, 0, len(unique))
	for c := range unique {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes, err
}

// Close releases the database.
func (b *Bootstrap) Close() error {
	if b.Hub != nil {
		b.Hub.Close()
	}
	if b.Storage != nil {
		return b.Storage.Close()
	}
	return nil
}
