// Package api serves the storefront-facing endpoints of the currency
// switcher app proxy: merchant settings, the rates proxy, the theme-editor
// channel, server-side rendering and flag assets.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"currency_switcher/internal/domain"
	"currency_switcher/internal/editor"
	"currency_switcher/internal/infra"
)

// SettingsStore is the merchant settings table.
type SettingsStore interface {
	domain.SettingsRepository
	DeleteSettings(shop string) error
}

// Upstream fetches reference rates for the rates proxy.
type Upstream interface {
	Latest(ctx context.Context, base string, symbols []string) (domain.RateTable, error)
}

// FlagSource resolves flag icon files, downloading them when missing.
type FlagSource interface {
	DownloadFlag(ctx context.Context, code string) (string, error)
}

// Deps are the collaborators a Handler serves from.
type Deps struct {
	Settings SettingsStore
	Upstream Upstream
	Hub      *editor.Hub

	// Render path
	Loader      domain.SettingsLoader
	Rates       domain.RateSource
	FlagBaseURL string

	Flags   FlagSource // optional
	Metrics *infra.Metrics
	Logger  *slog.Logger
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	settings    SettingsStore
	upstream    Upstream
	hub         *editor.Hub
	loader      domain.SettingsLoader
	rates       domain.RateSource
	flagBaseURL string
	flags       FlagSource
	metrics     *infra.Metrics
	logger      *slog.Logger
}

// New creates a Handler.
func New(d Deps) *Handler {
	h := &Handler{
		settings:    d.Settings,
		upstream:    d.Upstream,
		hub:         d.Hub,
		loader:      d.Loader,
		rates:       d.Rates,
		flagBaseURL: d.FlagBaseURL,
		flags:       d.Flags,
		metrics:     d.Metrics,
		logger:      d.Logger,
	}
	if h.metrics == nil {
		h.metrics = infra.GlobalMetrics
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

// RegisterRoutes registers all HTTP routes with the given ServeMux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	const p = infra.APIPrefix

	mux.HandleFunc("GET "+p+"/api/settings", h.handleGetSettings)
	mux.HandleFunc("POST "+p+"/api/settings", h.handleSaveSettings)
	mux.HandleFunc("DELETE "+p+"/api/settings", h.handleDeleteSettings)

	mux.HandleFunc("GET "+p+"/api/rates", h.handleRates)

	mux.Handle("GET "+p+"/api/editor", h.hub)
	mux.HandleFunc("POST "+p+"/api/editor/override", h.handleOverride)

	mux.HandleFunc("POST "+p+"/render", h.handleRender)

	mux.HandleFunc("GET /assets/flags/{file}", h.handleFlag)

	mux.HandleFunc("GET /debug/metrics", h.handleMetrics)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

// Router returns the routes wrapped in the standard middleware stack.
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return Chain(Recovery(h.logger), Logging(h.logger), CORS)(mux)
}

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.metrics.Snapshot())
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
