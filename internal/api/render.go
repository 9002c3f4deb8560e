package api

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"currency_switcher/internal/dom"
	"currency_switcher/internal/domain"
	"currency_switcher/internal/locale"
	"currency_switcher/internal/widget"
)

const (
	maxPageBody     = 5 << 20
	maxOverrideBody = 16 << 10
)

// handleRender runs the widget over a posted storefront page and returns
// the page as the shopper would see it.
func (h *Handler) handleRender(w http.ResponseWriter, r *http.Request) {
	shop := strings.TrimSpace(r.URL.Query().Get("shop"))
	if shop == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "shop parameter required"})
		return
	}

	doc, err := dom.Parse(io.LimitReader(r.Body, maxPageBody))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "unparsable page")
		return
	}

	prefs := NewCookieStore(w, r)
	if raw := r.URL.Query().Get("currency"); raw != "" {
		code, err := domain.NormalizeCode(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid currency")
			return
		}
		prefs.Set(widget.ChoiceKey, code)
	}

	sw := widget.New(doc, widget.Options{
		Shop:        shop,
		Languages:   locale.FromAcceptLanguage(r.Header.Get("Accept-Language")),
		Settings:    h.loader,
		Rates:       h.rates,
		Prefs:       prefs,
		FlagBaseURL: h.flagBaseURL,
		Metrics:     h.metrics,
	})
	if err := sw.Init(r.Context()); err != nil {
		h.logger.Warn("Widget init failed during render", slog.String("shop", shop), slog.Any("error", err))
	}

	var buf bytes.Buffer
	if err := sw.Render(&buf); err != nil {
		h.writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Currency", sw.Current())
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// handleOverride broadcasts a theme-editor layout change to open previews.
func (h *Handler) handleOverride(w http.ResponseWriter, r *http.Request) {
	shop := strings.TrimSpace(r.URL.Query().Get("shop"))
	if shop == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "shop parameter required"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxOverrideBody))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	o, ok := domain.DecodeOverride(body)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if o.IsEmpty() {
		h.writeError(w, http.StatusBadRequest, "override changes nothing")
		return
	}

	delivered := h.hub.Broadcast(shop, o)
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "delivered": delivered})
}

// handleFlag serves /assets/flags/{CODE}.png.
func (h *Handler) handleFlag(w http.ResponseWriter, r *http.Request) {
	file := r.PathValue("file")
	code, ok := strings.CutSuffix(file, ".png")
	if !ok || h.flags == nil {
		http.NotFound(w, r)
		return
	}
	code, err := domain.NormalizeCode(code)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	path, err := h.flags.DownloadFlag(r.Context(), code)
	if err != nil {
		h.logger.Debug("Flag unavailable", slog.String("currency", code), slog.Any("error", err))
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, path)
}
