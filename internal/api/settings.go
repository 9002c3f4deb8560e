package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"currency_switcher/internal/domain"
)

const maxSettingsBody = 64 << 10

// saveRequest carries the fields the admin must always send. Everything
// else is decoded leniently by domain.DecodeSettings.
type saveRequest struct {
	Shop               string          `json:"shop"`
	Currencies         json.RawMessage `json:"currencies"`
	SelectedCurrencies json.RawMessage `json:"selectedCurrencies"`
	DefaultCurrency    string          `json:"defaultCurrency"`
}

// unsavedSettings is the GET answer for a shop that never saved. It leaves
// out defaultCurrency so a resolving widget falls back to the shopper's
// locale instead of treating the fallback as the merchant's choice.
type unsavedSettings struct {
	domain.MerchantSettings
	DefaultCurrency string `json:"defaultCurrency,omitempty"`
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	shop := strings.TrimSpace(r.URL.Query().Get("shop"))
	if shop == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "shop parameter required"})
		return
	}

	saved, err := h.settings.GetSettings(shop)
	if err != nil {
		h.logger.Error("Settings lookup failed", slog.String("shop", shop), slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if saved == nil {
		h.logger.Debug("No settings saved, returning defaults", slog.String("shop", shop))
		s := domain.Fallback()
		s.Shop = shop
		h.writeJSON(w, http.StatusOK, unsavedSettings{MerchantSettings: s})
		return
	}
	h.writeJSON(w, http.StatusOK, saved)
}

func (h *Handler) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSettingsBody))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	var req saveRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if strings.TrimSpace(req.Shop) == "" || !hasList(req.Currencies, req.SelectedCurrencies) || req.DefaultCurrency == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required fields"})
		return
	}

	s, ok := domain.DecodeSettings(body)
	if !ok {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if !s.MerchantDefault {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid defaultCurrency"})
		return
	}

	if err := h.settings.SaveSettings(s); err != nil {
		h.logger.Error("Settings save failed", slog.String("shop", s.Shop), slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.logger.Info("Settings saved",
		slog.String("shop", s.Shop),
		slog.Any("currencies", s.SelectedCurrencies),
		slog.String("default", s.DefaultCurrency),
		slog.String("placement", string(s.Placement)),
	)
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "settings": s})
}

func (h *Handler) handleDeleteSettings(w http.ResponseWriter, r *http.Request) {
	shop := strings.TrimSpace(r.URL.Query().Get("shop"))
	if shop == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "shop parameter required"})
		return
	}
	if err := h.settings.DeleteSettings(shop); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// hasList reports whether any of the raw values is a non-empty JSON array.
func hasList(raws ...json.RawMessage) bool {
	for _, raw := range raws {
		var list []json.RawMessage
		if json.Unmarshal(raw, &list) == nil && len(list) > 0 {
			return true
		}
	}
	return false
}
