package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"currency_switcher/internal/domain"
)

func (h *Handler) handleRates(w http.ResponseWriter, r *http.Request) {
	base := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("base")))
	if base == "" {
		base = domain.FallbackBaseCurrency
	}
	var symbols []string
	for _, s := range strings.Split(strings.ToUpper(r.URL.Query().Get("symbols")), ",") {
		if s = strings.TrimSpace(s); s != "" {
			symbols = append(symbols, s)
		}
	}

	table, err := h.upstream.Latest(r.Context(), base, symbols)
	if err != nil {
		var netErr *domain.NetworkError
		switch {
		case errors.As(err, &netErr) && netErr.Status > 0:
			h.logger.Error("Rates proxy: upstream returned non-OK",
				slog.Int("status", netErr.Status),
				slog.String("base", base),
			)
			h.writeJSON(w, http.StatusBadGateway, map[string]any{
				"ok":     false,
				"error":  "upstream_failed",
				"status": netErr.Status,
			})
		case errors.Is(err, domain.ErrRatesUnavailable):
			h.logger.Error("Rates proxy: upstream answered without rates", slog.Any("error", err))
			h.writeError(w, http.StatusInternalServerError, "no rates")
		default:
			h.logger.Error("Rates proxy error", slog.Any("error", err))
			h.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	rates := make(map[string]json.Number, len(table))
	for code, rate := range table {
		rates[code] = json.Number(rate.String())
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "rates": rates})
}
