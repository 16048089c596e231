package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/hlwatch/internal/domain"
)

// PriceHandler serves cached mid prices.
type PriceHandler struct {
	prices domain.PriceCache
	logger *slog.Logger
}

// NewPriceHandler creates a PriceHandler.
func NewPriceHandler(prices domain.PriceCache, logger *slog.Logger) *PriceHandler {
	return &PriceHandler{prices: prices, logger: logger}
}

// Get returns the last cached mid price for a coin.
// GET /api/prices/{coin}
func (h *PriceHandler) Get(w http.ResponseWriter, r *http.Request) {
	coin := strings.TrimSpace(r.PathValue("coin"))
	price, ts, err := h.prices.GetPrice(r.Context(), coin)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no cached price for "+coin)
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: get price failed",
			slog.String("coin", coin),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read price")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"coin":      coin,
		"mid":       price,
		"updatedAt": ts.UTC().Format(time.RFC3339Nano),
	})
}
