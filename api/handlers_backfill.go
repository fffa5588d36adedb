package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/quantrook/backreplay/models"
	"github.com/quantrook/backreplay/tracing"
)

// BackfillRequest defines the payload for pulling exchange history into the
// local store ahead of a run.
type BackfillRequest struct {
	Symbol   string    `json:"symbol" validate:"required,min=1,max=20"`
	Interval string    `json:"interval" validate:"required,oneof=1m 1h d w"`
	Start    time.Time `json:"start" validate:"required"`
	End      time.Time `json:"end" validate:"required,gtfield=Start"`
}

// BackfillHandler fetches [Start, End] bars for Symbol from Binance and
// writes them into the historical data store.
func (h *Handler) BackfillHandler(w http.ResponseWriter, r *http.Request) {
	var req BackfillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if valErr := validateStruct(req); valErr != nil {
		writeValidationError(w, valErr)
		return
	}

	n, err := h.backfiller.Backfill(h.store, req.Symbol, models.Interval(req.Interval), req.Start, req.End)
	if err != nil {
		tracing.Logger(r.Context()).Error().Err(err).Str("symbol", req.Symbol).Msg("backfill failed")
		writeError(w, http.StatusBadGateway, "BACKFILL_FAILED", fmt.Sprintf("backfill failed: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":      req.Symbol,
		"bars_loaded": n,
	})
}
