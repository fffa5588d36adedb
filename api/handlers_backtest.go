package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/quantrook/backreplay/accounting"
	"github.com/quantrook/backreplay/models"
	"github.com/quantrook/backreplay/replay"
	"github.com/quantrook/backreplay/reports"
	"github.com/quantrook/backreplay/tracing"
)

// RunBacktestRequest defines the payload for starting a backtest run.
type RunBacktestRequest struct {
	Strategy       string                 `json:"strategy" validate:"required,min=1,max=50"`
	VtSymbol       string                 `json:"vt_symbol" validate:"required,min=3,max=40"`
	Interval       string                 `json:"interval" validate:"required,oneof=1m 1h d w tick"`
	Mode           string                 `json:"mode" validate:"required,oneof=BAR TICK"`
	Start          time.Time              `json:"start" validate:"required"`
	End            time.Time              `json:"end" validate:"required,gtfield=Start"`
	Size           float64                `json:"size" validate:"required,gt=0"`
	Rate           float64                `json:"rate" validate:"gte=0"`
	Slippage       float64                `json:"slippage" validate:"gte=0"`
	Pricetick      float64                `json:"pricetick" validate:"required,gt=0"`
	Capital        float64                `json:"capital" validate:"required,gt=0"`
	StrategyConfig map[string]interface{} `json:"strategy_config"`
}

// RunBacktestHandler synchronously runs a backtest and stores the result
// under a generated run ID.
func (h *Handler) RunBacktestHandler(w http.ResponseWriter, r *http.Request) {
	var req RunBacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if valErr := validateStruct(req); valErr != nil {
		writeValidationError(w, valErr)
		return
	}

	engine := replay.New(h.source, h.cache)

	if err := engine.SetParameters(
		req.VtSymbol, models.Interval(req.Interval), models.Mode(req.Mode),
		req.Size, req.Rate, req.Slippage, req.Pricetick, req.Capital,
		req.Start, req.End,
	); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_PARAMETERS", err.Error())
		return
	}
	engine.UseGlobalCache(h.config.UseGlobalCache)

	if h.wsManager != nil {
		engine.OnEvents(
			func(o models.Order) { h.wsManager.BroadcastOrder(req.VtSymbol, o) },
			func(t models.Trade) { h.wsManager.BroadcastTrade(req.VtSymbol, t) },
			func(s models.StopOrder) { h.wsManager.BroadcastStopOrder(req.VtSymbol, s) },
		)
	}

	if err := engine.AddStrategy(req.Strategy, h.registry, req.StrategyConfig); err != nil {
		writeError(w, http.StatusBadRequest, "UNKNOWN_STRATEGY", err.Error())
		return
	}

	if h.wsManager != nil {
		engine.OnProgress(func(phase string, fraction float64) {
			h.wsManager.BroadcastProgress(req.VtSymbol, phase, fraction)
		})
	}

	ctx := tracing.WithTraceID(context.Background(), tracing.TraceIDFromCtx(r.Context()))
	logger := tracing.Logger(ctx)

	if err := engine.LoadData(ctx); err != nil {
		logger.Error().Err(err).Str("vt_symbol", req.VtSymbol).Msg("failed to load historical data")
		writeError(w, http.StatusInternalServerError, "DATA_SOURCE_ERROR", fmt.Sprintf("failed to load historical data: %v", err))
		return
	}

	if err := engine.RunBacktesting(ctx); err != nil {
		logger.Error().Err(err).Msg("backtest execution failed")
		writeError(w, http.StatusInternalServerError, "BACKTEST_FAILED", fmt.Sprintf("backtest failed: %v", err))
		return
	}

	rows := accounting.CalculateResult(engine.DailyResults(), engine.Trades(), accounting.Params{
		Size: req.Size, Rate: req.Rate, Slippage: req.Slippage,
	})
	report := reports.NewReport(req.VtSymbol, rows, req.Capital)

	id := uuid.NewString()
	h.mu.Lock()
	h.results[id] = &RunOutcome{ID: id, VtSymbol: req.VtSymbol, Strategy: req.Strategy, Report: report}
	h.mu.Unlock()

	if h.config.ArtifactDir != "" {
		h.dumpArtifacts(ctx, id, engine)
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":       id,
		"status":   "completed",
		"strategy": req.Strategy,
		"metrics":  report.Metrics,
	})
}

// dumpArtifacts writes the completed run's replayed bars and trades to
// history.dat/trades.dat under <ArtifactDir>/<runID>/, for the external
// chart viewer described in spec.md §6. A failure here is logged, not
// surfaced to the caller: the dump is a side artifact of a run that has
// already completed successfully.
func (h *Handler) dumpArtifacts(ctx context.Context, runID string, engine *replay.Engine) {
	logger := tracing.Logger(ctx)
	dir := filepath.Join(h.config.ArtifactDir, runID)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error().Err(err).Str("dir", dir).Msg("failed to create artifact directory")
		return
	}
	if err := reports.WriteHistory(filepath.Join(dir, "history.dat"), engine.Bars()); err != nil {
		logger.Error().Err(err).Msg("failed to write history.dat")
	}
	if err := reports.WriteTrades(filepath.Join(dir, "trades.dat"), engine.Trades()); err != nil {
		logger.Error().Err(err).Msg("failed to write trades.dat")
	}
}

// GetBacktestResultHandler returns the full stored result for a completed
// run.
func (h *Handler) GetBacktestResultHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	h.mu.RLock()
	outcome, ok := h.results[id]
	h.mu.RUnlock()

	if !ok {
		tracing.Logger(r.Context()).Warn().Msg("backtest result not found")
		writeError(w, http.StatusNotFound, "NOT_FOUND", "backtest result not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":       outcome.ID,
		"status":   "completed",
		"strategy": outcome.Strategy,
		"vt_symbol": outcome.VtSymbol,
		"metrics":  outcome.Report.Metrics,
		"summary":  outcome.Report.Summary(),
		"daily":    outcome.Report.Rows,
	})
}

// ListStrategiesHandler lists the names registered in the strategy
// registry.
func (h *Handler) ListStrategiesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"strategies": h.registry.Names(),
	})
}
