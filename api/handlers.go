// Package api provides the REST API for the backtest runner. It includes
// routing, handlers, and middleware.
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/quantrook/backreplay/config"
	"github.com/quantrook/backreplay/historicaldata"
	"github.com/quantrook/backreplay/providers"
	"github.com/quantrook/backreplay/realtime"
	"github.com/quantrook/backreplay/reports"
	"github.com/quantrook/backreplay/strategy"
)

// RunOutcome is one completed backtest's stored result, keyed by run ID in
// Handler.results.
type RunOutcome struct {
	ID       string         `json:"id"`
	VtSymbol string         `json:"vt_symbol"`
	Strategy string         `json:"strategy"`
	Report   *reports.Report `json:"report"`
}

// Handler bundles the dependencies every route needs: the strategy
// registry, a historical data source, the global bar/tick cache, runner
// config, and the websocket manager used to stream run progress.
type Handler struct {
	registry   *strategy.Registry
	source     historicaldata.Source
	store      providers.Store
	backfiller *providers.BinanceBackfiller
	cache      *historicaldata.GlobalCache
	config     *config.Config
	wsManager  *realtime.WebSocketManager

	mu        sync.RWMutex
	results   map[string]*RunOutcome
	startTime time.Time
}

// NewHandler constructs a Handler. wsManager and backfiller may be nil if
// no streaming endpoint or exchange backfill source is wired.
func NewHandler(
	registry *strategy.Registry,
	source historicaldata.Source,
	store providers.Store,
	backfiller *providers.BinanceBackfiller,
	cache *historicaldata.GlobalCache,
	cfg *config.Config,
	wsManager *realtime.WebSocketManager,
) *Handler {
	return &Handler{
		registry:   registry,
		source:     source,
		store:      store,
		backfiller: backfiller,
		cache:      cache,
		config:     cfg,
		wsManager:  wsManager,
		results:    make(map[string]*RunOutcome),
		startTime:  time.Now(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// APIError represents a standard API error response.
type APIError struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, APIError{Error: msg, Code: code})
}
