package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/quantrook/backreplay/config"
	"github.com/quantrook/backreplay/historicaldata"
	"github.com/quantrook/backreplay/providers"
	"github.com/quantrook/backreplay/realtime"
	"github.com/quantrook/backreplay/strategy"
	"github.com/quantrook/backreplay/tracing"
)

// NewRouter creates and configures the main HTTP router for submitting
// backtest runs and reading back their results. backfiller may be nil if
// no exchange credentials were configured.
func NewRouter(
	cfg *config.Config,
	registry *strategy.Registry,
	source historicaldata.Source,
	store providers.Store,
	backfiller *providers.BinanceBackfiller,
	cache *historicaldata.GlobalCache,
	wsManager *realtime.WebSocketManager,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(TraceMiddleware)
	r.Use(middleware.RealIP)
	r.Use(zerologLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Global: 100 requests per minute per IP.
	r.Use(httprate.LimitByIP(100, 1*time.Minute))
	// Burst protection: 20 requests per second per IP.
	r.Use(httprate.LimitByIP(20, 1*time.Second))

	// Request body size limit - prevent memory exhaustion attacks.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, 1048576)
			next.ServeHTTP(w, r)
		})
	})

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Content-Security-Policy", "default-src 'self'")
			next.ServeHTTP(w, r)
		})
	})

	h := NewHandler(registry, source, store, backfiller, cache, cfg, wsManager)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"service": "backreplay-api",
			"version": "1.0.0",
			"status":  "running",
		})
	})

	if wsManager != nil {
		r.Get("/ws", wsManager.HandleWebSocket)
	}

	r.Get("/health", h.HealthHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/strategies", func(r chi.Router) {
			r.Get("/", h.ListStrategiesHandler)
		})

		r.Route("/backtests", func(r chi.Router) {
			r.Post("/", h.RunBacktestHandler)
			r.Get("/{id}", h.GetBacktestResultHandler)
		})

		if backfiller != nil {
			r.Post("/backfill", h.BackfillHandler)
		}

		r.Get("/metrics", h.MetricsHandler)
	})

	return r
}

// zerologLogger is middleware that logs requests using zerolog, including
// the trace_id from context for request correlation.
func zerologLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger := tracing.Logger(r.Context())
		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request completed")
	})
}
