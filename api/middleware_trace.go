package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/quantrook/backreplay/tracing"
)

// TraceMiddleware injects a trace ID into the request context for
// structured logging correlation. If a chi RequestID is already present
// in the context, it is used as the trace ID. Otherwise, a new
// cryptographically random trace ID is generated.
//
// The trace ID is also set as a response header (X-Trace-ID) to allow
// clients and operators to correlate requests with backend logs. When the
// matched route carries a backtest run ID (GET /api/v1/backtests/{id}),
// it is attached too, so tracing.Logger(ctx) tags every line of a
// result-fetch request with the run it is about — useful once a server is
// serving lookups for many completed runs at once.
func TraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Use chi's RequestID if available, otherwise generate our own
		traceID := middleware.GetReqID(r.Context())
		if traceID == "" {
			traceID = tracing.NewTraceID()
		}

		// Inject into context
		ctx := tracing.WithTraceID(r.Context(), traceID)
		// Router-level middleware runs before chi fills in URL params, so
		// match the route up front to read {id}.
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.Routes != nil {
			tctx := chi.NewRouteContext()
			if rctx.Routes.Match(tctx, r.Method, r.URL.Path) {
				if runID := tctx.URLParam("id"); runID != "" {
					ctx = tracing.WithRunID(ctx, runID)
				}
			}
		}

		// Set response header for client-side correlation
		w.Header().Set("X-Trace-ID", traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
