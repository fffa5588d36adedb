package api

import (
	"net/http"
	"runtime"
	"time"
)

// HealthHandler returns the health status of the API.
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		"data_source": "sqlite",
		"strategies":  "registered",
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now(),
		"checks":    checks,
	})
}

// MetricsHandler returns basic runtime statistics.
func (h *Handler) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	h.mu.RLock()
	completedRuns := len(h.results)
	h.mu.RUnlock()

	metrics := map[string]interface{}{
		"goroutines": runtime.NumGoroutine(),
		"memory": map[string]uint64{
			"alloc":       m.Alloc,
			"total_alloc": m.TotalAlloc,
			"sys":         m.Sys,
			"num_gc":      uint64(m.NumGC),
		},
		"completed_runs": completedRuns,
		"uptime_seconds": time.Since(h.startTime).Seconds(),
		"timestamp":      time.Now(),
	}

	writeJSON(w, http.StatusOK, metrics)
}
