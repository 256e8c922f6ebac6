package handlers

import (
	"net/http"
)

// HandlePing handles /ping endpoint
func HandlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("pong\n"))
}

// HandleHealth handles /health endpoint
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// HandleStats handles /stats endpoint: per-source round statistics.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	if h.Stats == nil {
		unavailable(w, "stats")
		return
	}
	writeJSON(w, http.StatusOK, h.Stats.GetMetrics())
}
