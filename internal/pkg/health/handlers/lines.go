package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Vodeneev/propline/internal/pkg/lines"
)

// HandleLines handles /lines endpoint
// GET /lines?league=NBA&bookmaker=fanduel&market=Points&subject=Devin%20Booker
// Every filter is optional; bookmaker restricts the histories to that bookmaker.
func (h *Handlers) HandleLines(w http.ResponseWriter, r *http.Request) {
	if h.Lines == nil {
		unavailable(w, "lines store")
		return
	}
	startTime := time.Now()

	q := r.URL.Query()
	filter := lines.Filter{
		League:    strings.TrimSpace(q.Get("league")),
		Bookmaker: strings.TrimSpace(q.Get("bookmaker")),
		Market:    strings.TrimSpace(q.Get("market")),
		Subject:   strings.TrimSpace(q.Get("subject")),
	}
	aggregates := h.Lines.GetLines(filter)

	duration := time.Since(startTime)
	w.Header().Set("X-Query-Duration", duration.String())
	w.Header().Set("X-Lines-Count", fmt.Sprintf("%d", len(aggregates)))
	slog.Debug("Lines query", "league", filter.League, "bookmaker", filter.Bookmaker, "count", len(aggregates), "duration", duration)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"lines": aggregates,
		"meta": map[string]interface{}{
			"count":    len(aggregates),
			"duration": duration.String(),
		},
	})
}

// HandleCounts handles /counts endpoint
// GET /counts?bookmaker=fanduel - ingestion counter of one bookmaker
// GET /counts - counters of every bookmaker
func (h *Handlers) HandleCounts(w http.ResponseWriter, r *http.Request) {
	if h.Lines == nil {
		unavailable(w, "lines store")
		return
	}
	if bookmaker := strings.TrimSpace(r.URL.Query().Get("bookmaker")); bookmaker != "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"bookmaker": strings.ToLower(bookmaker),
			"count":     h.Lines.Counts(bookmaker),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bookmakers": h.Lines.Bookmakers()})
}

// HandleEvaluated handles /lines/evaluated endpoint
// GET /lines/evaluated?min_ev=0.02&limit=50
func (h *Handlers) HandleEvaluated(w http.ResponseWriter, r *http.Request) {
	if h.Evaluated == nil {
		unavailable(w, "evaluator")
		return
	}
	q := r.URL.Query()

	var minEV *float64
	if raw := strings.TrimSpace(q.Get("min_ev")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid min_ev %q", raw))
			return
		}
		minEV = &v
	}
	limit := 0
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", raw))
			return
		}
		limit = v
	}

	evaluated := h.Evaluated.GetEvaluatedLines(minEV, limit)
	meta := map[string]interface{}{"count": len(evaluated)}
	if latest := h.Evaluated.Latest(); latest != nil {
		meta["evaluated_at"] = latest.At
		meta["priced"] = latest.Priced
		meta["duration"] = latest.Duration.String()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"lines": evaluated,
		"meta":  meta,
	})
}
