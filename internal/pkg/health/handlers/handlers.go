package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/Vodeneev/propline/internal/evaluator"
	"github.com/Vodeneev/propline/internal/pkg/lines"
	"github.com/Vodeneev/propline/internal/pkg/models"
	"github.com/Vodeneev/propline/internal/pkg/performance"
)

// LineReader is the read side of the lines store.
type LineReader interface {
	GetLines(f lines.Filter) []*models.Aggregate
	Counts(bookmaker string) int64
	Bookmakers() map[string]int64
}

// EvaluatedReader serves the cached evaluation.
type EvaluatedReader interface {
	GetEvaluatedLines(minEV *float64, limit int) []evaluator.EvaluatedLine
	Latest() *evaluator.Evaluation
}

// EntityRegistry is the curation side of the entity registry.
type EntityRegistry interface {
	UnidentifiedAll() map[models.Domain][]models.UnidentifiedEntry
	Update(e models.Entity) (*models.Entity, error)
	Count() map[models.Domain]int
}

type GameReader interface {
	RelevantGames(league string) []models.GameContext
	ActiveGames(league string, now time.Time, window time.Duration) []models.GameContext
}

// Trigger starts an out-of-schedule collection round.
type Trigger interface {
	TriggerNow()
}

type StatsReader interface {
	GetMetrics() performance.MetricsResponse
}

// Handlers serves the read API. Nil dependencies answer 503.
type Handlers struct {
	Lines     LineReader
	Evaluated EvaluatedReader
	Registry  EntityRegistry
	Games     GameReader
	Trigger   Trigger
	Stats     StatsReader
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func unavailable(w http.ResponseWriter, what string) {
	writeError(w, http.StatusServiceUnavailable, what+" not configured")
}
