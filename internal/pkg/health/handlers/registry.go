package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Vodeneev/propline/internal/pkg/cleaners"
	"github.com/Vodeneev/propline/internal/pkg/models"
)

const (
	maxEntityBody       = 1 << 20
	defaultActiveWindow = 4 * time.Hour
)

// HandleUnidentified handles /unidentified endpoint: vendor values awaiting
// curation, grouped by domain.
func (h *Handlers) HandleUnidentified(w http.ResponseWriter, r *http.Request) {
	if h.Registry == nil {
		unavailable(w, "registry")
		return
	}
	all := h.Registry.UnidentifiedAll()
	total := 0
	for _, entries := range all {
		total += len(entries)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"unidentified": all,
		"meta": map[string]interface{}{
			"count":    total,
			"entities": h.Registry.Count(),
		},
	})
}

// HandleEntities handles POST /entities: inserts a curated entity or merges
// new attributes into an existing one.
func (h *Handlers) HandleEntities(w http.ResponseWriter, r *http.Request) {
	if h.Registry == nil {
		unavailable(w, "registry")
		return
	}
	var e models.Entity
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEntityBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&e); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid entity: %v", err))
		return
	}
	stored, err := h.Registry.Update(e)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	slog.Info("Entity curated", "domain", stored.Domain, "id", stored.ID, "name", stored.Name, "partition", stored.Partition)
	writeJSON(w, http.StatusOK, stored)
}

// HandleRelevantGames handles /games/relevant endpoint
// GET /games/relevant?league=NBA - games quoted by at least one bookmaker
func (h *Handlers) HandleRelevantGames(w http.ResponseWriter, r *http.Request) {
	if h.Games == nil {
		unavailable(w, "game index")
		return
	}
	league := r.URL.Query().Get("league")
	if league != "" {
		league = cleaners.League(league)
	}
	games := h.Games.RelevantGames(league)
	if games == nil {
		games = []models.GameContext{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"games": games,
		"meta":  map[string]interface{}{"count": len(games)},
	})
}

// HandleActiveGames handles /games/active endpoint
// GET /games/active?league=NBA&window=4h - relevant games that started less
// than window ago (default 4h)
func (h *Handlers) HandleActiveGames(w http.ResponseWriter, r *http.Request) {
	if h.Games == nil {
		unavailable(w, "game index")
		return
	}
	window := defaultActiveWindow
	if v := r.URL.Query().Get("window"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "window must be a positive duration")
			return
		}
		window = d
	}
	league := r.URL.Query().Get("league")
	if league != "" {
		league = cleaners.League(league)
	}
	games := h.Games.ActiveGames(league, time.Now(), window)
	if games == nil {
		games = []models.GameContext{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"games": games,
		"meta":  map[string]interface{}{"count": len(games), "window": window.String()},
	})
}

// HandleParse handles POST /parse: every group starts a round immediately.
// Returns without waiting for the rounds.
func (h *Handlers) HandleParse(w http.ResponseWriter, r *http.Request) {
	if h.Trigger == nil {
		unavailable(w, "collector")
		return
	}
	h.Trigger.TriggerNow()
	slog.Info("Manual collection round triggered", "remote", r.RemoteAddr)
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"triggered": true})
}
