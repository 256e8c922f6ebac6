// Package games maps (league, team) to the game that team plays next and
// tracks which games bookmakers are quoting.
package games

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Vodeneev/propline/internal/pkg/models"
)

type teamKey struct {
	league string
	teamID int64
}

type gameKey struct {
	league string
	awayID int64
	homeID int64
}

func keyOf(g *models.GameContext) gameKey {
	return gameKey{league: g.League, awayID: g.AwayID, homeID: g.HomeID}
}

// Index is safe for concurrent use. Both team keys of a game always point at
// the same *GameContext.
type Index struct {
	mu       sync.RWMutex
	byTeam   map[teamKey]*models.GameContext
	relevant map[string]map[gameKey]*models.GameContext
}

func NewIndex() *Index {
	return &Index{
		byTeam:   make(map[teamKey]*models.GameContext),
		relevant: make(map[string]map[gameKey]*models.GameContext),
	}
}

// UpdateGames installs a game under both team keys in one critical section.
func (x *Index) UpdateGames(u models.GameUpdate) error {
	if u.Away.ID == 0 || u.Home.ID == 0 {
		return fmt.Errorf("game %s: both teams must be resolved", models.GameInfo(u.Away.Name, u.Home.Name))
	}
	if u.Away.ID == u.Home.ID {
		return fmt.Errorf("game %s: team plays itself", models.GameInfo(u.Away.Name, u.Home.Name))
	}
	game := &models.GameContext{
		League:      u.League,
		Info:        models.GameInfo(u.Away.Name, u.Home.Name),
		AwayID:      u.Away.ID,
		HomeID:      u.Home.ID,
		Away:        u.Away.Name,
		Home:        u.Home.Name,
		StartTime:   u.StartTime,
		BoxScoreURL: u.BoxScoreURL,
	}
	awayKey := teamKey{league: u.League, teamID: u.Away.ID}
	homeKey := teamKey{league: u.League, teamID: u.Home.ID}

	x.mu.Lock()
	defer x.mu.Unlock()

	// a team moving to a new game leaves its previous opponent without one
	for _, k := range []teamKey{awayKey, homeKey} {
		if prev, ok := x.byTeam[k]; ok && keyOf(prev) != keyOf(game) {
			x.dropLocked(prev)
		}
	}
	x.byTeam[awayKey] = game
	x.byTeam[homeKey] = game

	// keep relevance across schedule refreshes
	if rel, ok := x.relevant[u.League]; ok {
		if _, marked := rel[keyOf(game)]; marked {
			rel[keyOf(game)] = game
		}
	}
	return nil
}

// GetGame returns the team's game and marks it relevant.
func (x *Index) GetGame(league string, teamID int64) (*models.GameContext, bool) {
	k := teamKey{league: league, teamID: teamID}

	x.mu.RLock()
	game, ok := x.byTeam[k]
	marked := false
	if ok {
		_, marked = x.relevant[league][keyOf(game)]
	}
	x.mu.RUnlock()
	if !ok || marked {
		return game, ok
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	// re-read: the game may have been replaced between the locks
	game, ok = x.byTeam[k]
	if !ok {
		return nil, false
	}
	rel, exists := x.relevant[league]
	if !exists {
		rel = make(map[gameKey]*models.GameContext)
		x.relevant[league] = rel
	}
	rel[keyOf(game)] = game
	return game, true
}

// RelevantGames lists games quoted by at least one bookmaker, by start time.
// An empty league returns every league.
func (x *Index) RelevantGames(league string) []models.GameContext {
	x.mu.RLock()
	var out []models.GameContext
	for l, rel := range x.relevant {
		if league != "" && l != league {
			continue
		}
		for _, g := range rel {
			out = append(out, *g)
		}
	}
	x.mu.RUnlock()
	sortGames(out)
	return out
}

// ActiveGames lists relevant games in play: started, but less than window ago.
func (x *Index) ActiveGames(league string, now time.Time, window time.Duration) []models.GameContext {
	var out []models.GameContext
	for _, g := range x.RelevantGames(league) {
		if !g.StartTime.After(now) && now.Sub(g.StartTime) < window {
			out = append(out, g)
		}
	}
	return out
}

// Prune removes games that started before the cutoff. Both team keys go
// together. Returns the number of games removed.
func (x *Index) Prune(before time.Time) int {
	x.mu.Lock()
	defer x.mu.Unlock()

	seen := make(map[gameKey]bool)
	removed := 0
	for _, g := range x.byTeam {
		if seen[keyOf(g)] {
			continue
		}
		seen[keyOf(g)] = true
		if g.StartTime.Before(before) {
			x.dropLocked(g)
			removed++
		}
	}
	for league, rel := range x.relevant {
		for k, g := range rel {
			if g.StartTime.Before(before) {
				delete(rel, k)
			}
		}
		if len(rel) == 0 {
			delete(x.relevant, league)
		}
	}
	return removed
}

// Len returns the number of scheduled games.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.byTeam) / 2
}

func (x *Index) dropLocked(g *models.GameContext) {
	for _, id := range []int64{g.AwayID, g.HomeID} {
		k := teamKey{league: g.League, teamID: id}
		if cur, ok := x.byTeam[k]; ok && cur == g {
			delete(x.byTeam, k)
		}
	}
	if rel, ok := x.relevant[g.League]; ok {
		if cur, ok := rel[keyOf(g)]; ok && cur == g {
			delete(rel, keyOf(g))
		}
	}
}

func sortGames(gs []models.GameContext) {
	sort.Slice(gs, func(i, j int) bool {
		if !gs[i].StartTime.Equal(gs[j].StartTime) {
			return gs[i].StartTime.Before(gs[j].StartTime)
		}
		if gs[i].League != gs[j].League {
			return gs[i].League < gs[j].League
		}
		return gs[i].Info < gs[j].Info
	})
}
