// Package schedule keeps the game index current from an upstream schedule
// feed. The feed is authoritative for teams: teams it names are created in
// the registry when missing.
package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/Vodeneev/propline/internal/collector"
	"github.com/Vodeneev/propline/internal/pkg/cleaners"
	"github.com/Vodeneev/propline/internal/pkg/config"
	"github.com/Vodeneev/propline/internal/pkg/games"
	"github.com/Vodeneev/propline/internal/pkg/models"
	"github.com/Vodeneev/propline/internal/pkg/registry"
)

// Game is one schedule feed entry. Teams are abbreviations; names are optional.
type Game struct {
	League      string    `json:"league"`
	Away        string    `json:"away"`
	Home        string    `json:"home"`
	AwayName    string    `json:"away_name,omitempty"`
	HomeName    string    `json:"home_name,omitempty"`
	StartTime   time.Time `json:"start_time"`
	BoxScoreURL string    `json:"box_score_url,omitempty"`
}

type document struct {
	Games *[]Game `json:"games"`
}

type Poller struct {
	url       string
	userAgent string
	lookback  time.Duration
	client    *http.Client
	retry     collector.RetryPolicy
	registry  *registry.Registry
	games     *games.Index
	now       func() time.Time
}

func NewPoller(cfg config.ScheduleConfig, userAgent string, retry collector.RetryPolicy, reg *registry.Registry, idx *games.Index) *Poller {
	return &Poller{
		url:       cfg.URL,
		userAgent: userAgent,
		lookback:  cfg.Lookback,
		client:    &http.Client{Timeout: cfg.Timeout},
		retry:     retry,
		registry:  reg,
		games:     idx,
		now:       time.Now,
	}
}

// Poll fetches the schedule once and installs every game whose teams can be
// registered. It returns the number of games installed.
func (p *Poller) Poll(ctx context.Context) (int, error) {
	body, err := p.fetchWithRetry(ctx)
	if err != nil {
		return 0, err
	}

	var doc document
	if err := json.Unmarshal(body, &doc); err != nil {
		return 0, collector.Malformed("decode schedule: %v", err)
	}
	if doc.Games == nil {
		return 0, collector.Malformed("missing games")
	}

	// each team keeps its earliest unfinished game
	entries := make([]Game, 0, len(*doc.Games))
	for _, g := range *doc.Games {
		if p.lookback > 0 && g.StartTime.Before(p.now().Add(-p.lookback)) {
			continue
		}
		entries = append(entries, g)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].StartTime.Before(entries[j].StartTime)
	})
	scheduled := make(map[teamSlot]bool)

	installed := 0
	for _, g := range entries {
		ok, err := p.install(g, scheduled)
		if err != nil {
			slog.Warn("Skipping schedule entry", "league", g.League, "away", g.Away, "home", g.Home, "error", err)
			continue
		}
		if !ok {
			slog.Debug("Deferring later game", "league", g.League, "away", g.Away, "home", g.Home, "start_time", g.StartTime)
			continue
		}
		installed++
	}
	slog.Info("Schedule refreshed", "games", installed, "skipped", len(entries)-installed, "finished", len(*doc.Games)-len(entries))
	return installed, nil
}

type teamSlot struct {
	league string
	id     int64
}

// install reports false when either team already has an earlier game in
// this poll.
func (p *Poller) install(g Game, scheduled map[teamSlot]bool) (bool, error) {
	league := cleaners.League(g.League)
	if league == "" || g.Away == "" || g.Home == "" {
		return false, fmt.Errorf("incomplete entry")
	}
	away, err := p.registry.Update(models.Entity{Domain: models.DomainTeam, Partition: league, Name: g.Away, FullName: g.AwayName})
	if err != nil {
		return false, fmt.Errorf("away team: %w", err)
	}
	home, err := p.registry.Update(models.Entity{Domain: models.DomainTeam, Partition: league, Name: g.Home, FullName: g.HomeName})
	if err != nil {
		return false, fmt.Errorf("home team: %w", err)
	}
	awaySlot, homeSlot := teamSlot{league, away.ID}, teamSlot{league, home.ID}
	if scheduled[awaySlot] || scheduled[homeSlot] {
		return false, nil
	}
	err = p.games.UpdateGames(models.GameUpdate{
		League:      league,
		Away:        *away,
		Home:        *home,
		StartTime:   g.StartTime,
		BoxScoreURL: g.BoxScoreURL,
	})
	if err != nil {
		return false, err
	}
	scheduled[awaySlot] = true
	scheduled[homeSlot] = true
	return true, nil
}

func (p *Poller) fetchWithRetry(ctx context.Context) ([]byte, error) {
	for attempt := 1; ; attempt++ {
		body, err := p.fetch(ctx)
		if err == nil {
			return body, nil
		}
		if !collector.IsRetryable(err) || !p.retry.Allow(attempt) {
			return nil, fmt.Errorf("fetch schedule after %d attempts: %w", attempt, err)
		}
		slog.Warn("Schedule fetch failed, retrying", "attempt", attempt, "error", err)
		if err := p.retry.Wait(ctx, attempt); err != nil {
			return nil, err
		}
	}
}

func (p *Poller) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &collector.StatusError{Code: resp.StatusCode, URL: p.url}
	}
	return io.ReadAll(resp.Body)
}
