package schedule

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vodeneev/propline/internal/collector"
	"github.com/Vodeneev/propline/internal/pkg/config"
	"github.com/Vodeneev/propline/internal/pkg/games"
	"github.com/Vodeneev/propline/internal/pkg/models"
	"github.com/Vodeneev/propline/internal/pkg/registry"
)

const scheduleBody = `{"games": [
	{"league": "nba", "away": "PHO", "home": "DEN", "away_name": "Phoenix Suns", "start_time": "2026-01-10T02:00:00Z"},
	{"league": "NBA", "away": "BOS", "home": "", "start_time": "2026-01-10T00:00:00Z"},
	{"league": "NFL", "away": "KC", "home": "KC", "start_time": "2026-01-11T18:00:00Z"}
]}`

func newPoller(t *testing.T, url string) (*Poller, *registry.Registry, *games.Index) {
	t.Helper()
	reg := registry.New()
	idx := games.NewIndex()
	retry := collector.RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2}
	return NewPoller(config.ScheduleConfig{URL: url, Timeout: time.Second}, "propline-test", retry, reg, idx), reg, idx
}

func TestPoller_InstallsGamesAndTeams(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(scheduleBody))
	}))
	defer srv.Close()

	p, reg, idx := newPoller(t, srv.URL)
	n, err := p.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int32(2), calls.Load())

	phx, ok := reg.Resolve(models.DomainTeam, registry.ResolveRequest{League: "NBA", Raw: "PHO"})
	require.True(t, ok, "PHO is an alias of PHX")
	assert.Equal(t, "PHX", phx.Name)
	assert.Equal(t, "Phoenix Suns", phx.FullName)
	den, ok := reg.Resolve(models.DomainTeam, registry.ResolveRequest{League: "NBA", Raw: "DEN"})
	require.True(t, ok)

	g1, ok := idx.GetGame("NBA", phx.ID)
	require.True(t, ok)
	g2, ok := idx.GetGame("NBA", den.ID)
	require.True(t, ok)
	assert.Equal(t, "PHX @ DEN", g1.Info)
	assert.Equal(t, g1.Info, g2.Info)

	// idempotent refresh
	n, err = p.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, len(idx.RelevantGames("NBA")))
}

func TestPoller_KeepsEarliestGamePerTeam(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"games": [
			{"league": "NBA", "away": "LAL", "home": "PHX", "start_time": "2026-01-12T02:00:00Z"},
			{"league": "NBA", "away": "PHX", "home": "DEN", "start_time": "2026-01-10T02:00:00Z"}
		]}`))
	}))
	defer srv.Close()

	p, reg, idx := newPoller(t, srv.URL)
	n, err := p.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	for _, team := range []string{"PHX", "DEN"} {
		e, ok := reg.Resolve(models.DomainTeam, registry.ResolveRequest{League: "NBA", Raw: team})
		require.True(t, ok)
		g, ok := idx.GetGame("NBA", e.ID)
		require.True(t, ok, team)
		assert.Equal(t, "PHX @ DEN", g.Info, team)
		assert.True(t, g.StartTime.Equal(time.Date(2026, 1, 10, 2, 0, 0, 0, time.UTC)))
	}

	lal, ok := reg.Resolve(models.DomainTeam, registry.ResolveRequest{League: "NBA", Raw: "LAL"})
	require.True(t, ok, "teams of a deferred game are still registered")
	_, ok = idx.GetGame("NBA", lal.ID)
	assert.False(t, ok)

	// once the first game is over the next one takes its place
	p.lookback = 6 * time.Hour
	p.now = func() time.Time { return time.Date(2026, 1, 11, 12, 0, 0, 0, time.UTC) }
	idx.Prune(p.now().Add(-p.lookback))
	n, err = p.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	phx, _ := reg.Resolve(models.DomainTeam, registry.ResolveRequest{League: "NBA", Raw: "PHX"})
	g, ok := idx.GetGame("NBA", phx.ID)
	require.True(t, ok)
	assert.Equal(t, "LAL @ PHX", g.Info)
}

func TestPoller_Errors(t *testing.T) {
	body := `{"unexpected": true}`
	code := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	p, _, _ := newPoller(t, srv.URL)
	_, err := p.Poll(context.Background())
	assert.ErrorIs(t, err, collector.ErrMalformedPayload)

	code = http.StatusNotFound
	_, err = p.Poll(context.Background())
	var statusErr *collector.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
}
