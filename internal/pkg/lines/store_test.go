package lines

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vodeneev/propline/internal/pkg/models"
)

var t0 = time.Date(2026, 1, 10, 18, 0, 0, 0, time.UTC)

func event(bookmaker, label string, line, odds float64, at time.Time) *models.LineEvent {
	return &models.LineEvent{
		BatchID:    "b1",
		Bookmaker:  bookmaker,
		Sport:      "basketball",
		League:     "NBA",
		GameTime:   t0.Add(6 * time.Hour),
		Game:       "PHX @ BKN",
		MarketID:   1,
		Market:     "Points",
		SubjectID:  10,
		Subject:    "Devin Booker",
		Label:      label,
		Line:       line,
		Odds:       models.Float(odds),
		ObservedAt: at,
	}
}

func TestUpdate_CoalescesIdenticalRepeats(t *testing.T) {
	s := NewStore(0)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Update(event("pinnacle", models.LabelOver, 25.5, 1.91, t0.Add(time.Duration(i)*time.Minute))))
	}

	aggs := s.GetLines(Filter{})
	require.Len(t, aggs, 1)
	h := aggs[0].Bookmakers["pinnacle"].Labels[models.LabelOver]
	require.Len(t, h, 1)
	assert.Equal(t, t0, h[0].Timestamp)
	assert.Equal(t, t0.Add(4*time.Minute), h[0].LastSeen)
	assert.Equal(t, int64(5), s.Counts("pinnacle"))
}

func TestUpdate_AppendsOnChangeInOrder(t *testing.T) {
	s := NewStore(0)
	values := []float64{24.5, 25.5, 26.5, 25.5}
	for i, v := range values {
		require.NoError(t, s.Update(event("fanduel", models.LabelOver, v, 1.87, t0.Add(time.Duration(i)*time.Minute))))
	}

	h := s.GetLines(Filter{})[0].Bookmakers["fanduel"].Labels[models.LabelOver]
	require.Len(t, h, len(values))
	for i, v := range values {
		assert.Equal(t, v, h[i].Line)
	}
}

func TestUpdate_OddsMultAndBoostAreComparable(t *testing.T) {
	s := NewStore(0)
	base := event("prizepicks", models.LabelOver, 25.5, 0, t0)
	base.Odds = nil

	require.NoError(t, s.Update(base))
	withMult := *base
	withMult.Mult = models.Float(1.5)
	require.NoError(t, s.Update(&withMult))
	boosted := withMult
	boosted.Boosted = true
	require.NoError(t, s.Update(&boosted))
	require.NoError(t, s.Update(&boosted))

	h := s.GetLines(Filter{})[0].Bookmakers["prizepicks"].Labels[models.LabelOver]
	assert.Len(t, h, 3)
}

func TestUpdate_BuildsBookmakerAndLabelMaps(t *testing.T) {
	s := NewStore(0)
	require.NoError(t, s.Update(event("pinnacle", models.LabelOver, 25.5, 1.91, t0)))
	require.NoError(t, s.Update(event("pinnacle", models.LabelUnder, 25.5, 1.91, t0)))

	dfs := event("PrizePicks", models.LabelOver, 25.5, 0, t0)
	dfs.Odds = nil
	dfs.DefaultOdds = models.Float(1.87)
	require.NoError(t, s.Update(dfs))

	aggs := s.GetLines(Filter{})
	require.Len(t, aggs, 1)
	agg := aggs[0]
	assert.Equal(t, t0, agg.BirthTime)
	assert.Equal(t, "PHX @ BKN", agg.Game)
	assert.Len(t, agg.Bookmakers, 2)
	assert.Len(t, agg.Bookmakers["pinnacle"].Labels, 2)
	assert.Equal(t, 1.87, agg.Bookmakers["prizepicks"].DefaultOdds)

	assert.Equal(t, int64(3), s.Counts(""))
	assert.Equal(t, int64(1), s.Counts("prizepicks"))
	assert.Equal(t, map[string]int64{"pinnacle": 2, "prizepicks": 1}, s.Bookmakers())
}

func TestUpdate_CarriesDefaultOddsForward(t *testing.T) {
	s := NewStore(0)
	first := event("underdog", models.LabelOver, 25.5, 0, t0)
	first.Odds = nil
	first.DefaultOdds = models.Float(1.4)
	first.DefaultImPrb = models.Float(0.714)
	require.NoError(t, s.Update(first))

	// a later batch without defaults keeps the last reported ones
	later := event("underdog", models.LabelUnder, 25.5, 0, t0.Add(time.Minute))
	later.Odds = nil
	later.Mult = models.Float(1.5)
	require.NoError(t, s.Update(later))

	book := s.GetLines(Filter{})[0].Bookmakers["underdog"]
	assert.Equal(t, 1.4, book.DefaultOdds)
	assert.Equal(t, 0.714, book.DefaultImPrb)

	over, ok := book.Latest(models.LabelOver)
	require.True(t, ok)
	assert.InDelta(t, 1.4, book.EffectiveOdds(over), 1e-9)
	under, ok := book.Latest(models.LabelUnder)
	require.True(t, ok)
	assert.InDelta(t, 2.1, book.EffectiveOdds(under), 1e-9, "default odds times the multiplier")

	noDefault := &models.BookmakerLines{DefaultImPrb: 0.5}
	assert.InDelta(t, 3.0, noDefault.EffectiveOdds(models.Entry{Mult: 1.5}), 1e-9)
	assert.Zero(t, (&models.BookmakerLines{}).EffectiveOdds(models.Entry{Mult: 1.5}))
}

func TestUpdate_RejectsUnresolvedEvent(t *testing.T) {
	s := NewStore(0)
	ev := event("pinnacle", models.LabelOver, 25.5, 1.91, t0)
	ev.SubjectID = 0
	assert.Error(t, s.Update(ev))
	assert.Equal(t, 0, s.Len())
}

func TestUpdate_MaxHistoryDropsOldest(t *testing.T) {
	s := NewStore(2)
	for i, v := range []float64{1, 2, 3} {
		require.NoError(t, s.Update(event("fanduel", models.LabelOver, v, 1.9, t0.Add(time.Duration(i)*time.Minute))))
	}
	h := s.GetLines(Filter{})[0].Bookmakers["fanduel"].Labels[models.LabelOver]
	require.Len(t, h, 2)
	assert.Equal(t, 2.0, h[0].Line)
	assert.Equal(t, 3.0, h[1].Line)
}

func TestGetLines_Filters(t *testing.T) {
	s := NewStore(0)
	require.NoError(t, s.Update(event("pinnacle", models.LabelOver, 25.5, 1.91, t0)))
	require.NoError(t, s.Update(event("fanduel", models.LabelOver, 25.5, 1.95, t0)))
	other := event("fanduel", models.LabelOver, 8.5, 1.8, t0)
	other.MarketID, other.Market = 2, "Rebounds"
	require.NoError(t, s.Update(other))
	nfl := event("fanduel", models.LabelOver, 250.5, 1.9, t0)
	nfl.League, nfl.MarketID, nfl.Market, nfl.SubjectID, nfl.Subject = "NFL", 3, "Pass Yards", 20, "Joe Burrow"
	require.NoError(t, s.Update(nfl))

	assert.Len(t, s.GetLines(Filter{}), 3)
	assert.Len(t, s.GetLines(Filter{League: "nba"}), 2)
	assert.Len(t, s.GetLines(Filter{League: "NBA", Market: "points"}), 1)
	assert.Len(t, s.GetLines(Filter{Subject: "Joe Burrow"}), 1)
	assert.Empty(t, s.GetLines(Filter{League: "NHL"}))

	pin := s.GetLines(Filter{Bookmaker: "Pinnacle"})
	require.Len(t, pin, 1)
	assert.Len(t, pin[0].Bookmakers, 1)
	assert.Contains(t, pin[0].Bookmakers, "pinnacle")
}

func TestGetLines_ReturnsCopies(t *testing.T) {
	s := NewStore(0)
	require.NoError(t, s.Update(event("pinnacle", models.LabelOver, 25.5, 1.91, t0)))

	got := s.GetLines(Filter{})
	got[0].Bookmakers["pinnacle"].Labels[models.LabelOver][0].Line = 99
	got[0].Subject = "changed"

	again := s.GetLines(Filter{})
	assert.Equal(t, 25.5, again[0].Bookmakers["pinnacle"].Labels[models.LabelOver][0].Line)
	assert.Equal(t, "Devin Booker", again[0].Subject)
}

func TestUpdate_ConcurrentSameKey(t *testing.T) {
	s := NewStore(0)
	var wg sync.WaitGroup
	for _, book := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(book string) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = s.Update(event(book, models.LabelOver, 25.5, 1.9, t0.Add(time.Duration(i)*time.Second)))
			}
		}(book)
	}
	wg.Wait()

	agg := s.GetLines(Filter{})[0]
	for _, book := range []string{"a", "b", "c", "d"} {
		assert.Len(t, agg.Bookmakers[book].Labels[models.LabelOver], 1)
		assert.Equal(t, int64(200), s.Counts(book))
	}
}

func TestPrune(t *testing.T) {
	s := NewStore(0)
	require.NoError(t, s.Update(event("pinnacle", models.LabelOver, 25.5, 1.91, t0)))
	assert.Equal(t, 0, s.Prune(t0))
	assert.Equal(t, 1, s.Prune(t0.Add(7*time.Hour)))
	assert.Equal(t, 0, s.Len())
}
