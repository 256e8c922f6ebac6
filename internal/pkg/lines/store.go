// Package lines keeps the versioned history of every line key per bookmaker
// and label.
package lines

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Vodeneev/propline/internal/pkg/models"
)

// Filter selects aggregates. Empty fields match everything. When Bookmaker is
// set only that bookmaker's histories are returned.
type Filter struct {
	League    string
	Bookmaker string
	Market    string
	Subject   string
}

func (f Filter) match(a *models.Aggregate) bool {
	if f.League != "" && !strings.EqualFold(f.League, a.League) {
		return false
	}
	if f.Market != "" && !strings.EqualFold(f.Market, a.Market) {
		return false
	}
	if f.Subject != "" && !strings.EqualFold(f.Subject, a.Subject) {
		return false
	}
	if f.Bookmaker != "" {
		if _, ok := a.Bookmakers[strings.ToLower(f.Bookmaker)]; !ok {
			return false
		}
	}
	return true
}

// Store is the shared line index. One mutex guards everything; Update is the
// only writer besides retention pruning.
type Store struct {
	mu         sync.Mutex
	aggregates map[models.LineKey]*models.Aggregate
	counts     map[string]int64
	maxHistory int
}

// NewStore creates a store. maxHistory caps each (bookmaker, label) history,
// zero keeps everything.
func NewStore(maxHistory int) *Store {
	return &Store{
		aggregates: make(map[models.LineKey]*models.Aggregate),
		counts:     make(map[string]int64),
		maxHistory: maxHistory,
	}
}

// Update ingests one line-event.
func (s *Store) Update(ev *models.LineEvent) error {
	if ev.Bookmaker == "" || ev.Label == "" {
		return fmt.Errorf("line event without bookmaker or label")
	}
	if ev.MarketID == 0 || ev.SubjectID == 0 {
		return fmt.Errorf("line event %s/%s: unresolved market or subject", ev.Bookmaker, ev.Subject)
	}
	observed := ev.ObservedAt
	if observed.IsZero() {
		observed = time.Now()
	}
	bookmaker := strings.ToLower(ev.Bookmaker)
	entry := models.Entry{
		Timestamp: observed,
		LastSeen:  observed,
		Line:      ev.Line,
		Odds:      deref(ev.Odds),
		ImPrb:     deref(ev.ImPrb),
		Mult:      deref(ev.Mult),
		Boosted:   ev.Boosted,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.counts[bookmaker]++

	key := ev.Key()
	agg, ok := s.aggregates[key]
	if !ok {
		agg = &models.Aggregate{
			Key:        key,
			BirthTime:  observed,
			Sport:      ev.Sport,
			League:     ev.League,
			Market:     ev.Market,
			Subject:    ev.Subject,
			Bookmakers: make(map[string]*models.BookmakerLines),
		}
		s.aggregates[key] = agg
	}
	// the line key has no game, a subject's next game rolls into it
	if ev.Game != "" {
		agg.Game = ev.Game
		agg.GameTime = ev.GameTime
	}

	book, ok := agg.Bookmakers[bookmaker]
	if !ok {
		book = &models.BookmakerLines{Labels: make(map[string][]models.Entry)}
		agg.Bookmakers[bookmaker] = book
	}
	if ev.DefaultOdds != nil {
		book.DefaultOdds = *ev.DefaultOdds
	}
	if ev.DefaultImPrb != nil {
		book.DefaultImPrb = *ev.DefaultImPrb
	}

	history := book.Labels[ev.Label]
	if n := len(history); n > 0 && history[n-1].SameValue(entry) {
		if observed.After(history[n-1].LastSeen) {
			history[n-1].LastSeen = observed
		}
		return nil
	}
	history = append(history, entry)
	if s.maxHistory > 0 && len(history) > s.maxHistory {
		history = append(history[:0:0], history[len(history)-s.maxHistory:]...)
	}
	book.Labels[ev.Label] = history
	return nil
}

// GetLines returns deep copies of the matching aggregates ordered by league,
// market and subject.
func (s *Store) GetLines(f Filter) []*models.Aggregate {
	s.mu.Lock()
	out := make([]*models.Aggregate, 0)
	for _, agg := range s.aggregates {
		if !f.match(agg) {
			continue
		}
		if f.Bookmaker != "" {
			out = append(out, agg.OnlyBookmaker(strings.ToLower(f.Bookmaker)))
		} else {
			out = append(out, agg.Clone())
		}
	}
	s.mu.Unlock()

	sortAggregates(out)
	return out
}

// Snapshot copies the whole store out under the lock.
func (s *Store) Snapshot() []*models.Aggregate {
	return s.GetLines(Filter{})
}

// Counts returns the ingestion counter of a bookmaker, or the total when
// bookmaker is empty.
func (s *Store) Counts(bookmaker string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bookmaker != "" {
		return s.counts[strings.ToLower(bookmaker)]
	}
	var total int64
	for _, n := range s.counts {
		total += n
	}
	return total
}

// Bookmakers returns every bookmaker's ingestion counter.
func (s *Store) Bookmakers() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

// Len returns the number of line keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.aggregates)
}

// Prune drops aggregates whose game started before the cutoff.
func (s *Store) Prune(before time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, agg := range s.aggregates {
		if !agg.GameTime.IsZero() && agg.GameTime.Before(before) {
			delete(s.aggregates, key)
			removed++
		}
	}
	if removed > 0 {
		slog.Info("Pruned line aggregates", "removed", removed, "remaining", len(s.aggregates))
	}
	return removed
}

func sortAggregates(out []*models.Aggregate) {
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.League != b.League {
			return a.League < b.League
		}
		if a.Market != b.Market {
			return a.Market < b.Market
		}
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		return a.Key.SubjectID < b.Key.SubjectID
	})
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
