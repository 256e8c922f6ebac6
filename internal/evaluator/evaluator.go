// Package evaluator prices non-sharp quotes against a devigged, weighted
// consensus of sharp bookmakers.
//
// A pass snapshots the lines store, so the store lock is never held while
// computing. Probabilities are rounded to three decimals on output only.
package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Vodeneev/propline/internal/pkg/config"
	"github.com/Vodeneev/propline/internal/pkg/lines"
	"github.com/Vodeneev/propline/internal/pkg/models"
	"github.com/Vodeneev/propline/internal/pkg/oddsmath"
	"github.com/Vodeneev/propline/internal/pkg/performance"
	"github.com/Vodeneev/propline/internal/pkg/storage"
)

// Notifier receives every ranked pass.
type Notifier interface {
	Notify(ctx context.Context, lines []EvaluatedLine) int
}

type Evaluator struct {
	store       *lines.Store
	sharp       map[string]float64
	complements map[string]string
	minEV       float64
	keepTop     int

	metrics   *performance.Metrics
	notifier  Notifier
	publisher storage.EvaluatedPublisher

	latest atomic.Pointer[Evaluation]
	now    func() time.Time
}

func New(cfg config.EvaluatorConfig, store *lines.Store, metrics *performance.Metrics) *Evaluator {
	e := &Evaluator{
		store:   store,
		sharp:   make(map[string]float64, len(cfg.SharpBooks)),
		minEV:   cfg.MinEV,
		keepTop: cfg.KeepTop,
		metrics: metrics,
		complements: map[string]string{
			models.LabelOver:  models.LabelUnder,
			models.LabelUnder: models.LabelOver,
			models.LabelYes:   models.LabelNo,
			models.LabelNo:    models.LabelYes,
		},
		now: time.Now,
	}
	for name, w := range cfg.SharpBooks {
		if w <= 0 {
			w = 1
		}
		e.sharp[strings.ToLower(strings.TrimSpace(name))] = w
	}
	for a, b := range cfg.Complements {
		e.complements[a] = b
		e.complements[b] = a
	}
	return e
}

// WithNotifier attaches alerting for ranked lines.
func (e *Evaluator) WithNotifier(n Notifier) *Evaluator {
	e.notifier = n
	return e
}

// WithPublisher attaches publication of the ranked list.
func (e *Evaluator) WithPublisher(p storage.EvaluatedPublisher) *Evaluator {
	e.publisher = p
	return e
}

// IsSharp reports whether bookmaker is a reference bookmaker.
func (e *Evaluator) IsSharp(bookmaker string) bool {
	_, ok := e.sharp[strings.ToLower(bookmaker)]
	return ok
}

// Run evaluates the current store contents, caches the result and hands it
// to the notifier and publisher.
func (e *Evaluator) Run(ctx context.Context) (*Evaluation, error) {
	start := e.now()
	result := e.Evaluate(e.store.Snapshot())
	result.At = start
	result.Duration = e.now().Sub(start)

	e.latest.Store(result)
	e.metrics.ObserveEvaluation(result.Duration, result.Priced)
	slog.Info("Evaluation finished",
		"lines", len(result.Lines),
		"priced", result.Priced,
		"groups", result.Groups,
		"skipped_sharp", result.SkippedSharp,
		"duration", result.Duration)

	top := e.topLines(result)
	if e.notifier != nil {
		e.notifier.Notify(ctx, top)
	}
	if e.publisher != nil {
		payload, err := json.Marshal(top)
		if err != nil {
			return result, fmt.Errorf("marshal evaluated lines: %w", err)
		}
		if err := e.publisher.PublishEvaluated(ctx, payload, len(top)); err != nil {
			return result, fmt.Errorf("publish evaluated lines: %w", err)
		}
	}
	return result, nil
}

// Latest returns the most recent evaluation, or nil before the first pass.
func (e *Evaluator) Latest() *Evaluation {
	return e.latest.Load()
}

// GetEvaluatedLines returns the cached ranked lines. With minEV set only
// priced lines at or above it are returned; limit <= 0 means no limit.
func (e *Evaluator) GetEvaluatedLines(minEV *float64, limit int) []EvaluatedLine {
	latest := e.latest.Load()
	if latest == nil {
		return []EvaluatedLine{}
	}
	out := make([]EvaluatedLine, 0, len(latest.Lines))
	for _, l := range latest.Lines {
		if minEV != nil && (l.EV == nil || l.ev < *minEV) {
			continue
		}
		out = append(out, l)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// topLines are the priced lines at or above min_ev, capped at keep_top.
func (e *Evaluator) topLines(result *Evaluation) []EvaluatedLine {
	out := make([]EvaluatedLine, 0)
	for _, l := range result.Lines {
		if l.EV == nil || l.ev < e.minEV {
			continue
		}
		out = append(out, l)
		if e.keepTop > 0 && len(out) == e.keepTop {
			break
		}
	}
	return out
}

type quote struct {
	agg       *models.Aggregate
	bookmaker string
	label     string
	line      float64
	odds      float64
	prob      float64
	boosted   bool
}

type groupKey struct {
	key   models.LineKey
	label string
	line  float64
}

type sideKey struct {
	league    string
	game      string
	market    int64
	bookmaker string
	label     string
}

// Evaluate runs the pass over aggregates without touching the cache.
func (e *Evaluator) Evaluate(aggregates []*models.Aggregate) *Evaluation {
	var sharp, soft []quote
	for _, agg := range aggregates {
		for book, bl := range agg.Bookmakers {
			for label := range bl.Labels {
				entry, ok := bl.Latest(label)
				if !ok {
					continue
				}
				odds := bl.EffectiveOdds(entry)
				p, err := oddsmath.DecimalToImpliedProbability(odds)
				if err != nil {
					continue
				}
				q := quote{agg: agg, bookmaker: book, label: label, line: entry.Line, odds: odds, prob: p, boosted: entry.Boosted}
				if e.IsSharp(book) {
					sharp = append(sharp, q)
				} else {
					soft = append(soft, q)
				}
			}
		}
	}

	result := &Evaluation{}
	consensus := e.consensus(sharp, result)
	result.Groups = len(consensus)

	result.Lines = make([]EvaluatedLine, 0, len(soft))
	for _, q := range soft {
		l := EvaluatedLine{
			Game:      q.agg.Game,
			GameTime:  q.agg.GameTime,
			League:    q.agg.League,
			Market:    q.agg.Market,
			Subject:   q.agg.Subject,
			Bookmaker: q.bookmaker,
			Label:     q.label,
			Line:      q.line,
			Odds:      q.odds,
			Boosted:   q.boosted,
		}
		if fair, ok := consensus[groupKey{key: q.agg.Key, label: q.label, line: q.line}]; ok {
			l.ev = oddsmath.ExpectedValue(fair, q.odds)
			fp, ev := oddsmath.Round3(fair), oddsmath.Round3(l.ev)
			l.FairProb, l.EV = &fp, &ev
			if odds, err := oddsmath.ProbabilityToDecimal(fair); err == nil {
				fo := oddsmath.Round3(odds)
				l.FairOdds = &fo
			}
			result.Priced++
		}
		result.Lines = append(result.Lines, l)
	}
	rank(result.Lines)
	return result
}

// consensus devigs every sharp quote that has exactly one complement and
// averages the fair probabilities per group by bookmaker weight.
func (e *Evaluator) consensus(sharp []quote, result *Evaluation) map[groupKey]float64 {
	sameSubject := make(map[groupKey]map[string]quote, len(sharp))
	sides := make(map[sideKey][]quote)
	for _, q := range sharp {
		k := groupKey{key: q.agg.Key, label: q.label, line: q.line}
		if sameSubject[k] == nil {
			sameSubject[k] = make(map[string]quote)
		}
		sameSubject[k][q.bookmaker] = q
		if q.agg.Game != "" {
			sk := sideKey{league: q.agg.League, game: q.agg.Game, market: q.agg.Key.MarketID, bookmaker: q.bookmaker, label: q.label}
			sides[sk] = append(sides[sk], q)
		}
	}

	quotes := make(map[groupKey][]oddsmath.WeightedQuote)
	for _, q := range sharp {
		comps := e.complementsOf(q, sameSubject, sides)
		if len(comps) != 1 {
			result.SkippedSharp++
			continue
		}
		fair, _, err := oddsmath.RemoveVig(q.prob, comps[0].prob)
		if err != nil {
			result.SkippedSharp++
			continue
		}
		k := groupKey{key: q.agg.Key, label: q.label, line: q.line}
		quotes[k] = append(quotes[k], oddsmath.WeightedQuote{Bookmaker: q.bookmaker, FairProb: fair, Weight: e.sharp[q.bookmaker]})
	}

	out := make(map[groupKey]float64, len(quotes))
	for k, qs := range quotes {
		fair, err := oddsmath.WeightedConsensus(qs)
		if err != nil {
			continue
		}
		out[k] = fair
	}
	return out
}

// complementsOf returns the opposite-side quotes of q from the same
// bookmaker. Two-way labels pair with the same subject at the same line;
// moneylines pair with another subject of the same game at the same line,
// spreads with another subject at the negated line.
func (e *Evaluator) complementsOf(q quote, sameSubject map[groupKey]map[string]quote, sides map[sideKey][]quote) []quote {
	if comp, ok := e.complements[q.label]; ok {
		if c, ok := sameSubject[groupKey{key: q.agg.Key, label: comp, line: q.line}][q.bookmaker]; ok {
			return []quote{c}
		}
		return nil
	}

	var want float64
	switch q.label {
	case models.LabelMoneyline:
		want = q.line
	case models.LabelSpread:
		want = -q.line
	default:
		return nil
	}
	if q.agg.Game == "" {
		return nil
	}
	sk := sideKey{league: q.agg.League, game: q.agg.Game, market: q.agg.Key.MarketID, bookmaker: q.bookmaker, label: q.label}
	var out []quote
	for _, c := range sides[sk] {
		if c.agg.Key.SubjectID != q.agg.Key.SubjectID && c.line == want {
			out = append(out, c)
		}
	}
	return out
}

// rank orders by EV descending, unpriced lines last. Ties break on
// bookmaker, league, subject, market, label, then line.
func rank(ls []EvaluatedLine) {
	sort.SliceStable(ls, func(i, j int) bool {
		a, b := ls[i], ls[j]
		if (a.EV == nil) != (b.EV == nil) {
			return a.EV != nil
		}
		if a.EV != nil && a.ev != b.ev {
			return a.ev > b.ev
		}
		if a.Bookmaker != b.Bookmaker {
			return a.Bookmaker < b.Bookmaker
		}
		if a.League != b.League {
			return a.League < b.League
		}
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		if a.Market != b.Market {
			return a.Market < b.Market
		}
		if a.Label != b.Label {
			return a.Label < b.Label
		}
		return a.Line < b.Line
	})
}
