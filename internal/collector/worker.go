package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Vodeneev/propline/internal/pkg/cleaners"
	"github.com/Vodeneev/propline/internal/pkg/enums"
	"github.com/Vodeneev/propline/internal/pkg/games"
	"github.com/Vodeneev/propline/internal/pkg/lines"
	"github.com/Vodeneev/propline/internal/pkg/models"
	"github.com/Vodeneev/propline/internal/pkg/performance"
	"github.com/Vodeneev/propline/internal/pkg/registry"
)

// Pipeline holds the shared instances every worker writes through.
type Pipeline struct {
	Registry *registry.Registry
	Games    *games.Index
	Store    *lines.Store
	Tracker  *performance.Tracker // optional
	Retry    RetryPolicy

	now func() time.Time

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewPipeline(reg *registry.Registry, idx *games.Index, store *lines.Store, tracker *performance.Tracker, retry RetryPolicy) *Pipeline {
	return &Pipeline{
		Registry: reg,
		Games:    idx,
		Store:    store,
		Tracker:  tracker,
		Retry:    retry,
		now:      time.Now,
		inFlight: make(map[string]bool),
	}
}

// Result is the outcome of one worker in one round.
type Result struct {
	Source   string
	BatchID  string
	State    State // Done, Failed or Skipped
	FailedIn State // stage of the failure
	Attempts int
	Lines    int
	Dropped  int
	Duration time.Duration
	Err      error
}

func (r Result) record() performance.RoundRecord {
	rec := performance.RoundRecord{
		Source:   r.Source,
		BatchID:  r.BatchID,
		State:    r.State.String(),
		Attempts: r.Attempts,
		Lines:    r.Lines,
		Dropped:  r.Dropped,
		Duration: r.Duration,
		Err:      r.Err,
	}
	if r.State == StateFailed {
		rec.Stage = r.FailedIn.String()
	}
	return rec
}

// RunWorker drives one source through a full round. It never panics and
// never returns an error: failures end in StateFailed.
func (p *Pipeline) RunWorker(ctx context.Context, src Source, batchID string) (res Result) {
	res = Result{Source: src.Name(), BatchID: batchID}
	start := p.now()
	state := StateIdle

	defer func() {
		if r := recover(); r != nil {
			res.State = StateFailed
			res.FailedIn = state
			res.Err = fmt.Errorf("panic in %s: %v", state, r)
		}
		res.Duration = p.now().Sub(start)
		if res.State == StateFailed {
			slog.Error("Source round failed", "source", res.Source, "stage", res.FailedIn.String(), "attempts", res.Attempts, "error", res.Err)
		} else {
			slog.Debug("Source round finished", "source", res.Source, "lines", res.Lines, "dropped", res.Dropped, "duration", res.Duration)
		}
	}()

	var (
		payload []byte
		batch   *models.RawBatch
		err     error
	)
	fail := func(stage State, cause error) {
		res.FailedIn = stage
		res.Err = cause
		state = StateFailed
	}

	for !state.Terminal() {
		switch state {
		case StateIdle:
			state = StateFetching

		case StateFetching:
			res.Attempts++
			payload, err = src.Fetch(ctx)
			switch {
			case err == nil:
				state = StateParsing
			case IsRetryable(err) && p.Retry.Allow(res.Attempts) && ctx.Err() == nil:
				slog.Warn("Source fetch failed, retrying", "source", res.Source, "attempt", res.Attempts, "error", err)
				state = StateRetrying
			case IsRetryable(err):
				fail(StateFetching, fmt.Errorf("failed after %d attempts: %w", res.Attempts, err))
			default:
				fail(StateFetching, err)
			}

		case StateRetrying:
			if err := p.Retry.Wait(ctx, res.Attempts); err != nil {
				fail(StateRetrying, err)
				continue
			}
			state = StateFetching

		case StateParsing:
			batch, err = src.Parse(payload)
			if err != nil {
				if !errors.Is(err, ErrMalformedPayload) {
					err = fmt.Errorf("%w: %v", ErrMalformedPayload, err)
				}
				fail(StateParsing, err)
				continue
			}
			state = StateEmitting

		case StateEmitting:
			res.Lines, res.Dropped = p.emit(res.Source, batchID, batch)
			state = StateDone
		}
	}
	res.State = state
	return res
}

// emit resolves every raw line and ingests the ones whose subject, market
// and game all resolve. Misses drop that line only.
func (p *Pipeline) emit(source, batchID string, batch *models.RawBatch) (emitted, dropped int) {
	now := p.now()
	for _, raw := range batch.Lines {
		ev, reason := p.buildEvent(source, raw, now)
		if ev == nil {
			dropped++
			slog.Debug("Line dropped", "source", source, "reason", reason, "subject", raw.Subject, "market", raw.Market)
			continue
		}
		ev.BatchID = batchID
		ev.DefaultOdds = batch.DefaultOdds
		ev.DefaultImPrb = batch.DefaultImPrb
		if err := p.Store.Update(ev); err != nil {
			dropped++
			slog.Debug("Line rejected by store", "source", source, "error", err)
			continue
		}
		emitted++
	}
	return emitted, dropped
}

func (p *Pipeline) buildEvent(source string, raw models.RawLine, now time.Time) (*models.LineEvent, string) {
	league := cleaners.League(raw.League)
	if league == "" {
		return nil, "league"
	}
	sport := enums.ResolveSport(raw.Sport, league)
	label := cleaners.Label(raw.Label)
	if label == "" {
		return nil, "label"
	}
	var value float64
	if strings.TrimSpace(raw.Line) != "" {
		v, err := models.ParseLine(raw.Line)
		if err != nil {
			return nil, "line"
		}
		value = v
	}

	var team *models.Entity
	if raw.Team != "" {
		team, _ = p.Registry.Resolve(models.DomainTeam, registry.ResolveRequest{Source: source, League: league, Raw: raw.Team})
	}
	var position string
	if raw.Position != "" {
		if pos, ok := p.Registry.Resolve(models.DomainPosition, registry.ResolveRequest{Source: source, League: league, Sport: sport, Raw: raw.Position}); ok {
			position = pos.Name
		} else {
			position = raw.Position
		}
	}

	subject, subjectOK := p.Registry.Resolve(models.DomainSubject, registry.ResolveRequest{
		Source:         source,
		League:         league,
		Raw:            raw.Subject,
		Disambiguators: []string{raw.Team, position},
	})
	market, marketOK := p.Registry.Resolve(models.DomainMarket, registry.ResolveRequest{Source: source, League: league, Sport: sport, Raw: raw.Market})
	if !subjectOK {
		return nil, "subject"
	}
	if !marketOK {
		return nil, "market"
	}

	subject = p.refreshSubject(subject, team, position)

	if team == nil && subject.Team != "" {
		team, _ = p.Registry.Resolve(models.DomainTeam, registry.ResolveRequest{Source: source, League: league, Raw: subject.Team})
	}
	if team == nil {
		return nil, "game"
	}
	game, ok := p.Games.GetGame(league, team.ID)
	if !ok {
		return nil, "game"
	}

	return &models.LineEvent{
		Bookmaker:  source,
		Sport:      sport,
		League:     league,
		GameTime:   game.StartTime,
		Game:       game.Info,
		MarketID:   market.ID,
		Market:     market.Name,
		SubjectID:  subject.ID,
		Subject:    subject.Name,
		Label:      label,
		Line:       value,
		Odds:       raw.Odds,
		ImPrb:      raw.ImPrb,
		Mult:       raw.Mult,
		Boosted:    raw.Boosted,
		ObservedAt: now,
	}, ""
}

// refreshSubject records attributes the source reports that differ from the
// registry's view of the subject, such as a trade to a new team.
func (p *Pipeline) refreshSubject(subject, team *models.Entity, position string) *models.Entity {
	upd := *subject
	changed := false
	if team != nil && team.Name != subject.Team {
		upd.Team = team.Name
		changed = true
	}
	if position != "" && subject.Position == "" {
		upd.Position = position
		changed = true
	}
	if !changed {
		return subject
	}
	stored, err := p.Registry.Update(upd)
	if err != nil {
		slog.Warn("Failed to update subject attributes", "subject", subject.Name, "error", err)
		return subject
	}
	return stored
}

func (p *Pipeline) acquire(source string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inFlight[source] {
		return false
	}
	p.inFlight[source] = true
	return true
}

func (p *Pipeline) release(source string) {
	p.mu.Lock()
	delete(p.inFlight, source)
	p.mu.Unlock()
}

func (p *Pipeline) recordResult(r Result) {
	if p.Tracker != nil {
		p.Tracker.RecordRound(r.record())
	}
}
