package collector

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Vodeneev/propline/internal/pkg/parserutil"
)

// Round is the outcome of one collection round for one group.
type Round struct {
	BatchID  string
	Group    string
	Started  time.Time
	Finished time.Time
	// Results holds workers that reached a terminal state before the
	// deadline, plus skipped sources.
	Results []Result
	// Stragglers are sources still running at the deadline. Their results
	// are recorded in the tracker when they finish.
	Stragglers []string
}

// RunRound starts one worker per source and waits for them up to deadline.
// Workers past the deadline keep running; a source with a worker still in
// flight from an earlier round is skipped.
func (p *Pipeline) RunRound(ctx context.Context, group Group, deadline time.Duration) Round {
	round := Round{
		BatchID: uuid.NewString(),
		Group:   group.Name,
		Started: p.now(),
	}

	batchID := round.BatchID
	var (
		mu      sync.Mutex
		pending = make(map[string]bool, len(group.Sources))
		runners = make([]Source, 0, len(group.Sources))
	)
	for _, src := range group.Sources {
		if !p.acquire(src.Name()) {
			skipped := Result{Source: src.Name(), BatchID: batchID, State: StateSkipped}
			round.Results = append(round.Results, skipped)
			p.recordResult(skipped)
			slog.Warn("Source still running from previous round, skipping", "source", src.Name(), "group", group.Name)
			continue
		}
		pending[src.Name()] = true
		runners = append(runners, src)
	}

	done := parserutil.Run(ctx, runners, func(ctx context.Context, src Source) error {
		defer p.release(src.Name())
		res := p.RunWorker(ctx, src, batchID)
		p.recordResult(res)

		mu.Lock()
		if pending[res.Source] {
			delete(pending, res.Source)
			round.Results = append(round.Results, res)
		}
		mu.Unlock()
		return nil
	}, parserutil.RunOptions[Source]{Name: Source.Name})

	var timeout <-chan time.Time
	if deadline > 0 {
		timer := time.NewTimer(deadline)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case <-done:
	case <-timeout:
	case <-ctx.Done():
	}

	mu.Lock()
	for name := range pending {
		round.Stragglers = append(round.Stragglers, name)
	}
	sort.Strings(round.Stragglers)
	// late finishers must not touch the returned round
	pending = map[string]bool{}
	results := append([]Result(nil), round.Results...)
	mu.Unlock()

	round.Results = results
	round.Finished = p.now()
	if len(round.Stragglers) > 0 {
		slog.Warn("Round deadline reached with sources still running", "group", group.Name, "batch_id", round.BatchID, "stragglers", round.Stragglers)
	}
	slog.Info("Round finished", "group", group.Name, "batch_id", round.BatchID, "sources", len(group.Sources), "duration", round.Finished.Sub(round.Started))
	return round
}
