package collector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Vodeneev/propline/internal/pkg/config"
)

// Orchestrator runs every group on the collection interval, spreading the
// groups' start times evenly over one interval.
type Orchestrator struct {
	pipeline     *Pipeline
	groups       []Group
	interval     time.Duration
	roundTimeout time.Duration

	triggers []chan struct{}

	mu   sync.RWMutex
	last map[string]Round
}

func NewOrchestrator(p *Pipeline, groups []Group, cfg config.CollectorConfig) *Orchestrator {
	o := &Orchestrator{
		pipeline:     p,
		groups:       groups,
		interval:     cfg.Interval,
		roundTimeout: cfg.RoundTimeout,
		triggers:     make([]chan struct{}, len(groups)),
		last:         make(map[string]Round, len(groups)),
	}
	if o.interval <= 0 {
		o.interval = 2 * time.Minute
	}
	for i := range o.triggers {
		o.triggers[i] = make(chan struct{}, 1)
	}
	return o
}

// Offset is the delay before group i's first round.
func (o *Orchestrator) Offset(i int) time.Duration {
	if len(o.groups) == 0 {
		return 0
	}
	return o.interval * time.Duration(i) / time.Duration(len(o.groups))
}

// Run schedules all groups until ctx is done.
func (o *Orchestrator) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i, g := range o.groups {
		i, g := i, g
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.runGroup(ctx, i, g)
		}()
	}
	wg.Wait()
	slog.Info("Collection stopped")
}

func (o *Orchestrator) runGroup(ctx context.Context, i int, g Group) {
	offset := o.Offset(i)
	slog.Info("Starting periodic collection", "group", g.Name, "sources", len(g.Sources), "interval", o.interval, "offset", offset)

	if offset > 0 {
		timer := time.NewTimer(offset)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		case <-o.triggers[i]:
			timer.Stop()
		}
	}
	o.runOnce(ctx, g)

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.runOnce(ctx, g)
		case <-o.triggers[i]:
			slog.Info("Manual collection triggered", "group", g.Name)
			o.runOnce(ctx, g)
		}
	}
}

func (o *Orchestrator) runOnce(ctx context.Context, g Group) Round {
	round := o.pipeline.RunRound(ctx, g, o.roundTimeout)
	o.mu.Lock()
	o.last[g.Name] = round
	o.mu.Unlock()
	return round
}

// RunOnce runs one round of every group concurrently and returns when all
// rounds reached their deadline.
func (o *Orchestrator) RunOnce(ctx context.Context) []Round {
	rounds := make([]Round, len(o.groups))
	var wg sync.WaitGroup
	for i, g := range o.groups {
		i, g := i, g
		wg.Add(1)
		go func() {
			defer wg.Done()
			rounds[i] = o.runOnce(ctx, g)
		}()
	}
	wg.Wait()
	return rounds
}

// TriggerNow asks every group to start a round immediately. Triggers that
// arrive while a trigger is already queued are coalesced.
func (o *Orchestrator) TriggerNow() {
	for _, t := range o.triggers {
		select {
		case t <- struct{}{}:
		default:
		}
	}
}

// LastRounds returns the most recent round of each group.
func (o *Orchestrator) LastRounds() map[string]Round {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make(map[string]Round, len(o.last))
	for k, v := range o.last {
		out[k] = v
	}
	return out
}
