package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Vodeneev/propline/internal/collector/schedule"
	"github.com/Vodeneev/propline/internal/evaluator"
	pkgconfig "github.com/Vodeneev/propline/internal/pkg/config"
	"github.com/Vodeneev/propline/internal/pkg/games"
	"github.com/Vodeneev/propline/internal/pkg/lines"
	"github.com/Vodeneev/propline/internal/pkg/models"
	"github.com/Vodeneev/propline/internal/pkg/performance"
	"github.com/Vodeneev/propline/internal/pkg/registry"
	"github.com/Vodeneev/propline/internal/pkg/storage"
)

const flushTimeout = 30 * time.Second

// jobs are the periodic tasks beside collection.
type jobs struct {
	ctx       context.Context
	registry  *registry.Registry
	entities  storage.EntityStorage // nil without Postgres
	games     *games.Index
	store     *lines.Store
	evaluator *evaluator.Evaluator
	poller    *schedule.Poller // nil without a schedule feed
	metrics   *performance.Metrics
	retention time.Duration

	// failed writes, retried on the next flush
	unsavedEntities     []models.Entity
	unsavedUnidentified []models.UnidentifiedEntry
}

// schedule registers every job. A job still running when its next tick
// comes is skipped.
func (j *jobs) schedule(appConfig *pkgconfig.Config) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DefaultLogger),
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))

	add := func(name, spec string, fn func(context.Context)) error {
		if _, err := c.AddFunc(spec, func() { fn(j.ctx) }); err != nil {
			return fmt.Errorf("invalid %s schedule %q: %w", name, spec, err)
		}
		slog.Info("Scheduled job", "job", name, "spec", spec)
		return nil
	}

	if err := add("evaluator", appConfig.Evaluator.Schedule, j.evaluate); err != nil {
		return nil, err
	}
	if err := add("registry flush", appConfig.Registry.FlushSchedule, j.flushRegistry); err != nil {
		return nil, err
	}
	if err := add("retention", "@every 10m", j.prune); err != nil {
		return nil, err
	}
	if j.poller != nil {
		if err := add("schedule", appConfig.Schedule.Interval, j.pollSchedule); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (j *jobs) evaluate(ctx context.Context) {
	if _, err := j.evaluator.Run(ctx); err != nil {
		slog.Error("Evaluation failed", "error", err)
	}
}

func (j *jobs) pollSchedule(ctx context.Context) {
	if n, err := j.poller.Poll(ctx); err != nil {
		slog.Error("Schedule poll failed", "error", err)
	} else {
		slog.Debug("Schedule refreshed", "games", n)
	}
}

// flushRegistry persists changed entities and new unidentified values, then
// refreshes the unidentified gauges. It runs detached from ctx cancellation
// so the final flush on shutdown completes.
func (j *jobs) flushRegistry(ctx context.Context) {
	for domain, entries := range j.registry.UnidentifiedAll() {
		j.metrics.SetUnidentified(string(domain), len(entries))
	}
	if j.entities == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	defer cancel()

	changed := append(j.unsavedEntities, j.registry.Changes()...)
	j.unsavedEntities = nil
	if len(changed) > 0 {
		if err := j.entities.SaveEntities(ctx, changed); err != nil {
			slog.Error("Failed to persist entities", "count", len(changed), "error", err)
			j.unsavedEntities = changed
		} else {
			slog.Info("Entities persisted", "count", len(changed))
		}
	}

	pending := append(j.unsavedUnidentified, j.registry.DrainUnidentified()...)
	j.unsavedUnidentified = nil
	if len(pending) > 0 {
		if err := j.entities.SaveUnidentified(ctx, pending); err != nil {
			slog.Error("Failed to persist unidentified report", "count", len(pending), "error", err)
			j.unsavedUnidentified = pending
		} else {
			slog.Info("Unidentified report persisted", "count", len(pending), "by_domain", countByDomain(pending))
		}
	}
}

// prune drops aggregates and games whose game started before the
// retention window.
func (j *jobs) prune(context.Context) {
	cutoff := time.Now().Add(-j.retention)
	keys := j.store.Prune(cutoff)
	dropped := j.games.Prune(cutoff)
	if keys > 0 || dropped > 0 {
		slog.Info("Retention pruned", "line_keys", keys, "games", dropped, "cutoff", cutoff)
	}
}

func countByDomain(entries []models.UnidentifiedEntry) map[models.Domain]int {
	out := make(map[models.Domain]int)
	for _, e := range entries {
		out[e.Domain]++
	}
	return out
}
