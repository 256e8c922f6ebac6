package main

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgconfig "github.com/Vodeneev/propline/internal/pkg/config"
	"github.com/Vodeneev/propline/internal/pkg/games"
	"github.com/Vodeneev/propline/internal/pkg/lines"
	"github.com/Vodeneev/propline/internal/pkg/models"
	"github.com/Vodeneev/propline/internal/pkg/performance"
	"github.com/Vodeneev/propline/internal/pkg/registry"
)

type memoryStorage struct {
	failNext     bool
	entities     []models.Entity
	unidentified []models.UnidentifiedEntry
}

func (m *memoryStorage) LoadEntities(context.Context) ([]models.Entity, error) {
	return m.entities, nil
}

func (m *memoryStorage) SaveEntities(_ context.Context, es []models.Entity) error {
	if m.failNext {
		return errors.New("connection refused")
	}
	m.entities = append(m.entities, es...)
	return nil
}

func (m *memoryStorage) LoadUnidentified(context.Context) ([]models.UnidentifiedEntry, error) {
	return m.unidentified, nil
}

func (m *memoryStorage) SaveUnidentified(_ context.Context, es []models.UnidentifiedEntry) error {
	if m.failNext {
		return errors.New("connection refused")
	}
	m.unidentified = append(m.unidentified, es...)
	return nil
}

func (m *memoryStorage) Close() error { return nil }

func TestFlushRegistry_RetriesFailedWrites(t *testing.T) {
	reg := registry.New()
	_, err := reg.Update(models.Entity{Domain: models.DomainTeam, Partition: "NBA", Name: "PHX"})
	require.NoError(t, err)
	reg.Resolve(models.DomainSubject, registry.ResolveRequest{Source: "fanduel", League: "NBA", Raw: "Nobody Known"})

	db := &memoryStorage{failNext: true}
	j := &jobs{ctx: context.Background(), registry: reg, entities: db, metrics: performance.NewMetrics()}

	j.flushRegistry(context.Background())
	assert.Empty(t, db.entities)
	assert.Len(t, j.unsavedEntities, 1)
	assert.Len(t, j.unsavedUnidentified, 1)

	db.failNext = false
	j.flushRegistry(context.Background())
	require.Len(t, db.entities, 1)
	assert.Equal(t, "PHX", db.entities[0].Name)
	require.Len(t, db.unidentified, 1)
	assert.Equal(t, "Nobody Known", db.unidentified[0].Raw)
	assert.Empty(t, j.unsavedEntities)

	// nothing new
	j.flushRegistry(context.Background())
	assert.Len(t, db.entities, 1)
	assert.Len(t, db.unidentified, 1)
}

func TestFlushRegistry_WithoutStorage(t *testing.T) {
	j := &jobs{ctx: context.Background(), registry: registry.New()}
	j.flushRegistry(context.Background())
}

func TestPrune(t *testing.T) {
	reg := registry.New()
	phx, _ := reg.Update(models.Entity{Domain: models.DomainTeam, Partition: "NBA", Name: "PHX"})
	den, _ := reg.Update(models.Entity{Domain: models.DomainTeam, Partition: "NBA", Name: "DEN"})
	idx := games.NewIndex()
	started := time.Now().Add(-24 * time.Hour)
	require.NoError(t, idx.UpdateGames(models.GameUpdate{League: "NBA", Away: *phx, Home: *den, StartTime: started}))

	store := lines.NewStore(0)
	require.NoError(t, store.Update(&models.LineEvent{
		Bookmaker: "fanduel", League: "NBA", Game: "PHX @ DEN", GameTime: started,
		MarketID: 1, Market: "Points", SubjectID: 1, Subject: "Devin Booker",
		Label: models.LabelOver, Line: 27.5, Odds: models.Float(1.9),
	}))

	j := &jobs{games: idx, store: store, retention: 12 * time.Hour}
	j.prune(context.Background())
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 0, idx.Len())
}

func TestSchedule_RejectsBadSpec(t *testing.T) {
	cfg, err := pkgconfig.Parse([]byte("evaluator:\n  schedule: \"every now and then\"\n"))
	require.NoError(t, err)

	j := &jobs{ctx: context.Background()}
	_, err = j.schedule(cfg)
	assert.ErrorContains(t, err, "invalid evaluator schedule")

	cfg.Evaluator.Schedule = "@every 30s"
	c, err := j.schedule(cfg)
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 3, "no schedule job without a schedule feed")
}

func TestLoadPersisted_SeedsEmptyDatabase(t *testing.T) {
	seed := t.TempDir() + "/seed.yaml"
	require.NoError(t, os.WriteFile(seed, []byte("teams:\n  - {id: 1, partition: NBA, name: PHX}\n  - {id: 2, partition: NBA, name: DEN}\n"), 0o644))

	db := &memoryStorage{unidentified: []models.UnidentifiedEntry{{Domain: models.DomainSubject, Source: "fanduel", League: "NBA", Raw: "Nobody Known"}}}
	reg := registry.New()
	require.NoError(t, loadPersisted(context.Background(), db, seed, reg))
	assert.Len(t, db.entities, 2, "seed is written through to the empty database")
	assert.Equal(t, 2, reg.Count()[models.DomainTeam])
	assert.Len(t, reg.Unidentified(models.DomainSubject), 1)

	// a populated database wins over the seed
	reg = registry.New()
	db.entities = db.entities[:1]
	require.NoError(t, loadPersisted(context.Background(), db, seed, reg))
	assert.Equal(t, 1, reg.Count()[models.DomainTeam])
}
