package storage

import (
	"context"

	"github.com/Vodeneev/propline/internal/pkg/models"
)

// EntityStorage persists canonical entities and the unidentified report
// between runs.
type EntityStorage interface {
	// LoadEntities returns every persisted entity
	LoadEntities(ctx context.Context) ([]models.Entity, error)

	// SaveEntities upserts entities by (domain, id)
	SaveEntities(ctx context.Context, entities []models.Entity) error

	// LoadUnidentified returns the persisted unidentified report
	LoadUnidentified(ctx context.Context) ([]models.UnidentifiedEntry, error)

	// SaveUnidentified records new misses; known ones are kept as they are
	SaveUnidentified(ctx context.Context, entries []models.UnidentifiedEntry) error

	// Close closes the database connection
	Close() error
}

// EvaluatedPublisher publishes the ranked evaluated lines for downstream
// consumers.
type EvaluatedPublisher interface {
	PublishEvaluated(ctx context.Context, payload []byte, count int) error
}
