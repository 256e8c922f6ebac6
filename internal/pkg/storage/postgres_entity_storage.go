package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Vodeneev/propline/internal/pkg/config"
	"github.com/Vodeneev/propline/internal/pkg/models"
	_ "github.com/lib/pq"
)

// Ensure PostgresEntityStorage implements EntityStorage
var _ EntityStorage = (*PostgresEntityStorage)(nil)

// PostgresEntityStorage stores canonical entities and unidentified vendor
// values.
type PostgresEntityStorage struct {
	db *sql.DB
}

// NewPostgresEntityStorage opens the database and creates missing tables.
func NewPostgresEntityStorage(cfg *config.PostgresConfig) (*PostgresEntityStorage, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	s, err := newPostgresEntityStorage(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Info("PostgreSQL entity storage initialized successfully")
	return s, nil
}

func newPostgresEntityStorage(ctx context.Context, db *sql.DB) (*PostgresEntityStorage, error) {
	s := &PostgresEntityStorage{db: db}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *PostgresEntityStorage) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS entities (
		domain VARCHAR(20) NOT NULL,
		id BIGINT NOT NULL,
		partition VARCHAR(100) NOT NULL,
		name VARCHAR(300) NOT NULL,
		team VARCHAR(20) NOT NULL DEFAULT '',
		position VARCHAR(20) NOT NULL DEFAULT '',
		full_name VARCHAR(300) NOT NULL DEFAULT '',
		updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
		PRIMARY KEY (domain, id)
	);

	CREATE INDEX IF NOT EXISTS idx_entities_partition_name ON entities(domain, partition, name);

	CREATE TABLE IF NOT EXISTS unidentified_entities (
		domain VARCHAR(20) NOT NULL,
		source VARCHAR(100) NOT NULL,
		league VARCHAR(100) NOT NULL,
		raw VARCHAR(300) NOT NULL,
		first_seen TIMESTAMP NOT NULL,
		PRIMARY KEY (domain, source, league, raw)
	);
	`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

// LoadEntities returns every persisted entity ordered by domain and id.
func (s *PostgresEntityStorage) LoadEntities(ctx context.Context) ([]models.Entity, error) {
	query := `
	SELECT domain, id, partition, name, team, position, full_name
	FROM entities
	ORDER BY domain, id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	var out []models.Entity
	for rows.Next() {
		var e models.Entity
		var domain string
		if err := rows.Scan(&domain, &e.ID, &e.Partition, &e.Name, &e.Team, &e.Position, &e.FullName); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		e.Domain = models.Domain(domain)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read entities: %w", err)
	}
	return out, nil
}

// SaveEntities upserts entities in one transaction.
func (s *PostgresEntityStorage) SaveEntities(ctx context.Context, entities []models.Entity) error {
	if len(entities) == 0 {
		return nil
	}
	query := `
	INSERT INTO entities (domain, id, partition, name, team, position, full_name, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	ON CONFLICT (domain, id) DO UPDATE SET
		partition = EXCLUDED.partition,
		name = EXCLUDED.name,
		team = EXCLUDED.team,
		position = EXCLUDED.position,
		full_name = EXCLUDED.full_name,
		updated_at = EXCLUDED.updated_at
	`
	return s.inTx(ctx, query, func(stmt *sql.Stmt) error {
		for _, e := range entities {
			if _, err := stmt.ExecContext(ctx, string(e.Domain), e.ID, e.Partition, e.Name, e.Team, e.Position, e.FullName); err != nil {
				return fmt.Errorf("failed to upsert %s entity %d: %w", e.Domain, e.ID, err)
			}
		}
		return nil
	})
}

// LoadUnidentified returns the persisted unidentified report.
func (s *PostgresEntityStorage) LoadUnidentified(ctx context.Context) ([]models.UnidentifiedEntry, error) {
	query := `
	SELECT domain, source, league, raw, first_seen
	FROM unidentified_entities
	ORDER BY domain, source, league, raw
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query unidentified entities: %w", err)
	}
	defer rows.Close()

	var out []models.UnidentifiedEntry
	for rows.Next() {
		var e models.UnidentifiedEntry
		var domain string
		if err := rows.Scan(&domain, &e.Source, &e.League, &e.Raw, &e.FirstSeen); err != nil {
			return nil, fmt.Errorf("failed to scan unidentified entity: %w", err)
		}
		e.Domain = models.Domain(domain)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read unidentified entities: %w", err)
	}
	return out, nil
}

// SaveUnidentified inserts new misses. Existing rows keep their first_seen.
func (s *PostgresEntityStorage) SaveUnidentified(ctx context.Context, entries []models.UnidentifiedEntry) error {
	if len(entries) == 0 {
		return nil
	}
	query := `
	INSERT INTO unidentified_entities (domain, source, league, raw, first_seen)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (domain, source, league, raw) DO NOTHING
	`
	return s.inTx(ctx, query, func(stmt *sql.Stmt) error {
		for _, e := range entries {
			if _, err := stmt.ExecContext(ctx, string(e.Domain), e.Source, e.League, e.Raw, e.FirstSeen); err != nil {
				return fmt.Errorf("failed to insert unidentified %s %q: %w", e.Domain, e.Raw, err)
			}
		}
		return nil
	})
}

// DeleteUnidentified removes curated entries from the report.
func (s *PostgresEntityStorage) DeleteUnidentified(ctx context.Context, domain models.Domain, source, league, raw string) error {
	query := `DELETE FROM unidentified_entities WHERE domain = $1 AND source = $2 AND league = $3 AND raw = $4`
	res, err := s.db.ExecContext(ctx, query, string(domain), source, league, raw)
	if err != nil {
		return fmt.Errorf("failed to delete unidentified entity: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows > 0 {
		slog.Info("Removed curated unidentified entity", "domain", domain, "source", source, "raw", raw)
	}
	return nil
}

func (s *PostgresEntityStorage) inTx(ctx context.Context, query string, fn func(stmt *sql.Stmt) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	if err := fn(stmt); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *PostgresEntityStorage) Close() error {
	return s.db.Close()
}
