// Package postgres implements store.Store on PostgreSQL through Grove.
//
// Every record lives in one table keyed by (kind, record_id). A commit batch
// is applied as a single multi-row upsert, which PostgreSQL executes
// atomically; deleted keys are kept as tombstone rows.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate" // registers the migration executor
	"github.com/xraph/grove/migrate"

	"github.com/xraph/subsplit/store"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("subsplit/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("subsplit/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the live value stored at key.
func (s *Store) Get(ctx context.Context, key store.Key) ([]byte, error) {
	m := new(recordModel)
	err := s.pg.NewSelect(m).
		Where("kind = $1", string(key.Kind)).
		Where("record_id = $2", key.ID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("subsplit/postgres: get %s: %w", key, err)
	}
	if m.Deleted {
		return nil, store.ErrNotFound
	}
	return m.Value, nil
}

// Has reports whether a live record exists for key.
func (s *Store) Has(ctx context.Context, key store.Key) (bool, error) {
	_, err := s.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Commit upserts every write in one statement.
func (s *Store) Commit(ctx context.Context, writes []store.Write) error {
	if len(writes) == 0 {
		return nil
	}
	models := toRecordModels(writes, time.Now().UTC())
	if _, err := s.upsert(&models).Exec(ctx); err != nil {
		return fmt.Errorf("subsplit/postgres: commit: %w", err)
	}
	return nil
}

// upsert builds one multi-row INSERT ... ON CONFLICT DO UPDATE for models.
// Without MultiRow a slice model is inserted row by row.
func (s *Store) upsert(models *[]recordModel) *pgdriver.InsertQuery {
	return s.pg.NewInsert(models).
		MultiRow().
		OnConflict("(kind, record_id) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("deleted = EXCLUDED.deleted").
		Set("updated_at = EXCLUDED.updated_at")
}

// PurgeTombstones removes deleted rows last written before cutoff.
func (s *Store) PurgeTombstones(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.pg.NewDelete((*recordModel)(nil)).
		Where("deleted = $1", true).
		Where("updated_at < $2", cutoff.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
