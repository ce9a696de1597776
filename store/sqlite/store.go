// Package sqlite implements store.Store on SQLite through Grove.
// A commit batch is a single multi-row upsert statement, so it applies
// atomically; deleted keys are kept as tombstone rows.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate" // registers the migration executor
	"github.com/xraph/grove/migrate"

	"github.com/xraph/subsplit/store"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("subsplit/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("subsplit/sqlite: migration failed: %w", err)
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

func (s *Store) Get(ctx context.Context, key store.Key) ([]byte, error) {
	m := new(recordModel)
	err := s.sdb.NewSelect(m).
		Where("kind = ?", string(key.Kind)).
		Where("record_id = ?", key.ID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("subsplit/sqlite: get %s: %w", key, err)
	}
	if m.Deleted {
		return nil, store.ErrNotFound
	}
	return m.Value, nil
}

func (s *Store) Has(ctx context.Context, key store.Key) (bool, error) {
	_, err := s.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) Commit(ctx context.Context, writes []store.Write) error {
	if len(writes) == 0 {
		return nil
	}
	models := toRecordModels(writes, time.Now().UTC())
	if _, err := s.upsert(&models).Exec(ctx); err != nil {
		return fmt.Errorf("subsplit/sqlite: commit: %w", err)
	}
	return nil
}

// upsert builds one multi-row INSERT ... ON CONFLICT DO UPDATE for models.
// Without MultiRow a slice model is inserted row by row.
func (s *Store) upsert(models *[]recordModel) *sqlitedriver.InsertQuery {
	return s.sdb.NewInsert(models).
		MultiRow().
		OnConflict("(kind, record_id) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("deleted = EXCLUDED.deleted").
		Set("updated_at = EXCLUDED.updated_at")
}

// PurgeTombstones removes deleted rows last written before cutoff.
func (s *Store) PurgeTombstones(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.sdb.NewDelete((*recordModel)(nil)).
		Where("deleted = ?", true).
		Where("updated_at < ?", cutoff.UTC()).
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
