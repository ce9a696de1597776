// Package mongo implements store.Store on MongoDB through Grove.
//
// Reads go through the grove query builder. A commit batch is an ordered
// bulk write run inside a multi-document transaction, which requires a
// replica set or sharded cluster.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/subsplit/store"
)

const colRecords = "subsplit_records"

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for the record collection.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.mdb.Collection(colRecords).Indexes().CreateMany(ctx, migrationIndexes())
	if err != nil {
		return fmt.Errorf("subsplit/mongo: migrate %s indexes: %w", colRecords, err)
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
	var m recordModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": key.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("subsplit/mongo: get %s: %w", key, err)
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

// Commit applies writes in one transaction.
func (s *Store) Commit(ctx context.Context, writes []store.Write) error {
	if len(writes) == 0 {
		return nil
	}
	coll := s.mdb.Collection(colRecords)
	models := toWriteModels(writes, time.Now().UTC())

	sess, err := coll.Database().Client().StartSession()
	if err != nil {
		return fmt.Errorf("subsplit/mongo: start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(txCtx context.Context) (any, error) {
		return coll.BulkWrite(txCtx, models)
	})
	if err != nil {
		return fmt.Errorf("subsplit/mongo: commit: %w", err)
	}
	return nil
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for the record collection.
func migrationIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "record_id", Value: 1}}},
		{Keys: bson.D{{Key: "updated_at", Value: -1}}},
	}
}
