// Package store defines the key-value persistence contract subsplit runs on.
//
// Records are addressed by (Kind, ID) and stored as opaque CBOR bytes. A
// backend only has to offer point reads and an atomic multi-key Commit; the
// engine stages every write of an operation in a Txn and commits it once,
// after all validation and arithmetic has succeeded.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no record exists for a key.
var ErrNotFound = errors.New("subsplit: not found")

// Kind names a record family. Backends may use it as a table, hash, or
// collection discriminator.
type Kind string

// Record kinds used by subsplit.
const (
	KindMeta            Kind = "meta"
	KindSubscription    Kind = "subscription"
	KindOwnerIndex      Kind = "owner_index"
	KindOwnerIndexChunk Kind = "owner_index_chunk"
	KindDelegate        Kind = "delegate"
	KindBalance         Kind = "balance"
	KindCharge          Kind = "charge"
)

// Key addresses a single record.
type Key struct {
	Kind Kind
	ID   string
}

// NewKey returns the key for id within kind.
func NewKey(kind Kind, id string) Key {
	return Key{Kind: kind, ID: id}
}

// String returns "kind/id".
func (k Key) String() string {
	return string(k.Kind) + "/" + k.ID
}

// Write is one staged mutation. A Delete write removes the key and ignores Value.
type Write struct {
	Key    Key
	Value  []byte
	Delete bool
}

// Reader is the read half of a Store. Txn implements it too, so staged
// writes are visible to reads made through the same transaction.
type Reader interface {
	// Get returns the stored bytes or ErrNotFound.
	Get(ctx context.Context, key Key) ([]byte, error)
	// Has reports whether a record exists for key.
	Has(ctx context.Context, key Key) (bool, error)
}

// Committer applies a batch of writes atomically: either every write is
// visible afterwards or none is.
type Committer interface {
	Commit(ctx context.Context, writes []Write) error
}

// Store is the unified storage interface for subsplit backends.
type Store interface {
	Reader
	Committer

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Compact collapses writes so each key appears once, keeping the last write
// for a key at the position of its first. Backends that apply a batch as a
// single statement need distinct keys.
func Compact(writes []Write) []Write {
	pos := make(map[Key]int, len(writes))
	out := make([]Write, 0, len(writes))
	for _, w := range writes {
		if i, ok := pos[w.Key]; ok {
			out[i] = w
			continue
		}
		pos[w.Key] = len(out)
		out = append(out, w)
	}
	return out
}
