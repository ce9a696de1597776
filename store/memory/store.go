// Package memory provides an in-process Store for tests and single-node use.
package memory

import (
	"context"
	"sync"

	"github.com/xraph/subsplit"
	"github.com/xraph/subsplit/store"
)

// Store keeps records in a map guarded by one lock, so Commit is atomic
// with respect to every reader.
type Store struct {
	mu     sync.RWMutex
	data   map[store.Key][]byte
	closed bool
}

var _ store.Store = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{
		data: make(map[store.Key][]byte),
	}
}

// Get returns a copy of the bytes stored at key.
func (s *Store) Get(_ context.Context, key store.Key) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, subsplit.ErrStoreClosed
	}
	v, ok := s.data[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Has reports whether key is present.
func (s *Store) Has(_ context.Context, key store.Key) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, subsplit.ErrStoreClosed
	}
	_, ok := s.data[key]
	return ok, nil
}

// Commit applies writes under the write lock.
func (s *Store) Commit(_ context.Context, writes []store.Write) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return subsplit.ErrStoreClosed
	}

	for _, w := range writes {
		if w.Delete {
			delete(s.data, w.Key)
			continue
		}
		s.data[w.Key] = append([]byte(nil), w.Value...)
	}
	return nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return subsplit.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
