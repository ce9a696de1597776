// Package cache wraps a store.Store with an in-process LRU of record bytes.
//
// Reads are served from the LRU when possible and filled on miss. A
// successful Commit writes its values through to the LRU and evicts its
// deletes, so a single process sharing the wrapped store sees its own
// writes. Other writers to the same backend are only observed after TTL.
package cache

import (
	"context"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/xraph/subsplit/store"
)

// Defaults applied by New.
const (
	DefaultSize = 4096
	DefaultTTL  = 5 * time.Minute
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store is a caching store.Store decorator.
type Store struct {
	next  store.Store
	cache *lru.LRU[store.Key, []byte]

	hits   atomic.Int64
	misses atomic.Int64
}

// Option configures New.
type Option func(*config)

type config struct {
	size int
	ttl  time.Duration
}

// WithSize sets the maximum number of cached records.
func WithSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.size = n
		}
	}
}

// WithTTL sets how long a record may be served from cache. Zero disables expiry.
func WithTTL(d time.Duration) Option {
	return func(c *config) { c.ttl = d }
}

// New wraps next.
func New(next store.Store, opts ...Option) *Store {
	cfg := config{size: DefaultSize, ttl: DefaultTTL}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Store{
		next:  next,
		cache: lru.NewLRU[store.Key, []byte](cfg.size, nil, cfg.ttl),
	}
}

// Unwrap returns the wrapped store.
func (s *Store) Unwrap() store.Store { return s.next }

func (s *Store) Get(ctx context.Context, key store.Key) ([]byte, error) {
	if v, ok := s.cache.Get(key); ok {
		s.hits.Add(1)
		return append([]byte(nil), v...), nil
	}
	s.misses.Add(1)

	v, err := s.next.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, append([]byte(nil), v...))
	return v, nil
}

func (s *Store) Has(ctx context.Context, key store.Key) (bool, error) {
	if s.cache.Contains(key) {
		return true, nil
	}
	return s.next.Has(ctx, key)
}

// Commit commits to the wrapped store, then updates the cache. A failed
// commit purges the cache since the backend state is unknown.
func (s *Store) Commit(ctx context.Context, writes []store.Write) error {
	if err := s.next.Commit(ctx, writes); err != nil {
		s.cache.Purge()
		return err
	}
	for _, w := range writes {
		if w.Delete {
			s.cache.Remove(w.Key)
			continue
		}
		s.cache.Add(w.Key, append([]byte(nil), w.Value...))
	}
	return nil
}

func (s *Store) Migrate(ctx context.Context) error { return s.next.Migrate(ctx) }

func (s *Store) Ping(ctx context.Context) error { return s.next.Ping(ctx) }

func (s *Store) Close() error {
	s.cache.Purge()
	return s.next.Close()
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits   int64
	Misses int64
	Len    int
}

// Stats returns hit and miss counts since creation.
func (s *Store) Stats() Stats {
	return Stats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
		Len:    s.cache.Len(),
	}
}
