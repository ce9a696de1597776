// Package redis implements store.Store on Redis.
//
// Records are plain string keys named "<prefix><kind>:<id>". A commit batch
// runs as one MULTI/EXEC transaction.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/xraph/subsplit/store"
)

// DefaultPrefix namespaces subsplit keys.
const DefaultPrefix = "subsplit:"

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store on a go-redis client.
type Store struct {
	client *redis.Client
	prefix string
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the key prefix. The default is DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// New wraps an existing client.
func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open parses a redis:// URL, connects, and verifies the connection.
func Open(ctx context.Context, url string, opts ...Option) (*Store, error) {
	ropts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("subsplit/redis: invalid redis URL: %w", err)
	}
	ropts.DialTimeout = 5 * time.Second
	ropts.ReadTimeout = 3 * time.Second
	ropts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(ropts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("subsplit/redis: connect: %w", err)
	}
	return New(client, opts...), nil
}

// Client returns the underlying client.
func (s *Store) Client() *redis.Client { return s.client }

func (s *Store) redisKey(key store.Key) string {
	return s.prefix + string(key.Kind) + ":" + key.ID
}

func (s *Store) Get(ctx context.Context, key store.Key) ([]byte, error) {
	data, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("subsplit/redis: get %s: %w", key, err)
	}
	return data, nil
}

func (s *Store) Has(ctx context.Context, key store.Key) (bool, error) {
	n, err := s.client.Exists(ctx, s.redisKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("subsplit/redis: exists %s: %w", key, err)
	}
	return n > 0, nil
}

// Commit applies writes inside MULTI/EXEC.
func (s *Store) Commit(ctx context.Context, writes []store.Write) error {
	if len(writes) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, w := range writes {
			if w.Delete {
				pipe.Del(ctx, s.redisKey(w.Key))
				continue
			}
			pipe.Set(ctx, s.redisKey(w.Key), w.Value, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("subsplit/redis: commit: %w", err)
	}
	return nil
}

func (s *Store) Migrate(_ context.Context) error {
	return nil // Redis is schemaless
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}
