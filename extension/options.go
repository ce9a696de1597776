package extension

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/subsplit"
	"github.com/xraph/subsplit/payment"
	"github.com/xraph/subsplit/plugin"
	"github.com/xraph/subsplit/store"
	"github.com/xraph/subsplit/store/mongo"
	"github.com/xraph/subsplit/store/postgres"
	"github.com/xraph/subsplit/store/sqlite"
)

// Option configures the subsplit Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithPostgres uses a PostgreSQL grove.DB as the store.
func WithPostgres(db *grove.DB) Option {
	return WithStore(postgres.New(db))
}

// WithSQLite uses a SQLite grove.DB as the store.
func WithSQLite(db *grove.DB) Option {
	return WithStore(sqlite.New(db))
}

// WithMongo uses a MongoDB grove.DB as the store.
func WithMongo(db *grove.DB) Option {
	return WithStore(mongo.New(db))
}

// WithPaymentProvider sets the payment collaborator.
func WithPaymentProvider(p payment.Provider) Option {
	return WithLedgerOption(subsplit.WithPaymentProvider(p))
}

// WithLedgerOption passes a subsplit.Option through to the underlying engine.
func WithLedgerOption(opt subsplit.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a subsplit plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, subsplit.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithMaxPageSize caps the limit of list queries.
func WithMaxPageSize(n int) Option {
	return func(e *Extension) { e.config.MaxPageSize = n }
}

// WithMaxBatchSize caps max_count of a process-due call.
func WithMaxBatchSize(n int) Option {
	return func(e *Extension) { e.config.MaxBatchSize = n }
}

// WithHookTimeout bounds each plugin hook call.
func WithHookTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.HookTimeout = d }
}

// WithRedisURL selects the Redis store.
func WithRedisURL(url string) Option {
	return func(e *Extension) { e.config.RedisURL = url }
}

// WithCache wraps the store in an LRU read cache.
func WithCache(size int, ttl time.Duration) Option {
	return func(e *Extension) {
		e.config.CacheSize = size
		e.config.CacheTTL = ttl
	}
}

// WithSweepOwners enables the background sweeper for owners.
func WithSweepOwners(owners ...string) Option {
	return func(e *Extension) {
		e.config.SweepOwners = append(e.config.SweepOwners, owners...)
	}
}

// WithSweepSchedule sets the sweeper cron spec.
func WithSweepSchedule(spec string) Option {
	return func(e *Extension) { e.config.SweepSchedule = spec }
}

// WithDisableSweeper never schedules the background sweeper.
func WithDisableSweeper() Option {
	return func(e *Extension) { e.config.DisableSweeper = true }
}
