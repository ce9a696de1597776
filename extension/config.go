package extension

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds the subsplit extension configuration.
// Fields can be set programmatically via Option functions, loaded from
// YAML configuration files (under "extensions.subsplit" or "subsplit" keys),
// or read from SUBSPLIT_* environment variables.
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate" env:"SUBSPLIT_DISABLE_MIGRATE"`

	// MaxPageSize caps the limit of list queries (default: 100).
	MaxPageSize int `json:"max_page_size" mapstructure:"max_page_size" yaml:"max_page_size" env:"SUBSPLIT_MAX_PAGE_SIZE"`

	// MaxBatchSize caps max_count of a process-due call (default: 500).
	MaxBatchSize int `json:"max_batch_size" mapstructure:"max_batch_size" yaml:"max_batch_size" env:"SUBSPLIT_MAX_BATCH_SIZE"`

	// HookTimeout bounds each plugin hook call (default: 5s).
	HookTimeout time.Duration `json:"hook_timeout" mapstructure:"hook_timeout" yaml:"hook_timeout" env:"SUBSPLIT_HOOK_TIMEOUT"`

	// RedisURL selects the Redis store when no store was set programmatically.
	RedisURL string `json:"redis_url" mapstructure:"redis_url" yaml:"redis_url" env:"SUBSPLIT_REDIS_URL"`

	// CacheSize wraps the store in an LRU of this many records. Zero disables it.
	CacheSize int `json:"cache_size" mapstructure:"cache_size" yaml:"cache_size" env:"SUBSPLIT_CACHE_SIZE"`

	// CacheTTL bounds how long a cached record is served (default: 5m).
	CacheTTL time.Duration `json:"cache_ttl" mapstructure:"cache_ttl" yaml:"cache_ttl" env:"SUBSPLIT_CACHE_TTL"`

	// SweepOwners lists owners whose due subscriptions are processed on
	// SweepSchedule. Empty disables the sweeper.
	SweepOwners []string `json:"sweep_owners" mapstructure:"sweep_owners" yaml:"sweep_owners" env:"SUBSPLIT_SWEEP_OWNERS" envSeparator:","`

	// SweepSchedule is a cron spec (default: "@every 1m").
	SweepSchedule string `json:"sweep_schedule" mapstructure:"sweep_schedule" yaml:"sweep_schedule" env:"SUBSPLIT_SWEEP_SCHEDULE"`

	// SweepBatchSize is max_count per process-due call (default: 100).
	SweepBatchSize int `json:"sweep_batch_size" mapstructure:"sweep_batch_size" yaml:"sweep_batch_size" env:"SUBSPLIT_SWEEP_BATCH_SIZE"`

	// DisableSweeper keeps SweepOwners configured but never schedules sweeps.
	DisableSweeper bool `json:"disable_sweeper" mapstructure:"disable_sweeper" yaml:"disable_sweeper" env:"SUBSPLIT_DISABLE_SWEEPER"`

	// TombstoneRetention is how long deleted SQL rows are kept before the
	// sweeper purges them. Zero disables purging.
	TombstoneRetention time.Duration `json:"tombstone_retention" mapstructure:"tombstone_retention" yaml:"tombstone_retention" env:"SUBSPLIT_TOMBSTONE_RETENTION"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxPageSize:    100,
		MaxBatchSize:   500,
		HookTimeout:    5 * time.Second,
		CacheTTL:       5 * time.Minute,
		SweepSchedule:  "@every 1m",
		SweepBatchSize: 100,
	}
}

// LoadConfigFromEnv returns DefaultConfig overridden by SUBSPLIT_* variables.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("subsplit: parse env: %w", err)
	}
	return cfg, nil
}

// LoadConfigYAML reads a standalone YAML file. Keys absent from the file
// keep their defaults.
func LoadConfigYAML(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("subsplit: read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("subsplit: parse config %s: %w", path, err)
	}
	return cfg, nil
}
