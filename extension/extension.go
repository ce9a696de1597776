// Package extension provides the Forge extension adapter for subsplit.
//
// It implements the forge.Extension interface to integrate the subsplit
// Ledger into a Forge application with DI registration, lifecycle
// management, and an optional background sweeper for due subscriptions.
//
// Configuration can be provided programmatically via Option functions,
// via YAML configuration files under "extensions.subsplit" or "subsplit"
// keys, or via SUBSPLIT_* environment variables (see LoadConfigFromEnv).
package extension

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/subsplit"
	"github.com/xraph/subsplit/store"
	"github.com/xraph/subsplit/store/cache"
	"github.com/xraph/subsplit/store/memory"
	"github.com/xraph/subsplit/store/redis"
	"github.com/xraph/subsplit/sweeper"
	"github.com/xraph/subsplit/types"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "subsplit"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Subscription billing with revenue splits"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts subsplit as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *subsplit.Ledger
	store      store.Store
	sweeper    *sweeper.Sweeper
	ledgerOpts []subsplit.Option
}

// New creates a new subsplit Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Ledger instance.
// This is nil until Register is called.
func (e *Extension) Engine() *subsplit.Ledger { return e.engine }

// Sweeper returns the background sweeper, or nil when no owners are configured.
func (e *Extension) Sweeper() *sweeper.Sweeper { return e.sweeper }

// ResolvedConfig returns the configuration after defaults and merging.
func (e *Extension) ResolvedConfig() Config { return e.config }

// Register implements [forge.Extension]. It loads configuration,
// initializes the ledger engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if err := e.build(context.Background()); err != nil {
		return err
	}

	return vessel.Provide(fapp.Container(), func() (*subsplit.Ledger, error) {
		return e.engine, nil
	})
}

// build resolves the store, constructs the engine, and wires the sweeper
// from the resolved config.
func (e *Extension) build(ctx context.Context) error {
	base, err := e.resolveStore(ctx)
	if err != nil {
		return err
	}

	e.store = base
	if e.config.CacheSize > 0 {
		e.store = cache.New(base, cache.WithSize(e.config.CacheSize), cache.WithTTL(e.config.CacheTTL))
	}

	e.engine = subsplit.New(e.store, e.buildLedgerOpts()...)

	if len(e.config.SweepOwners) == 0 || e.config.DisableSweeper {
		return nil
	}

	sopts := []sweeper.Option{
		sweeper.WithSchedule(e.config.SweepSchedule),
		sweeper.WithBatchSize(e.config.SweepBatchSize),
	}
	if p, ok := base.(sweeper.Purger); ok && e.config.TombstoneRetention > 0 {
		sopts = append(sopts, sweeper.WithTombstonePurge(p, e.config.TombstoneRetention))
	}

	sw := sweeper.New(e.engine, sopts...)
	for _, spec := range e.config.SweepOwners {
		owner, caller, err := parseSweepOwner(spec)
		if err != nil {
			return err
		}
		sw.Add(owner, caller)
	}
	e.sweeper = sw

	return nil
}

// resolveStore picks the programmatic store, then Redis, then memory.
func (e *Extension) resolveStore(ctx context.Context) (store.Store, error) {
	if e.store != nil {
		return e.store, nil
	}
	if e.config.RedisURL != "" {
		s, err := redis.Open(ctx, e.config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("subsplit: open redis store: %w", err)
		}
		return s, nil
	}
	return memory.New(), nil
}

// parseSweepOwner parses "owner" or "owner=caller".
func parseSweepOwner(spec string) (owner, caller types.Address, err error) {
	o, c, _ := strings.Cut(spec, "=")
	owner = types.Address(strings.TrimSpace(o))
	caller = types.Address(strings.TrimSpace(c))
	if owner.IsZero() {
		return "", "", fmt.Errorf("subsplit: invalid sweep owner %q", spec)
	}
	return owner, caller, nil
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("subsplit: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	if e.sweeper != nil {
		if err := e.sweeper.Start(context.WithoutCancel(ctx)); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.sweeper != nil {
		e.sweeper.Stop()
	}
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("subsplit: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildLedgerOpts constructs subsplit.Option values from the resolved config.
func (e *Extension) buildLedgerOpts() []subsplit.Option {
	opts := make([]subsplit.Option, 0, len(e.ledgerOpts)+3)

	if e.config.MaxPageSize > 0 {
		opts = append(opts, subsplit.WithMaxPageSize(e.config.MaxPageSize))
	}
	if e.config.MaxBatchSize > 0 {
		opts = append(opts, subsplit.WithMaxBatchSize(e.config.MaxBatchSize))
	}
	if e.config.HookTimeout > 0 {
		opts = append(opts, subsplit.WithHookTimeout(e.config.HookTimeout))
	}

	// Append any pass-through ledger options.
	opts = append(opts, e.ledgerOpts...)

	return opts
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("subsplit: configuration is required but not found in config files; " +
				"ensure 'extensions.subsplit' or 'subsplit' key exists in your config")
		}
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("subsplit: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("max_page_size", e.config.MaxPageSize),
		forge.F("max_batch_size", e.config.MaxBatchSize),
		forge.F("cache_size", e.config.CacheSize),
		forge.F("sweep_owners", len(e.config.SweepOwners)),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.subsplit", "subsplit"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("subsplit: loaded config from file", forge.F("key", key))
			return cfg, true
		}
		e.Logger().Warn("subsplit: failed to bind config", forge.F("key", key))
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.MaxPageSize == 0 {
		cfg.MaxPageSize = defaults.MaxPageSize
	}
	if cfg.MaxBatchSize == 0 {
		cfg.MaxBatchSize = defaults.MaxBatchSize
	}
	if cfg.HookTimeout == 0 {
		cfg.HookTimeout = defaults.HookTimeout
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = defaults.CacheTTL
	}
	if cfg.SweepSchedule == "" {
		cfg.SweepSchedule = defaults.SweepSchedule
	}
	if cfg.SweepBatchSize == 0 {
		cfg.SweepBatchSize = defaults.SweepBatchSize
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.DisableSweeper {
		yamlConfig.DisableSweeper = true
	}

	if yamlConfig.RedisURL == "" {
		yamlConfig.RedisURL = programmaticConfig.RedisURL
	}
	if yamlConfig.SweepSchedule == "" {
		yamlConfig.SweepSchedule = programmaticConfig.SweepSchedule
	}
	if len(yamlConfig.SweepOwners) == 0 {
		yamlConfig.SweepOwners = programmaticConfig.SweepOwners
	}

	if yamlConfig.MaxPageSize == 0 {
		yamlConfig.MaxPageSize = programmaticConfig.MaxPageSize
	}
	if yamlConfig.MaxBatchSize == 0 {
		yamlConfig.MaxBatchSize = programmaticConfig.MaxBatchSize
	}
	if yamlConfig.HookTimeout == 0 {
		yamlConfig.HookTimeout = programmaticConfig.HookTimeout
	}
	if yamlConfig.CacheSize == 0 {
		yamlConfig.CacheSize = programmaticConfig.CacheSize
	}
	if yamlConfig.CacheTTL == 0 {
		yamlConfig.CacheTTL = programmaticConfig.CacheTTL
	}
	if yamlConfig.SweepBatchSize == 0 {
		yamlConfig.SweepBatchSize = programmaticConfig.SweepBatchSize
	}
	if yamlConfig.TombstoneRetention == 0 {
		yamlConfig.TombstoneRetention = programmaticConfig.TombstoneRetention
	}

	return mergeWithDefaults(yamlConfig)
}
