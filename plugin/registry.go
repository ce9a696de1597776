package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/subsplit/charge"
	"github.com/xraph/subsplit/id"
	"github.com/xraph/subsplit/subscription"
	"github.com/xraph/subsplit/types"
)

// DefaultTimeout bounds a single hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery so dispatch never re-inspects plugins.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit                  []OnInit
	onShutdown              []OnShutdown
	onSubscriptionCreated   []OnSubscriptionCreated
	onSubscriptionCancelled []OnSubscriptionCancelled
	onSubscriptionRenewed   []OnSubscriptionRenewed
	onSubscriptionExpired   []OnSubscriptionExpired
	onDelegateChanged       []OnDelegateChanged
	onRevenueCredited       []OnRevenueCredited
	onRevenueWithdrawn      []OnRevenueWithdrawn
	onPayoutFailed          []OnPayoutFailed
	onDueProcessed          []OnDueProcessed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout. Non-positive values are ignored.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnSubscriptionCreated); ok {
		r.onSubscriptionCreated = append(r.onSubscriptionCreated, v)
	}
	if v, ok := p.(OnSubscriptionCancelled); ok {
		r.onSubscriptionCancelled = append(r.onSubscriptionCancelled, v)
	}
	if v, ok := p.(OnSubscriptionRenewed); ok {
		r.onSubscriptionRenewed = append(r.onSubscriptionRenewed, v)
	}
	if v, ok := p.(OnSubscriptionExpired); ok {
		r.onSubscriptionExpired = append(r.onSubscriptionExpired, v)
	}
	if v, ok := p.(OnDelegateChanged); ok {
		r.onDelegateChanged = append(r.onDelegateChanged, v)
	}
	if v, ok := p.(OnRevenueCredited); ok {
		r.onRevenueCredited = append(r.onRevenueCredited, v)
	}
	if v, ok := p.(OnRevenueWithdrawn); ok {
		r.onRevenueWithdrawn = append(r.onRevenueWithdrawn, v)
	}
	if v, ok := p.(OnPayoutFailed); ok {
		r.onPayoutFailed = append(r.onPayoutFailed, v)
	}
	if v, ok := p.(OnDueProcessed); ok {
		r.onDueProcessed = append(r.onDueProcessed, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

// implementedInterfaces returns the hook names implemented by the plugin.
func implementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnSubscriptionCreated)(nil)).Elem(), "OnSubscriptionCreated")
	checkInterface(reflect.TypeOf((*OnSubscriptionCancelled)(nil)).Elem(), "OnSubscriptionCancelled")
	checkInterface(reflect.TypeOf((*OnSubscriptionRenewed)(nil)).Elem(), "OnSubscriptionRenewed")
	checkInterface(reflect.TypeOf((*OnSubscriptionExpired)(nil)).Elem(), "OnSubscriptionExpired")
	checkInterface(reflect.TypeOf((*OnDelegateChanged)(nil)).Elem(), "OnDelegateChanged")
	checkInterface(reflect.TypeOf((*OnRevenueCredited)(nil)).Elem(), "OnRevenueCredited")
	checkInterface(reflect.TypeOf((*OnRevenueWithdrawn)(nil)).Elem(), "OnRevenueWithdrawn")
	checkInterface(reflect.TypeOf((*OnPayoutFailed)(nil)).Elem(), "OnPayoutFailed")
	checkInterface(reflect.TypeOf((*OnDueProcessed)(nil)).Elem(), "OnDueProcessed")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, l any) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, l)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSubscriptionCreated emits a subscription created event.
func (r *Registry) EmitSubscriptionCreated(ctx context.Context, sub *subscription.Subscription) {
	r.mu.RLock()
	plugins := r.onSubscriptionCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSubscriptionCreated(ctx, sub)
		}); err != nil {
			r.logger.Warn("plugin OnSubscriptionCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSubscriptionCancelled emits a subscription cancelled event.
func (r *Registry) EmitSubscriptionCancelled(ctx context.Context, sub *subscription.Subscription) {
	r.mu.RLock()
	plugins := r.onSubscriptionCancelled
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSubscriptionCancelled(ctx, sub)
		}); err != nil {
			r.logger.Warn("plugin OnSubscriptionCancelled failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSubscriptionRenewed emits a subscription renewed event.
func (r *Registry) EmitSubscriptionRenewed(ctx context.Context, sub *subscription.Subscription, c *charge.Charge) {
	r.mu.RLock()
	plugins := r.onSubscriptionRenewed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSubscriptionRenewed(ctx, sub, c)
		}); err != nil {
			r.logger.Warn("plugin OnSubscriptionRenewed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSubscriptionExpired emits a subscription expired event.
func (r *Registry) EmitSubscriptionExpired(ctx context.Context, sub *subscription.Subscription, c *charge.Charge) {
	r.mu.RLock()
	plugins := r.onSubscriptionExpired
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSubscriptionExpired(ctx, sub, c)
		}); err != nil {
			r.logger.Warn("plugin OnSubscriptionExpired failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitDelegateChanged emits a delegate changed event.
func (r *Registry) EmitDelegateChanged(ctx context.Context, owner, delegate types.Address) {
	r.mu.RLock()
	plugins := r.onDelegateChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnDelegateChanged(ctx, owner, delegate)
		}); err != nil {
			r.logger.Warn("plugin OnDelegateChanged failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRevenueCredited emits a revenue credited event.
func (r *Registry) EmitRevenueCredited(ctx context.Context, addr types.Address, amount types.Amount, subID id.SubscriptionID) {
	r.mu.RLock()
	plugins := r.onRevenueCredited
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRevenueCredited(ctx, addr, amount, subID)
		}); err != nil {
			r.logger.Warn("plugin OnRevenueCredited failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRevenueWithdrawn emits a revenue withdrawn event.
func (r *Registry) EmitRevenueWithdrawn(ctx context.Context, recipient types.Address, amount types.Amount, payoutID id.PayoutID) {
	r.mu.RLock()
	plugins := r.onRevenueWithdrawn
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRevenueWithdrawn(ctx, recipient, amount, payoutID)
		}); err != nil {
			r.logger.Warn("plugin OnRevenueWithdrawn failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPayoutFailed emits a payout failed event.
func (r *Registry) EmitPayoutFailed(ctx context.Context, recipient types.Address, amount types.Amount, payoutErr error) {
	r.mu.RLock()
	plugins := r.onPayoutFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPayoutFailed(ctx, recipient, amount, payoutErr)
		}); err != nil {
			r.logger.Warn("plugin OnPayoutFailed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitDueProcessed emits a due processed event.
func (r *Registry) EmitDueProcessed(ctx context.Context, owner types.Address, processed int, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onDueProcessed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnDueProcessed(ctx, owner, processed, elapsed)
		}); err != nil {
			r.logger.Warn("plugin OnDueProcessed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins must never hold up the ledger.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
