// Package plugin provides an extensible plugin system for subsplit.
// Plugins hook into lifecycle events after the triggering operation has
// committed; they observe and cannot veto.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/subsplit/charge"
	"github.com/xraph/subsplit/id"
	"github.com/xraph/subsplit/subscription"
	"github.com/xraph/subsplit/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the ledger starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l any) error
}

// OnShutdown is called when the ledger stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCreated is called when a new subscription is created.
type OnSubscriptionCreated interface {
	Plugin
	OnSubscriptionCreated(ctx context.Context, sub *subscription.Subscription) error
}

// OnSubscriptionCancelled is called when an owner cancels a subscription.
type OnSubscriptionCancelled interface {
	Plugin
	OnSubscriptionCancelled(ctx context.Context, sub *subscription.Subscription) error
}

// OnSubscriptionRenewed is called after a renewal was collected and credited.
type OnSubscriptionRenewed interface {
	Plugin
	OnSubscriptionRenewed(ctx context.Context, sub *subscription.Subscription, c *charge.Charge) error
}

// OnSubscriptionExpired is called when a due renewal could not be funded.
type OnSubscriptionExpired interface {
	Plugin
	OnSubscriptionExpired(ctx context.Context, sub *subscription.Subscription, c *charge.Charge) error
}

// OnDelegateChanged is called when an owner sets or clears its batch delegate.
// delegate is empty when cleared.
type OnDelegateChanged interface {
	Plugin
	OnDelegateChanged(ctx context.Context, owner, delegate types.Address) error
}

// ──────────────────────────────────────────────────
// Revenue hooks
// ──────────────────────────────────────────────────

// OnRevenueCredited is called for every balance credit of a renewal.
type OnRevenueCredited interface {
	Plugin
	OnRevenueCredited(ctx context.Context, addr types.Address, amount types.Amount, subID id.SubscriptionID) error
}

// OnRevenueWithdrawn is called after a withdrawal was paid out.
type OnRevenueWithdrawn interface {
	Plugin
	OnRevenueWithdrawn(ctx context.Context, recipient types.Address, amount types.Amount, payoutID id.PayoutID) error
}

// OnPayoutFailed is called when a payout failed and the balance was kept.
type OnPayoutFailed interface {
	Plugin
	OnPayoutFailed(ctx context.Context, recipient types.Address, amount types.Amount, err error) error
}

// ──────────────────────────────────────────────────
// Batch hooks
// ──────────────────────────────────────────────────

// OnDueProcessed is called after a process-due sweep committed.
type OnDueProcessed interface {
	Plugin
	OnDueProcessed(ctx context.Context, owner types.Address, processed int, elapsed time.Duration) error
}
