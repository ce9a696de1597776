// Package audithook bridges subsplit lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on a
// particular audit store. Callers inject a RecorderFunc adapter at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/subsplit/charge"
	"github.com/xraph/subsplit/id"
	"github.com/xraph/subsplit/plugin"
	"github.com/xraph/subsplit/subscription"
	"github.com/xraph/subsplit/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                  = (*Extension)(nil)
	_ plugin.OnSubscriptionCreated   = (*Extension)(nil)
	_ plugin.OnSubscriptionCancelled = (*Extension)(nil)
	_ plugin.OnSubscriptionRenewed   = (*Extension)(nil)
	_ plugin.OnSubscriptionExpired   = (*Extension)(nil)
	_ plugin.OnDelegateChanged       = (*Extension)(nil)
	_ plugin.OnRevenueCredited       = (*Extension)(nil)
	_ plugin.OnRevenueWithdrawn      = (*Extension)(nil)
	_ plugin.OnPayoutFailed          = (*Extension)(nil)
	_ plugin.OnDueProcessed          = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges subsplit lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCreated implements plugin.OnSubscriptionCreated.
func (e *Extension) OnSubscriptionCreated(ctx context.Context, sub *subscription.Subscription) error {
	return e.record(ctx, ActionSubscriptionCreated, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, sub.ID.String(), CategorySubscription, nil,
		"owner", sub.Owner.String(),
		"subscriber", sub.Subscriber.String(),
		"recipient", sub.Recipient.String(),
		"amount", int64(sub.Amount),
		"split_bps", int64(sub.SplitBps),
		"period_seconds", sub.PeriodSeconds,
	)
}

// OnSubscriptionCancelled implements plugin.OnSubscriptionCancelled.
func (e *Extension) OnSubscriptionCancelled(ctx context.Context, sub *subscription.Subscription) error {
	return e.record(ctx, ActionSubscriptionCancelled, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, sub.ID.String(), CategorySubscription, nil,
		"owner", sub.Owner.String(),
		"cancelled_at", int64(sub.CancelledAt),
	)
}

// OnSubscriptionRenewed implements plugin.OnSubscriptionRenewed.
func (e *Extension) OnSubscriptionRenewed(ctx context.Context, sub *subscription.Subscription, c *charge.Charge) error {
	return e.record(ctx, ActionSubscriptionRenewed, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, sub.ID.String(), CategoryPayment, nil,
		"charge_id", c.ID.String(),
		"amount", int64(c.Amount),
		"recipient_share", int64(c.RecipientShare),
		"owner_share", int64(c.OwnerShare),
		"next_due_at", int64(sub.NextDueAt),
	)
}

// OnSubscriptionExpired implements plugin.OnSubscriptionExpired.
func (e *Extension) OnSubscriptionExpired(ctx context.Context, sub *subscription.Subscription, c *charge.Charge) error {
	return e.record(ctx, ActionSubscriptionExpired, SeverityWarning, OutcomeFailure,
		ResourceSubscription, sub.ID.String(), CategoryPayment, nil,
		"charge_id", c.ID.String(),
		"subscriber", sub.Subscriber.String(),
		"amount", int64(c.Amount),
	)
}

// OnDelegateChanged implements plugin.OnDelegateChanged.
func (e *Extension) OnDelegateChanged(ctx context.Context, owner, delegate types.Address) error {
	return e.record(ctx, ActionDelegateChanged, SeverityInfo, OutcomeSuccess,
		ResourceDelegate, owner.String(), CategoryAccess, nil,
		"delegate", delegate.String(),
		"revoked", delegate.IsZero(),
	)
}

// ──────────────────────────────────────────────────
// Revenue hooks
// ──────────────────────────────────────────────────

// OnRevenueCredited implements plugin.OnRevenueCredited.
func (e *Extension) OnRevenueCredited(ctx context.Context, addr types.Address, amount types.Amount, subID id.SubscriptionID) error {
	return e.record(ctx, ActionRevenueCredited, SeverityInfo, OutcomeSuccess,
		ResourceBalance, addr.String(), CategoryRevenue, nil,
		"amount", int64(amount),
		"subscription_id", subID.String(),
	)
}

// OnRevenueWithdrawn implements plugin.OnRevenueWithdrawn.
func (e *Extension) OnRevenueWithdrawn(ctx context.Context, recipient types.Address, amount types.Amount, payoutID id.PayoutID) error {
	return e.record(ctx, ActionRevenueWithdrawn, SeverityInfo, OutcomeSuccess,
		ResourcePayout, payoutID.String(), CategoryRevenue, nil,
		"recipient", recipient.String(),
		"amount", int64(amount),
	)
}

// OnPayoutFailed implements plugin.OnPayoutFailed.
func (e *Extension) OnPayoutFailed(ctx context.Context, recipient types.Address, amount types.Amount, err error) error {
	return e.record(ctx, ActionPayoutFailed, SeverityCritical, OutcomeFailure,
		ResourceBalance, recipient.String(), CategoryPayment, err,
		"amount", int64(amount),
	)
}

// ──────────────────────────────────────────────────
// Batch hooks
// ──────────────────────────────────────────────────

// OnDueProcessed implements plugin.OnDueProcessed.
func (e *Extension) OnDueProcessed(ctx context.Context, owner types.Address, processed int, elapsed time.Duration) error {
	return e.record(ctx, ActionDueProcessed, SeverityInfo, OutcomeSuccess,
		ResourceBatch, owner.String(), CategorySubscription, nil,
		"processed", processed,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
