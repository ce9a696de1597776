// Package observability provides a metrics extension for subsplit that
// records lifecycle event counts through a MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/subsplit/charge"
	"github.com/xraph/subsplit/id"
	"github.com/xraph/subsplit/plugin"
	"github.com/xraph/subsplit/subscription"
	"github.com/xraph/subsplit/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                  = (*MetricsExtension)(nil)
	_ plugin.OnInit                  = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionCreated   = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionCancelled = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionRenewed   = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionExpired   = (*MetricsExtension)(nil)
	_ plugin.OnDelegateChanged       = (*MetricsExtension)(nil)
	_ plugin.OnRevenueCredited       = (*MetricsExtension)(nil)
	_ plugin.OnRevenueWithdrawn      = (*MetricsExtension)(nil)
	_ plugin.OnPayoutFailed          = (*MetricsExtension)(nil)
	_ plugin.OnDueProcessed          = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a subsplit plugin to track billing metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Subscription metrics
	SubscriptionCreated   Counter
	SubscriptionCancelled Counter
	SubscriptionRenewed   Counter
	SubscriptionExpired   Counter
	DelegateChanged       Counter

	// Revenue metrics
	ChargeAmount     Histogram
	RevenueCredited  Counter
	RevenueWithdrawn Counter
	WithdrawalAmount Histogram
	PayoutFailures   Counter

	// Batch metrics
	DueProcessed    Counter
	DueBatchSize    Histogram
	DueBatchLatency Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Subscription metrics
		SubscriptionCreated:   factory.Counter("subsplit.subscription.created"),
		SubscriptionCancelled: factory.Counter("subsplit.subscription.cancelled"),
		SubscriptionRenewed:   factory.Counter("subsplit.subscription.renewed"),
		SubscriptionExpired:   factory.Counter("subsplit.subscription.expired"),
		DelegateChanged:       factory.Counter("subsplit.delegate.changed"),

		// Revenue metrics
		ChargeAmount:     factory.Histogram("subsplit.charge.amount"),
		RevenueCredited:  factory.Counter("subsplit.revenue.credited"),
		RevenueWithdrawn: factory.Counter("subsplit.revenue.withdrawn"),
		WithdrawalAmount: factory.Histogram("subsplit.revenue.withdrawal_amount"),
		PayoutFailures:   factory.Counter("subsplit.payout.failures"),

		// Batch metrics
		DueProcessed:    factory.Counter("subsplit.due.processed"),
		DueBatchSize:    factory.Histogram("subsplit.due.batch.size"),
		DueBatchLatency: factory.Histogram("subsplit.due.batch.latency_ms"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCreated implements plugin.OnSubscriptionCreated.
func (m *MetricsExtension) OnSubscriptionCreated(_ context.Context, _ *subscription.Subscription) error {
	m.SubscriptionCreated.Inc()
	return nil
}

// OnSubscriptionCancelled implements plugin.OnSubscriptionCancelled.
func (m *MetricsExtension) OnSubscriptionCancelled(_ context.Context, _ *subscription.Subscription) error {
	m.SubscriptionCancelled.Inc()
	return nil
}

// OnSubscriptionRenewed implements plugin.OnSubscriptionRenewed.
func (m *MetricsExtension) OnSubscriptionRenewed(_ context.Context, _ *subscription.Subscription, c *charge.Charge) error {
	m.SubscriptionRenewed.Inc()
	m.ChargeAmount.Observe(float64(c.Amount))
	return nil
}

// OnSubscriptionExpired implements plugin.OnSubscriptionExpired.
func (m *MetricsExtension) OnSubscriptionExpired(_ context.Context, _ *subscription.Subscription, _ *charge.Charge) error {
	m.SubscriptionExpired.Inc()
	return nil
}

// OnDelegateChanged implements plugin.OnDelegateChanged.
func (m *MetricsExtension) OnDelegateChanged(_ context.Context, _, _ types.Address) error {
	m.DelegateChanged.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Revenue hooks
// ──────────────────────────────────────────────────

// OnRevenueCredited implements plugin.OnRevenueCredited.
func (m *MetricsExtension) OnRevenueCredited(_ context.Context, _ types.Address, amount types.Amount, _ id.SubscriptionID) error {
	m.RevenueCredited.Add(float64(amount))
	return nil
}

// OnRevenueWithdrawn implements plugin.OnRevenueWithdrawn.
func (m *MetricsExtension) OnRevenueWithdrawn(_ context.Context, _ types.Address, amount types.Amount, _ id.PayoutID) error {
	m.RevenueWithdrawn.Add(float64(amount))
	m.WithdrawalAmount.Observe(float64(amount))
	return nil
}

// OnPayoutFailed implements plugin.OnPayoutFailed.
func (m *MetricsExtension) OnPayoutFailed(_ context.Context, _ types.Address, _ types.Amount, _ error) error {
	m.PayoutFailures.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Batch hooks
// ──────────────────────────────────────────────────

// OnDueProcessed implements plugin.OnDueProcessed.
func (m *MetricsExtension) OnDueProcessed(_ context.Context, _ types.Address, processed int, elapsed time.Duration) error {
	m.DueProcessed.Add(float64(processed))
	m.DueBatchSize.Observe(float64(processed))
	m.DueBatchLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}
