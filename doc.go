// Package subsplit provides a subscription billing engine with revenue
// splits for Go applications.
//
// subsplit is designed as a library, not a service. Import it directly into
// your Go application and back it with any store.Store implementation. It
// provides:
//
//   - Recurring subscriptions with a fixed amount and period
//   - Revenue splits between a recipient and the owner in basis points
//   - Overflow-checked integer arithmetic on every amount and timestamp
//   - Batch processing of due subscriptions by an owner or its delegate
//   - Pull-based withdrawals through a pluggable payment.Provider
//   - Plugin hooks for audit trails and metrics
//
// # Quick Start
//
// Create a ledger instance with your preferred store:
//
//	import (
//	    "github.com/xraph/subsplit"
//	    "github.com/xraph/subsplit/store/memory"
//	)
//
//	l := subsplit.New(memory.New())
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
// # Core Concepts
//
// An owner creates a subscription for a subscriber. The first renewal is due
// one period after creation:
//
//	sub, err := l.CreateSubscription(ctx, subsplit.CallerOf("acme"), subsplit.CreateInput{
//	    Owner:         "acme",
//	    Subscriber:    "alice",
//	    Amount:        1_000_000,
//	    PeriodSeconds: 30 * 24 * 3600,
//	    Recipient:     "creator",
//	    SplitBps:      1500,
//	}, now)
//
// Renewing collects the amount from the subscriber and credits
// floor(amount*split/10000) to the recipient and the rest to the owner:
//
//	res, err := l.RenewSubscription(ctx, subsplit.CallerOf("alice"), sub.ID, now)
//
// Credited revenue accumulates until the recipient withdraws it:
//
//	amount, err := l.WithdrawRevenue(ctx, subsplit.CallerOf("creator"), "creator")
//
// # Atomicity
//
// Every mutating operation stages its writes and commits them once. A
// failed validation, an arithmetic overflow, or a payment error leaves the
// store exactly as it was.
//
// # Amounts
//
// Amounts are signed 64-bit integers in the smallest currency unit. All
// additions, subtractions, and multiplications are checked; an overflow
// returns ErrOverflow instead of wrapping.
package subsplit
