// Package payment defines the collaborator that moves value outside the ledger.
//
// The ledger only records accruals. Collecting a renewal from a subscriber
// and paying out a withdrawal are delegated to a Provider, and the ledger
// never assumes either succeeds.
package payment

import (
	"context"

	"github.com/xraph/subsplit/id"
	"github.com/xraph/subsplit/types"
)

// CollectStatus is the business outcome of a collection.
type CollectStatus string

const (
	// StatusCollected means the amount was taken from the payer.
	StatusCollected CollectStatus = "collected"
	// StatusInsufficientFunds means the payer could not fund the renewal.
	StatusInsufficientFunds CollectStatus = "insufficient_funds"
)

// CollectRequest asks the provider to take one period's amount from the payer.
// Reference is unique per attempt and may be used for idempotency.
type CollectRequest struct {
	Reference      id.ChargeID
	SubscriptionID id.SubscriptionID
	Payer          types.Address
	Amount         types.Amount
	DueAt          types.Timestamp
}

// CollectResult reports the outcome of a collection that reached the provider.
type CollectResult struct {
	Status      CollectStatus
	ProviderRef string
}

// PayoutRequest asks the provider to transfer a withdrawn balance.
type PayoutRequest struct {
	Reference id.PayoutID
	Recipient types.Address
	Amount    types.Amount
}

// Provider moves value in and out of the ledger.
//
// Collect returns a non-nil error only when the outcome is unknown or the
// provider failed; a declined payer is a successful call with
// StatusInsufficientFunds. Payout returns an error when the transfer did not
// happen.
type Provider interface {
	Collect(ctx context.Context, req CollectRequest) (CollectResult, error)
	Payout(ctx context.Context, req PayoutRequest) error
}

// AccountingOnly is a Provider for deployments where value moves elsewhere
// and the ledger is pure bookkeeping. Every collection and payout succeeds.
type AccountingOnly struct{}

var _ Provider = AccountingOnly{}

// Collect always reports the amount as collected.
func (AccountingOnly) Collect(_ context.Context, req CollectRequest) (CollectResult, error) {
	return CollectResult{Status: StatusCollected, ProviderRef: req.Reference.String()}, nil
}

// Payout always succeeds.
func (AccountingOnly) Payout(context.Context, PayoutRequest) error { return nil }
