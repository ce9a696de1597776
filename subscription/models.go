package subscription

import (
	"github.com/xraph/subsplit/id"
	"github.com/xraph/subsplit/types"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusExpired
}

type Subscription struct {
	types.Entity
	ID            id.SubscriptionID `json:"id"`
	Owner         types.Address     `json:"owner"`
	Subscriber    types.Address     `json:"subscriber"`
	Amount        types.Amount      `json:"amount"`
	PeriodSeconds int64             `json:"period_seconds"`
	Recipient     types.Address     `json:"recipient"`
	SplitBps      types.BasisPoints `json:"split_bps"`
	NextDueAt     types.Timestamp   `json:"next_due_at"`
	Status        Status            `json:"status"`
	LastPaidAt    types.Timestamp   `json:"last_paid_at,omitempty"`
	CancelledAt   types.Timestamp   `json:"cancelled_at,omitempty"`
	ExpiredAt     types.Timestamp   `json:"expired_at,omitempty"`
	LastChargeID  id.ChargeID       `json:"last_charge_id"`
	Renewals      uint64            `json:"renewals"`
}

// IsActive reports whether the subscription can still be renewed.
func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive
}

// IsDue reports whether an active subscription is eligible for renewal at now.
func (s *Subscription) IsDue(now types.Timestamp) bool {
	return s.IsActive() && s.NextDueAt <= now
}

// CreateInput carries the caller-supplied fields of a new subscription.
type CreateInput struct {
	Owner         types.Address     `json:"owner"`
	Subscriber    types.Address     `json:"subscriber"`
	Amount        types.Amount      `json:"amount"`
	PeriodSeconds int64             `json:"period_seconds"`
	Recipient     types.Address     `json:"recipient"`
	SplitBps      types.BasisPoints `json:"split_bps"`
}

// Sequence is the persisted id allocator.
type Sequence struct {
	Last          id.SubscriptionID `json:"last"`
	InitializedAt types.Timestamp   `json:"initialized_at"`
}

// Delegate authorizes an address to renew and batch-process an owner's
// subscriptions.
type Delegate struct {
	types.Entity
	Owner    types.Address `json:"owner"`
	Delegate types.Address `json:"delegate"`
}
