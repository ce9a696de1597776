package subsplit

import (
	"github.com/xraph/subsplit/charge"
	"github.com/xraph/subsplit/subscription"
	"github.com/xraph/subsplit/types"
)

// Re-export common types for convenience so users don't have to import the
// types and record packages for everyday calls.

// Amount is re-exported from types package.
type Amount = types.Amount

// BasisPoints is re-exported from types package.
type BasisPoints = types.BasisPoints

// Address is re-exported from types package.
type Address = types.Address

// Timestamp is re-exported from types package.
type Timestamp = types.Timestamp

// Subscription is re-exported from subscription package.
type Subscription = subscription.Subscription

// CreateInput is re-exported from subscription package.
type CreateInput = subscription.CreateInput

// Status is re-exported from subscription package.
type Status = subscription.Status

// Charge is re-exported from charge package.
type Charge = charge.Charge

// Re-export status values.
const (
	StatusActive    = subscription.StatusActive
	StatusCancelled = subscription.StatusCancelled
	StatusExpired   = subscription.StatusExpired
)

// Re-export arithmetic helpers.
var (
	Split          = types.Split
	PeriodFromDays = types.PeriodFromDays
	FromTime       = types.FromTime
)
