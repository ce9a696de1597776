package charge

import (
	"github.com/xraph/subsplit/id"
	"github.com/xraph/subsplit/types"
)

type Outcome string

const (
	OutcomeCollected Outcome = "collected"
	OutcomeDeclined  Outcome = "declined"
)

// Charge is the receipt of one renewal attempt. It is written in the same
// commit as the transition it caused.
type Charge struct {
	types.Entity
	ID             id.ChargeID       `json:"id"`
	SubscriptionID id.SubscriptionID `json:"subscription_id"`
	Payer          types.Address     `json:"payer"`
	Recipient      types.Address     `json:"recipient"`
	Owner          types.Address     `json:"owner"`
	Amount         types.Amount      `json:"amount"`
	RecipientShare types.Amount      `json:"recipient_share"`
	OwnerShare     types.Amount      `json:"owner_share"`
	Outcome        Outcome           `json:"outcome"`
	DueAt          types.Timestamp   `json:"due_at"`
	ProviderRef    string            `json:"provider_ref,omitempty"`
}
