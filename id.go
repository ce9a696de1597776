package subsplit

import "github.com/xraph/subsplit/id"

// SubscriptionID is the sequential identifier of a subscription.
type SubscriptionID = id.SubscriptionID

// ID is the TypeID-based identifier used for charges and payouts.
type ID = id.ID
