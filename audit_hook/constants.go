package audithook

// Action constants for audit events.
const (
	// Subscription actions
	ActionSubscriptionCreated   = "subscription.created"
	ActionSubscriptionCancelled = "subscription.cancelled"
	ActionSubscriptionRenewed   = "subscription.renewed"
	ActionSubscriptionExpired   = "subscription.expired"
	ActionDelegateChanged       = "delegate.changed"

	// Revenue actions
	ActionRevenueCredited  = "revenue.credited"
	ActionRevenueWithdrawn = "revenue.withdrawn"
	ActionPayoutFailed     = "payout.failed"

	// Batch actions
	ActionDueProcessed = "due.processed"
)

// Resource constants for audit events.
const (
	ResourceSubscription = "subscription"
	ResourceDelegate     = "delegate"
	ResourceBalance      = "balance"
	ResourcePayout       = "payout"
	ResourceBatch        = "batch"
)

// Category constants for audit events.
const (
	CategorySubscription = "subscription"
	CategoryAccess       = "access"
	CategoryRevenue      = "revenue"
	CategoryPayment      = "payment"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
