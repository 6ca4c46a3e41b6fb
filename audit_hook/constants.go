package audithook

// Action constants for audit events.
const (
	// Offering actions
	ActionOfferingCreated  = "offering.created"
	ActionOfferingPaused   = "offering.paused"
	ActionOfferingUnpaused = "offering.unpaused"
	ActionOfferingCanceled = "offering.canceled"

	// Subscription actions
	ActionUserSubscribed          = "subscription.subscribed"
	ActionSubscriptionCanceled    = "subscription.canceled"
	ActionTargetChargeTimeUpdated = "subscription.target_updated"

	// Charge actions
	ActionSubscriptionCharged  = "charge.succeeded"
	ActionBatchChargeCompleted = "charge.batch_completed"
)

// Resource constants for audit events.
const (
	ResourceOffering     = "offering"
	ResourceSubscription = "subscription"
	ResourceCharge       = "charge"
	ResourceBatch        = "batch"
)

// Category constants for audit events.
const (
	CategoryBilling      = "billing"
	CategorySubscription = "subscription"
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
	OutcomePartial = "partial"
)
