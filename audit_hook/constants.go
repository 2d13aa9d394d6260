package audithook

// Action constants for audit events.
const (
	// Generation actions
	ActionChargeCreated    = "charge.created"
	ActionPeriodGenerated  = "period.generated"
	ActionGenerationFailed = "generation.failed"

	// Payment actions
	ActionPaymentRecorded = "payment.recorded"
	ActionChargePaid      = "charge.paid"

	// Closing actions
	ActionSurchargeApplied = "surcharge.applied"
	ActionPeriodClosed     = "period.closed"

	// Concurrency actions
	ActionWriteConflict = "write.conflict"
)

// Resource constants for audit events.
const (
	ResourceCharge  = "charge"
	ResourcePeriod  = "period"
	ResourcePayment = "payment"
)

// Category constants for audit events.
const (
	CategoryBilling    = "billing"
	CategoryPayment    = "payment"
	CategoryCollection = "collection"
	CategorySystem     = "system"
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
