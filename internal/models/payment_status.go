package models

// Payment lifecycle of a ticket or donation. A ticket starts pending,
// moves to paid or failed through webhook reconciliation, and may end up
// refunded through the refund flow.
const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentFailed   = "failed"
	PaymentRefunded = "refunded"
)

// Refund request statuses. ProcessedAt is set together with any
// transition away from pending.
const (
	RefundPending   = "pending"
	RefundApproved  = "approved"
	RefundRejected  = "rejected"
	RefundProcessed = "processed"
)
