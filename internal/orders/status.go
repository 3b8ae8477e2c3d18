package orders

// Order fulfillment status. Terminal: delivered, cancelled.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

// Payment status. Terminal: failed, refunded.
const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentFailed   = "failed"
	PaymentRefunded = "refunded"
)

// statusPredecessors maps a target fulfillment status to the statuses an
// order may currently be in for the transition to apply.
var statusPredecessors = map[string][]string{
	StatusProcessing: {StatusPending},
	StatusShipped:    {StatusProcessing},
	StatusDelivered:  {StatusShipped},
	StatusCancelled:  {StatusPending, StatusProcessing, StatusShipped},
}
