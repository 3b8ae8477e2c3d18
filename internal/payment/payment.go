// Package payment wraps the external payment processor. Checkout talks to
// the Provider interface so the orchestrator can be exercised without
// network access; the Stripe implementation lives in stripe.go.
package payment

import "context"

type LineItem struct {
	Name        string
	Description string
	ImageURL    string
	// UnitAmount is the VAT-inclusive unit price in cents.
	UnitAmount int64
	Quantity   int64
}

type SessionParams struct {
	LineItems         []LineItem
	SuccessURL        string
	CancelURL         string
	CustomerEmail     string
	ClientReferenceID string
	// Metadata round-trips through the processor and is the only way the
	// webhook can correlate a payment event back to an order.
	Metadata map[string]string
}

type Session struct {
	ID  string
	URL string
}

type Provider interface {
	CreateSession(ctx context.Context, params SessionParams) (*Session, error)
}
