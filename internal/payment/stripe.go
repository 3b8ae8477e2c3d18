package payment

import (
	"context"
	"fmt"
	"net/http"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

const defaultTimeout = 20 * time.Second

type StripeClient struct {
	api *client.API
}

// NewStripeClient builds a Stripe client whose HTTP calls are bounded by
// timeout, so a stalled processor surfaces as a retryable checkout failure
// instead of hanging the request.
func NewStripeClient(secretKey string, timeout time.Duration) *StripeClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	api := &client.API{}
	api.Init(secretKey, stripe.NewBackends(&http.Client{Timeout: timeout}))
	return &StripeClient{api: api}
}

func (s *StripeClient) CreateSession(ctx context.Context, p SessionParams) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Params:              stripe.Params{Context: ctx},
		Mode:                stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes:  stripe.StringSlice([]string{"card"}),
		SuccessURL:          stripe.String(p.SuccessURL),
		CancelURL:           stripe.String(p.CancelURL),
		CustomerEmail:       stripe.String(p.CustomerEmail),
		ClientReferenceID:   stripe.String(p.ClientReferenceID),
		AllowPromotionCodes: stripe.Bool(true),
	}

	for _, li := range p.LineItems {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(li.Name),
		}
		if li.Description != "" {
			productData.Description = stripe.String(li.Description)
		}
		if li.ImageURL != "" {
			productData.Images = stripe.StringSlice([]string{li.ImageURL})
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(string(stripe.CurrencyEUR)),
				ProductData: productData,
				UnitAmount:  stripe.Int64(li.UnitAmount),
			},
			Quantity: stripe.Int64(li.Quantity),
		})
	}

	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	// Mirror the metadata onto the payment intent so failure events, which
	// reference the intent rather than the session, stay correlatable.
	if len(p.Metadata) > 0 {
		params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: p.Metadata,
		}
	}

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	return &Session{ID: sess.ID, URL: sess.URL}, nil
}
