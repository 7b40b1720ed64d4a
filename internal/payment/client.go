package payment

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v83"

	"server/internal/domain"
)

// CheckoutParams describes the checkout session for a tier subscription.
// The metadata fields come back on the checkout-completed webhook and are
// the only link between the provider subscription and our records.
type CheckoutParams struct {
	TierID       string
	TierTitle    string
	Price        int64
	Interval     domain.BillingInterval
	SubscriberID string
	CreatorID    string
	SuccessURL   string
	CancelURL    string
}

// Client wraps the payment provider API.
type Client struct {
	sc *stripe.Client
}

// NewClient creates a provider client from the secret API key.
func NewClient(secretKey string) *Client {
	return &Client{sc: stripe.NewClient(secretKey)}
}

// CreateCheckoutSession opens a hosted checkout for the tier and returns its
// URL. Completion is observed only through the webhook feed, never through
// this call.
func (c *Client) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (string, error) {
	params := &stripe.CheckoutSessionCreateParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency: stripe.String("usd"),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String(p.TierTitle),
					},
					UnitAmount: stripe.Int64(p.Price),
					Recurring: &stripe.CheckoutSessionCreateLineItemPriceDataRecurringParams{
						Interval: stripe.String(providerInterval(p.Interval)),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
	}

	// The webhook reconciler admits the subscriber from this metadata; a
	// session without it can never be reconciled.
	params.SubscriptionData = &stripe.CheckoutSessionCreateSubscriptionDataParams{}
	params.SubscriptionData.AddMetadata("userId", p.SubscriberID)
	params.SubscriptionData.AddMetadata("tierId", p.TierID)
	params.SubscriptionData.AddMetadata("creatorId", p.CreatorID)
	params.AddMetadata("userId", p.SubscriberID)
	params.AddMetadata("tierId", p.TierID)
	params.AddMetadata("creatorId", p.CreatorID)

	session, err := c.sc.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: create checkout session: %v", domain.ErrExternalService, err)
	}
	return session.URL, nil
}

func providerInterval(i domain.BillingInterval) string {
	if i == domain.IntervalYearly {
		return "year"
	}
	return "month"
}
