package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeProvider implements the Provider interface for Stripe.
type StripeProvider struct {
	webhookSecret     string
	premiumPriceCents int64
}

// StripeConfig holds Stripe configuration.
type StripeConfig struct {
	APIKey            string
	WebhookSecret     string
	PremiumPriceCents int64
}

// NewStripeProvider creates a new Stripe provider.
func NewStripeProvider(config *StripeConfig) *StripeProvider {
	stripe.Key = config.APIKey
	return &StripeProvider{
		webhookSecret:     config.WebhookSecret,
		premiumPriceCents: config.PremiumPriceCents,
	}
}

// Name returns the provider name.
func (p *StripeProvider) Name() string {
	return "stripe"
}

// CreateCheckoutSession creates a Stripe Checkout session for the premium
// subscription. The user id rides along both as client_reference_id (read
// back from checkout.session.completed) and as subscription metadata (read
// back from customer.subscription.deleted).
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, userID uuid.UUID, successURL, cancelURL string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String("usd"),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String("CapeControl Premium"),
					Description: stripe.String("Monthly subscription to CapeControl premium features"),
				},
				UnitAmount: stripe.Int64(p.premiumPriceCents),
				Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
					Interval: stripe.String("month"),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		SuccessURL:        stripe.String(successURL),
		CancelURL:         stripe.String(cancelURL),
		ClientReferenceID: stripe.String(userID.String()),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"user_id": userID.String()},
		},
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// VerifyWebhookEvent verifies the Stripe-Signature header over the raw
// payload bytes and maps the event to a subscription transition.
func (p *StripeProvider) VerifyWebhookEvent(payload []byte, signature string) (*Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, p.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("verify webhook signature: %w", err)
	}

	out := &Event{
		ID:        event.ID,
		Type:      EventIgnored,
		CreatedAt: time.Unix(event.Created, 0).UTC(),
		RawType:   string(event.Type),
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("parse checkout session: %w", err)
		}
		out.Type = EventCheckoutCompleted
		out.Reference = sess.ClientReferenceID
	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("parse subscription: %w", err)
		}
		out.Type = EventSubscriptionCanceled
		out.Reference = sub.Metadata["user_id"]
	}

	return out, nil
}
