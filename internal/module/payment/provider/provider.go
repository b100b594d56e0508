// Package provider integrates external payment providers.
package provider

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType classifies verified payment events by the subscription
// transition they drive.
type EventType string

const (
	// EventCheckoutCompleted moves the referenced user to the premium tier.
	EventCheckoutCompleted EventType = "checkout_completed"
	// EventSubscriptionCanceled moves the referenced user back to the free tier.
	EventSubscriptionCanceled EventType = "subscription_canceled"
	// EventIgnored is any verified event this system does not act on.
	EventIgnored EventType = "ignored"
)

// Event is a payment-provider event whose signature has been verified.
// Reference carries the provider's opaque pointer back to one of our users;
// it is validated, never trusted blindly.
type Event struct {
	ID        string
	Type      EventType
	Reference string
	CreatedAt time.Time
	RawType   string // provider's own event type, for the journal
}

// CheckoutSession is a hosted checkout page for the premium plan.
type CheckoutSession struct {
	ID  string
	URL string
}

// Provider is a payment provider integration.
type Provider interface {
	Name() string

	// CreateCheckoutSession creates a hosted checkout session for the
	// premium plan, carrying userID as the session's reference so the
	// completion webhook can be resolved back to the user.
	CreateCheckoutSession(ctx context.Context, userID uuid.UUID, successURL, cancelURL string) (*CheckoutSession, error)

	// VerifyWebhookEvent checks the provider's signature over the exact
	// received payload bytes and, only after that succeeds, parses the event.
	// The payload must be the unmodified request body: verifying a
	// re-serialized form would not prove what the provider sent.
	VerifyWebhookEvent(payload []byte, signature string) (*Event, error)
}
