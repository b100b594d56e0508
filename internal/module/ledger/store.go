// Package ledger owns the durable facts billing is computed from: the
// append-only usage event log and the per-user subscription facts. All other
// packages read and write these only through the Store interface; nothing
// else touches the underlying tables.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the durable record of usage events and subscription facts.
//
// Implementations must make every write atomic: a partially persisted usage
// event is never observable, and UpsertSubscriptionFact performs its ordering
// check and write as a single compare-and-swap so concurrent duplicate
// deliveries for the same user cannot both apply.
type Store interface {
	// AppendUsageEvent durably appends one usage event. The event's ID and
	// CreatedAt are assigned during the append when unset.
	AppendUsageEvent(ctx context.Context, event *UsageEvent) error

	// UsageEventsInWindow returns the events for moduleID with CreatedAt in
	// the half-open interval [start, end). The result is a snapshot taken at
	// call time; appends racing with the read either appear fully or not at
	// all.
	UsageEventsInWindow(ctx context.Context, moduleID string, start, end time.Time) ([]*UsageEvent, error)

	// ListUsageEventsByUser returns the user's most recent events, newest
	// first, capped at limit.
	ListUsageEventsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*UsageEvent, error)

	// UpsertSubscriptionFact creates or updates the fact for fact.UserID,
	// guarded by payment-event ordering: the write applies only when the
	// incoming event is newer than the recorded one (LastEventAt, with
	// LastEventID detecting exact replays at equal timestamps). Returns
	// whether the row changed; a stale or replayed event is a successful
	// no-op.
	UpsertSubscriptionFact(ctx context.Context, fact *SubscriptionFact) (bool, error)

	// GetSubscriptionFact returns the fact for userID, or ErrFactNotFound.
	GetSubscriptionFact(ctx context.Context, userID uuid.UUID) (*SubscriptionFact, error)
}
