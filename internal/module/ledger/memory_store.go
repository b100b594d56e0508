package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryStore is an in-memory Store used by tests and dependency-free
// development runs. It honors the same atomicity contract as the database
// store: the mutex makes each append and each fact upsert a single indivisible
// operation.
type memoryStore struct {
	mu     sync.RWMutex
	nextID int64
	events []*UsageEvent
	facts  map[uuid.UUID]*SubscriptionFact
}

// NewMemoryStore creates an in-memory Store.
func NewMemoryStore() Store {
	return &memoryStore{
		nextID: 1,
		facts:  make(map[uuid.UUID]*SubscriptionFact),
	}
}

func (s *memoryStore) AppendUsageEvent(ctx context.Context, event *UsageEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.ModuleID == "" {
		event.ModuleID = DefaultModuleID
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	event.ID = s.nextID
	s.nextID++

	stored := *event
	s.events = append(s.events, &stored)
	return nil
}

func (s *memoryStore) UsageEventsInWindow(ctx context.Context, moduleID string, start, end time.Time) ([]*UsageEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*UsageEvent
	for _, e := range s.events {
		if e.ModuleID != moduleID {
			continue
		}
		// Half-open window: an event at exactly end belongs to the next one.
		if e.CreatedAt.Before(start) || !e.CreatedAt.Before(end) {
			continue
		}
		copied := *e
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *memoryStore) ListUsageEventsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*UsageEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*UsageEvent
	for _, e := range s.events {
		if e.UserID != userID {
			continue
		}
		copied := *e
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryStore) UpsertSubscriptionFact(ctx context.Context, fact *SubscriptionFact) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.facts[fact.UserID]
	if ok && !newerThan(fact, existing) {
		return false, nil
	}

	stored := *fact
	stored.UpdatedAt = time.Now().UTC()
	s.facts[fact.UserID] = &stored
	return true, nil
}

// newerThan reports whether in supersedes existing: a strictly later event
// time wins, and at equal times a distinct event id is treated as a new event
// while the same id is a replay.
func newerThan(in, existing *SubscriptionFact) bool {
	if in.LastEventAt.After(existing.LastEventAt) {
		return true
	}
	return in.LastEventAt.Equal(existing.LastEventAt) && in.LastEventID != existing.LastEventID
}

func (s *memoryStore) GetSubscriptionFact(ctx context.Context, userID uuid.UUID) (*SubscriptionFact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fact, ok := s.facts[userID]
	if !ok {
		return nil, ErrFactNotFound
	}
	copied := *fact
	return &copied, nil
}
