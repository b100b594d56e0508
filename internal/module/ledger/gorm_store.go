package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a Store backed by a relational database.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// Migrate creates the ledger tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&UsageEvent{}, &SubscriptionFact{}); err != nil {
		return fmt.Errorf("migrate ledger tables: %w", err)
	}
	return nil
}

func (s *gormStore) AppendUsageEvent(ctx context.Context, event *UsageEvent) error {
	if event.ModuleID == "" {
		event.ModuleID = DefaultModuleID
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("append usage event: %w: %v", ErrStorage, err)
	}
	return nil
}

func (s *gormStore) UsageEventsInWindow(ctx context.Context, moduleID string, start, end time.Time) ([]*UsageEvent, error) {
	var events []*UsageEvent
	err := s.db.WithContext(ctx).
		Where("module_id = ? AND created_at >= ? AND created_at < ?", moduleID, start, end).
		Order("created_at ASC, id ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("usage events in window: %w: %v", ErrStorage, err)
	}
	return events, nil
}

func (s *gormStore) ListUsageEventsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*UsageEvent, error) {
	var events []*UsageEvent
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("list usage events by user: %w: %v", ErrStorage, err)
	}
	return events, nil
}

func (s *gormStore) UpsertSubscriptionFact(ctx context.Context, fact *SubscriptionFact) (bool, error) {
	fact.UpdatedAt = time.Now().UTC()

	// Single-statement compare-and-swap: the conditional update runs inside
	// the insert's conflict clause, so the ordering check and the write are
	// one atomic operation even under concurrent duplicate deliveries.
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"tier":          fact.Tier,
			"last_event_id": fact.LastEventID,
			"last_event_at": fact.LastEventAt,
			"updated_at":    fact.UpdatedAt,
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Or(
				clause.Lt{Column: clause.Column{Table: "subscription_facts", Name: "last_event_at"}, Value: fact.LastEventAt},
				clause.And(
					clause.Eq{Column: clause.Column{Table: "subscription_facts", Name: "last_event_at"}, Value: fact.LastEventAt},
					clause.Neq{Column: clause.Column{Table: "subscription_facts", Name: "last_event_id"}, Value: fact.LastEventID},
				),
			),
		}},
	}).Create(fact)
	if res.Error != nil {
		return false, fmt.Errorf("upsert subscription fact: %w: %v", ErrStorage, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *gormStore) GetSubscriptionFact(ctx context.Context, userID uuid.UUID) (*SubscriptionFact, error) {
	var fact SubscriptionFact
	err := s.db.WithContext(ctx).First(&fact, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFactNotFound
		}
		return nil, fmt.Errorf("get subscription fact: %w: %v", ErrStorage, err)
	}
	return &fact, nil
}
