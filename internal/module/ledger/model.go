package ledger

import (
	"time"

	"github.com/google/uuid"
)

// DefaultModuleID is the billable unit used when a query names no module.
const DefaultModuleID = "default"

// UsageEvent is an immutable record of one billable action and its computed
// revenue. Rows are write-once: never updated or deleted by normal operation,
// so the table is the audit trail settlement runs against. Revenue is
// persisted at append time; later rate changes never alter history.
type UsageEvent struct {
	ID         int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID     uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	ModuleID   string    `json:"module_id" gorm:"not null;index:idx_usage_module_created"`
	QueryCount int       `json:"query_count" gorm:"not null"`
	Revenue    int64     `json:"revenue" gorm:"not null"` // In cents
	CreatedAt  time.Time `json:"created_at" gorm:"not null;index:idx_usage_module_created"`
}

// TableName returns the database table name.
func (UsageEvent) TableName() string {
	return "usage_events"
}

// Tier represents a user's subscription tier.
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// SubscriptionFact is the current subscription tier for a user, derived only
// from verified payment events. LastEventID and LastEventAt identify the
// payment event that produced this state and guard replayed or out-of-order
// deliveries.
type SubscriptionFact struct {
	UserID      uuid.UUID `json:"user_id" gorm:"type:uuid;primaryKey"`
	Tier        Tier      `json:"tier" gorm:"not null;default:free"`
	LastEventID string    `json:"last_event_id" gorm:"not null"`
	LastEventAt time.Time `json:"last_event_at" gorm:"not null"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (SubscriptionFact) TableName() string {
	return "subscription_facts"
}
