package payment

import (
	"time"

	"github.com/google/uuid"
)

// WebhookEvent is a journaled payment-provider webhook delivery. Every
// verified event is stored here regardless of verdict, so replayed and
// rejected deliveries stay auditable; the subscription facts themselves live
// in the ledger.
type WebhookEvent struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	EventID     string    `gorm:"uniqueIndex;not null"`
	Type        string    `gorm:"not null"`
	Payload     string    `gorm:"type:jsonb"`
	Processed   bool      `gorm:"default:false"`
	ProcessedAt *time.Time
	Error       *string
	CreatedAt   time.Time
}

// TableName returns the database table name.
func (WebhookEvent) TableName() string {
	return "stripe_webhook_events"
}
