// Package billing meters billable AI usage and settles the recorded revenue
// between module developers and the platform.
package billing

import (
	"context"

	"github.com/capecontrol/server/internal/module/ledger"
	"github.com/capecontrol/server/internal/utils/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Recorder appends one usage event per billable action.
//
// Recording is synchronous: the caller learns whether the event was durably
// committed before it returns anything to the user, so a billable action is
// never performed without a record and never dropped without the caller
// knowing.
type Recorder struct {
	store   ledger.Store
	rates   *RateSource
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewRecorder creates a new usage recorder.
func NewRecorder(store ledger.Store, rates *RateSource, m *metrics.Metrics, logger *zap.Logger) *Recorder {
	return &Recorder{
		store:   store,
		rates:   rates,
		metrics: m,
		logger:  logger,
	}
}

// Record computes the revenue for queryCount queries at the current rate and
// appends one usage event. It returns the stored event, including its
// assigned id and timestamp.
func (r *Recorder) Record(ctx context.Context, userID uuid.UUID, moduleID string, queryCount int) (*ledger.UsageEvent, error) {
	if queryCount < 1 {
		return nil, ErrInvalidQueryCount
	}
	if moduleID == "" {
		moduleID = ledger.DefaultModuleID
	}

	event := &ledger.UsageEvent{
		UserID:     userID,
		ModuleID:   moduleID,
		QueryCount: queryCount,
		Revenue:    int64(queryCount) * r.rates.UnitRevenueCents(),
	}

	if err := r.store.AppendUsageEvent(ctx, event); err != nil {
		r.logger.Error("failed to record usage",
			zap.String("user_id", userID.String()),
			zap.String("module_id", moduleID),
			zap.Int("query_count", queryCount),
			zap.Error(err),
		)
		return nil, err
	}

	if r.metrics != nil {
		r.metrics.RecordUsageEvent(moduleID, event.Revenue)
	}

	r.logger.Info("usage recorded",
		zap.Int64("event_id", event.ID),
		zap.String("user_id", userID.String()),
		zap.String("module_id", moduleID),
		zap.Int("query_count", queryCount),
		zap.Int64("revenue_cents", event.Revenue),
	)
	return event, nil
}

// History returns the user's most recent usage events, newest first.
func (r *Recorder) History(ctx context.Context, userID uuid.UUID, limit int) ([]*ledger.UsageEvent, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	return r.store.ListUsageEventsByUser(ctx, userID, limit)
}
