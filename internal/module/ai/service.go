// Package ai exposes the gated AI query feature.
package ai

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capecontrol/server/internal/module/billing"
	"github.com/capecontrol/server/internal/module/billing/quota"
	"github.com/capecontrol/server/internal/module/ledger"
)

// QueryResult is the outcome of one billed AI query.
type QueryResult struct {
	Answer       string      `json:"answer"`
	Tier         ledger.Tier `json:"tier"`
	EventID      int64       `json:"event_id"`
	RevenueCents int64       `json:"revenue_cents"`
}

// Service runs AI queries behind the access gate and meters each one.
type Service struct {
	provider QueryProvider
	gate     *quota.Gate
	recorder *billing.Recorder
	logger   *zap.Logger
}

// NewService creates a new AI service.
func NewService(provider QueryProvider, gate *quota.Gate, recorder *billing.Recorder, logger *zap.Logger) *Service {
	return &Service{
		provider: provider,
		gate:     gate,
		recorder: recorder,
		logger:   logger,
	}
}

// Query authorizes, runs, and meters one AI query. The usage record is
// committed before the answer is returned; if recording fails the whole
// query fails, so no billable answer leaves the system unmetered.
func (s *Service) Query(ctx context.Context, userID uuid.UUID, prompt string) (*QueryResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	if err := s.gate.Allow(ctx, userID); err != nil {
		return nil, err
	}

	answer, err := s.provider.Query(ctx, prompt)
	if err != nil {
		s.logger.Warn("ai query failed",
			zap.String("user_id", userID.String()),
			zap.String("provider", s.provider.Name()),
			zap.Error(err))
		return nil, err
	}

	event, err := s.recorder.Record(ctx, userID, ledger.DefaultModuleID, 1)
	if err != nil {
		return nil, err
	}

	return &QueryResult{
		Answer:       answer,
		Tier:         s.gate.Tier(ctx, userID),
		EventID:      event.ID,
		RevenueCents: event.Revenue,
	}, nil
}

// History returns the caller's most recent metered queries, newest first.
func (s *Service) History(ctx context.Context, userID uuid.UUID, limit int) ([]*ledger.UsageEvent, error) {
	return s.recorder.History(ctx, userID, limit)
}
