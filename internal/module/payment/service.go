package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capecontrol/server/internal/module/ledger"
	"github.com/capecontrol/server/internal/module/payment/provider"
	"github.com/capecontrol/server/internal/utils/metrics"
)

// UserResolver reports whether a user id belongs to a registered account.
type UserResolver interface {
	Exists(ctx context.Context, userID uuid.UUID) (bool, error)
}

// ApplyResult is the outcome of reconciling one webhook delivery.
type ApplyResult struct {
	EventID string
	// Applied is true when the event changed the stored subscription fact,
	// false for replays and stale deliveries.
	Applied bool
	// Ignored is true for verified events this system does not act on.
	Ignored bool
	Tier    ledger.Tier
}

// Service reconciles payment provider state into subscription facts.
type Service struct {
	ledger   ledger.Store
	users    UserResolver
	repo     Repository
	provider provider.Provider
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewService creates a new payment service.
func NewService(store ledger.Store, users UserResolver, repo Repository, prov provider.Provider, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{
		ledger:   store,
		users:    users,
		repo:     repo,
		provider: prov,
		metrics:  m,
		logger:   logger,
	}
}

// CreateCheckoutSession creates a hosted checkout session for the premium plan.
func (s *Service) CreateCheckoutSession(ctx context.Context, userID uuid.UUID, successURL, cancelURL string) (*provider.CheckoutSession, error) {
	sess, err := s.provider.CreateCheckoutSession(ctx, userID, successURL, cancelURL)
	if err != nil {
		return nil, err
	}

	s.logger.Info("checkout session created",
		zap.String("user_id", userID.String()),
		zap.String("session_id", sess.ID),
		zap.String("provider", s.provider.Name()))
	return sess, nil
}

// GetSubscriptionTier returns the user's current tier, free when no fact has
// been recorded yet.
func (s *Service) GetSubscriptionTier(ctx context.Context, userID uuid.UUID) (ledger.Tier, error) {
	fact, err := s.ledger.GetSubscriptionFact(ctx, userID)
	if err != nil {
		if errors.Is(err, ledger.ErrFactNotFound) {
			return ledger.TierFree, nil
		}
		return "", err
	}
	return fact.Tier, nil
}

// ApplyPaymentEvent verifies a raw webhook delivery and reconciles it into
// the subscription ledger. Replays and out-of-order deliveries are absorbed
// without changing state; both report success to the caller so the provider
// stops retrying.
func (s *Service) ApplyPaymentEvent(ctx context.Context, payload []byte, signature string) (*ApplyResult, error) {
	event, err := s.provider.VerifyWebhookEvent(payload, signature)
	if err != nil {
		s.recordVerdict("rejected")
		s.logger.Warn("webhook signature rejected", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	// Journal the delivery before acting on it so rejected and replayed
	// events stay auditable.
	journalErr := s.repo.CreateWebhookEvent(ctx, &WebhookEvent{
		EventID: event.ID,
		Type:    event.RawType,
		Payload: string(payload),
	})
	if journalErr != nil {
		s.logger.Error("failed to journal webhook event",
			zap.String("event_id", event.ID),
			zap.Error(journalErr))
	}

	result, err := s.applyEvent(ctx, event)
	if markErr := s.repo.MarkWebhookEventProcessed(ctx, event.ID, err); markErr != nil {
		s.logger.Error("failed to mark webhook event processed",
			zap.String("event_id", event.ID),
			zap.Error(markErr))
	}
	return result, err
}

func (s *Service) applyEvent(ctx context.Context, event *provider.Event) (*ApplyResult, error) {
	result := &ApplyResult{EventID: event.ID}

	var tier ledger.Tier
	switch event.Type {
	case provider.EventCheckoutCompleted:
		tier = ledger.TierPremium
	case provider.EventSubscriptionCanceled:
		tier = ledger.TierFree
	default:
		s.recordVerdict("ignored")
		s.logger.Debug("ignoring webhook event",
			zap.String("event_id", event.ID),
			zap.String("type", event.RawType))
		result.Ignored = true
		return result, nil
	}

	userID, err := uuid.Parse(event.Reference)
	if err != nil {
		s.recordVerdict("rejected")
		return nil, fmt.Errorf("%w: bad reference %q", ErrUnknownUser, event.Reference)
	}
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		s.recordVerdict("failed")
		return nil, fmt.Errorf("resolve user %s: %w", userID, err)
	}
	if !exists {
		s.recordVerdict("rejected")
		return nil, fmt.Errorf("%w: %s", ErrUnknownUser, userID)
	}

	changed, err := s.ledger.UpsertSubscriptionFact(ctx, &ledger.SubscriptionFact{
		UserID:      userID,
		Tier:        tier,
		LastEventID: event.ID,
		LastEventAt: event.CreatedAt,
	})
	if err != nil {
		s.recordVerdict("failed")
		return nil, err
	}

	result.Applied = changed
	result.Tier = tier
	if changed {
		s.recordVerdict("applied")
		s.logger.Info("subscription updated",
			zap.String("user_id", userID.String()),
			zap.String("tier", string(tier)),
			zap.String("event_id", event.ID))
	} else {
		s.recordVerdict("duplicate")
		s.logger.Info("webhook event already applied",
			zap.String("user_id", userID.String()),
			zap.String("event_id", event.ID))
	}
	return result, nil
}

func (s *Service) recordVerdict(verdict string) {
	if s.metrics != nil {
		s.metrics.RecordWebhookEvent(verdict)
	}
}
