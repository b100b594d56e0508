// Package quota is the access gate in front of query processing: it resolves
// the caller's tier and optionally rate-limits free-tier usage.
package quota

import (
	"context"
	"errors"

	"github.com/capecontrol/server/internal/module/ledger"
	"github.com/capecontrol/server/internal/utils/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrQuotaExceeded indicates the free-tier daily quota is used up.
var ErrQuotaExceeded = errors.New("free tier daily quota exceeded")

// Counter counts a user's queries within the current day and returns the
// running total including this call.
type Counter interface {
	Increment(ctx context.Context, userID uuid.UUID) (int, error)
}

// Gate authorizes a caller before a query is processed. Premium users always
// pass; free users pass until the configured daily quota is reached. A zero
// (or negative) quota means unlimited free usage, and a nil Counter disables
// counting entirely, so the gate is a policy hook that costs nothing when not
// configured.
type Gate struct {
	store   ledger.Store
	counter Counter
	limit   int
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewGate creates a new access gate.
func NewGate(store ledger.Store, counter Counter, freeDailyQuota int, m *metrics.Metrics, logger *zap.Logger) *Gate {
	return &Gate{
		store:   store,
		counter: counter,
		limit:   freeDailyQuota,
		metrics: m,
		logger:  logger,
	}
}

// Tier returns the caller's subscription tier; users without a fact are free.
func (g *Gate) Tier(ctx context.Context, userID uuid.UUID) ledger.Tier {
	fact, err := g.store.GetSubscriptionFact(ctx, userID)
	if err != nil {
		if !errors.Is(err, ledger.ErrFactNotFound) {
			// Unknown tier prices as free, the conservative default.
			g.logger.Warn("tier lookup failed, treating as free",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
		}
		return ledger.TierFree
	}
	return fact.Tier
}

// Allow reports whether the user may run a query now. It is a precondition
// check, never retried.
func (g *Gate) Allow(ctx context.Context, userID uuid.UUID) error {
	if g.limit <= 0 || g.counter == nil {
		return nil
	}
	if g.Tier(ctx, userID) == ledger.TierPremium {
		return nil
	}

	n, err := g.counter.Increment(ctx, userID)
	if err != nil {
		// The counter is advisory; when it is unavailable the request
		// proceeds and is still metered by the recorder.
		g.logger.Warn("quota counter unavailable", zap.Error(err))
		return nil
	}
	if n > g.limit {
		if g.metrics != nil {
			g.metrics.QuotaDenialsTotal.Inc()
		}
		return ErrQuotaExceeded
	}
	return nil
}
