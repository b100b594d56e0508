package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capecontrol/server/internal/module/ledger"
)

func TestSettle(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	seed := func(t *testing.T, store ledger.Store, moduleID string, offset time.Duration, revenue int64) {
		t.Helper()
		require.NoError(t, store.AppendUsageEvent(ctx, &ledger.UsageEvent{
			UserID:     uuid.New(),
			ModuleID:   moduleID,
			QueryCount: 1,
			Revenue:    revenue,
			CreatedAt:  base.Add(offset),
		}))
	}

	t.Run("splits revenue 70/30 with exact conservation", func(t *testing.T) {
		store := ledger.NewMemoryStore()
		settler := NewSettler(store)

		// 3 cents: an even split is impossible, the remainder goes to the
		// platform.
		seed(t, store, "summarizer", time.Minute, 1)
		seed(t, store, "summarizer", 2*time.Minute, 1)
		seed(t, store, "summarizer", 3*time.Minute, 1)

		report, err := settler.Settle(ctx, "summarizer", base, base.Add(time.Hour))
		require.NoError(t, err)

		assert.Equal(t, 3, report.EventCount)
		assert.Equal(t, int64(3), report.TotalRevenueCents)
		assert.Equal(t, int64(2), report.DeveloperShareCents)
		assert.Equal(t, int64(1), report.PlatformShareCents)
	})

	t.Run("shares always sum to the total", func(t *testing.T) {
		store := ledger.NewMemoryStore()
		settler := NewSettler(store)

		for i, revenue := range []int64{1, 3, 7, 11, 33, 101} {
			seed(t, store, "summarizer", time.Duration(i)*time.Minute, revenue)

			report, err := settler.Settle(ctx, "summarizer", base, base.Add(time.Hour))
			require.NoError(t, err)
			assert.Equal(t, report.TotalRevenueCents, report.DeveloperShareCents+report.PlatformShareCents)
		}
	})

	t.Run("settling the same closed window twice yields the same report", func(t *testing.T) {
		store := ledger.NewMemoryStore()
		settler := NewSettler(store)

		seed(t, store, "summarizer", time.Minute, 5)
		seed(t, store, "summarizer", 2*time.Minute, 5)
		// A later event outside the window must not leak in.
		seed(t, store, "summarizer", 2*time.Hour, 100)

		first, err := settler.Settle(ctx, "summarizer", base, base.Add(time.Hour))
		require.NoError(t, err)
		second, err := settler.Settle(ctx, "summarizer", base, base.Add(time.Hour))
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, int64(10), first.TotalRevenueCents)
	})

	t.Run("empty window yields a zero report", func(t *testing.T) {
		settler := NewSettler(ledger.NewMemoryStore())

		report, err := settler.Settle(ctx, "summarizer", base, base.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 0, report.EventCount)
		assert.Zero(t, report.TotalRevenueCents)
		assert.Zero(t, report.DeveloperShareCents)
		assert.Zero(t, report.PlatformShareCents)
	})

	t.Run("zero-length window yields a zero report", func(t *testing.T) {
		store := ledger.NewMemoryStore()
		settler := NewSettler(store)
		seed(t, store, "summarizer", 0, 5)

		report, err := settler.Settle(ctx, "summarizer", base, base)
		require.NoError(t, err)
		assert.Equal(t, 0, report.EventCount)
	})

	t.Run("window with start after end is rejected", func(t *testing.T) {
		settler := NewSettler(ledger.NewMemoryStore())

		_, err := settler.Settle(ctx, "summarizer", base.Add(time.Hour), base)
		assert.ErrorIs(t, err, ErrInvalidWindow)
	})

	t.Run("empty module id settles the default module", func(t *testing.T) {
		store := ledger.NewMemoryStore()
		settler := NewSettler(store)
		seed(t, store, ledger.DefaultModuleID, time.Minute, 10)

		report, err := settler.Settle(ctx, "", base, base.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, ledger.DefaultModuleID, report.ModuleID)
		assert.Equal(t, int64(10), report.TotalRevenueCents)
	})
}
