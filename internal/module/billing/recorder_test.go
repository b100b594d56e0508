package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/capecontrol/server/internal/module/ledger"
)

func TestRecorderRecord(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemoryStore()
	rates := NewRateSource(3)
	recorder := NewRecorder(store, rates, nil, zap.NewNop())
	userID := uuid.New()

	t.Run("revenue is query count times the unit rate", func(t *testing.T) {
		event, err := recorder.Record(ctx, userID, "summarizer", 4)
		require.NoError(t, err)
		assert.Equal(t, int64(12), event.Revenue)
		assert.Equal(t, 4, event.QueryCount)
		assert.Equal(t, "summarizer", event.ModuleID)
		assert.NotZero(t, event.ID)
	})

	t.Run("empty module id defaults", func(t *testing.T) {
		event, err := recorder.Record(ctx, userID, "", 1)
		require.NoError(t, err)
		assert.Equal(t, ledger.DefaultModuleID, event.ModuleID)
	})

	t.Run("query count below one is rejected", func(t *testing.T) {
		_, err := recorder.Record(ctx, userID, "summarizer", 0)
		assert.ErrorIs(t, err, ErrInvalidQueryCount)

		_, err = recorder.Record(ctx, userID, "summarizer", -5)
		assert.ErrorIs(t, err, ErrInvalidQueryCount)
	})

	t.Run("rate change affects only later events", func(t *testing.T) {
		before, err := recorder.Record(ctx, userID, "summarizer", 1)
		require.NoError(t, err)
		assert.Equal(t, int64(3), before.Revenue)

		rates.Set(10)

		after, err := recorder.Record(ctx, userID, "summarizer", 1)
		require.NoError(t, err)
		assert.Equal(t, int64(10), after.Revenue)

		// The earlier event keeps the revenue computed at its rate.
		history, err := recorder.History(ctx, userID, 50)
		require.NoError(t, err)
		for _, e := range history {
			if e.ID == before.ID {
				assert.Equal(t, int64(3), e.Revenue)
			}
		}
	})
}

func TestRecordThenSettle(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemoryStore()
	recorder := NewRecorder(store, NewRateSource(1), nil, zap.NewNop())
	settler := NewSettler(store)

	event, err := recorder.Record(ctx, uuid.New(), "m1", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), event.Revenue)

	report, err := settler.Settle(ctx, "m1",
		event.CreatedAt.Add(-time.Minute), event.CreatedAt.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, report.EventCount)
	assert.Equal(t, int64(3), report.TotalRevenueCents)
	assert.Equal(t, int64(2), report.DeveloperShareCents)
	assert.Equal(t, int64(1), report.PlatformShareCents)
}

func TestRecorderHistory(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemoryStore()
	recorder := NewRecorder(store, NewRateSource(1), nil, zap.NewNop())
	userID := uuid.New()

	for i := 0; i < 60; i++ {
		_, err := recorder.Record(ctx, userID, "", 1)
		require.NoError(t, err)
	}

	t.Run("limit is capped at 50", func(t *testing.T) {
		events, err := recorder.History(ctx, userID, 1000)
		require.NoError(t, err)
		assert.Len(t, events, 50)
	})

	t.Run("non-positive limit uses the default", func(t *testing.T) {
		events, err := recorder.History(ctx, userID, 0)
		require.NoError(t, err)
		assert.Len(t, events, 50)
	})

	t.Run("unknown user has no history", func(t *testing.T) {
		events, err := recorder.History(ctx, uuid.New(), 10)
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}

func TestRateSource(t *testing.T) {
	rates := NewRateSource(5)
	assert.Equal(t, int64(5), rates.UnitRevenueCents())

	rates.Set(7)
	assert.Equal(t, int64(7), rates.UnitRevenueCents())

	t.Run("non-positive rates fall back to the default", func(t *testing.T) {
		rates.Set(0)
		assert.Equal(t, DefaultUnitRevenueCents, rates.UnitRevenueCents())

		rates.Set(-3)
		assert.Equal(t, DefaultUnitRevenueCents, rates.UnitRevenueCents())
	})
}
