package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return NewGormStore(db)
}

// Both store implementations must satisfy the same contract.
func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": newSQLiteStore(t),
	}
}

func TestAppendUsageEvent(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			userID := uuid.New()

			event := &UsageEvent{
				UserID:     userID,
				ModuleID:   "summarizer",
				QueryCount: 1,
				Revenue:    3,
			}
			require.NoError(t, store.AppendUsageEvent(ctx, event))

			assert.NotZero(t, event.ID)
			assert.False(t, event.CreatedAt.IsZero())

			second := &UsageEvent{UserID: userID, QueryCount: 2, Revenue: 6}
			require.NoError(t, store.AppendUsageEvent(ctx, second))
			assert.Equal(t, DefaultModuleID, second.ModuleID)
			assert.NotEqual(t, event.ID, second.ID)
		})
	}
}

func TestUsageEventsInWindow(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			userID := uuid.New()

			at := func(offset time.Duration) *UsageEvent {
				return &UsageEvent{
					UserID:     userID,
					ModuleID:   "summarizer",
					QueryCount: 1,
					Revenue:    1,
					CreatedAt:  base.Add(offset),
				}
			}

			require.NoError(t, store.AppendUsageEvent(ctx, at(-time.Second)))
			require.NoError(t, store.AppendUsageEvent(ctx, at(0)))
			require.NoError(t, store.AppendUsageEvent(ctx, at(30*time.Minute)))
			require.NoError(t, store.AppendUsageEvent(ctx, at(time.Hour)))

			t.Run("window start is inclusive, end is exclusive", func(t *testing.T) {
				events, err := store.UsageEventsInWindow(ctx, "summarizer", base, base.Add(time.Hour))
				require.NoError(t, err)
				require.Len(t, events, 2)
				assert.Equal(t, base, events[0].CreatedAt.UTC())
				assert.Equal(t, base.Add(30*time.Minute), events[1].CreatedAt.UTC())
			})

			t.Run("adjacent windows cover every event exactly once", func(t *testing.T) {
				first, err := store.UsageEventsInWindow(ctx, "summarizer", base.Add(-time.Hour), base)
				require.NoError(t, err)
				second, err := store.UsageEventsInWindow(ctx, "summarizer", base, base.Add(time.Hour))
				require.NoError(t, err)
				third, err := store.UsageEventsInWindow(ctx, "summarizer", base.Add(time.Hour), base.Add(2*time.Hour))
				require.NoError(t, err)
				assert.Equal(t, 4, len(first)+len(second)+len(third))
			})

			t.Run("other modules are excluded", func(t *testing.T) {
				events, err := store.UsageEventsInWindow(ctx, "translator", base.Add(-time.Hour), base.Add(2*time.Hour))
				require.NoError(t, err)
				assert.Empty(t, events)
			})
		})
	}
}

func TestListUsageEventsByUser(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			userID := uuid.New()
			other := uuid.New()

			for i := 0; i < 5; i++ {
				require.NoError(t, store.AppendUsageEvent(ctx, &UsageEvent{
					UserID:     userID,
					ModuleID:   DefaultModuleID,
					QueryCount: 1,
					Revenue:    int64(i + 1),
					CreatedAt:  base.Add(time.Duration(i) * time.Minute),
				}))
			}
			require.NoError(t, store.AppendUsageEvent(ctx, &UsageEvent{
				UserID:     other,
				ModuleID:   DefaultModuleID,
				QueryCount: 1,
				Revenue:    99,
				CreatedAt:  base,
			}))

			events, err := store.ListUsageEventsByUser(ctx, userID, 3)
			require.NoError(t, err)
			require.Len(t, events, 3)

			// Newest first, only the requested user's events.
			assert.Equal(t, int64(5), events[0].Revenue)
			assert.Equal(t, int64(4), events[1].Revenue)
			assert.Equal(t, int64(3), events[2].Revenue)
			for _, e := range events {
				assert.Equal(t, userID, e.UserID)
			}
		})
	}
}

func TestUpsertSubscriptionFact(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			userID := uuid.New()

			t.Run("first fact is applied", func(t *testing.T) {
				changed, err := store.UpsertSubscriptionFact(ctx, &SubscriptionFact{
					UserID:      userID,
					Tier:        TierPremium,
					LastEventID: "evt_1",
					LastEventAt: base,
				})
				require.NoError(t, err)
				assert.True(t, changed)

				fact, err := store.GetSubscriptionFact(ctx, userID)
				require.NoError(t, err)
				assert.Equal(t, TierPremium, fact.Tier)
				assert.Equal(t, "evt_1", fact.LastEventID)
			})

			t.Run("replay of the same event is a no-op", func(t *testing.T) {
				changed, err := store.UpsertSubscriptionFact(ctx, &SubscriptionFact{
					UserID:      userID,
					Tier:        TierFree,
					LastEventID: "evt_1",
					LastEventAt: base,
				})
				require.NoError(t, err)
				assert.False(t, changed)

				fact, err := store.GetSubscriptionFact(ctx, userID)
				require.NoError(t, err)
				assert.Equal(t, TierPremium, fact.Tier)
			})

			t.Run("older event is a no-op", func(t *testing.T) {
				changed, err := store.UpsertSubscriptionFact(ctx, &SubscriptionFact{
					UserID:      userID,
					Tier:        TierFree,
					LastEventID: "evt_0",
					LastEventAt: base.Add(-time.Hour),
				})
				require.NoError(t, err)
				assert.False(t, changed)

				fact, err := store.GetSubscriptionFact(ctx, userID)
				require.NoError(t, err)
				assert.Equal(t, TierPremium, fact.Tier)
				assert.Equal(t, "evt_1", fact.LastEventID)
			})

			t.Run("distinct event at the same instant is applied", func(t *testing.T) {
				changed, err := store.UpsertSubscriptionFact(ctx, &SubscriptionFact{
					UserID:      userID,
					Tier:        TierFree,
					LastEventID: "evt_2",
					LastEventAt: base,
				})
				require.NoError(t, err)
				assert.True(t, changed)
			})

			t.Run("newer event is applied", func(t *testing.T) {
				changed, err := store.UpsertSubscriptionFact(ctx, &SubscriptionFact{
					UserID:      userID,
					Tier:        TierPremium,
					LastEventID: "evt_3",
					LastEventAt: base.Add(time.Hour),
				})
				require.NoError(t, err)
				assert.True(t, changed)

				fact, err := store.GetSubscriptionFact(ctx, userID)
				require.NoError(t, err)
				assert.Equal(t, TierPremium, fact.Tier)
				assert.Equal(t, "evt_3", fact.LastEventID)
			})
		})
	}
}

func TestGetSubscriptionFactNotFound(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.GetSubscriptionFact(context.Background(), uuid.New())
			assert.ErrorIs(t, err, ErrFactNotFound)
		})
	}
}
