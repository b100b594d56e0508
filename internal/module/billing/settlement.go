package billing

import (
	"context"
	"math"
	"time"

	"github.com/capecontrol/server/internal/module/ledger"
)

// DeveloperShare is the fraction of aggregated revenue paid to the module's
// developer; the platform keeps the remainder.
const DeveloperShare = 0.70

// SettlementReport is the revenue split for one module over one window.
// All amounts are integer cents; DeveloperShareCents + PlatformShareCents
// always equals TotalRevenueCents exactly.
type SettlementReport struct {
	ModuleID            string    `json:"module_id"`
	WindowStart         time.Time `json:"window_start"`
	WindowEnd           time.Time `json:"window_end"`
	EventCount          int       `json:"event_count"`
	TotalRevenueCents   int64     `json:"total_revenue_cents"`
	DeveloperShareCents int64     `json:"developer_share_cents"`
	PlatformShareCents  int64     `json:"platform_share_cents"`
}

// Settler aggregates usage revenue over settlement windows. It only reads the
// ledger; settling a window twice with no intervening writes yields the same
// report.
type Settler struct {
	store ledger.Store
}

// NewSettler creates a new settlement aggregator.
func NewSettler(store ledger.Store) *Settler {
	return &Settler{store: store}
}

// Settle sums the revenue of all usage events for moduleID within
// [start, end) and splits it between developer and platform. The window is a
// snapshot taken at call time; settlement is expected to run against closed
// historical windows, so writes to the still-open current window do not
// affect it. An empty window yields a zero report.
//
// The developer share is rounded once and the platform share is the
// remainder, so the two always sum to the total with no rounding leak.
func (s *Settler) Settle(ctx context.Context, moduleID string, start, end time.Time) (*SettlementReport, error) {
	if start.After(end) {
		return nil, ErrInvalidWindow
	}
	if moduleID == "" {
		moduleID = ledger.DefaultModuleID
	}

	events, err := s.store.UsageEventsInWindow(ctx, moduleID, start, end)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, e := range events {
		total += e.Revenue
	}

	developer := int64(math.Round(float64(total) * DeveloperShare))

	return &SettlementReport{
		ModuleID:            moduleID,
		WindowStart:         start,
		WindowEnd:           end,
		EventCount:          len(events),
		TotalRevenueCents:   total,
		DeveloperShareCents: developer,
		PlatformShareCents:  total - developer,
	}, nil
}
