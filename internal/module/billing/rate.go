package billing

import "sync/atomic"

// DefaultUnitRevenueCents is the revenue attributed to one query when no rate
// is configured.
const DefaultUnitRevenueCents int64 = 1

// RateSource holds the current per-query revenue rate. The rate is read on
// every recorded event and may be replaced at runtime (config hot reload)
// without affecting events already persisted.
type RateSource struct {
	unitRevenueCents atomic.Int64
}

// NewRateSource creates a RateSource with the given rate in cents; values
// below 1 fall back to the default.
func NewRateSource(unitRevenueCents int64) *RateSource {
	s := &RateSource{}
	s.Set(unitRevenueCents)
	return s
}

// UnitRevenueCents returns the current per-query rate.
func (s *RateSource) UnitRevenueCents() int64 {
	return s.unitRevenueCents.Load()
}

// Set replaces the per-query rate. Only subsequent events are affected.
func (s *RateSource) Set(cents int64) {
	if cents < 1 {
		cents = DefaultUnitRevenueCents
	}
	s.unitRevenueCents.Store(cents)
}
