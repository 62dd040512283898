package signal

import (
	"time"

	"signal-tracker/internal/domain"
)

// Evaluate applies one observed price to a signal. Hit flags are OR'd with
// their prior value and never reset; when the tier-2 or tier-3 target is
// newly reached the signal flips to COMPLETED and a record is returned for
// the completed log. Without a price (hasPrice false) the last known
// currentPrice stands, but flags and status are still reconciled.
func Evaluate(s domain.Signal, price float64, hasPrice bool, now time.Time) (domain.Signal, *domain.CompletedRecord) {
	prevTP2, prevTP3 := s.TP2Hit, s.TP3Hit

	if hasPrice {
		s.CurrentPrice = price
		s.TP1Hit = s.TP1Hit || reached(s.Direction, price, s.TakeProfit1)
		s.TP2Hit = s.TP2Hit || reached(s.Direction, price, s.TakeProfit2)
		s.TP3Hit = s.TP3Hit || reached(s.Direction, price, s.TakeProfit3)
	}
	s.ProfitLossPct = domain.ProfitLossPct(s.Direction, s.EntryPrice, s.CurrentPrice)

	if s.Status == domain.StatusCompleted || (!s.TP2Hit && !s.TP3Hit) {
		return s, nil
	}

	s.Status = domain.StatusCompleted
	completedAt := now.UTC()
	rec := domain.CompletedRecord{Signal: s, CompletedAt: completedAt}
	if s.TP2Hit && !prevTP2 {
		t := completedAt
		rec.TP2HitTime = &t
	}
	if s.TP3Hit && !prevTP3 {
		t := completedAt
		rec.TP3HitTime = &t
	}
	return s, &rec
}

func reached(d domain.Direction, price, target float64) bool {
	if d.Bearish() {
		return price <= target
	}
	return price >= target
}
