package signal

import "signal-tracker/internal/domain"

// MergeActive reconciles a fresh generation batch against the running set.
// Signals that are still working (ACTIVE and neither tier-2 nor tier-3 hit)
// are retained unchanged and keep their position; generated signals join at
// the tail unless their (pair, direction) key is already taken. The result
// is never re-sorted.
func MergeActive(previous, generated []domain.Signal) []domain.Signal {
	next := make([]domain.Signal, 0, len(previous)+len(generated))
	taken := make(map[string]struct{}, len(previous))

	for _, s := range previous {
		if s.Status != domain.StatusActive || s.TP2Hit || s.TP3Hit {
			continue
		}
		next = append(next, s)
		taken[s.Key()] = struct{}{}
	}

	for _, s := range generated {
		if _, ok := taken[s.Key()]; ok {
			continue
		}
		taken[s.Key()] = struct{}{}
		next = append(next, s)
	}
	return next
}
