package store

import "signal-tracker/internal/domain"

// completedSchemaVersion tags records written by this code. Version 0 (or a
// missing tag) marks a legacy record from before the three-tier take-profit
// model, which carried a single take_profit target.
const completedSchemaVersion = 1

type storedCompleted struct {
	domain.CompletedRecord
	LegacyTakeProfit float64 `json:"take_profit,omitempty"`
}

// migrateCompleted lifts a stored record to the current schema. Legacy
// records lacking the tier-1/tier-2 targets get them interpolated at 30%
// and 60% of the entry-to-target distance, and all three hit flags are set:
// a legacy record only exists because the trade already completed.
func migrateCompleted(raw storedCompleted) domain.CompletedRecord {
	rec := raw.CompletedRecord
	if rec.SchemaVersion >= completedSchemaVersion {
		return rec
	}
	rec.SchemaVersion = completedSchemaVersion

	if rec.TakeProfit3 == 0 {
		rec.TakeProfit3 = raw.LegacyTakeProfit
	}
	if rec.TakeProfit1 != 0 && rec.TakeProfit2 != 0 {
		return rec
	}

	if rec.TakeProfit1 == 0 {
		rec.TakeProfit1 = rec.EntryPrice + 0.3*(rec.TakeProfit3-rec.EntryPrice)
	}
	if rec.TakeProfit2 == 0 {
		rec.TakeProfit2 = rec.EntryPrice + 0.6*(rec.TakeProfit3-rec.EntryPrice)
	}
	rec.TP1Hit, rec.TP2Hit, rec.TP3Hit = true, true, true
	rec.Status = domain.StatusCompleted
	return rec
}
