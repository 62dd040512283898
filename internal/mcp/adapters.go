package mcp

import (
	"context"
	"time"

	"signal-tracker/internal/domain"
)

// PriceReader exposes read operations for market data.
type PriceReader interface {
	LatestPrices(ctx context.Context) (domain.PriceBook, error)
	PairPrice(ctx context.Context, symbol string) (float64, error)
}

// SignalReaderWriter exposes read/generate operations for signals.
type SignalReaderWriter interface {
	ActiveSignals(ctx context.Context, category domain.Category) ([]domain.Signal, error)
	CompletedSignals(ctx context.Context, category domain.Category) ([]domain.CompletedRecord, error)
	GenerateCategory(ctx context.Context, category domain.Category) ([]domain.Signal, int, error)
}

// ScheduleReader exposes the auto-generation schedule.
type ScheduleReader interface {
	Status(ctx context.Context, category domain.Category) (domain.AutogenState, time.Duration, error)
}
