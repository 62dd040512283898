package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"signal-tracker/internal/domain"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type stubPriceReader struct {
	book domain.PriceBook
}

func (s *stubPriceReader) LatestPrices(ctx context.Context) (domain.PriceBook, error) {
	return s.book, nil
}

func (s *stubPriceReader) PairPrice(ctx context.Context, symbol string) (float64, error) {
	price, ok := s.book.Prices[symbol]
	if !ok {
		return 0, fmt.Errorf("no quote for %s", symbol)
	}
	return price, nil
}

type stubSignalReader struct {
	active    map[domain.Category][]domain.Signal
	completed []domain.CompletedRecord
	generated []domain.Signal

	lastActiveCategory   domain.Category
	lastGenerateCategory domain.Category
}

func (s *stubSignalReader) ActiveSignals(ctx context.Context, category domain.Category) ([]domain.Signal, error) {
	s.lastActiveCategory = category
	return append([]domain.Signal(nil), s.active[category]...), nil
}

func (s *stubSignalReader) CompletedSignals(ctx context.Context, category domain.Category) ([]domain.CompletedRecord, error) {
	if category == "" {
		return append([]domain.CompletedRecord(nil), s.completed...), nil
	}
	filtered := make([]domain.CompletedRecord, 0, len(s.completed))
	for _, rec := range s.completed {
		if c, ok := domain.CategoryForID(rec.ID); ok && c == category {
			filtered = append(filtered, rec)
		}
	}
	return filtered, nil
}

func (s *stubSignalReader) GenerateCategory(ctx context.Context, category domain.Category) ([]domain.Signal, int, error) {
	s.lastGenerateCategory = category
	return append([]domain.Signal(nil), s.generated...), len(s.generated), nil
}

type stubScheduleReader struct {
	state domain.AutogenState
	until time.Duration
}

func (s *stubScheduleReader) Status(ctx context.Context, category domain.Category) (domain.AutogenState, time.Duration, error) {
	if !category.IsValid() {
		return domain.AutogenState{}, 0, fmt.Errorf("unknown category: %s", category)
	}
	return s.state, s.until, nil
}

func testServer() (*sdkmcp.Server, *stubSignalReader, *stubScheduleReader) {
	prices := &stubPriceReader{book: domain.PriceBook{
		Prices:    map[string]float64{"BTCUSDT": 65000.5, "ETHUSDT": 3200.25},
		Timestamp: 1764000000,
	}}
	signals := &stubSignalReader{
		active: map[domain.Category][]domain.Signal{
			domain.CategoryScalping: {{
				ID: "scalp-aaa11111", Pair: "BTC/USDT", Direction: domain.DirectionLong,
				SignalType: domain.SignalTypeFuture, EntryPrice: 65000, CurrentPrice: 65000,
				Confidence: 70, Status: domain.StatusActive, CreatedAt: time.Unix(0, 0).UTC(),
			}},
		},
		completed: []domain.CompletedRecord{{
			Signal: domain.Signal{
				ID: "scalp-bbb22222", Pair: "ETH/USDT", Direction: domain.DirectionShort,
				Status: domain.StatusCompleted, ProfitLossPct: 1,
			},
			CompletedAt: time.Unix(0, 0).UTC(),
		}},
		generated: []domain.Signal{{
			ID: "scalp-ccc33333", Pair: "SOL/USDT", Direction: domain.DirectionLong,
			SignalType: domain.SignalTypeFuture, Status: domain.StatusActive,
		}},
	}
	schedule := &stubScheduleReader{
		state: domain.AutogenState{Enabled: true, LastRunAt: time.Unix(1764000000, 0).UTC()},
		until: 35 * time.Minute,
	}

	srv := NewServer(nil, prices, signals, schedule, ServerConfig{RequestTimeout: time.Second})
	return srv, signals, schedule
}

func connectInMemory(ctx context.Context, srv *sdkmcp.Server) (*sdkmcp.ClientSession, context.CancelFunc, error) {
	clientTransport, serverTransport := sdkmcp.NewInMemoryTransports()
	runCtx, cancel := context.WithCancel(ctx)
	go func() { _ = srv.Run(runCtx, serverTransport) }()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "mcp-test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return session, cancel, nil
}

func decodeResourceJSON(result *sdkmcp.ReadResourceResult, out any) error {
	if len(result.Contents) == 0 {
		return nil
	}
	return json.Unmarshal([]byte(result.Contents[0].Text), out)
}
