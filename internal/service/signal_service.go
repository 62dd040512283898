package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"signal-tracker/internal/domain"
	"signal-tracker/internal/signal"

	"go.opentelemetry.io/otel/trace"
)

// maxConcurrentQuotes bounds the per-symbol fetch fan-out so a large active
// set cannot hammer the quote service during one tick.
const maxConcurrentQuotes = 4

type SignalStore interface {
	GetActive(ctx context.Context, category domain.Category) ([]domain.Signal, error)
	SetActive(ctx context.Context, category domain.Category, signals []domain.Signal) error
	AppendCompleted(ctx context.Context, record domain.CompletedRecord) error
	CompletedRecords(ctx context.Context) ([]domain.CompletedRecord, error)
}

type PriceSource interface {
	BulkPrices(ctx context.Context) (domain.PriceBook, error)
	Price(ctx context.Context, symbol string) (float64, error)
}

type WhaleFeed interface {
	RecentMovements(ctx context.Context, pairs []string) ([]domain.WhaleMovement, error)
}

type SignalGenerator interface {
	Generate(category domain.Category, book domain.PriceBook, whales []domain.WhaleMovement) []domain.Signal
}

// CompletionNotifier receives every record the moment a signal completes.
// Implementations must not block; slow sinks should hand off internally.
type CompletionNotifier interface {
	NotifyCompleted(category domain.Category, record domain.CompletedRecord)
}

type SignalService struct {
	tracer trace.Tracer
	store  SignalStore
	prices PriceSource
	whales WhaleFeed
	engine SignalGenerator
	now    func() time.Time

	mu        sync.Mutex
	notifiers []CompletionNotifier
}

func NewSignalService(
	tracer trace.Tracer,
	store SignalStore,
	prices PriceSource,
	engine SignalGenerator,
	whales WhaleFeed,
) *SignalService {
	return &SignalService{
		tracer: tracer,
		store:  store,
		prices: prices,
		whales: whales,
		engine: engine,
		now:    time.Now,
	}
}

func (s *SignalService) AddCompletionNotifier(n CompletionNotifier) {
	if n == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifiers = append(s.notifiers, n)
}

// GenerateCategory runs one generation cycle: snapshot prices, propose
// candidates, merge them over the surviving active set and commit the result.
// The returned count is the number of freshly generated candidates; zero is a
// normal outcome when nothing clears the confidence gate.
func (s *SignalService) GenerateCategory(ctx context.Context, category domain.Category) ([]domain.Signal, int, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.generate-category")
	defer span.End()

	if s.store == nil || s.prices == nil || s.engine == nil {
		return nil, 0, fmt.Errorf("signal service is not fully initialized")
	}
	profile, ok := domain.ProfileFor(category)
	if !ok {
		return nil, 0, fmt.Errorf("unknown category: %s", category)
	}

	book, err := s.prices.BulkPrices(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("price snapshot: %w", err)
	}

	var movements []domain.WhaleMovement
	if category == domain.CategoryOnchain && s.whales != nil {
		movements, err = s.whales.RecentMovements(ctx, profile.Pairs)
		if err != nil {
			log.Printf("whale movements unavailable for %s: %v", category, err)
			movements = nil
		}
	}

	previous, err := s.store.GetActive(ctx, category)
	if err != nil {
		return nil, 0, fmt.Errorf("load active signals: %w", err)
	}

	generated := s.engine.Generate(category, book, movements)
	next := signal.MergeActive(previous, generated)

	if err := s.store.SetActive(ctx, category, next); err != nil {
		return nil, 0, fmt.Errorf("store active signals: %w", err)
	}

	if len(generated) == 0 {
		log.Printf("no %s signals cleared the confidence gate this run", category)
	}
	return next, len(generated), nil
}

// RefreshCategory runs one monitoring tick: fetch a quote per distinct symbol,
// re-evaluate every active signal against it, persist completions and commit
// the updated set in a single write.
func (s *SignalService) RefreshCategory(ctx context.Context, category domain.Category) ([]domain.Signal, []domain.CompletedRecord, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.refresh-category")
	defer span.End()

	if s.store == nil || s.prices == nil {
		return nil, nil, fmt.Errorf("signal service is not fully initialized")
	}
	if !category.IsValid() {
		return nil, nil, fmt.Errorf("unknown category: %s", category)
	}

	active, err := s.store.GetActive(ctx, category)
	if err != nil {
		return nil, nil, fmt.Errorf("load active signals: %w", err)
	}
	if len(active) == 0 {
		return nil, nil, nil
	}

	quotes := s.fetchQuotes(ctx, active)

	now := s.now().UTC()
	updated := make([]domain.Signal, 0, len(active))
	var completed []domain.CompletedRecord
	for _, sig := range active {
		price, ok := quotes[domain.TickerSymbol(sig.Pair)]
		next, rec := signal.Evaluate(sig, price, ok, now)
		updated = append(updated, next)
		if rec != nil {
			completed = append(completed, *rec)
		}
	}

	for _, rec := range completed {
		if err := s.store.AppendCompleted(ctx, rec); err != nil {
			log.Printf("append completed record %s: %v", rec.ID, err)
		}
	}

	if err := s.store.SetActive(ctx, category, updated); err != nil {
		return nil, nil, fmt.Errorf("store active signals: %w", err)
	}

	if len(completed) > 0 {
		s.notifyCompleted(category, completed)
	}
	return updated, completed, nil
}

func (s *SignalService) ActiveSignals(ctx context.Context, category domain.Category) ([]domain.Signal, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.active-signals")
	defer span.End()

	if s.store == nil {
		return nil, fmt.Errorf("signal service is not fully initialized")
	}
	if !category.IsValid() {
		return nil, fmt.Errorf("unknown category: %s", category)
	}
	return s.store.GetActive(ctx, category)
}

// CompletedSignals returns the completed history, newest last. An empty
// category returns every record; otherwise records are matched to the
// category by their id prefix.
func (s *SignalService) CompletedSignals(ctx context.Context, category domain.Category) ([]domain.CompletedRecord, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.completed-signals")
	defer span.End()

	if s.store == nil {
		return nil, fmt.Errorf("signal service is not fully initialized")
	}
	if category != "" && !category.IsValid() {
		return nil, fmt.Errorf("unknown category: %s", category)
	}

	records, err := s.store.CompletedRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("load completed records: %w", err)
	}
	if category == "" {
		return records, nil
	}

	filtered := make([]domain.CompletedRecord, 0, len(records))
	for _, rec := range records {
		if c, ok := domain.CategoryForID(rec.ID); ok && c == category {
			filtered = append(filtered, rec)
		}
	}
	return filtered, nil
}

func (s *SignalService) LatestPrices(ctx context.Context) (domain.PriceBook, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.latest-prices")
	defer span.End()

	if s.prices == nil {
		return domain.PriceBook{}, fmt.Errorf("signal service is not fully initialized")
	}
	book, err := s.prices.BulkPrices(ctx)
	if err != nil {
		return domain.PriceBook{}, fmt.Errorf("price snapshot: %w", err)
	}
	return book, nil
}

// PairPrice accepts either a display pair ("BTC/USDT") or a bare ticker
// symbol ("BTCUSDT").
func (s *SignalService) PairPrice(ctx context.Context, symbol string) (float64, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.pair-price")
	defer span.End()

	if s.prices == nil {
		return 0, fmt.Errorf("signal service is not fully initialized")
	}
	symbol = domain.TickerSymbol(strings.ToUpper(strings.TrimSpace(symbol)))
	if symbol == "" {
		return 0, fmt.Errorf("empty symbol")
	}
	return s.prices.Price(ctx, symbol)
}

// fetchQuotes resolves one quote per distinct symbol in the active set.
// Symbols that cannot be quoted this tick are simply absent from the result.
func (s *SignalService) fetchQuotes(ctx context.Context, active []domain.Signal) map[string]float64 {
	symbols := make([]string, 0, len(active))
	seen := make(map[string]struct{}, len(active))
	for _, sig := range active {
		sym := domain.TickerSymbol(sig.Pair)
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		symbols = append(symbols, sym)
	}

	quotes := make(map[string]float64, len(symbols))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, maxConcurrentQuotes)

	for _, sym := range symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			price, err := s.prices.Price(ctx, sym)
			if err != nil {
				log.Printf("price unknown this tick for %s: %v", sym, err)
				return
			}
			mu.Lock()
			quotes[sym] = price
			mu.Unlock()
		}(sym)
	}
	wg.Wait()
	return quotes
}

func (s *SignalService) notifyCompleted(category domain.Category, records []domain.CompletedRecord) {
	s.mu.Lock()
	notifiers := make([]CompletionNotifier, len(s.notifiers))
	copy(notifiers, s.notifiers)
	s.mu.Unlock()

	for _, rec := range records {
		for _, n := range notifiers {
			n.NotifyCompleted(category, rec)
		}
	}
}
