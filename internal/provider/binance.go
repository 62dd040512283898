package provider

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"signal-tracker/internal/domain"

	"github.com/adshao/go-binance/v2"
	"go.opentelemetry.io/otel/trace"
)

// Source is one upstream quote feed: the live Binance ticker API or the
// seeded simulator. Symbols use the concatenated form ("BTCUSDT").
type Source interface {
	BulkPrices(ctx context.Context) (map[string]float64, error)
	Price(ctx context.Context, symbol string) (float64, error)
}

type binanceAPI interface {
	ListPrices(ctx context.Context, symbol string) ([]*binance.SymbolPrice, error)
}

type liveBinanceAPI struct {
	client *binance.Client
}

func (a liveBinanceAPI) ListPrices(ctx context.Context, symbol string) ([]*binance.SymbolPrice, error) {
	svc := a.client.NewListPricesService()
	if symbol != "" {
		svc = svc.Symbol(symbol)
	}
	return svc.Do(ctx)
}

type BinanceSource struct {
	tracer trace.Tracer
	api    binanceAPI
}

func NewBinanceSource(tracer trace.Tracer) *BinanceSource {
	return &BinanceSource{
		tracer: tracer,
		api:    liveBinanceAPI{client: binance.NewClient("", "")},
	}
}

func (s *BinanceSource) BulkPrices(ctx context.Context) (map[string]float64, error) {
	ctx, span := s.tracer.Start(ctx, "price-source.bulk-prices")
	defer span.End()

	prices, err := s.api.ListPrices(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("quote service: %w", err)
	}

	out := make(map[string]float64, len(prices))
	for _, p := range prices {
		v, err := strconv.ParseFloat(p.Price, 64)
		if err != nil {
			continue
		}
		out[p.Symbol] = v
	}
	return out, nil
}

func (s *BinanceSource) Price(ctx context.Context, symbol string) (float64, error) {
	ctx, span := s.tracer.Start(ctx, "price-source.get-price")
	defer span.End()

	prices, err := s.api.ListPrices(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("quote service: %w", err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("no price data for %s", symbol)
	}
	v, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, fmt.Errorf("unparsable price for %s: %w", symbol, err)
	}
	return v, nil
}

// basePrices anchor the simulator; the walk perturbs around them.
var basePrices = map[string]float64{
	"BTCUSDT":   97000,
	"ETHUSDT":   3500,
	"BNBUSDT":   620,
	"SOLUSDT":   210,
	"XRPUSDT":   2.4,
	"ADAUSDT":   1.05,
	"DOGEUSDT":  0.32,
	"DOTUSDT":   8.5,
	"LINKUSDT":  22,
	"AVAXUSDT":  38,
	"MATICUSDT": 0.85,
	"ARBUSDT":   1.1,
}

// SimulatedSource serves a random walk around hard-coded base values. It
// never fails, which makes it the offline/dev stand-in for the live feed.
type SimulatedSource struct {
	mu     sync.Mutex
	rng    *rand.Rand
	prices map[string]float64
}

func NewSimulatedSource(seed int64) *SimulatedSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	prices := make(map[string]float64, len(basePrices))
	for s, p := range basePrices {
		prices[s] = p
	}
	return &SimulatedSource{
		rng:    rand.New(rand.NewSource(seed)),
		prices: prices,
	}
}

// step moves one price by at most ±0.4%.
func (s *SimulatedSource) step(symbol string) (float64, bool) {
	p, ok := s.prices[symbol]
	if !ok {
		return 0, false
	}
	p *= 1 + (s.rng.Float64()-0.5)*0.008
	s.prices[symbol] = p
	return p, true
}

func (s *SimulatedSource) BulkPrices(ctx context.Context) (map[string]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]float64, len(s.prices))
	for symbol := range s.prices {
		p, _ := s.step(symbol)
		out[symbol] = p
	}
	return out, nil
}

func (s *SimulatedSource) Price(ctx context.Context, symbol string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.step(symbol)
	if !ok {
		return 0, fmt.Errorf("no price data for %s", symbol)
	}
	return p, nil
}

// Adapter fronts a Source with the short bulk cache that bounds upstream
// call rate, and remembers the last known value per symbol so a transient
// upstream failure degrades to stale data instead of an error.
type Adapter struct {
	tracer trace.Tracer
	source Source
	ttl    time.Duration
	now    func() time.Time

	mu        sync.Mutex
	book      domain.PriceBook
	fetchedAt time.Time
	lastKnown map[string]float64
}

func NewAdapter(tracer trace.Tracer, source Source, ttl time.Duration, now func() time.Time) *Adapter {
	if now == nil {
		now = time.Now
	}
	if ttl <= 0 {
		ttl = 2 * time.Second
	}
	return &Adapter{
		tracer:    tracer,
		source:    source,
		ttl:       ttl,
		now:       now,
		lastKnown: make(map[string]float64),
	}
}

// BulkPrices returns the full price book, served from cache while fresh.
// An upstream failure surfaces as an error: callers treat it as "price
// unknown this tick", nothing more.
func (a *Adapter) BulkPrices(ctx context.Context) (domain.PriceBook, error) {
	ctx, span := a.tracer.Start(ctx, "price-adapter.bulk-prices")
	defer span.End()

	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if !a.fetchedAt.IsZero() && now.Sub(a.fetchedAt) < a.ttl {
		book := a.book
		book.Cached = true
		return book, nil
	}

	prices, err := a.source.BulkPrices(ctx)
	if err != nil {
		return domain.PriceBook{}, err
	}

	a.book = domain.PriceBook{Prices: prices, Cached: false, Timestamp: now.UnixMilli()}
	a.fetchedAt = now
	for symbol, p := range prices {
		a.lastKnown[symbol] = p
	}
	return a.book, nil
}

// Price resolves one symbol: fresh cache first, then a direct upstream
// fetch, then the last known value. Only a symbol never seen before errors.
func (a *Adapter) Price(ctx context.Context, symbol string) (float64, error) {
	ctx, span := a.tracer.Start(ctx, "price-adapter.get-price")
	defer span.End()

	a.mu.Lock()
	if !a.fetchedAt.IsZero() && a.now().Sub(a.fetchedAt) < a.ttl {
		if p, ok := a.book.Price(symbol); ok {
			a.mu.Unlock()
			return p, nil
		}
	}
	a.mu.Unlock()

	p, err := a.source.Price(ctx, symbol)
	if err == nil {
		a.mu.Lock()
		a.lastKnown[symbol] = p
		a.mu.Unlock()
		return p, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if p, ok := a.lastKnown[symbol]; ok {
		return p, nil
	}
	return 0, fmt.Errorf("price unavailable for %s: %w", symbol, err)
}
