package signal

import (
	"math"
	"strings"
	"testing"
	"time"

	"signal-tracker/internal/domain"
)

func testBook() domain.PriceBook {
	return domain.PriceBook{
		Prices: map[string]float64{
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
		},
		Timestamp: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC).UnixMilli(),
	}
}

func fixedNow() time.Time { return time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC) }

func TestGenerateDeterministicGivenSeed(t *testing.T) {
	a := NewEngine(42, fixedNow).Generate(domain.CategoryScalping, testBook(), nil)
	b := NewEngine(42, fixedNow).Generate(domain.CategoryScalping, testBook(), nil)

	if len(a) != len(b) {
		t.Fatalf("same seed must emit same batch size: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Pair != b[i].Pair || a[i].Direction != b[i].Direction || a[i].Confidence != b[i].Confidence {
			t.Fatalf("batch %d differs: %+v vs %+v", i, a[i], b[i])
		}
		if a[i].EntryPrice != b[i].EntryPrice || a[i].TakeProfit3 != b[i].TakeProfit3 {
			t.Fatalf("levels differ at %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestGenerateEmittedSignalShape(t *testing.T) {
	book := testBook()
	var got []domain.Signal
	for seed := int64(1); seed <= 40 && len(got) == 0; seed++ {
		got = NewEngine(seed, fixedNow).Generate(domain.CategoryScalping, book, nil)
	}
	if len(got) == 0 {
		t.Fatal("expected at least one batch across seeds")
	}

	seen := make(map[string]struct{})
	for _, s := range got {
		if !strings.HasPrefix(s.ID, "scalp-") {
			t.Fatalf("unexpected id prefix: %s", s.ID)
		}
		if s.SignalType != domain.SignalTypeFuture || !s.EntryDirectionValid() {
			t.Fatalf("invalid entry for scalping: %+v", s)
		}
		if s.Confidence < confidenceThreshold || s.Confidence > 100 {
			t.Fatalf("confidence out of range: %d", s.Confidence)
		}
		if s.Status != domain.StatusActive || s.TP1Hit || s.TP2Hit || s.TP3Hit {
			t.Fatalf("fresh signal must start clean: %+v", s)
		}
		if s.CurrentPrice != s.EntryPrice {
			t.Fatalf("entry must come from the snapshot: %+v", s)
		}
		if want, _ := book.Price(domain.TickerSymbol(s.Pair)); want != s.EntryPrice {
			t.Fatalf("entry price mismatch for %s: %v", s.Pair, s.EntryPrice)
		}
		if _, dup := seen[s.Key()]; dup {
			t.Fatalf("duplicate (pair, direction) in one batch: %s", s.Key())
		}
		seen[s.Key()] = struct{}{}

		if s.Direction.Bearish() {
			if !(s.StopLoss > s.EntryPrice && s.EntryPrice > s.TakeProfit1 && s.TakeProfit1 > s.TakeProfit2 && s.TakeProfit2 > s.TakeProfit3) {
				t.Fatalf("short levels must descend: %+v", s)
			}
		} else {
			if !(s.StopLoss < s.EntryPrice && s.EntryPrice < s.TakeProfit1 && s.TakeProfit1 < s.TakeProfit2 && s.TakeProfit2 < s.TakeProfit3) {
				t.Fatalf("long levels must ascend: %+v", s)
			}
		}
		if s.Indicators.Pattern == "" {
			t.Fatalf("expected a pattern annotation: %+v", s)
		}
	}
}

func TestGenerateSpotEntriesAreBuyOnly(t *testing.T) {
	book := testBook()
	for seed := int64(1); seed <= 40; seed++ {
		for _, s := range NewEngine(seed, fixedNow).Generate(domain.CategoryDashboard, book, nil) {
			if s.Direction != domain.DirectionBuy {
				t.Fatalf("dashboard signals must enter as BUY, got %s", s.Direction)
			}
			if s.SignalType != domain.SignalTypeSpot {
				t.Fatalf("dashboard signals are spot, got %s", s.SignalType)
			}
		}
	}
}

func TestGenerateSkipsPairsWithoutQuote(t *testing.T) {
	book := domain.PriceBook{Prices: map[string]float64{"BTCUSDT": 97000}}
	for seed := int64(1); seed <= 40; seed++ {
		for _, s := range NewEngine(seed, fixedNow).Generate(domain.CategoryScalping, book, nil) {
			if s.Pair != "BTC/USDT" {
				t.Fatalf("pairs without a quote must be skipped, got %s", s.Pair)
			}
		}
	}
}

func TestGenerateEmptyBookIsValidEmptyResult(t *testing.T) {
	got := NewEngine(7, fixedNow).Generate(domain.CategoryOnchain, domain.PriceBook{}, nil)
	if len(got) != 0 {
		t.Fatalf("expected empty batch, got %d", len(got))
	}
}

func TestGenerateUnknownCategory(t *testing.T) {
	if got := NewEngine(7, fixedNow).Generate(domain.Category("nope"), testBook(), nil); got != nil {
		t.Fatalf("expected nil for unknown category, got %+v", got)
	}
}

func TestScoreSetup(t *testing.T) {
	score, bullish := scoreSetup(25, 0.9)
	if !bullish {
		t.Fatal("oversold rsi with positive macd must be bullish")
	}
	if score != 66 {
		t.Fatalf("expected strength 66, got %d", score)
	}

	score, bullish = scoreSetup(75, 0.9)
	if bullish {
		t.Fatal("overbought rsi must force the bearish side")
	}
	if score != 66 {
		t.Fatalf("expected strength 66, got %d", score)
	}

	score, bullish = scoreSetup(30, -0.2)
	if !bullish {
		t.Fatal("oversold rsi overrides a negative macd")
	}
	if score != 32 {
		t.Fatalf("expected strength 32, got %d", score)
	}
}

func TestLevelsFor(t *testing.T) {
	profile, _ := domain.ProfileFor(domain.CategoryScalping)

	closeTo := func(got, want float64) bool { return math.Abs(got-want) < 1e-9 }

	sl, tp1, tp2, tp3 := levelsFor(100, profile, domain.DirectionLong)
	if !closeTo(sl, 99) || !closeTo(tp1, 100.5) || !closeTo(tp2, 101) || !closeTo(tp3, 101.8) {
		t.Fatalf("unexpected long levels: %v %v %v %v", sl, tp1, tp2, tp3)
	}

	sl, tp1, tp2, tp3 = levelsFor(100, profile, domain.DirectionShort)
	if !closeTo(sl, 101) || !closeTo(tp1, 99.5) || !closeTo(tp2, 99) || !closeTo(tp3, 98.2) {
		t.Fatalf("unexpected short levels: %v %v %v %v", sl, tp1, tp2, tp3)
	}
}

func TestWhaleSentiment(t *testing.T) {
	movements := []domain.WhaleMovement{
		{Pair: "BTC/USDT", Side: domain.WhaleAccumulation, AmountUSD: 1_500_000},
		{Pair: "BTC/USDT", Side: domain.WhaleDistribution, AmountUSD: 200_000},
		{Pair: "ETH/USDT", Side: domain.WhaleDistribution, AmountUSD: 5_000_000},
	}

	side, ok := whaleSentiment("BTC/USDT", movements)
	if !ok || side != domain.WhaleAccumulation {
		t.Fatalf("expected accumulation, got %s ok=%v", side, ok)
	}
	side, ok = whaleSentiment("ETH/USDT", movements)
	if !ok || side != domain.WhaleDistribution {
		t.Fatalf("expected distribution, got %s ok=%v", side, ok)
	}
	if _, ok := whaleSentiment("SOL/USDT", movements); ok {
		t.Fatal("no movements must mean no sentiment")
	}

	if !whaleAligned(domain.WhaleAccumulation, true) || whaleAligned(domain.WhaleAccumulation, false) {
		t.Fatal("accumulation aligns with the bullish side only")
	}
}

func TestNewIDCarriesPrefix(t *testing.T) {
	id := newID("oc-")
	if !strings.HasPrefix(id, "oc-") || len(id) != len("oc-")+8 {
		t.Fatalf("unexpected id shape: %s", id)
	}
	if newID("oc-") == id {
		t.Fatal("ids must be unique")
	}
}
