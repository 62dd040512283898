package signal

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"signal-tracker/internal/domain"

	"github.com/google/uuid"
)

const (
	confidenceThreshold  = 50
	rsiFloor             = 25.0
	rsiSpread            = 50.0
	rsiOversold          = 35.0
	rsiOverbought        = 65.0
	whaleBoost           = 10
	whaleNetThresholdUSD = 1_000_000
)

var bullishPatterns = []string{"Bullish Engulfing", "Ascending Triangle", "Double Bottom", "Cup and Handle"}
var bearishPatterns = []string{"Bearish Engulfing", "Descending Triangle", "Double Top", "Head and Shoulders"}

// Engine drafts candidate signals from a price snapshot. Indicator values
// are synthetic draws from a seeded source, so a fixed seed replays the
// same batch for the same inputs.
type Engine struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

func NewEngine(seed int64, now func() time.Time) *Engine {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{rng: rand.New(rand.NewSource(seed)), now: now}
}

// Generate evaluates each of the category's pairs independently against the
// snapshot. Pairs without a quote this tick are skipped; a pair emits at
// most one signal, so a batch never repeats a (pair, direction) key.
func (e *Engine) Generate(category domain.Category, book domain.PriceBook, whales []domain.WhaleMovement) []domain.Signal {
	profile, ok := domain.ProfileFor(category)
	if !ok {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]domain.Signal, 0, len(profile.Pairs))
	for _, pair := range profile.Pairs {
		price, ok := book.Price(domain.TickerSymbol(pair))
		if !ok || price <= 0 {
			continue
		}

		rsi := rsiFloor + e.rng.Float64()*rsiSpread
		macd := (e.rng.Float64() - 0.5) * 2
		roll := e.rng.Float64()

		score, bullish := scoreSetup(rsi, macd)

		direction := domain.DirectionLong
		if profile.SignalType == domain.SignalTypeSpot {
			if !bullish {
				continue
			}
			direction = domain.DirectionBuy
		} else if !bullish {
			direction = domain.DirectionShort
		}

		confidence := score
		sentiment, hasWhale := whaleSentiment(pair, whales)
		if hasWhale && whaleAligned(sentiment, bullish) {
			confidence += whaleBoost
		}
		if confidence > 100 {
			confidence = 100
		}
		if confidence < confidenceThreshold {
			continue
		}

		stopLoss, tp1, tp2, tp3 := levelsFor(price, profile, direction)
		sig := domain.Signal{
			ID:           newID(profile.IDPrefix),
			Pair:         pair,
			Direction:    direction,
			SignalType:   profile.SignalType,
			EntryPrice:   price,
			StopLoss:     stopLoss,
			TakeProfit1:  tp1,
			TakeProfit2:  tp2,
			TakeProfit3:  tp3,
			CurrentPrice: price,
			Confidence:   confidence,
			Status:       domain.StatusActive,
			Indicators: domain.Indicators{
				RSI:     rsi,
				MACD:    macd,
				Pattern: patternFor(bullish, roll),
			},
			CreatedAt: e.now().UTC(),
		}
		if hasWhale {
			sig.Indicators.WhaleSentiment = string(sentiment)
		}
		out = append(out, sig)
	}
	return out
}

// scoreSetup rates one synthetic draw. Distance from the neutral RSI line
// and MACD magnitude add strength; MACD sign picks the side unless RSI is
// at an oversold/overbought extreme.
func scoreSetup(rsi, macd float64) (int, bool) {
	bullish := macd > 0
	if rsi <= rsiOversold {
		bullish = true
	}
	if rsi >= rsiOverbought {
		bullish = false
	}
	strength := math.Abs(rsi-50)/50*60 + math.Abs(macd)*40
	return int(math.Round(strength)), bullish
}

func whaleSentiment(pair string, movements []domain.WhaleMovement) (domain.WhaleSide, bool) {
	var net float64
	for _, m := range movements {
		if m.Pair != pair {
			continue
		}
		if m.Side == domain.WhaleAccumulation {
			net += m.AmountUSD
		} else {
			net -= m.AmountUSD
		}
	}
	if net >= whaleNetThresholdUSD {
		return domain.WhaleAccumulation, true
	}
	if net <= -whaleNetThresholdUSD {
		return domain.WhaleDistribution, true
	}
	return "", false
}

func whaleAligned(side domain.WhaleSide, bullish bool) bool {
	if bullish {
		return side == domain.WhaleAccumulation
	}
	return side == domain.WhaleDistribution
}

func patternFor(bullish bool, roll float64) string {
	palette := bearishPatterns
	if bullish {
		palette = bullishPatterns
	}
	idx := int(roll * float64(len(palette)))
	if idx >= len(palette) {
		idx = len(palette) - 1
	}
	return palette[idx]
}

func levelsFor(entry float64, profile domain.CategoryProfile, d domain.Direction) (stopLoss, tp1, tp2, tp3 float64) {
	if d.Bearish() {
		return entry * (1 + profile.StopLossPct),
			entry * (1 - profile.TakeProfitPct[0]),
			entry * (1 - profile.TakeProfitPct[1]),
			entry * (1 - profile.TakeProfitPct[2])
	}
	return entry * (1 - profile.StopLossPct),
		entry * (1 + profile.TakeProfitPct[0]),
		entry * (1 + profile.TakeProfitPct[1]),
		entry * (1 + profile.TakeProfitPct[2])
}

func newID(prefix string) string {
	return prefix + uuid.NewString()[:8]
}
