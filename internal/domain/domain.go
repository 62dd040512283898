package domain

import (
	"strings"
	"time"
)

type Direction string

const (
	DirectionBuy   Direction = "BUY"
	DirectionSell  Direction = "SELL"
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

func (d Direction) IsValid() bool {
	switch d {
	case DirectionBuy, DirectionSell, DirectionLong, DirectionShort:
		return true
	}
	return false
}

// Bearish reports whether profit accrues as price falls.
func (d Direction) Bearish() bool {
	return d == DirectionSell || d == DirectionShort
}

type SignalType string

const (
	SignalTypeSpot   SignalType = "SPOT"
	SignalTypeFuture SignalType = "FUTURE"
)

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
)

type Indicators struct {
	RSI            float64 `json:"rsi"`
	MACD           float64 `json:"macd"`
	Pattern        string  `json:"pattern,omitempty"`
	WhaleSentiment string  `json:"whale_sentiment,omitempty"`
}

type Signal struct {
	ID            string     `json:"id"`
	Pair          string     `json:"pair"`
	Direction     Direction  `json:"direction"`
	SignalType    SignalType `json:"signal_type"`
	EntryPrice    float64    `json:"entry_price"`
	StopLoss      float64    `json:"stop_loss"`
	TakeProfit1   float64    `json:"take_profit_1"`
	TakeProfit2   float64    `json:"take_profit_2"`
	TakeProfit3   float64    `json:"take_profit_3"`
	CurrentPrice  float64    `json:"current_price"`
	TP1Hit        bool       `json:"tp1_hit"`
	TP2Hit        bool       `json:"tp2_hit"`
	TP3Hit        bool       `json:"tp3_hit"`
	Confidence    int        `json:"confidence"`
	Status        Status     `json:"status"`
	ProfitLossPct float64    `json:"profit_loss_pct"`
	Indicators    Indicators `json:"indicators"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Key identifies a signal for merge dedup purposes.
func (s Signal) Key() string {
	return s.Pair + "|" + string(s.Direction)
}

// EntryDirectionValid enforces that spot entries are BUY only and futures
// entries are LONG or SHORT.
func (s Signal) EntryDirectionValid() bool {
	if s.SignalType == SignalTypeSpot {
		return s.Direction == DirectionBuy
	}
	return s.Direction == DirectionLong || s.Direction == DirectionShort
}

type CompletedRecord struct {
	Signal
	SchemaVersion int        `json:"schema_version"`
	CompletedAt   time.Time  `json:"completed_at"`
	TP2HitTime    *time.Time `json:"tp2_hit_time,omitempty"`
	TP3HitTime    *time.Time `json:"tp3_hit_time,omitempty"`
}

type Category string

const (
	CategoryDashboard Category = "dashboard"
	CategoryScalping  Category = "scalping"
	CategoryOnchain   Category = "onchain"
)

var Categories = []Category{CategoryDashboard, CategoryScalping, CategoryOnchain}

func (c Category) IsValid() bool {
	switch c {
	case CategoryDashboard, CategoryScalping, CategoryOnchain:
		return true
	}
	return false
}

type CategoryProfile struct {
	IDPrefix      string
	SignalType    SignalType
	Pairs         []string
	StopLossPct   float64
	TakeProfitPct [3]float64
}

var profiles = map[Category]CategoryProfile{
	CategoryDashboard: {
		IDPrefix:      "sig-",
		SignalType:    SignalTypeSpot,
		Pairs:         []string{"BTC/USDT", "ETH/USDT", "BNB/USDT", "SOL/USDT", "XRP/USDT", "ADA/USDT", "DOGE/USDT", "DOT/USDT"},
		StopLossPct:   0.03,
		TakeProfitPct: [3]float64{0.015, 0.03, 0.05},
	},
	CategoryScalping: {
		IDPrefix:      "scalp-",
		SignalType:    SignalTypeFuture,
		Pairs:         []string{"BTC/USDT", "ETH/USDT", "SOL/USDT", "BNB/USDT", "LINK/USDT", "AVAX/USDT"},
		StopLossPct:   0.01,
		TakeProfitPct: [3]float64{0.005, 0.01, 0.018},
	},
	CategoryOnchain: {
		IDPrefix:      "oc-",
		SignalType:    SignalTypeFuture,
		Pairs:         []string{"BTC/USDT", "ETH/USDT", "SOL/USDT", "MATIC/USDT", "ARB/USDT"},
		StopLossPct:   0.025,
		TakeProfitPct: [3]float64{0.012, 0.024, 0.04},
	},
}

func ProfileFor(c Category) (CategoryProfile, bool) {
	p, ok := profiles[c]
	return p, ok
}

// CategoryForID resolves the originating category from an id prefix.
func CategoryForID(id string) (Category, bool) {
	for c, p := range profiles {
		if strings.HasPrefix(id, p.IDPrefix) {
			return c, true
		}
	}
	return "", false
}

// TickerSymbol converts a display pair into the concatenated form the quote
// service expects ("BTC/USDT" -> "BTCUSDT").
func TickerSymbol(pair string) string {
	return strings.ReplaceAll(pair, "/", "")
}

// ProfitLossPct returns the running P/L percentage relative to entry. The
// formula mirrors for bearish directions so profit is always positive when
// the trade moves the recommended way.
func ProfitLossPct(d Direction, entry, current float64) float64 {
	if entry == 0 {
		return 0
	}
	if d.Bearish() {
		return (entry - current) / entry * 100
	}
	return (current - entry) / entry * 100
}

type PriceBook struct {
	Prices    map[string]float64 `json:"prices"`
	Cached    bool               `json:"cached"`
	Timestamp int64              `json:"timestamp"`
}

func (b PriceBook) Price(symbol string) (float64, bool) {
	p, ok := b.Prices[symbol]
	return p, ok
}

type WhaleSide string

const (
	WhaleAccumulation WhaleSide = "accumulation"
	WhaleDistribution WhaleSide = "distribution"
)

type WhaleMovement struct {
	Pair      string    `json:"pair"`
	AmountUSD float64   `json:"amount_usd"`
	Side      WhaleSide `json:"side"`
	Timestamp time.Time `json:"timestamp"`
}

type AutogenState struct {
	Enabled   bool      `json:"enabled"`
	LastRunAt time.Time `json:"last_run_at"`
}
