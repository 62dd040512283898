package mcp

import (
	"fmt"
	"strings"
	"time"

	"signal-tracker/internal/domain"
)

const (
	defaultCompletedLimit = 50
	maxCompletedLimit     = 200
)

type pricesListLatestInput struct{}

type pricesListLatestOutput struct {
	Prices    map[string]float64 `json:"prices"`
	Cached    bool               `json:"cached"`
	Timestamp int64              `json:"timestamp"`
}

type pricesGetBySymbolInput struct {
	Symbol string `json:"symbol" jsonschema:"ticker symbol (e.g. BTCUSDT) or display pair (BTC/USDT)"`
}

type pricesGetBySymbolOutput struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

type signalsListActiveInput struct {
	Category string `json:"category" jsonschema:"signal category: dashboard, scalping, onchain"`
}

type signalsListActiveOutput struct {
	Category domain.Category `json:"category"`
	Signals  []domain.Signal `json:"signals"`
}

type signalsListCompletedInput struct {
	Category string `json:"category,omitempty" jsonschema:"optional category filter: dashboard, scalping, onchain"`
	Limit    int    `json:"limit,omitempty" jsonschema:"number of most recent records to return, max 200"`
}

type signalsListCompletedOutput struct {
	Completed []domain.CompletedRecord `json:"completed"`
}

type signalsGenerateInput struct {
	Category string `json:"category" jsonschema:"signal category: dashboard, scalping, onchain"`
}

type signalsGenerateOutput struct {
	Category       domain.Category `json:"category"`
	GeneratedCount int             `json:"generated_count"`
	Signals        []domain.Signal `json:"signals"`
}

type autogenStatusInput struct {
	Category string `json:"category" jsonschema:"signal category: dashboard, scalping, onchain"`
}

type autogenStatusOutput struct {
	Category         domain.Category `json:"category"`
	Enabled          bool            `json:"enabled"`
	LastRunAt        time.Time       `json:"last_run_at"`
	NextRunInSeconds int64           `json:"next_run_in_seconds"`
}

func normalizeCategory(raw string) (domain.Category, error) {
	category := domain.Category(strings.ToLower(strings.TrimSpace(raw)))
	if !category.IsValid() {
		return "", fmt.Errorf("unsupported category: %s", raw)
	}
	return category, nil
}

// normalizeOptionalCategory treats an empty string as "no filter".
func normalizeOptionalCategory(raw string) (domain.Category, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return normalizeCategory(raw)
}

func normalizeSymbol(symbol string) (string, error) {
	symbol = domain.TickerSymbol(strings.ToUpper(strings.TrimSpace(symbol)))
	if symbol == "" {
		return "", fmt.Errorf("symbol is required")
	}
	return symbol, nil
}

func normalizeCompletedLimit(limit int) int {
	if limit <= 0 {
		return defaultCompletedLimit
	}
	if limit > maxCompletedLimit {
		return maxCompletedLimit
	}
	return limit
}

// tailRecords keeps the most recent records; the completed log is oldest
// first.
func tailRecords(records []domain.CompletedRecord, limit int) []domain.CompletedRecord {
	if len(records) <= limit {
		return records
	}
	return records[len(records)-limit:]
}
