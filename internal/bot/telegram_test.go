package bot

import (
	"strings"
	"testing"
	"time"

	"signal-tracker/internal/domain"
)

func TestStartTelegramBotSkipsWithoutToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	if StartTelegramBot(nil, nil) != nil {
		t.Fatal("expected nil dispatcher without a token")
	}
}

func TestParseCategoryArg(t *testing.T) {
	category, err := parseCategoryArg(nil)
	if err != nil || category != domain.CategoryDashboard {
		t.Fatalf("expected dashboard default, got %q err=%v", category, err)
	}

	category, err = parseCategoryArg([]string{"SCALPING"})
	if err != nil || category != domain.CategoryScalping {
		t.Fatalf("expected scalping, got %q err=%v", category, err)
	}

	if _, err := parseCategoryArg([]string{"swing"}); err == nil {
		t.Fatal("expected unknown category error")
	}
}

func TestFormatSignalListsHitTargets(t *testing.T) {
	s := domain.Signal{
		ID:            "oc-bbb22222",
		Pair:          "ETH/USDT",
		Direction:     domain.DirectionShort,
		EntryPrice:    3200,
		CurrentPrice:  3150,
		ProfitLossPct: 1.5625,
		Confidence:    64,
		TP1Hit:        true,
		TP2Hit:        true,
	}

	msg := formatSignal(s)
	if !strings.Contains(msg, "oc-bbb22222 ETH/USDT SHORT") {
		t.Fatalf("unexpected message: %s", msg)
	}
	if !strings.Contains(msg, "hit TP1+TP2") {
		t.Fatalf("expected hit targets in message: %s", msg)
	}
	if strings.Contains(msg, "TP3") {
		t.Fatalf("unhit target leaked into message: %s", msg)
	}
}

func TestFormatPriceScalesPrecision(t *testing.T) {
	if got := formatPrice(65000.5); got != "65000.50" {
		t.Fatalf("unexpected formatting: %s", got)
	}
	if got := formatPrice(0.082314); got != "0.082314" {
		t.Fatalf("expected sub-dollar precision, got %s", got)
	}
}

func TestFormatCompletedIncludesTimestamp(t *testing.T) {
	rec := domain.CompletedRecord{
		Signal: domain.Signal{
			ID:            "sig-ccc33333",
			Pair:          "BTC/USDT",
			Direction:     domain.DirectionBuy,
			ProfitLossPct: 3,
		},
		CompletedAt: time.Date(2026, 4, 12, 15, 4, 0, 0, time.UTC),
	}

	msg := formatCompleted(rec)
	if !strings.Contains(msg, "sig-ccc33333") || !strings.Contains(msg, "+3.00%") {
		t.Fatalf("unexpected message: %s", msg)
	}
	if !strings.Contains(msg, "12 Apr 26") {
		t.Fatalf("expected RFC822 timestamp, got %s", msg)
	}
}
