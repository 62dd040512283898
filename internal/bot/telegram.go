package bot

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"signal-tracker/internal/domain"

	tele "gopkg.in/telebot.v3"
)

type PriceQuerier interface {
	PairPrice(ctx context.Context, symbol string) (float64, error)
}

type SignalBrowser interface {
	ActiveSignals(ctx context.Context, category domain.Category) ([]domain.Signal, error)
	CompletedSignals(ctx context.Context, category domain.Category) ([]domain.CompletedRecord, error)
	GenerateCategory(ctx context.Context, category domain.Category) ([]domain.Signal, int, error)
}

// completedTailSize caps how much history a chat command replays.
const completedTailSize = 5

func StartTelegramBot(priceService PriceQuerier, signalService SignalBrowser) *AlertDispatcher {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Fatalf("failed to create Telegram bot: %v", err)
	}
	alerts := NewAlertDispatcher(b)

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/price", func(c tele.Context) error {
		if priceService == nil {
			return c.Send("Price service unavailable")
		}
		args := c.Args()
		if len(args) == 0 {
			return c.Send("Usage: /price BTCUSDT")
		}
		symbol := strings.ToUpper(strings.TrimSpace(args[0]))
		price, err := priceService.PairPrice(context.Background(), symbol)
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching price for %s: %v", symbol, err))
		}
		return c.Send(fmt.Sprintf("%s\nPrice: $%s", symbol, formatPrice(price)))
	})

	b.Handle("/signals", func(c tele.Context) error {
		if signalService == nil {
			return c.Send("Signal service unavailable")
		}

		category, err := parseCategoryArg(c.Args())
		if err != nil {
			return c.Send(categoryUsage("/signals"))
		}

		signals, err := signalService.ActiveSignals(context.Background(), category)
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching signals: %v", err))
		}
		if len(signals) == 0 {
			return c.Send(fmt.Sprintf("No active %s signals right now.", category))
		}

		lines := make([]string, 0, len(signals)+1)
		lines = append(lines, fmt.Sprintf("Active %s signals:", category))
		for _, s := range signals {
			lines = append(lines, formatSignal(s))
		}
		return c.Send(strings.Join(lines, "\n"))
	})

	b.Handle("/completed", func(c tele.Context) error {
		if signalService == nil {
			return c.Send("Signal service unavailable")
		}

		category, err := parseCategoryArg(c.Args())
		if err != nil {
			return c.Send(categoryUsage("/completed"))
		}

		records, err := signalService.CompletedSignals(context.Background(), category)
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching completed signals: %v", err))
		}
		if len(records) == 0 {
			return c.Send(fmt.Sprintf("No completed %s signals yet.", category))
		}
		if len(records) > completedTailSize {
			records = records[len(records)-completedTailSize:]
		}

		lines := make([]string, 0, len(records)+1)
		lines = append(lines, fmt.Sprintf("Recent completed %s signals:", category))
		for _, rec := range records {
			lines = append(lines, formatCompleted(rec))
		}
		return c.Send(strings.Join(lines, "\n"))
	})

	b.Handle("/generate", func(c tele.Context) error {
		if signalService == nil {
			return c.Send("Signal service unavailable")
		}

		category, err := parseCategoryArg(c.Args())
		if err != nil {
			return c.Send(categoryUsage("/generate"))
		}

		signals, generated, err := signalService.GenerateCategory(context.Background(), category)
		if err != nil {
			return c.Send(fmt.Sprintf("Generation failed: %v", err))
		}
		return c.Send(fmt.Sprintf("Generated %d %s candidate(s); %d signal(s) now active.", generated, category, len(signals)))
	})

	b.Handle("/alerts", func(c tele.Context) error {
		chat := c.Chat()
		if chat == nil {
			return c.Send("Unable to detect chat")
		}

		mode, err := parseAlertMode(c.Args())
		if err != nil {
			return c.Send("Usage: /alerts on | /alerts off | /alerts status")
		}

		switch mode {
		case "on":
			if alerts.Subscribe(chat.ID) {
				return c.Send("Completion alerts enabled for this chat.")
			}
			return c.Send("Completion alerts are already enabled for this chat.")
		case "off":
			if alerts.Unsubscribe(chat.ID) {
				return c.Send("Completion alerts disabled for this chat.")
			}
			return c.Send("Completion alerts are already disabled for this chat.")
		default:
			if alerts.IsSubscribed(chat.ID) {
				return c.Send("Alerts status: ON")
			}
			return c.Send("Alerts status: OFF")
		}
	})

	log.Println("Telegram bot started")
	go b.Start()
	return alerts
}

func parseCategoryArg(args []string) (domain.Category, error) {
	if len(args) == 0 {
		return domain.CategoryDashboard, nil
	}
	category := domain.Category(strings.ToLower(strings.TrimSpace(args[0])))
	if !category.IsValid() {
		return "", fmt.Errorf("unknown category: %s", args[0])
	}
	return category, nil
}

func categoryUsage(command string) string {
	names := make([]string, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		names = append(names, string(c))
	}
	return fmt.Sprintf("Usage: %s [%s]", command, strings.Join(names, "|"))
}

func formatPrice(price float64) string {
	if price != 0 && price < 1 {
		return fmt.Sprintf("%.6f", price)
	}
	return fmt.Sprintf("%.2f", price)
}

func formatSignal(s domain.Signal) string {
	msg := fmt.Sprintf(
		"%s %s %s entry %s now %s (%+.2f%%) conf %d",
		s.ID,
		s.Pair,
		s.Direction,
		formatPrice(s.EntryPrice),
		formatPrice(s.CurrentPrice),
		s.ProfitLossPct,
		s.Confidence,
	)
	if hits := hitTargets(s); hits != "" {
		msg += ", hit " + hits
	}
	return msg
}

func formatCompleted(rec domain.CompletedRecord) string {
	return fmt.Sprintf(
		"%s %s %s closed %+.2f%% at %s",
		rec.ID,
		rec.Pair,
		rec.Direction,
		rec.ProfitLossPct,
		rec.CompletedAt.UTC().Format(time.RFC822),
	)
}

func hitTargets(s domain.Signal) string {
	var hits []string
	if s.TP1Hit {
		hits = append(hits, "TP1")
	}
	if s.TP2Hit {
		hits = append(hits, "TP2")
	}
	if s.TP3Hit {
		hits = append(hits, "TP3")
	}
	return strings.Join(hits, "+")
}
