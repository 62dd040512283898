package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"signal-tracker/internal/domain"
)

type Config struct {
	TelegramBotToken string
	DatabaseURL      string
	RedisURL         string

	PriceFeed        string
	PriceRefreshSecs int
	PriceCacheMillis int

	AutogenIntervalMins int
	AutogenAutostart    []domain.Category

	GeneratorSeed int64

	WhaleAPIKey string
	WhaleAPIURL string

	ArchiveRetentionDays int
	ArchiveDrainSecs     int

	MCPTransport          string
	MCPHTTPEnabled        bool
	MCPHTTPBind           string
	MCPHTTPPort           int
	MCPAuthToken          string
	MCPRequestTimeoutSecs int
	MCPRateLimitPerMin    int
}

func Load() *Config {
	cfg := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		MCPAuthToken:     os.Getenv("MCP_AUTH_TOKEN"),
		WhaleAPIKey:      os.Getenv("WHALE_API_KEY"),
		WhaleAPIURL:      strings.TrimSpace(os.Getenv("WHALE_API_URL")),
	}

	if cfg.TelegramBotToken == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN not set")
	}
	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set, completed-signal archive disabled")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}

	cfg.PriceFeed = strings.ToLower(strings.TrimSpace(os.Getenv("PRICE_FEED")))
	if cfg.PriceFeed == "" {
		cfg.PriceFeed = "binance"
	}
	if cfg.PriceFeed != "binance" && cfg.PriceFeed != "simulated" {
		log.Printf("Warning: unsupported PRICE_FEED=%q, defaulting to binance", cfg.PriceFeed)
		cfg.PriceFeed = "binance"
	}

	cfg.PriceRefreshSecs = 10
	if v := strings.TrimSpace(os.Getenv("PRICE_REFRESH_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PriceRefreshSecs = n
		}
	}

	cfg.PriceCacheMillis = 2000
	if v := strings.TrimSpace(os.Getenv("PRICE_CACHE_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PriceCacheMillis = n
		}
	}

	cfg.AutogenIntervalMins = 45
	if v := strings.TrimSpace(os.Getenv("AUTOGEN_INTERVAL_MINS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AutogenIntervalMins = n
		}
	}

	cfg.AutogenAutostart = parseCategories(strings.TrimSpace(os.Getenv("AUTOGEN_AUTOSTART")))

	if v := strings.TrimSpace(os.Getenv("GENERATOR_SEED")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.GeneratorSeed = n
		}
	}

	cfg.ArchiveRetentionDays = 30
	if v := strings.TrimSpace(os.Getenv("ARCHIVE_RETENTION_DAYS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ArchiveRetentionDays = n
		}
	}

	cfg.ArchiveDrainSecs = 300
	if v := strings.TrimSpace(os.Getenv("ARCHIVE_DRAIN_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ArchiveDrainSecs = n
		}
	}

	cfg.MCPTransport = strings.ToLower(strings.TrimSpace(os.Getenv("MCP_TRANSPORT")))
	if cfg.MCPTransport == "" {
		cfg.MCPTransport = "stdio"
	}
	if cfg.MCPTransport != "stdio" && cfg.MCPTransport != "http" {
		log.Printf("Warning: unsupported MCP_TRANSPORT=%q, defaulting to stdio", cfg.MCPTransport)
		cfg.MCPTransport = "stdio"
	}

	cfg.MCPHTTPEnabled = strings.EqualFold(strings.TrimSpace(os.Getenv("MCP_HTTP_ENABLED")), "true")

	cfg.MCPHTTPBind = strings.TrimSpace(os.Getenv("MCP_HTTP_BIND"))
	if cfg.MCPHTTPBind == "" {
		cfg.MCPHTTPBind = "127.0.0.1"
	}

	cfg.MCPHTTPPort = 8090
	if v := strings.TrimSpace(os.Getenv("MCP_HTTP_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MCPHTTPPort = n
		}
	}

	cfg.MCPRequestTimeoutSecs = 5
	if v := strings.TrimSpace(os.Getenv("MCP_REQUEST_TIMEOUT_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MCPRequestTimeoutSecs = n
		}
	}

	cfg.MCPRateLimitPerMin = 60
	if v := strings.TrimSpace(os.Getenv("MCP_RATE_LIMIT_PER_MIN")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MCPRateLimitPerMin = n
		}
	}

	return cfg
}

func parseCategories(raw string) []domain.Category {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]domain.Category, 0, len(parts))
	seen := make(map[domain.Category]struct{}, len(parts))
	for _, part := range parts {
		c := domain.Category(strings.ToLower(strings.TrimSpace(part)))
		if !c.IsValid() {
			if part != "" {
				log.Printf("Warning: unknown autogen category %q ignored", part)
			}
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
