package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	"signal-tracker/internal/cache"
	"signal-tracker/internal/config"
	"signal-tracker/internal/job"
	mcpserver "signal-tracker/internal/mcp"
	"signal-tracker/internal/provider"
	"signal-tracker/internal/service"
	signalengine "signal-tracker/internal/signal"
	"signal-tracker/internal/store"
	"signal-tracker/pkg/tracing"

	"github.com/joho/godotenv"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/trace"
)

const defaultMCPHTTPMaxBodyBytes int64 = 1 << 20 // 1MiB

var (
	loadEnvFunc        = godotenv.Load
	loadConfigFunc     = config.Load
	initRedisFunc      = cache.InitRedis
	initTracerFunc     = tracing.InitTracer
	newSignalStoreFunc = func(tracer trace.Tracer) *store.Store {
		return store.New(tracer, store.NewRedisKV(cache.Client))
	}
	newPriceSourceFunc = func(tracer trace.Tracer, cfg *config.Config) service.PriceSource {
		var src provider.Source
		if cfg.PriceFeed == "simulated" {
			src = provider.NewSimulatedSource(cfg.GeneratorSeed)
		} else {
			src = provider.NewBinanceSource(tracer)
		}
		ttl := time.Duration(cfg.PriceCacheMillis) * time.Millisecond
		return provider.NewAdapter(tracer, src, ttl, nil)
	}
	newWhaleFeedFunc = func(tracer trace.Tracer, cfg *config.Config) service.WhaleFeed {
		if cfg.WhaleAPIURL != "" && cfg.WhaleAPIKey != "" {
			return provider.NewHTTPWhaleFeed(tracer, cfg.WhaleAPIURL, cfg.WhaleAPIKey)
		}
		return provider.NewSimulatedWhaleFeed(cfg.GeneratorSeed, nil)
	}
	newSignalEngineFunc  = signalengine.NewEngine
	newSignalServiceFunc = service.NewSignalService
	newAutogenFunc       = job.NewAutogenScheduler
	newMCPServerFunc     = mcpserver.NewServer
	newMCPHandlerFunc    = mcpserver.NewHTTPTransportHandler
	runStdioFunc         = func(ctx context.Context, server *sdkmcp.Server) error {
		return server.Run(ctx, &sdkmcp.StdioTransport{})
	}
	startHTTPServerFunc  = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFn = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
	setupSignalNotify    = ossignal.Notify
	waitForSignalFunc    = func(quit <-chan os.Signal) { <-quit }
)

func main() {
	loadEnvFunc()
	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	os.Setenv("REDIS_URL", cfg.RedisURL)
	initRedisFunc(ctx)

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	signalStore := newSignalStoreFunc(tracer)
	priceSource := newPriceSourceFunc(tracer, cfg)
	whaleFeed := newWhaleFeedFunc(tracer, cfg)
	engine := newSignalEngineFunc(cfg.GeneratorSeed, nil)
	signalService := newSignalServiceFunc(tracer, signalStore, priceSource, engine, whaleFeed)

	// The scheduler is never started here: the server process owns the
	// cadence, this one only reads the persisted schedule state.
	autogen := newAutogenFunc(tracer, signalService, signalStore, cfg.AutogenIntervalMins)

	mcpSrv := newMCPServerFunc(tracer, signalService, signalService, autogen, mcpserver.ServerConfig{
		RequestTimeout: time.Duration(cfg.MCPRequestTimeoutSecs) * time.Second,
	})

	transport := strings.ToLower(strings.TrimSpace(cfg.MCPTransport))
	switch transport {
	case "", "stdio":
		if err := runStdioFunc(ctx, mcpSrv); err != nil {
			log.Fatalf("mcp stdio server failed: %v", err)
		}
	case "http":
		if err := runHTTPMode(ctx, cancel, cfg, mcpSrv); err != nil {
			log.Fatalf("mcp http server failed: %v", err)
		}
	default:
		log.Fatalf("unsupported MCP_TRANSPORT: %s", cfg.MCPTransport)
	}
}

func runHTTPMode(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, mcpSrv *sdkmcp.Server) error {
	if !cfg.MCPHTTPEnabled {
		return fmt.Errorf("MCP_HTTP_ENABLED must be true when MCP_TRANSPORT=http")
	}
	if strings.TrimSpace(cfg.MCPAuthToken) == "" {
		return fmt.Errorf("MCP_AUTH_TOKEN is required when MCP_TRANSPORT=http")
	}

	handler := newMCPHandlerFunc(mcpSrv, mcpserver.HTTPHandlerConfig{
		AuthToken:       cfg.MCPAuthToken,
		RateLimitPerMin: cfg.MCPRateLimitPerMin,
		MaxBodyBytes:    defaultMCPHTTPMaxBodyBytes,
	})

	addr := net.JoinHostPort(cfg.MCPHTTPBind, fmt.Sprintf("%d", cfg.MCPHTTPPort))
	srv := &http.Server{Addr: addr, Handler: handler}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Printf("mcp http server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFn(srv, shutdownCtx); err != nil {
		return fmt.Errorf("mcp server forced to shutdown: %w", err)
	}
	return nil
}
