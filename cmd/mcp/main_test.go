package main

import (
	"context"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"signal-tracker/internal/config"
	"signal-tracker/internal/domain"
	"signal-tracker/internal/job"
	mcpserver "signal-tracker/internal/mcp"
	"signal-tracker/internal/provider"
	"signal-tracker/internal/service"
	signalengine "signal-tracker/internal/signal"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestMainMCPStdio(t *testing.T) {
	restore := stubMCPDeps(t, "stdio")
	defer restore()

	called := false
	origRunStdio := runStdioFunc
	runStdioFunc = func(ctx context.Context, server *sdkmcp.Server) error {
		called = true
		return nil
	}
	defer func() { runStdioFunc = origRunStdio }()

	main()

	if !called {
		t.Fatal("expected stdio transport to run")
	}
}

func TestMainMCPHTTP(t *testing.T) {
	restore := stubMCPDeps(t, "http")
	defer restore()

	httpStarted := false
	started := make(chan struct{})
	origStartHTTP := startHTTPServerFunc
	origNotify := setupSignalNotify
	origWait := waitForSignalFunc
	origShutdown := shutdownHTTPServerFn

	startHTTPServerFunc = func(*http.Server) error {
		httpStarted = true
		close(started)
		return http.ErrServerClosed
	}
	setupSignalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}
	waitForSignalFunc = func(<-chan os.Signal) { <-started }
	shutdownHTTPServerFn = func(*http.Server, context.Context) error { return nil }

	defer func() {
		startHTTPServerFunc = origStartHTTP
		setupSignalNotify = origNotify
		waitForSignalFunc = origWait
		shutdownHTTPServerFn = origShutdown
	}()

	main()

	if !httpStarted {
		t.Fatal("expected http transport to start")
	}
}

func TestMainMCPHTTPRequiresToken(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := &config.Config{
		MCPHTTPEnabled: true,
		MCPHTTPBind:    "127.0.0.1",
		MCPHTTPPort:    8090,
	}
	srv := sdkmcp.NewServer(&sdkmcp.Implementation{Name: "test"}, nil)

	err := runHTTPMode(ctx, cancel, cfg, srv)
	if err == nil {
		t.Fatal("expected missing token error")
	}
	if !strings.Contains(err.Error(), "MCP_AUTH_TOKEN is required") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func stubMCPDeps(t *testing.T, transport string) func() {
	t.Helper()

	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origInitRedis := initRedisFunc
	origInitTracer := initTracerFunc
	origNewPriceSource := newPriceSourceFunc
	origNewWhaleFeed := newWhaleFeedFunc
	origNewSignalEngine := newSignalEngineFunc
	origNewSignalService := newSignalServiceFunc
	origNewAutogen := newAutogenFunc
	origNewMCPServer := newMCPServerFunc
	origNewMCPHandler := newMCPHandlerFunc

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() *config.Config {
		return &config.Config{
			RedisURL:              "",
			PriceCacheMillis:      100,
			AutogenIntervalMins:   45,
			MCPTransport:          transport,
			MCPHTTPEnabled:        true,
			MCPHTTPBind:           "127.0.0.1",
			MCPHTTPPort:           8090,
			MCPAuthToken:          "secret",
			MCPRequestTimeoutSecs: 1,
			MCPRateLimitPerMin:    60,
		}
	}
	initRedisFunc = func(context.Context) {}
	initTracerFunc = func(ctx context.Context) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	newPriceSourceFunc = func(trace.Tracer, *config.Config) service.PriceSource { return stubMCPPriceSource{} }
	newWhaleFeedFunc = func(trace.Tracer, *config.Config) service.WhaleFeed {
		return provider.NewSimulatedWhaleFeed(1, nil)
	}
	newSignalEngineFunc = func(int64, func() time.Time) *signalengine.Engine {
		return signalengine.NewEngine(1, nil)
	}
	newSignalServiceFunc = func(
		trace.Tracer,
		service.SignalStore,
		service.PriceSource,
		service.SignalGenerator,
		service.WhaleFeed,
	) *service.SignalService {
		return nil
	}
	newAutogenFunc = func(trace.Tracer, job.CategoryGenerator, job.AutogenStore, int) *job.AutogenScheduler {
		return nil
	}
	newMCPServerFunc = func(trace.Tracer, mcpserver.PriceReader, mcpserver.SignalReaderWriter, mcpserver.ScheduleReader, mcpserver.ServerConfig) *sdkmcp.Server {
		return sdkmcp.NewServer(&sdkmcp.Implementation{Name: "test-mcp"}, nil)
	}
	newMCPHandlerFunc = func(server *sdkmcp.Server, cfg mcpserver.HTTPHandlerConfig) http.Handler {
		return http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	}

	return func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		initRedisFunc = origInitRedis
		initTracerFunc = origInitTracer
		newPriceSourceFunc = origNewPriceSource
		newWhaleFeedFunc = origNewWhaleFeed
		newSignalEngineFunc = origNewSignalEngine
		newSignalServiceFunc = origNewSignalService
		newAutogenFunc = origNewAutogen
		newMCPServerFunc = origNewMCPServer
		newMCPHandlerFunc = origNewMCPHandler
	}
}

type stubMCPPriceSource struct{}

func (stubMCPPriceSource) BulkPrices(ctx context.Context) (domain.PriceBook, error) {
	return domain.PriceBook{Prices: map[string]float64{"BTCUSDT": 1}}, nil
}

func (stubMCPPriceSource) Price(ctx context.Context, symbol string) (float64, error) {
	return 1, nil
}
