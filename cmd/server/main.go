package main

import (
	"context"
	"log"
	"net/http"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	"signal-tracker/internal/bot"
	"signal-tracker/internal/cache"
	"signal-tracker/internal/config"
	"signal-tracker/internal/db"
	"signal-tracker/internal/handler"
	"signal-tracker/internal/job"
	"signal-tracker/internal/provider"
	"signal-tracker/internal/repository"
	"signal-tracker/internal/service"
	signalengine "signal-tracker/internal/signal"
	"signal-tracker/internal/store"
	"signal-tracker/pkg/tracing"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	_ "signal-tracker/docs"
)

var (
	loadEnvFunc        = godotenv.Load
	loadConfigFunc     = config.Load
	initPostgresFunc   = db.InitPostgres
	initRedisFunc      = cache.InitRedis
	initTracerFunc     = tracing.InitTracer
	newSignalStoreFunc = func(tracer trace.Tracer) *store.Store {
		return store.New(tracer, store.NewRedisKV(cache.Client))
	}
	newArchiveRepoFunc = repository.NewArchiveRepository
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
	newSignalEngineFunc    = signalengine.NewEngine
	newSignalServiceFunc   = service.NewSignalService
	newRefreshPollerFunc   = job.NewRefreshPoller
	startRefreshPollerFunc = func(p *job.RefreshPoller, ctx context.Context) { go p.Start(ctx) }
	newAutogenFunc         = job.NewAutogenScheduler
	startAutogenFunc       = func(s *job.AutogenScheduler, ctx context.Context) { go s.Start(ctx) }
	newArchiveJobFunc      = job.NewArchiveMaintenance
	startArchiveJobFunc    = func(j *job.ArchiveMaintenance, ctx context.Context) { go j.Start(ctx) }
	newLiveHubFunc         = handler.NewLiveHub
	startLiveHubFunc       = func(h *handler.LiveHub, ctx context.Context) { go h.Run(ctx) }
	startTelegramBotFunc   = bot.StartTelegramBot
	newHandlerFunc         = handler.New
	newRouterFunc          = gin.Default
	setupSignalNotify      = ossignal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Signal Tracker API
// @version         1.0
// @description     Simulated crypto trading signals with lifecycle tracking and OpenTelemetry tracing.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Postgres and Redis
	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	os.Setenv("REDIS_URL", cfg.RedisURL)
	initPostgresFunc(ctx)
	initRedisFunc(ctx)

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	// Store, feeds and the generation engine
	signalStore := newSignalStoreFunc(tracer)
	priceSource := newPriceSourceFunc(tracer, cfg)
	whaleFeed := newWhaleFeedFunc(tracer, cfg)
	engine := newSignalEngineFunc(cfg.GeneratorSeed, nil)
	signalService := newSignalServiceFunc(tracer, signalStore, priceSource, engine, whaleFeed)

	// Archive mirror and retention pruning; store-only without Postgres
	archiveRepo := newArchiveRepoFunc(db.Pool, tracer)
	if db.Pool != nil {
		if err := archiveRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run archive migrations: %v", err)
		}
		archiveJob := newArchiveJobFunc(tracer, signalStore, archiveRepo, cfg.ArchiveDrainSecs, cfg.ArchiveRetentionDays)
		startArchiveJobFunc(archiveJob, ctx)
	}

	// Background refresh of the active sets (stopped by ctx cancel)
	poller := newRefreshPollerFunc(tracer, signalService, cfg.PriceRefreshSecs)
	startRefreshPollerFunc(poller, ctx)

	// Auto-generation schedule
	autogen := newAutogenFunc(tracer, signalService, signalStore, cfg.AutogenIntervalMins)
	for _, category := range cfg.AutogenAutostart {
		if _, err := autogen.Enable(ctx, category); err != nil {
			log.Printf("autogen autostart for %s failed: %v", category, err)
		}
	}
	startAutogenFunc(autogen, ctx)

	// Live event stream
	hub := newLiveHubFunc()
	startLiveHubFunc(hub, ctx)
	signalService.AddCompletionNotifier(hub)

	// Start Telegram bot
	os.Setenv("TELEGRAM_BOT_TOKEN", cfg.TelegramBotToken)
	alerts := startTelegramBotFunc(signalService, signalService)
	if alerts != nil {
		signalService.AddCompletionNotifier(alerts)
	}

	// Create handlers and routes
	h := newHandlerFunc(tracer, signalService, autogen, hub)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("signal-tracker"))
	r.Use(cors.Default())

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    httpAddrFromEnv(),
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}

func httpAddrFromEnv() string {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		return ":8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}
