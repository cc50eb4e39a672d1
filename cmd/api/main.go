package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fblacp/scales/internal/api"
	"github.com/fblacp/scales/internal/api/handlers"
	"github.com/fblacp/scales/internal/app"
	"github.com/fblacp/scales/internal/auth"
	"github.com/fblacp/scales/internal/config"
	"github.com/fblacp/scales/internal/currency"
	"github.com/fblacp/scales/internal/dashboard"
	"github.com/fblacp/scales/internal/export"
	"github.com/fblacp/scales/internal/goal"
	"github.com/fblacp/scales/internal/jobs/inmemory"
	"github.com/fblacp/scales/internal/logger"
	"github.com/fblacp/scales/internal/pipeline"
)

func main() {
	// Parse command-line flags
	var (
		envFile = flag.String("env", "", "Optional .env file to load before the environment")
		port    = flag.String("port", "", "HTTP server port (overrides PORT)")
	)
	flag.Parse()

	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *port != "" {
		cfg.Port = *port
	}

	// Initialize logger
	log := app.NewLogger(cfg)
	ctx := logger.WithContext(context.Background(), log)

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid timezone")
	}

	// Initialize storage backends
	repo, err := app.OpenRepository(ctx, cfg, loc)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open repository")
	}
	defer repo.Close()

	settings, closeKV, err := app.OpenKV(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open settings store")
	}
	defer closeKV()

	objects, closeStorage, err := app.OpenStorage(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer closeStorage()

	// Domain services
	authService := auth.NewService(repo, cfg.JWTSecret, cfg.TokenTTL)
	goals := goal.NewStore(settings)
	prefs := currency.NewPreferences(settings, cfg.DefaultCurrency)
	rates := currency.NewClient(cfg.ExchangeRateAPIKey, settings)
	currencyService := currency.NewService(rates, prefs, goals, repo)

	dash := dashboard.NewService(repo, goals, nil)
	defer dash.Close()
	unwatch := dash.WatchGoals(goals)
	defer unwatch()
	currencyService.Observe(dash)

	var publisher handlers.ReportPublisher
	if objects != nil {
		publisher = export.NewPublisher(objects, cfg.GCSBucket)
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, cfg.JobWorkers, jobStore)

	extractor, scanner, err := app.NewScanner(ctx, cfg, loc)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create receipt scanner")
	}

	// Start job consumer in background
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	scanPipeline := pipeline.NewScanPipeline(objects, extractor, scanner)
	if err := jobQueue.Start(workerCtx, pipeline.Handler(scanPipeline)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job worker")
	}
	log.Info().Int("workers", cfg.JobWorkers).Msg("Started receipt workers")

	// Initialize handlers
	router := api.NewRouter(api.Handlers{
		Auth:         handlers.NewAuthHandler(authService, log),
		Transactions: handlers.NewTransactionsHandler(repo, dash, loc, log),
		Goal:         handlers.NewGoalHandler(goals, log),
		Currency:     handlers.NewCurrencyHandler(prefs, currencyService, dash, log),
		Dashboard:    handlers.NewDashboardHandler(dash, log),
		Summary:      handlers.NewSummaryHandler(repo, prefs, publisher, loc, log),
		Receipts:     handlers.NewReceiptsHandler(jobQueue, objects, cfg.GCSBucket, log),
		Jobs:         handlers.NewJobsHandler(jobStore, log),
	}, authService, log)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	// Start server in a goroutine
	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("store", cfg.StoreBackend).
			Str("timezone", loc.String()).
			Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	cancelWorker()
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
