package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"trendybets/ingestion/internal/api"
	"trendybets/ingestion/internal/cache"
	"trendybets/ingestion/internal/client"
	"trendybets/ingestion/internal/config"
	"trendybets/ingestion/internal/metrics"
	"trendybets/ingestion/internal/pool"
	"trendybets/ingestion/internal/repository"
	"trendybets/ingestion/internal/scheduler"
	"trendybets/ingestion/internal/syncer"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()

	// Setup logger
	setupLogger(cfg)

	log.Info().Msg("Starting TrendyBets Sync Worker")
	log.Info().
		Str("env", cfg.AppEnv).
		Str("league", cfg.League).
		Msg("Configuration loaded")

	// Create context that listens for cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	// Initialize OpticOdds client
	apiClient := client.NewClient(
		cfg.OpticOddsBaseURL,
		cfg.OpticOddsAPIKey,
		cfg.Sport,
		cfg.League,
		cfg.OpticOddsTimeout,
	)
	log.Info().Msg("OpticOdds client initialized")

	// Initialize database connection
	dbConfig := repository.Config{
		DSN: cfg.DatabaseDSN(),
		Pool: pool.Config{
			Min:                 cfg.PoolMinConns,
			Max:                 cfg.PoolMaxConns,
			IdleTimeout:         cfg.PoolIdleTimeout,
			AcquireTimeout:      cfg.PoolAcquireTimeout,
			HealthCheckInterval: cfg.PoolHealthCheckInterval,
		},
	}

	db, err := repository.NewDatabase(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close(context.Background())
	log.Info().Msg("Database connection established")

	// Initialize Redis client
	redisCache, err := cache.NewRedisCache(cache.Config{
		Host:     cfg.RedisHost,
		Port:     strconv.Itoa(cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without cache")
		redisCache = nil
	} else {
		defer redisCache.Close()
		log.Info().Msg("Redis cache connected")
	}

	// Wire the sync engine
	reference := syncer.NewReferenceSyncer(apiClient, db, redisCache, cfg.League)
	orchestrator := syncer.NewOrchestrator(
		syncer.NewPlayerHistorySource(apiClient, db, redisCache),
		syncer.NewPlayerHistorySink(db),
		db.SyncLog,
		syncer.WithPlanOptions(syncer.PlanOptions{
			BatchSize:       cfg.SyncBatchSize,
			FanoutThreshold: cfg.SyncFanoutThreshold,
			ShardSize:       cfg.SyncShardSize,
			InterBatchDelay: cfg.SyncInterBatchDelay,
		}),
	)

	// Start metrics HTTP server
	if cfg.EnableMetrics {
		go startMetricsServer(strconv.Itoa(cfg.MetricsPort))
	}

	// Publish uptime and pool gauges
	startTime := time.Now()
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.SystemUptime.Set(time.Since(startTime).Seconds())
				stats := db.Pool.Stats()
				metrics.RecordPoolStats(stats.Total, stats.InUse, stats.Idle)
			case <-ctx.Done():
				return
			}
		}
	}()

	// Start the sync API server
	apiServer := newAPIServer(cfg, reference, orchestrator, db)
	go func() {
		log.Info().Int("port", cfg.APIPort).Msg("Sync API listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Sync API server failed")
			cancel()
		}
	}()

	// Create and start scheduler
	sched := scheduler.NewScheduler(cfg, reference, orchestrator)

	if cfg.EnableScheduler {
		log.Info().Msg("Starting scheduler...")
		if err := sched.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
	}

	// Run initial sync if enabled
	if cfg.InitialSyncEnabled {
		log.Info().Msg("Running initial data sync...")
		if err := sched.RunInitialSync(ctx); err != nil {
			log.Error().Err(err).Msg("Initial sync failed, continuing anyway...")
		} else {
			log.Info().Msg("Initial sync completed successfully")
		}
	}

	// Keep running until context is cancelled
	<-ctx.Done()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	log.Info().Msg("Shutting down sync API...")
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Sync API shutdown failed")
	}

	if cfg.EnableScheduler {
		log.Info().Msg("Shutting down scheduler...")
		sched.Stop()
	}

	log.Info().Msg("Worker shutdown complete")
}

// newAPIServer wires the HTTP surface: every sync type the scheduler knows
// is also triggerable by hand.
func newAPIServer(cfg *config.Config, reference *syncer.ReferenceSyncer, orchestrator *syncer.Orchestrator, db *repository.Database) *http.Server {
	runners := map[string]api.RunFunc{
		syncer.SyncTypePlayerHistory: orchestrator.Run,
		syncer.SyncTypeTeams:         referenceRunner(reference.SyncTeams),
		syncer.SyncTypePlayers:       referenceRunner(reference.SyncPlayers),
		syncer.SyncTypeFixtures:      referenceRunner(reference.SyncFixtures),
		syncer.SyncTypeOdds:          referenceRunner(reference.SyncOdds),
	}

	server := api.NewServer(cfg.APIToken, runners, db.SyncLog, db.Health)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.APIPort),
		Handler:      server.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 15 * time.Minute, // sync runs can be slow
	}
}

// referenceRunner adapts a full-refresh sync to the RunFunc shape
func referenceRunner(run func(ctx context.Context) (*syncer.Summary, error)) api.RunFunc {
	return func(ctx context.Context, _ syncer.Request) (*syncer.Summary, error) {
		return run(ctx)
	}
}

// setupLogger configures the zerolog logger
func setupLogger(cfg *config.Config) {
	// Pretty console logging in development
	if cfg.AppEnv == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	// Set log level
	level := zerolog.InfoLevel
	if parsedLevel, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		level = parsedLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("level", level.String()).
		Msg("Logger initialized")
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	log.Info().Str("port", port).Msg("Metrics server listening")
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}
