// Command syncrun runs one named sync to completion and exits. Useful for
// backfills and for re-running a sync by hand without going through the
// worker's HTTP surface.
//
// Usage:
//
//	syncrun -type player-history [-unit <playerID>] [-since 2026-01-01T00:00:00Z]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"trendybets/ingestion/internal/cache"
	"trendybets/ingestion/internal/client"
	"trendybets/ingestion/internal/config"
	"trendybets/ingestion/internal/pool"
	"trendybets/ingestion/internal/repository"
	"trendybets/ingestion/internal/syncer"

	"github.com/rs/zerolog/log"
)

func main() {
	syncType := flag.String("type", syncer.SyncTypePlayerHistory, "sync to run: teams, players, fixtures, odds, player-history")
	unitID := flag.String("unit", "", "restrict the run to one work unit (player id)")
	since := flag.String("since", "", "cursor override, RFC 3339; otherwise resolved from the ledger")
	flag.Parse()

	ctx := context.Background()
	cfg := config.MustLoad()

	db, err := repository.NewDatabase(ctx, repository.Config{
		DSN: cfg.DatabaseDSN(),
		Pool: pool.Config{
			Min:                 cfg.PoolMinConns,
			Max:                 cfg.PoolMaxConns,
			IdleTimeout:         cfg.PoolIdleTimeout,
			AcquireTimeout:      cfg.PoolAcquireTimeout,
			HealthCheckInterval: cfg.PoolHealthCheckInterval,
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close(context.Background())

	// Validate database connectivity before doing any work
	log.Info().Msg("Validating service health...")
	if err := db.Health(ctx); err != nil {
		log.Fatal().Err(err).Msg("Database health check failed")
	}

	apiClient := client.NewClient(
		cfg.OpticOddsBaseURL,
		cfg.OpticOddsAPIKey,
		cfg.Sport,
		cfg.League,
		cfg.OpticOddsTimeout,
	)

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
	}

	reference := syncer.NewReferenceSyncer(apiClient, db, redisCache, cfg.League)

	start := time.Now()
	var summary *syncer.Summary

	switch *syncType {
	case syncer.SyncTypeTeams:
		summary, err = reference.SyncTeams(ctx)
	case syncer.SyncTypePlayers:
		summary, err = reference.SyncPlayers(ctx)
	case syncer.SyncTypeFixtures:
		summary, err = reference.SyncFixtures(ctx)
	case syncer.SyncTypeOdds:
		summary, err = reference.SyncOdds(ctx)
	case syncer.SyncTypePlayerHistory:
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

		req := syncer.Request{SyncType: *syncType, UnitID: *unitID}
		if *since != "" {
			cursor, parseErr := time.Parse(time.RFC3339, *since)
			if parseErr != nil {
				log.Fatal().Err(parseErr).Msg("Invalid -since value, want RFC 3339")
			}
			req.SinceCursor = &cursor
		}

		summary, err = orchestrator.Run(ctx, req)
	default:
		fmt.Fprintf(os.Stderr, "unknown sync type %q\n", *syncType)
		os.Exit(2)
	}

	if err != nil {
		log.Fatal().Err(err).Str("sync_type", *syncType).Msg("Sync run failed")
	}

	log.Info().
		Str("sync_type", *syncType).
		Int("records", summary.RecordsProcessed).
		Int("units", summary.UnitsProcessed).
		Dur("elapsed", time.Since(start)).
		Msg("Sync run complete")
}
