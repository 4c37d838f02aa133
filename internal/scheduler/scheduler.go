package scheduler

import (
	"context"
	"fmt"
	"time"

	"trendybets/ingestion/internal/config"
	"trendybets/ingestion/internal/metrics"
	"trendybets/ingestion/internal/models"
	"trendybets/ingestion/internal/syncer"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler drives the recurring syncs:
// - Nightly reference refreshes (teams, then players, then player history)
// - Frequent fixture and odds refreshes during the day
type Scheduler struct {
	cfg          *config.Config
	reference    *syncer.ReferenceSyncer
	orchestrator *syncer.Orchestrator
	cron         *cron.Cron
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg *config.Config, reference *syncer.ReferenceSyncer, orchestrator *syncer.Orchestrator) *Scheduler {
	return &Scheduler{
		cfg:          cfg,
		reference:    reference,
		orchestrator: orchestrator,
		cron:         cron.New(),
	}
}

// Start registers the cron jobs and starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	jobs := []struct {
		name string
		spec string
		run  func(context.Context) (*syncer.Summary, error)
	}{
		{syncer.SyncTypeTeams, s.cfg.TeamsSyncCron, s.reference.SyncTeams},
		{syncer.SyncTypePlayers, s.cfg.PlayersSyncCron, s.reference.SyncPlayers},
		{syncer.SyncTypePlayerHistory, s.cfg.HistorySyncCron, s.runPlayerHistory},
		{syncer.SyncTypeFixtures, s.cfg.FixturesSyncCron, s.reference.SyncFixtures},
		{syncer.SyncTypeOdds, s.cfg.OddsSyncCron, s.reference.SyncOdds},
	}

	for _, job := range jobs {
		name, run := job.name, job.run
		if _, err := s.cron.AddFunc(job.spec, func() {
			s.runJob(ctx, name, run)
		}); err != nil {
			return fmt.Errorf("failed to schedule %s sync: %w", name, err)
		}
		log.Info().
			Str("job", name).
			Str("schedule", job.spec).
			Msg("Sync job scheduled")
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler, waiting for a running job to finish
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")
	<-s.cron.Stop().Done()
	log.Info().Msg("Scheduler stopped")
}

// RunInitialSync refreshes everything once at startup, in dependency order
func (s *Scheduler) RunInitialSync(ctx context.Context) error {
	order := []struct {
		name string
		run  func(context.Context) (*syncer.Summary, error)
	}{
		{syncer.SyncTypeTeams, s.reference.SyncTeams},
		{syncer.SyncTypePlayers, s.reference.SyncPlayers},
		{syncer.SyncTypeFixtures, s.reference.SyncFixtures},
		{syncer.SyncTypePlayerHistory, s.runPlayerHistory},
		{syncer.SyncTypeOdds, s.reference.SyncOdds},
	}

	for _, step := range order {
		if _, err := step.run(ctx); err != nil {
			return fmt.Errorf("initial %s sync failed: %w", step.name, err)
		}
	}

	return nil
}

func (s *Scheduler) runPlayerHistory(ctx context.Context) (*syncer.Summary, error) {
	return s.orchestrator.Run(ctx, syncer.Request{SyncType: syncer.SyncTypePlayerHistory})
}

// runJob executes one scheduled sync and records its metrics
func (s *Scheduler) runJob(ctx context.Context, name string, run func(context.Context) (*syncer.Summary, error)) {
	log.Info().Str("job", name).Msg("Running scheduled sync")
	start := time.Now()

	summary, err := run(ctx)
	if err != nil {
		metrics.RecordSyncRun(name, models.RunStatusError, time.Since(start), 0, 0)
		metrics.RecordError("scheduler", name)
		log.Error().Err(err).Str("job", name).Msg("Scheduled sync failed")
		return
	}

	metrics.RecordSyncRun(name, models.RunStatusCompleted, time.Since(start), summary.RecordsProcessed, 0)
	log.Info().
		Str("job", name).
		Int("records", summary.RecordsProcessed).
		Int("units", summary.UnitsProcessed).
		Dur("elapsed", time.Since(start)).
		Msg("Scheduled sync complete")
}
