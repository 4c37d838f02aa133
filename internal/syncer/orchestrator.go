package syncer

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"trendybets/ingestion/internal/models"
	"trendybets/ingestion/internal/retry"

	"github.com/rs/zerolog/log"
)

// defaultLookback is the cursor used when the ledger has no completed run
// for a sync type yet.
const defaultLookback = 24 * time.Hour

// Request describes one orchestration invocation.
type Request struct {
	// SyncType names the ledger stream, e.g. "player-history".
	SyncType string

	// UnitID restricts the run to a single work unit when set.
	UnitID string

	// SinceCursor overrides the ledger watermark when non-nil.
	SinceCursor *time.Time

	// WorkerMode marks this invocation as one shard of a parent fan-out.
	// A worker processes units[StartIndex:EndIndex] sequentially and never
	// fans out again.
	WorkerMode bool
	StartIndex int
	EndIndex   int
}

// Orchestrator drives one incremental sync: resolve the watermark, plan the
// work, fetch and write each unit, append a ledger entry.
type Orchestrator struct {
	source Source
	sink   Sink
	ledger Ledger

	plan  PlanOptions
	retry []retry.Option

	// sleep is swapped out in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithPlanOptions overrides the planner defaults.
func WithPlanOptions(opts PlanOptions) OrchestratorOption {
	return func(o *Orchestrator) { o.plan = opts }
}

// WithRetryOptions overrides the per-fetch retry policy.
func WithRetryOptions(opts ...retry.Option) OrchestratorOption {
	return func(o *Orchestrator) { o.retry = opts }
}

// NewOrchestrator wires a source, sink, and ledger into an orchestrator.
func NewOrchestrator(source Source, sink Sink, ledger Ledger, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		source: source,
		sink:   sink,
		ledger: ledger,
		plan:   DefaultPlanOptions(),
		sleep:  sleepCtx,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one sync invocation. Per-unit failures are collected into the
// ledger entry and do not fail the run; Run returns an error only when setup
// fails before any work (watermark resolution, unit listing) or when the
// ledger write itself fails.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Summary, error) {
	startedAt := time.Now().UTC()

	cursor, err := o.resolveCursor(ctx, req)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("sync_type", req.SyncType).
		Time("cursor", cursor).
		Bool("worker_mode", req.WorkerMode).
		Msg("Starting sync run")

	units, err := o.loadUnits(ctx, req, cursor)
	if err != nil {
		return nil, err
	}

	if req.WorkerMode {
		results, err := o.runShard(ctx, req.SyncType, startedAt, units)
		if err != nil {
			return nil, err
		}
		summary := summarize(results)
		return &summary, nil
	}

	plan := BuildPlan(units, o.plan)

	var results []SyncResult
	workersUsed := 0

	switch plan.Mode {
	case ModeFanout:
		workersUsed = len(plan.Shards)
		results = o.dispatchShards(ctx, req.SyncType, startedAt, plan.Shards)
		// Each shard has already written its own ledger entry.
	default:
		results = o.dispatchBatches(ctx, plan.Batches)
		if err := o.record(ctx, req.SyncType, startedAt, results); err != nil {
			return nil, err
		}
	}

	summary := summarize(results)
	summary.WorkersUsed = workersUsed

	log.Info().
		Str("sync_type", req.SyncType).
		Int("records", summary.RecordsProcessed).
		Int("units", summary.UnitsProcessed).
		Int("workers", workersUsed).
		Dur("elapsed", time.Since(startedAt)).
		Msg("Sync run finished")

	return &summary, nil
}

func (o *Orchestrator) resolveCursor(ctx context.Context, req Request) (time.Time, error) {
	if req.SinceCursor != nil {
		return *req.SinceCursor, nil
	}

	watermark, ok, err := o.ledger.LastWatermark(ctx, req.SyncType)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to resolve watermark: %w", err)
	}
	if !ok {
		return time.Now().UTC().Add(-defaultLookback), nil
	}

	return watermark, nil
}

func (o *Orchestrator) loadUnits(ctx context.Context, req Request, cursor time.Time) ([]WorkUnit, error) {
	if req.UnitID != "" {
		return []WorkUnit{{ID: req.UnitID, Cursor: cursor}}, nil
	}

	units, err := o.source.Units(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load work units: %w", err)
	}

	for i := range units {
		units[i].Cursor = cursor
	}

	if req.WorkerMode {
		start, end := req.StartIndex, req.EndIndex
		if start < 0 {
			start = 0
		}
		if end <= 0 || end > len(units) {
			end = len(units)
		}
		if start > end {
			start = end
		}
		units = units[start:end]
	}

	return units, nil
}

// dispatchBatches processes batches in order with a fixed pause between
// them to stay under upstream rate limits.
func (o *Orchestrator) dispatchBatches(ctx context.Context, batches [][]WorkUnit) []SyncResult {
	var results []SyncResult

	for i, batch := range batches {
		if i > 0 && o.plan.InterBatchDelay > 0 {
			if err := o.sleep(ctx, o.plan.InterBatchDelay); err != nil {
				// Run is being cancelled; report remaining units as failed.
				for _, b := range batches[i:] {
					for _, unit := range b {
						results = append(results, SyncResult{UnitID: unit.ID, Err: err})
					}
				}
				return results
			}
		}

		for _, unit := range batch {
			results = append(results, o.processUnit(ctx, unit))
		}
	}

	return results
}

// dispatchShards runs each shard concurrently. Shards are isolated failure
// domains: each writes its own ledger entry, and a shard whose ledger write
// fails contributes zero results without disturbing its siblings.
func (o *Orchestrator) dispatchShards(ctx context.Context, syncType string, startedAt time.Time, shards [][]WorkUnit) []SyncResult {
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		aggregated []SyncResult
	)

	for i, shard := range shards {
		wg.Add(1)
		go func(shardIdx int, units []WorkUnit) {
			defer wg.Done()

			results, err := o.runShard(ctx, syncType, startedAt, units)
			if err != nil {
				log.Error().
					Err(err).
					Str("sync_type", syncType).
					Int("shard", shardIdx).
					Msg("Shard failed to record its run")
				return
			}

			mu.Lock()
			aggregated = append(aggregated, results...)
			mu.Unlock()
		}(i, shard)
	}

	wg.Wait()
	return aggregated
}

// runShard processes one shard's units sequentially and appends its own
// ledger entry.
func (o *Orchestrator) runShard(ctx context.Context, syncType string, startedAt time.Time, units []WorkUnit) ([]SyncResult, error) {
	results := make([]SyncResult, 0, len(units))
	for _, unit := range units {
		results = append(results, o.processUnit(ctx, unit))
	}

	if err := o.record(ctx, syncType, startedAt, results); err != nil {
		return nil, err
	}

	return results, nil
}

// processUnit fetches one unit's records since its cursor and writes them
// through the sink. Both legs are retried; the terminal error is captured in
// the result rather than propagated.
func (o *Orchestrator) processUnit(ctx context.Context, unit WorkUnit) SyncResult {
	records, err := retry.Do(ctx, func(ctx context.Context) ([]map[string]interface{}, error) {
		return o.source.FetchSince(ctx, unit, unit.Cursor)
	}, o.retry...)
	if err != nil {
		log.Warn().
			Err(err).
			Str("unit_id", unit.ID).
			Msg("Unit fetch failed after retries")
		return SyncResult{UnitID: unit.ID, Err: err}
	}

	written, err := retry.Do(ctx, func(ctx context.Context) (int, error) {
		return o.sink.Upsert(ctx, unit, records)
	}, o.retry...)
	if err != nil {
		log.Warn().
			Err(err).
			Str("unit_id", unit.ID).
			Msg("Unit write failed after retries")
		return SyncResult{UnitID: unit.ID, Err: err}
	}

	return SyncResult{UnitID: unit.ID, Success: true, RecordsWritten: written}
}

// record appends one ledger entry for a set of results. The watermark is
// the run's start time, not the newest record timestamp seen, so a slow
// record landing mid-run is re-fetched next time instead of skipped; the
// idempotent upserts absorb the overlap.
func (o *Orchestrator) record(ctx context.Context, syncType string, startedAt time.Time, results []SyncResult) error {
	summary := summarize(results)

	var unitErrors []models.UnitError
	for _, result := range results {
		if result.Err != nil {
			unitErrors = append(unitErrors, models.UnitError{
				UnitID:  result.UnitID,
				Message: result.Err.Error(),
			})
		}
	}

	entry := &models.RunRecord{
		SyncType:         syncType,
		StartedAt:        startedAt,
		CompletedAt:      nullTimeNow(),
		Status:           models.RunStatusCompleted,
		Watermark:        nullTime(startedAt),
		RecordsProcessed: summary.RecordsProcessed,
		Errors:           unitErrors,
	}

	if err := o.ledger.Record(ctx, entry); err != nil {
		return fmt.Errorf("failed to record sync run: %w", err)
	}

	return nil
}

func summarize(results []SyncResult) Summary {
	var summary Summary
	for _, result := range results {
		if result.Success {
			summary.UnitsProcessed++
			summary.RecordsProcessed += result.RecordsWritten
		}
	}
	return summary
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: true}
}

func nullTimeNow() sql.NullTime {
	return nullTime(time.Now().UTC())
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
