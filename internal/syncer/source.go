package syncer

import (
	"context"
	"time"

	"trendybets/ingestion/internal/models"
)

// Source is the upstream side of a sync: it names the work units to process
// and fetches each unit's records since a cursor. Fetches are paginated
// internally; callers receive the fully drained record set.
type Source interface {
	Units(ctx context.Context) ([]WorkUnit, error)
	FetchSince(ctx context.Context, unit WorkUnit, since time.Time) ([]map[string]interface{}, error)
}

// Sink writes one unit's fetched records into the store. Writes must be
// idempotent on a natural conflict key so overlapping sync windows never
// duplicate rows.
type Sink interface {
	Upsert(ctx context.Context, unit WorkUnit, records []map[string]interface{}) (int, error)
}

// Ledger is the append-only run log. LastWatermark resolves the cursor for
// the next incremental run from the most recent completed entry.
type Ledger interface {
	LastWatermark(ctx context.Context, syncType string) (time.Time, bool, error)
	Record(ctx context.Context, record *models.RunRecord) error
}

// SyncResult is the outcome for one work unit.
type SyncResult struct {
	UnitID         string
	Success        bool
	RecordsWritten int
	Err            error
}

// Summary aggregates a whole run for the caller.
type Summary struct {
	RecordsProcessed int
	UnitsProcessed   int
	WorkersUsed      int
}
