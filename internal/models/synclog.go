package models

import (
	"database/sql"
	"time"
)

// Run statuses recorded in sync_log.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusError     = "error"
)

// UnitError records a single work unit failure inside an otherwise
// completed run.
type UnitError struct {
	UnitID  string `json:"unit_id"`
	Message string `json:"message"`
}

// RunRecord is one immutable sync_log entry describing a synchronization
// invocation. The watermark of the most recent completed record for a sync
// type is the cursor for the next incremental run; it only advances on a
// completed run.
type RunRecord struct {
	ID               int          `db:"id"`
	SyncType         string       `db:"sync_type"`
	StartedAt        time.Time    `db:"started_at"`
	CompletedAt      sql.NullTime `db:"completed_at"`
	Status           string       `db:"status"`
	Watermark        sql.NullTime `db:"watermark"`
	RecordsProcessed int          `db:"records_processed"`
	Errors           []UnitError  `db:"errors"`
}
