package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"trendybets/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
)

// SyncLogRepository handles the sync run ledger. Each run appends one row;
// rows are never updated after the fact.
type SyncLogRepository struct {
	db *Database
}

// Record appends a run record to the ledger and fills in its assigned id
func (r *SyncLogRepository) Record(ctx context.Context, record *models.RunRecord) error {
	query := `
		INSERT INTO sync_log (
			sync_type, started_at, completed_at, status, last_sync_date,
			records_processed, errors
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	errorsJSON, err := json.Marshal(record.Errors)
	if err != nil {
		return fmt.Errorf("failed to encode run errors: %w", err)
	}
	if record.Errors == nil {
		errorsJSON = []byte("[]")
	}

	return r.db.withConn(ctx, func(conn *pgx.Conn) error {
		err := conn.QueryRow(
			ctx, query,
			record.SyncType, record.StartedAt, record.CompletedAt,
			record.Status, record.Watermark, record.RecordsProcessed,
			errorsJSON,
		).Scan(&record.ID)
		if err != nil {
			return fmt.Errorf("failed to record sync run: %w", err)
		}
		return nil
	})
}

// LastWatermark returns the watermark of the most recent completed run for
// syncType. ok is false when no completed run exists yet.
func (r *SyncLogRepository) LastWatermark(ctx context.Context, syncType string) (time.Time, bool, error) {
	query := `
		SELECT last_sync_date
		FROM sync_log
		WHERE sync_type = $1 AND status = $2 AND last_sync_date IS NOT NULL
		ORDER BY last_sync_date DESC
		LIMIT 1
	`

	var watermark time.Time
	err := r.db.withConn(ctx, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, query, syncType, models.RunStatusCompleted).Scan(&watermark)
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to resolve watermark: %w", err)
	}

	return watermark, true, nil
}

// Latest returns the most recent run record for syncType, or nil when the
// ledger has no entry for it.
func (r *SyncLogRepository) Latest(ctx context.Context, syncType string) (*models.RunRecord, error) {
	query := `
		SELECT id, sync_type, started_at, completed_at, status,
		       last_sync_date, records_processed, errors
		FROM sync_log
		WHERE sync_type = $1
		ORDER BY started_at DESC
		LIMIT 1
	`

	record, err := r.queryOne(ctx, query, syncType)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest sync run: %w", err)
	}

	return record, nil
}

// ListRecent returns up to limit run records across all sync types, most
// recent first. Used by the status endpoint.
func (r *SyncLogRepository) ListRecent(ctx context.Context, limit int) ([]*models.RunRecord, error) {
	query := `
		SELECT id, sync_type, started_at, completed_at, status,
		       last_sync_date, records_processed, errors
		FROM sync_log
		ORDER BY started_at DESC
		LIMIT $1
	`

	var records []*models.RunRecord
	err := r.db.withConn(ctx, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, limit)
		if err != nil {
			return fmt.Errorf("failed to list sync runs: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			record, err := scanRunRecord(rows)
			if err != nil {
				return err
			}
			records = append(records, record)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating sync runs: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *SyncLogRepository) queryOne(ctx context.Context, query string, args ...any) (*models.RunRecord, error) {
	var record *models.RunRecord
	err := r.db.withConn(ctx, func(conn *pgx.Conn) error {
		var err error
		record, err = scanRunRecord(conn.QueryRow(ctx, query, args...))
		return err
	})
	return record, err
}

func scanRunRecord(row pgx.Row) (*models.RunRecord, error) {
	var record models.RunRecord
	var errorsJSON []byte

	err := row.Scan(
		&record.ID, &record.SyncType, &record.StartedAt, &record.CompletedAt,
		&record.Status, &record.Watermark, &record.RecordsProcessed,
		&errorsJSON,
	)
	if err != nil {
		return nil, err
	}

	if len(errorsJSON) > 0 {
		if err := json.Unmarshal(errorsJSON, &record.Errors); err != nil {
			return nil, fmt.Errorf("failed to decode run errors: %w", err)
		}
	}

	return &record, nil
}
