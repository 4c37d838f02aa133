package repository

import (
	"context"
	"fmt"

	"trendybets/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// OddsRepository handles odds database operations
type OddsRepository struct {
	db *Database
}

const oddsUpsertQuery = `
	INSERT INTO odds (
		id, fixture_id, sportsbook, market, market_id, name, is_main,
		selection, normalized_selection, selection_line, player_id,
		team_id, price, points, timestamp, start_date, last_synced_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		$11, $12, $13, $14, $15, $16, $17
	)
	ON CONFLICT (id) DO UPDATE SET
		fixture_id = EXCLUDED.fixture_id,
		sportsbook = EXCLUDED.sportsbook,
		market = EXCLUDED.market,
		market_id = EXCLUDED.market_id,
		name = EXCLUDED.name,
		is_main = EXCLUDED.is_main,
		selection = EXCLUDED.selection,
		normalized_selection = EXCLUDED.normalized_selection,
		selection_line = EXCLUDED.selection_line,
		player_id = EXCLUDED.player_id,
		team_id = EXCLUDED.team_id,
		price = EXCLUDED.price,
		points = EXCLUDED.points,
		timestamp = EXCLUDED.timestamp,
		start_date = EXCLUDED.start_date,
		last_synced_at = EXCLUDED.last_synced_at
`

// UpsertBatch writes a set of odds rows on one connection, keyed on the
// API's odd id
func (r *OddsRepository) UpsertBatch(ctx context.Context, odds []*models.Odds) (int, error) {
	if len(odds) == 0 {
		return 0, nil
	}

	written := 0
	err := r.db.withConn(ctx, func(conn *pgx.Conn) error {
		batch := &pgx.Batch{}
		for _, o := range odds {
			batch.Queue(
				oddsUpsertQuery,
				o.ID, o.FixtureID, o.Sportsbook, o.Market, o.MarketID,
				o.Name, o.IsMain, o.Selection, o.NormalizedSelection,
				o.SelectionLine, o.PlayerID, o.TeamID, o.Price, o.Points,
				o.Timestamp, o.StartDate, o.LastSyncedAt,
			)
		}

		results := conn.SendBatch(ctx, batch)
		defer results.Close()

		for range odds {
			if _, err := results.Exec(); err != nil {
				return fmt.Errorf("failed to upsert odds batch: %w", err)
			}
			written++
		}

		return nil
	})

	return written, err
}

// ListByFixture retrieves all stored odds for one fixture
func (r *OddsRepository) ListByFixture(ctx context.Context, fixtureID string) ([]*models.Odds, error) {
	query := `
		SELECT id, fixture_id, sportsbook, market, market_id, name, is_main,
		       selection, normalized_selection, selection_line, player_id,
		       team_id, price, points, timestamp, start_date, last_synced_at
		FROM odds
		WHERE fixture_id = $1
		ORDER BY sportsbook, market, id
	`

	var odds []*models.Odds
	err := r.db.withConn(ctx, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, fixtureID)
		if err != nil {
			return fmt.Errorf("failed to list odds: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var o models.Odds
			err := rows.Scan(
				&o.ID, &o.FixtureID, &o.Sportsbook, &o.Market, &o.MarketID,
				&o.Name, &o.IsMain, &o.Selection, &o.NormalizedSelection,
				&o.SelectionLine, &o.PlayerID, &o.TeamID, &o.Price, &o.Points,
				&o.Timestamp, &o.StartDate, &o.LastSyncedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to scan odds: %w", err)
			}
			odds = append(odds, &o)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating odds: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return odds, nil
}

// DeleteStale removes odds whose fixture has already tipped off. Lines for
// started games are no longer actionable and would otherwise accumulate.
func (r *OddsRepository) DeleteStale(ctx context.Context) (int64, error) {
	query := `DELETE FROM odds WHERE start_date < NOW()`

	var deleted int64
	err := r.db.withConn(ctx, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to delete stale odds: %w", err)
		}
		deleted = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		log.Debug().Int64("deleted", deleted).Msg("Removed stale odds")
	}

	return deleted, nil
}

// Count returns the total number of stored odds rows
func (r *OddsRepository) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM odds`

	var count int
	err := r.db.withConn(ctx, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, query).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count odds: %w", err)
	}

	return count, nil
}
