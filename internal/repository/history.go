package repository

import (
	"context"
	"errors"
	"fmt"

	"trendybets/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
)

// PlayerHistoryRepository handles player game-history database operations
type PlayerHistoryRepository struct {
	db *Database
}

const historyUpsertQuery = `
	INSERT INTO player_history (
		player_id, fixture_id, game_id, start_date,
		fouls, blocks, points, steals, assists, minutes, seconds,
		turnovers, plus_minus, total_rebounds, defensive_rebounds,
		offensive_rebounds, flagrant_fouls, technical_fouls,
		blocks_received, first_basket, field_goals_made,
		field_goals_attempted, free_throws_made, free_throws_attempted,
		two_point_field_goals_made, two_point_field_goals_attempted,
		three_point_field_goals_made, three_point_field_goals_attempted,
		points_off_turnovers, last_synced_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
		$21, $22, $23, $24, $25, $26, $27, $28, $29, $30
	)
	ON CONFLICT (player_id, fixture_id) DO UPDATE SET
		game_id = EXCLUDED.game_id,
		start_date = EXCLUDED.start_date,
		fouls = EXCLUDED.fouls,
		blocks = EXCLUDED.blocks,
		points = EXCLUDED.points,
		steals = EXCLUDED.steals,
		assists = EXCLUDED.assists,
		minutes = EXCLUDED.minutes,
		seconds = EXCLUDED.seconds,
		turnovers = EXCLUDED.turnovers,
		plus_minus = EXCLUDED.plus_minus,
		total_rebounds = EXCLUDED.total_rebounds,
		defensive_rebounds = EXCLUDED.defensive_rebounds,
		offensive_rebounds = EXCLUDED.offensive_rebounds,
		flagrant_fouls = EXCLUDED.flagrant_fouls,
		technical_fouls = EXCLUDED.technical_fouls,
		blocks_received = EXCLUDED.blocks_received,
		first_basket = EXCLUDED.first_basket,
		field_goals_made = EXCLUDED.field_goals_made,
		field_goals_attempted = EXCLUDED.field_goals_attempted,
		free_throws_made = EXCLUDED.free_throws_made,
		free_throws_attempted = EXCLUDED.free_throws_attempted,
		two_point_field_goals_made = EXCLUDED.two_point_field_goals_made,
		two_point_field_goals_attempted = EXCLUDED.two_point_field_goals_attempted,
		three_point_field_goals_made = EXCLUDED.three_point_field_goals_made,
		three_point_field_goals_attempted = EXCLUDED.three_point_field_goals_attempted,
		points_off_turnovers = EXCLUDED.points_off_turnovers,
		last_synced_at = EXCLUDED.last_synced_at
`

func historyArgs(h *models.PlayerHistory) []any {
	return []any{
		h.PlayerID, h.FixtureID, h.GameID, h.StartDate,
		h.Fouls, h.Blocks, h.Points, h.Steals, h.Assists, h.Minutes,
		h.Seconds, h.Turnovers, h.PlusMinus, h.TotalRebounds, h.DefRebounds,
		h.OffRebounds, h.FlagrantFouls, h.TechnicalFouls, h.BlocksReceived,
		h.FirstBasket, h.FieldGoalsMade, h.FieldGoalsAtt, h.FreeThrowsMade,
		h.FreeThrowsAtt, h.TwoPointsMade, h.TwoPointsAtt, h.ThreePtsMade,
		h.ThreePtsAtt, h.PointsOffTO, h.LastSyncedAt,
	}
}

// Upsert inserts or updates one stat line keyed on (player_id, fixture_id)
func (r *PlayerHistoryRepository) Upsert(ctx context.Context, history *models.PlayerHistory) error {
	return r.db.withConn(ctx, func(conn *pgx.Conn) error {
		if _, err := conn.Exec(ctx, historyUpsertQuery, historyArgs(history)...); err != nil {
			return fmt.Errorf("failed to upsert player history: %w", err)
		}
		return nil
	})
}

// UpsertBatch writes a set of stat lines on one connection. It returns the
// number of rows written; a failure partway through stops the batch.
func (r *PlayerHistoryRepository) UpsertBatch(ctx context.Context, histories []*models.PlayerHistory) (int, error) {
	if len(histories) == 0 {
		return 0, nil
	}

	written := 0
	err := r.db.withConn(ctx, func(conn *pgx.Conn) error {
		batch := &pgx.Batch{}
		for _, history := range histories {
			batch.Queue(historyUpsertQuery, historyArgs(history)...)
		}

		results := conn.SendBatch(ctx, batch)
		defer results.Close()

		for range histories {
			if _, err := results.Exec(); err != nil {
				return fmt.Errorf("failed to upsert player history batch: %w", err)
			}
			written++
		}

		return nil
	})

	return written, err
}

// GetByPlayerAndFixture retrieves one player's stat line for one fixture
func (r *PlayerHistoryRepository) GetByPlayerAndFixture(ctx context.Context, playerID, fixtureID string) (*models.PlayerHistory, error) {
	query := `
		SELECT id, player_id, fixture_id, game_id, start_date,
		       fouls, blocks, points, steals, assists, minutes, seconds,
		       turnovers, plus_minus, total_rebounds, defensive_rebounds,
		       offensive_rebounds, flagrant_fouls, technical_fouls,
		       blocks_received, first_basket, field_goals_made,
		       field_goals_attempted, free_throws_made, free_throws_attempted,
		       two_point_field_goals_made, two_point_field_goals_attempted,
		       three_point_field_goals_made, three_point_field_goals_attempted,
		       points_off_turnovers, last_synced_at, created_at
		FROM player_history
		WHERE player_id = $1 AND fixture_id = $2
	`

	var h models.PlayerHistory
	err := r.db.withConn(ctx, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, query, playerID, fixtureID).Scan(
			&h.ID, &h.PlayerID, &h.FixtureID, &h.GameID, &h.StartDate,
			&h.Fouls, &h.Blocks, &h.Points, &h.Steals, &h.Assists, &h.Minutes,
			&h.Seconds, &h.Turnovers, &h.PlusMinus, &h.TotalRebounds,
			&h.DefRebounds, &h.OffRebounds, &h.FlagrantFouls, &h.TechnicalFouls,
			&h.BlocksReceived, &h.FirstBasket, &h.FieldGoalsMade,
			&h.FieldGoalsAtt, &h.FreeThrowsMade, &h.FreeThrowsAtt,
			&h.TwoPointsMade, &h.TwoPointsAtt, &h.ThreePtsMade, &h.ThreePtsAtt,
			&h.PointsOffTO, &h.LastSyncedAt, &h.CreatedAt,
		)
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("player history not found: player=%s fixture=%s", playerID, fixtureID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player history: %w", err)
	}

	return &h, nil
}

// CountByPlayer returns the number of stored stat lines for one player
func (r *PlayerHistoryRepository) CountByPlayer(ctx context.Context, playerID string) (int, error) {
	query := `SELECT COUNT(*) FROM player_history WHERE player_id = $1`

	var count int
	err := r.db.withConn(ctx, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, query, playerID).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count player history: %w", err)
	}

	return count, nil
}
