package repository

import (
	"context"
	"errors"
	"fmt"

	"trendybets/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
)

// PlayerRepository handles player database operations
type PlayerRepository struct {
	db *Database
}

// Upsert inserts or updates a player keyed on its API id
func (r *PlayerRepository) Upsert(ctx context.Context, player *models.Player) error {
	query := `
		INSERT INTO players (
			id, full_name, first_name, last_name, position, jersey_number,
			birth_date, weight, height, team_id, league_id, is_active,
			last_synced_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			position = EXCLUDED.position,
			jersey_number = EXCLUDED.jersey_number,
			birth_date = EXCLUDED.birth_date,
			weight = EXCLUDED.weight,
			height = EXCLUDED.height,
			team_id = EXCLUDED.team_id,
			league_id = EXCLUDED.league_id,
			is_active = EXCLUDED.is_active,
			last_synced_at = NOW(),
			updated_at = NOW()
		RETURNING created_at, updated_at, last_synced_at
	`

	return r.db.withConn(ctx, func(conn *pgx.Conn) error {
		err := conn.QueryRow(
			ctx, query,
			player.ID, player.FullName, player.FirstName, player.LastName,
			player.Position, player.JerseyNumber, player.BirthDate,
			player.Weight, player.Height, player.TeamID, player.LeagueID,
			player.IsActive,
		).Scan(&player.CreatedAt, &player.UpdatedAt, &player.LastSyncedAt)

		if err != nil {
			return fmt.Errorf("failed to upsert player: %w", err)
		}

		return nil
	})
}

// GetByID retrieves a player by its API id
func (r *PlayerRepository) GetByID(ctx context.Context, id string) (*models.Player, error) {
	query := `
		SELECT id, full_name, first_name, last_name, position, jersey_number,
		       birth_date, weight, height, team_id, league_id, is_active,
		       last_synced_at, created_at, updated_at
		FROM players
		WHERE id = $1
	`

	var player models.Player
	err := r.db.withConn(ctx, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, query, id).Scan(
			&player.ID, &player.FullName, &player.FirstName, &player.LastName,
			&player.Position, &player.JerseyNumber, &player.BirthDate,
			&player.Weight, &player.Height, &player.TeamID, &player.LeagueID,
			&player.IsActive, &player.LastSyncedAt, &player.CreatedAt,
			&player.UpdatedAt,
		)
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("player not found: id=%s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	return &player, nil
}

// ListActive retrieves all active players, ordered by id so work
// partitioning across runs is stable
func (r *PlayerRepository) ListActive(ctx context.Context) ([]*models.Player, error) {
	query := `
		SELECT id, full_name, first_name, last_name, position, jersey_number,
		       birth_date, weight, height, team_id, league_id, is_active,
		       last_synced_at, created_at, updated_at
		FROM players
		WHERE is_active = TRUE
		ORDER BY id
	`

	var players []*models.Player
	err := r.db.withConn(ctx, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to list active players: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var player models.Player
			err := rows.Scan(
				&player.ID, &player.FullName, &player.FirstName, &player.LastName,
				&player.Position, &player.JerseyNumber, &player.BirthDate,
				&player.Weight, &player.Height, &player.TeamID, &player.LeagueID,
				&player.IsActive, &player.LastSyncedAt, &player.CreatedAt,
				&player.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to scan player: %w", err)
			}
			players = append(players, &player)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating players: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return players, nil
}

// MarkInactive flags players that no longer appear in the upstream roster
func (r *PlayerRepository) MarkInactive(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := `UPDATE players SET is_active = FALSE, updated_at = NOW() WHERE id = ANY($1)`

	return r.db.withConn(ctx, func(conn *pgx.Conn) error {
		if _, err := conn.Exec(ctx, query, ids); err != nil {
			return fmt.Errorf("failed to mark players inactive: %w", err)
		}
		return nil
	})
}

// Count returns the total number of players
func (r *PlayerRepository) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM players`

	var count int
	err := r.db.withConn(ctx, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, query).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count players: %w", err)
	}

	return count, nil
}
