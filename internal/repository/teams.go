package repository

import (
	"context"
	"errors"
	"fmt"

	"trendybets/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// TeamRepository handles team database operations
type TeamRepository struct {
	db *Database
}

// Upsert inserts or updates a team keyed on its API id. On conflict every
// provided column is overwritten, so re-running a sync is idempotent.
func (r *TeamRepository) Upsert(ctx context.Context, team *models.Team) error {
	query := `
		INSERT INTO teams (
			id, name, numerical_id, base_id, city, mascot, nickname,
			abbreviation, division, conference, logo, league_id, last_synced_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			numerical_id = EXCLUDED.numerical_id,
			base_id = EXCLUDED.base_id,
			city = EXCLUDED.city,
			mascot = EXCLUDED.mascot,
			nickname = EXCLUDED.nickname,
			abbreviation = EXCLUDED.abbreviation,
			division = EXCLUDED.division,
			conference = EXCLUDED.conference,
			logo = EXCLUDED.logo,
			league_id = EXCLUDED.league_id,
			last_synced_at = NOW(),
			updated_at = NOW()
		RETURNING created_at, updated_at, last_synced_at
	`

	return r.db.withConn(ctx, func(conn *pgx.Conn) error {
		err := conn.QueryRow(
			ctx, query,
			team.ID, team.Name, team.NumericalID, team.BaseID, team.City,
			team.Mascot, team.Nickname, team.Abbreviation, team.Division,
			team.Conference, team.Logo, team.LeagueID,
		).Scan(&team.CreatedAt, &team.UpdatedAt, &team.LastSyncedAt)

		if err != nil {
			return fmt.Errorf("failed to upsert team: %w", err)
		}

		return nil
	})
}

// GetByID retrieves a team by its API id
func (r *TeamRepository) GetByID(ctx context.Context, id string) (*models.Team, error) {
	query := `
		SELECT id, name, numerical_id, base_id, city, mascot, nickname,
		       abbreviation, division, conference, logo, league_id,
		       last_synced_at, created_at, updated_at
		FROM teams
		WHERE id = $1
	`

	var team models.Team
	err := r.db.withConn(ctx, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, query, id).Scan(
			&team.ID, &team.Name, &team.NumericalID, &team.BaseID, &team.City,
			&team.Mascot, &team.Nickname, &team.Abbreviation, &team.Division,
			&team.Conference, &team.Logo, &team.LeagueID,
			&team.LastSyncedAt, &team.CreatedAt, &team.UpdatedAt,
		)
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("team not found: id=%s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}

	return &team, nil
}

// List retrieves all teams for a league
func (r *TeamRepository) List(ctx context.Context, leagueID string) ([]*models.Team, error) {
	query := `
		SELECT id, name, numerical_id, base_id, city, mascot, nickname,
		       abbreviation, division, conference, logo, league_id,
		       last_synced_at, created_at, updated_at
		FROM teams
		WHERE league_id = $1
		ORDER BY name
	`

	var teams []*models.Team
	err := r.db.withConn(ctx, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, leagueID)
		if err != nil {
			return fmt.Errorf("failed to list teams: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var team models.Team
			err := rows.Scan(
				&team.ID, &team.Name, &team.NumericalID, &team.BaseID, &team.City,
				&team.Mascot, &team.Nickname, &team.Abbreviation, &team.Division,
				&team.Conference, &team.Logo, &team.LeagueID,
				&team.LastSyncedAt, &team.CreatedAt, &team.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to scan team: %w", err)
			}
			teams = append(teams, &team)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating teams: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return teams, nil
}

// Delete deletes a team
func (r *TeamRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM teams WHERE id = $1`

	return r.db.withConn(ctx, func(conn *pgx.Conn) error {
		result, err := conn.Exec(ctx, query, id)
		if err != nil {
			return fmt.Errorf("failed to delete team: %w", err)
		}

		if result.RowsAffected() == 0 {
			return fmt.Errorf("team not found: id=%s", id)
		}

		log.Debug().Str("id", id).Msg("Team deleted")
		return nil
	})
}

// Count returns the total number of teams
func (r *TeamRepository) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM teams`

	var count int
	err := r.db.withConn(ctx, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, query).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count teams: %w", err)
	}

	return count, nil
}
