package repository

import (
	"context"
	"errors"
	"fmt"

	"trendybets/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
)

// FixtureRepository handles fixture database operations
type FixtureRepository struct {
	db *Database
}

// Upsert inserts or updates a fixture keyed on its API id
func (r *FixtureRepository) Upsert(ctx context.Context, fixture *models.Fixture) error {
	query := `
		INSERT INTO fixtures (
			id, numerical_id, game_id, start_date, status, is_live,
			home_team_id, away_team_id, home_team_display, away_team_display,
			home_team_abbreviation, away_team_abbreviation, home_record,
			away_record, home_score, away_score, venue_name, venue_location,
			broadcast, league_id, last_synced_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20, NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			numerical_id = EXCLUDED.numerical_id,
			game_id = EXCLUDED.game_id,
			start_date = EXCLUDED.start_date,
			status = EXCLUDED.status,
			is_live = EXCLUDED.is_live,
			home_team_id = EXCLUDED.home_team_id,
			away_team_id = EXCLUDED.away_team_id,
			home_team_display = EXCLUDED.home_team_display,
			away_team_display = EXCLUDED.away_team_display,
			home_team_abbreviation = EXCLUDED.home_team_abbreviation,
			away_team_abbreviation = EXCLUDED.away_team_abbreviation,
			home_record = EXCLUDED.home_record,
			away_record = EXCLUDED.away_record,
			home_score = EXCLUDED.home_score,
			away_score = EXCLUDED.away_score,
			venue_name = EXCLUDED.venue_name,
			venue_location = EXCLUDED.venue_location,
			broadcast = EXCLUDED.broadcast,
			league_id = EXCLUDED.league_id,
			last_synced_at = NOW(),
			updated_at = NOW()
		RETURNING created_at, updated_at, last_synced_at
	`

	return r.db.withConn(ctx, func(conn *pgx.Conn) error {
		err := conn.QueryRow(
			ctx, query,
			fixture.ID, fixture.NumericalID, fixture.GameID, fixture.StartDate,
			fixture.Status, fixture.IsLive, fixture.HomeTeamID, fixture.AwayTeamID,
			fixture.HomeTeamDisplay, fixture.AwayTeamDisplay,
			fixture.HomeTeamAbbreviation, fixture.AwayTeamAbbreviation,
			fixture.HomeRecord, fixture.AwayRecord, fixture.HomeScore,
			fixture.AwayScore, fixture.VenueName, fixture.VenueLocation,
			fixture.Broadcast, fixture.LeagueID,
		).Scan(&fixture.CreatedAt, &fixture.UpdatedAt, &fixture.LastSyncedAt)

		if err != nil {
			return fmt.Errorf("failed to upsert fixture: %w", err)
		}

		return nil
	})
}

// GetByID retrieves a fixture by its API id
func (r *FixtureRepository) GetByID(ctx context.Context, id string) (*models.Fixture, error) {
	query := fixtureSelect + ` WHERE id = $1`

	var fixture models.Fixture
	err := r.db.withConn(ctx, func(conn *pgx.Conn) error {
		return scanFixture(conn.QueryRow(ctx, query, id), &fixture)
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("fixture not found: id=%s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fixture: %w", err)
	}

	return &fixture, nil
}

// ListUpcoming retrieves unplayed fixtures ordered by tip-off time
func (r *FixtureRepository) ListUpcoming(ctx context.Context) ([]*models.Fixture, error) {
	query := fixtureSelect + ` WHERE status = 'unplayed' ORDER BY start_date`
	return r.list(ctx, query)
}

// ListCompleted retrieves completed fixtures, most recent first
func (r *FixtureRepository) ListCompleted(ctx context.Context, limit int) ([]*models.Fixture, error) {
	query := fixtureSelect + ` WHERE status = 'completed' ORDER BY start_date DESC LIMIT $1`
	return r.list(ctx, query, limit)
}

// Count returns the total number of fixtures
func (r *FixtureRepository) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM fixtures`

	var count int
	err := r.db.withConn(ctx, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, query).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count fixtures: %w", err)
	}

	return count, nil
}

const fixtureSelect = `
	SELECT id, numerical_id, game_id, start_date, status, is_live,
	       home_team_id, away_team_id, home_team_display, away_team_display,
	       home_team_abbreviation, away_team_abbreviation, home_record,
	       away_record, home_score, away_score, venue_name, venue_location,
	       broadcast, league_id, last_synced_at, created_at, updated_at
	FROM fixtures`

func (r *FixtureRepository) list(ctx context.Context, query string, args ...any) ([]*models.Fixture, error) {
	var fixtures []*models.Fixture
	err := r.db.withConn(ctx, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to list fixtures: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var fixture models.Fixture
			if err := scanFixture(rows, &fixture); err != nil {
				return fmt.Errorf("failed to scan fixture: %w", err)
			}
			fixtures = append(fixtures, &fixture)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating fixtures: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return fixtures, nil
}

func scanFixture(row pgx.Row, fixture *models.Fixture) error {
	return row.Scan(
		&fixture.ID, &fixture.NumericalID, &fixture.GameID, &fixture.StartDate,
		&fixture.Status, &fixture.IsLive, &fixture.HomeTeamID, &fixture.AwayTeamID,
		&fixture.HomeTeamDisplay, &fixture.AwayTeamDisplay,
		&fixture.HomeTeamAbbreviation, &fixture.AwayTeamAbbreviation,
		&fixture.HomeRecord, &fixture.AwayRecord, &fixture.HomeScore,
		&fixture.AwayScore, &fixture.VenueName, &fixture.VenueLocation,
		&fixture.Broadcast, &fixture.LeagueID, &fixture.LastSyncedAt,
		&fixture.CreatedAt, &fixture.UpdatedAt,
	)
}
