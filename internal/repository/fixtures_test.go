//go:build integration

package repository

import (
	"database/sql"
	"testing"
	"time"

	"trendybets/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixtureRepository_UpsertAndGet(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	fixture := &models.Fixture{
		ID:              "fixture_test_1",
		GameID:          "20261025_LAL_BOS",
		StartDate:       time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second),
		Status:          "unplayed",
		HomeTeamID:      sql.NullString{String: "team_bos", Valid: true},
		AwayTeamID:      sql.NullString{String: "team_lal", Valid: true},
		HomeTeamDisplay: sql.NullString{String: "Boston Celtics", Valid: true},
		AwayTeamDisplay: sql.NullString{String: "Los Angeles Lakers", Valid: true},
		LeagueID:        "nba",
	}

	err := db.Fixtures.Upsert(ctx, fixture)
	require.NoError(t, err, "Should insert fixture")

	stored, err := db.Fixtures.GetByID(ctx, fixture.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "unplayed", stored.Status)
	assert.Equal(t, "team_bos", stored.HomeTeamID.String)

	// A finished game comes back with scores and a new status.
	fixture.Status = "completed"
	fixture.HomeScore = sql.NullInt32{Int32: 112, Valid: true}
	fixture.AwayScore = sql.NullInt32{Int32: 108, Valid: true}
	require.NoError(t, db.Fixtures.Upsert(ctx, fixture))

	stored, err = db.Fixtures.GetByID(ctx, fixture.ID)
	require.NoError(t, err)
	assert.Equal(t, "completed", stored.Status)
	assert.Equal(t, int32(112), stored.HomeScore.Int32)

	count, err := db.Fixtures.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFixtureRepository_ListUpcoming(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	now := time.Now().UTC().Truncate(time.Second)
	for _, fixture := range []*models.Fixture{
		{ID: "fx_later", GameID: "g1", StartDate: now.Add(48 * time.Hour), Status: "unplayed", LeagueID: "nba"},
		{ID: "fx_soon", GameID: "g2", StartDate: now.Add(2 * time.Hour), Status: "unplayed", LeagueID: "nba"},
		{ID: "fx_done", GameID: "g3", StartDate: now.Add(-24 * time.Hour), Status: "completed", LeagueID: "nba"},
	} {
		require.NoError(t, db.Fixtures.Upsert(ctx, fixture))
	}

	upcoming, err := db.Fixtures.ListUpcoming(ctx)
	require.NoError(t, err)
	require.Len(t, upcoming, 2, "Completed games are excluded")
	assert.Equal(t, "fx_soon", upcoming[0].ID, "Upcoming games come back soonest first")
	assert.Equal(t, "fx_later", upcoming[1].ID)

	completed, err := db.Fixtures.ListCompleted(ctx, 10)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "fx_done", completed[0].ID)
}
