package models

import (
	"database/sql"
	"time"
)

// Fixture represents one scheduled, live, or completed NBA game
type Fixture struct {
	ID                   string         `db:"id"`
	NumericalID          sql.NullInt32  `db:"numerical_id"`
	GameID               string         `db:"game_id"`
	StartDate            time.Time      `db:"start_date"`
	Status               string         `db:"status"`
	IsLive               bool           `db:"is_live"`
	HomeTeamID           sql.NullString `db:"home_team_id"`
	AwayTeamID           sql.NullString `db:"away_team_id"`
	HomeTeamDisplay      sql.NullString `db:"home_team_display"`
	AwayTeamDisplay      sql.NullString `db:"away_team_display"`
	HomeTeamAbbreviation sql.NullString `db:"home_team_abbreviation"`
	AwayTeamAbbreviation sql.NullString `db:"away_team_abbreviation"`
	HomeRecord           sql.NullString `db:"home_record"`
	AwayRecord           sql.NullString `db:"away_record"`
	HomeScore            sql.NullInt32  `db:"home_score"`
	AwayScore            sql.NullInt32  `db:"away_score"`
	VenueName            sql.NullString `db:"venue_name"`
	VenueLocation        sql.NullString `db:"venue_location"`
	Broadcast            sql.NullString `db:"broadcast"`
	LeagueID             string         `db:"league_id"`
	LastSyncedAt         time.Time      `db:"last_synced_at"`
	CreatedAt            time.Time      `db:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at"`
}

// FixtureCompetitor is one side of a fixture in the API payload
type FixtureCompetitor struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
}

// FixtureInput is used for creating/updating fixtures from the API
type FixtureInput struct {
	ID              string              `json:"id"`
	NumericalID     *int                `json:"numerical_id,omitempty"`
	GameID          string              `json:"game_id"`
	StartDate       string              `json:"start_date"`
	Status          string              `json:"status"`
	IsLive          bool                `json:"is_live"`
	HomeTeamDisplay string              `json:"home_team_display"`
	AwayTeamDisplay string              `json:"away_team_display"`
	HomeRecord      string              `json:"home_record"`
	AwayRecord      string              `json:"away_record"`
	HomeScore       *int                `json:"home_score_total,omitempty"`
	AwayScore       *int                `json:"away_score_total,omitempty"`
	VenueName       string              `json:"venue_name"`
	VenueLocation   string              `json:"venue_location"`
	Broadcast       string              `json:"broadcast"`
	HomeCompetitors []FixtureCompetitor `json:"home_competitors"`
	AwayCompetitors []FixtureCompetitor `json:"away_competitors"`
}

// ToFixture converts FixtureInput (from API) to Fixture model
func (fi *FixtureInput) ToFixture(leagueID string) *Fixture {
	fixture := &Fixture{
		ID:       fi.ID,
		GameID:   fi.GameID,
		Status:   fi.Status,
		IsLive:   fi.IsLive,
		LeagueID: leagueID,
	}

	if startDate, err := time.Parse(time.RFC3339, fi.StartDate); err == nil {
		fixture.StartDate = startDate
	}

	if fi.NumericalID != nil {
		fixture.NumericalID = sql.NullInt32{Int32: int32(*fi.NumericalID), Valid: true}
	}
	if fi.HomeTeamDisplay != "" {
		fixture.HomeTeamDisplay = sql.NullString{String: fi.HomeTeamDisplay, Valid: true}
	}
	if fi.AwayTeamDisplay != "" {
		fixture.AwayTeamDisplay = sql.NullString{String: fi.AwayTeamDisplay, Valid: true}
	}
	if fi.HomeRecord != "" {
		fixture.HomeRecord = sql.NullString{String: fi.HomeRecord, Valid: true}
	}
	if fi.AwayRecord != "" {
		fixture.AwayRecord = sql.NullString{String: fi.AwayRecord, Valid: true}
	}
	if fi.HomeScore != nil {
		fixture.HomeScore = sql.NullInt32{Int32: int32(*fi.HomeScore), Valid: true}
	}
	if fi.AwayScore != nil {
		fixture.AwayScore = sql.NullInt32{Int32: int32(*fi.AwayScore), Valid: true}
	}
	if fi.VenueName != "" {
		fixture.VenueName = sql.NullString{String: fi.VenueName, Valid: true}
	}
	if fi.VenueLocation != "" {
		fixture.VenueLocation = sql.NullString{String: fi.VenueLocation, Valid: true}
	}
	if fi.Broadcast != "" {
		fixture.Broadcast = sql.NullString{String: fi.Broadcast, Valid: true}
	}

	if len(fi.HomeCompetitors) > 0 {
		fixture.HomeTeamID = sql.NullString{String: fi.HomeCompetitors[0].ID, Valid: true}
		if fi.HomeCompetitors[0].Abbreviation != "" {
			fixture.HomeTeamAbbreviation = sql.NullString{String: fi.HomeCompetitors[0].Abbreviation, Valid: true}
		}
	}
	if len(fi.AwayCompetitors) > 0 {
		fixture.AwayTeamID = sql.NullString{String: fi.AwayCompetitors[0].ID, Valid: true}
		if fi.AwayCompetitors[0].Abbreviation != "" {
			fixture.AwayTeamAbbreviation = sql.NullString{String: fi.AwayCompetitors[0].Abbreviation, Valid: true}
		}
	}

	return fixture
}

// IsCompleted returns true if the fixture has finished
func (f *Fixture) IsCompleted() bool {
	return f.Status == "completed"
}

// IsUnplayed returns true if the fixture has not started yet
func (f *Fixture) IsUnplayed() bool {
	return f.Status == "unplayed"
}
