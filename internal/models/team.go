package models

import (
	"database/sql"
	"time"
)

// Team represents an NBA team
type Team struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	NumericalID  sql.NullInt32  `db:"numerical_id"`
	BaseID       sql.NullInt32  `db:"base_id"`
	City         sql.NullString `db:"city"`
	Mascot       sql.NullString `db:"mascot"`
	Nickname     sql.NullString `db:"nickname"`
	Abbreviation sql.NullString `db:"abbreviation"`
	Division     sql.NullString `db:"division"`
	Conference   sql.NullString `db:"conference"`
	Logo         sql.NullString `db:"logo"`
	LeagueID     string         `db:"league_id"`
	LastSyncedAt time.Time      `db:"last_synced_at"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

// TeamInput is used for creating/updating teams from the API
type TeamInput struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	NumericalID  *int   `json:"numerical_id,omitempty"`
	BaseID       *int   `json:"base_id,omitempty"`
	City         string `json:"city"`
	Mascot       string `json:"mascot"`
	Nickname     string `json:"nickname"`
	Abbreviation string `json:"abbreviation"`
	Division     string `json:"division"`
	Conference   string `json:"conference"`
	Logo         string `json:"logo"`
}

// ToTeam converts TeamInput (from API) to Team model
func (ti *TeamInput) ToTeam(leagueID string) *Team {
	team := &Team{
		ID:       ti.ID,
		Name:     ti.Name,
		LeagueID: leagueID,
	}

	if ti.NumericalID != nil {
		team.NumericalID = sql.NullInt32{Int32: int32(*ti.NumericalID), Valid: true}
	}
	if ti.BaseID != nil {
		team.BaseID = sql.NullInt32{Int32: int32(*ti.BaseID), Valid: true}
	}
	if ti.City != "" {
		team.City = sql.NullString{String: ti.City, Valid: true}
	}
	if ti.Mascot != "" {
		team.Mascot = sql.NullString{String: ti.Mascot, Valid: true}
	}
	if ti.Nickname != "" {
		team.Nickname = sql.NullString{String: ti.Nickname, Valid: true}
	}
	if ti.Abbreviation != "" {
		team.Abbreviation = sql.NullString{String: ti.Abbreviation, Valid: true}
	}
	if ti.Division != "" {
		team.Division = sql.NullString{String: ti.Division, Valid: true}
	}
	if ti.Conference != "" {
		team.Conference = sql.NullString{String: ti.Conference, Valid: true}
	}
	if ti.Logo != "" {
		team.Logo = sql.NullString{String: ti.Logo, Valid: true}
	}

	return team
}
