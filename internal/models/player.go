package models

import (
	"database/sql"
	"time"
)

// Player represents an NBA player
type Player struct {
	ID           string          `db:"id"`
	FullName     string          `db:"full_name"`
	FirstName    sql.NullString  `db:"first_name"`
	LastName     sql.NullString  `db:"last_name"`
	Position     sql.NullString  `db:"position"`
	JerseyNumber sql.NullInt32   `db:"jersey_number"`
	BirthDate    sql.NullString  `db:"birth_date"`
	Weight       sql.NullFloat64 `db:"weight"`
	Height       sql.NullFloat64 `db:"height"`
	TeamID       sql.NullString  `db:"team_id"`
	LeagueID     string          `db:"league_id"`
	IsActive     bool            `db:"is_active"`
	LastSyncedAt time.Time       `db:"last_synced_at"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

// PlayerInput is used for creating/updating players from the API
type PlayerInput struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	Position     string   `json:"position"`
	JerseyNumber *int     `json:"jersey_number,omitempty"`
	BirthDate    string   `json:"birth_date"`
	Weight       *float64 `json:"weight,omitempty"`
	Height       *float64 `json:"height,omitempty"`
	Team         *struct {
		ID string `json:"id"`
	} `json:"team,omitempty"`
}

// ToPlayer converts PlayerInput (from API) to Player model.
// Players returned by the roster endpoints are considered active.
func (pi *PlayerInput) ToPlayer(leagueID string) *Player {
	player := &Player{
		ID:       pi.ID,
		FullName: pi.Name,
		LeagueID: leagueID,
		IsActive: true,
	}

	if pi.FirstName != "" {
		player.FirstName = sql.NullString{String: pi.FirstName, Valid: true}
	}
	if pi.LastName != "" {
		player.LastName = sql.NullString{String: pi.LastName, Valid: true}
	}
	if pi.Position != "" {
		player.Position = sql.NullString{String: pi.Position, Valid: true}
	}
	if pi.JerseyNumber != nil {
		player.JerseyNumber = sql.NullInt32{Int32: int32(*pi.JerseyNumber), Valid: true}
	}
	if pi.BirthDate != "" {
		player.BirthDate = sql.NullString{String: pi.BirthDate, Valid: true}
	}
	if pi.Weight != nil {
		player.Weight = sql.NullFloat64{Float64: *pi.Weight, Valid: true}
	}
	if pi.Height != nil {
		player.Height = sql.NullFloat64{Float64: *pi.Height, Valid: true}
	}
	if pi.Team != nil && pi.Team.ID != "" {
		player.TeamID = sql.NullString{String: pi.Team.ID, Valid: true}
	}

	return player
}
