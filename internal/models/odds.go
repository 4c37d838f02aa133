package models

import (
	"database/sql"
	"strings"
	"time"
)

// Odds represents one priced selection for a fixture from one sportsbook.
// The API-assigned odd ID is the conflict key for upserts.
type Odds struct {
	ID                   string          `db:"id"`
	FixtureID            string          `db:"fixture_id"`
	Sportsbook           string          `db:"sportsbook"`
	Market               string          `db:"market"`
	MarketID             sql.NullString  `db:"market_id"`
	Name                 sql.NullString  `db:"name"`
	IsMain               bool            `db:"is_main"`
	Selection            sql.NullString  `db:"selection"`
	NormalizedSelection  sql.NullString  `db:"normalized_selection"`
	SelectionLine        sql.NullString  `db:"selection_line"`
	PlayerID             sql.NullString  `db:"player_id"`
	TeamID               sql.NullString  `db:"team_id"`
	Price                int             `db:"price"`
	Points               sql.NullFloat64 `db:"points"`
	Timestamp            sql.NullFloat64 `db:"timestamp"`
	StartDate            time.Time       `db:"start_date"`
	LastSyncedAt         time.Time       `db:"last_synced_at"`
}

// OddsInput is used for creating/updating odds from the API
type OddsInput struct {
	ID                  string   `json:"id"`
	Sportsbook          string   `json:"sportsbook"`
	Market              string   `json:"market"`
	MarketID            string   `json:"market_id"`
	Name                string   `json:"name"`
	IsMain              bool     `json:"is_main"`
	Selection           string   `json:"selection"`
	NormalizedSelection string   `json:"normalized_selection"`
	SelectionLine       string   `json:"selection_line"`
	PlayerID            string   `json:"player_id"`
	TeamID              string   `json:"team_id"`
	Price               float64  `json:"price"`
	Points              *float64 `json:"points,omitempty"`
	Timestamp           *float64 `json:"timestamp,omitempty"`
}

// ToOdds converts OddsInput (from API) to the Odds model for a fixture.
// Prices are stored as integers (American odds).
func (oi *OddsInput) ToOdds(fixtureID string, startDate time.Time, syncedAt time.Time) *Odds {
	odds := &Odds{
		ID:           oi.ID,
		FixtureID:    fixtureID,
		Sportsbook:   strings.ToLower(oi.Sportsbook),
		Market:       oi.Market,
		IsMain:       oi.IsMain,
		Price:        int(oi.Price + 0.5),
		StartDate:    startDate,
		LastSyncedAt: syncedAt,
	}
	if oi.Price < 0 {
		odds.Price = int(oi.Price - 0.5)
	}

	if oi.MarketID != "" {
		odds.MarketID = sql.NullString{String: oi.MarketID, Valid: true}
	}
	if oi.Name != "" {
		odds.Name = sql.NullString{String: oi.Name, Valid: true}
	}
	if oi.Selection != "" {
		odds.Selection = sql.NullString{String: oi.Selection, Valid: true}
	}
	if oi.NormalizedSelection != "" {
		odds.NormalizedSelection = sql.NullString{String: oi.NormalizedSelection, Valid: true}
	}
	if oi.PlayerID != "" {
		odds.PlayerID = sql.NullString{String: oi.PlayerID, Valid: true}
	}
	if oi.TeamID != "" {
		odds.TeamID = sql.NullString{String: oi.TeamID, Valid: true}
	}
	if oi.Points != nil {
		odds.Points = sql.NullFloat64{Float64: *oi.Points, Valid: true}
	}
	if oi.Timestamp != nil {
		odds.Timestamp = sql.NullFloat64{Float64: *oi.Timestamp, Valid: true}
	}

	// Totals markets carry the over/under side in the selection; everything
	// else defaults to a moneyline-style selection line.
	selectionLine := oi.SelectionLine
	if selectionLine == "" {
		if oi.MarketID == "total_points" {
			selectionLine = oi.Selection
		} else {
			selectionLine = "ml"
		}
	}
	odds.SelectionLine = sql.NullString{String: selectionLine, Valid: true}

	return odds
}
