package models

import "time"

// PlayerHistory represents one player's stat line for one completed fixture.
// The (player_id, fixture_id) pair is the natural conflict key: re-syncing an
// overlapping window overwrites the same row instead of duplicating it.
type PlayerHistory struct {
	ID        int       `db:"id"`
	PlayerID  string    `db:"player_id"`
	FixtureID string    `db:"fixture_id"`
	GameID    string    `db:"game_id"`
	StartDate time.Time `db:"start_date"`

	Fouls          int     `db:"fouls"`
	Blocks         int     `db:"blocks"`
	Points         int     `db:"points"`
	Steals         int     `db:"steals"`
	Assists        int     `db:"assists"`
	Minutes        int     `db:"minutes"`
	Seconds        int     `db:"seconds"`
	Turnovers      int     `db:"turnovers"`
	PlusMinus      int     `db:"plus_minus"`
	TotalRebounds  int     `db:"total_rebounds"`
	DefRebounds    int     `db:"defensive_rebounds"`
	OffRebounds    int     `db:"offensive_rebounds"`
	FlagrantFouls  int     `db:"flagrant_fouls"`
	TechnicalFouls int     `db:"technical_fouls"`
	BlocksReceived int     `db:"blocks_received"`
	FirstBasket    int     `db:"first_basket"`
	FieldGoalsMade int     `db:"field_goals_made"`
	FieldGoalsAtt  int     `db:"field_goals_attempted"`
	FreeThrowsMade int     `db:"free_throws_made"`
	FreeThrowsAtt  int     `db:"free_throws_attempted"`
	TwoPointsMade  int     `db:"two_point_field_goals_made"`
	TwoPointsAtt   int     `db:"two_point_field_goals_attempted"`
	ThreePtsMade   int     `db:"three_point_field_goals_made"`
	ThreePtsAtt    int     `db:"three_point_field_goals_attempted"`
	PointsOffTO    int     `db:"points_off_turnovers"`

	LastSyncedAt time.Time `db:"last_synced_at"`
	CreatedAt    time.Time `db:"created_at"`
}

// StatLine is the per-period stat block in a player-results API payload
type StatLine struct {
	Fouls          int `json:"fouls"`
	Blocks         int `json:"blocks"`
	Points         int `json:"points"`
	Steals         int `json:"steals"`
	Assists        int `json:"assists"`
	Minutes        int `json:"minutes"`
	Seconds        int `json:"seconds"`
	Turnovers      int `json:"turnovers"`
	PlusMinus      int `json:"plus_minus"`
	TotalRebounds  int `json:"total_rebounds"`
	DefRebounds    int `json:"defensive_rebounds"`
	OffRebounds    int `json:"offensive_rebounds"`
	FlagrantFouls  int `json:"flagrant_fouls"`
	TechnicalFouls int `json:"technical_fouls"`
	BlocksReceived int `json:"blocks_received"`
	FirstBasket    int `json:"first_basket"`
	FieldGoalsMade int `json:"field_goals_made"`
	FieldGoalsAtt  int `json:"field_goals_attempted"`
	FreeThrowsMade int `json:"free_throws_made"`
	FreeThrowsAtt  int `json:"free_throws_attempted"`
	TwoPointsMade  int `json:"two_point_field_goals_made"`
	TwoPointsAtt   int `json:"two_point_field_goals_attempted"`
	ThreePtsMade   int `json:"three_point_field_goals_made"`
	ThreePtsAtt    int `json:"three_point_field_goals_attempted"`
	PointsOffTO    int `json:"points_off_turnovers"`
}

// PlayerResultStats is one period entry in a player result
type PlayerResultStats struct {
	Period string   `json:"period"`
	Stats  StatLine `json:"stats"`
}

// PlayerResult is one player's entry in a fixture result payload
type PlayerResult struct {
	Player struct {
		ID string `json:"id"`
	} `json:"player"`
	Stats []PlayerResultStats `json:"stats"`
}

// FixtureResultInput is one element of the player-results API response
type FixtureResultInput struct {
	Fixture struct {
		ID        string `json:"id"`
		GameID    string `json:"game_id"`
		StartDate string `json:"start_date"`
		Status    string `json:"status"`
	} `json:"fixture"`
	League struct {
		ID string `json:"id"`
	} `json:"league"`
	Results []PlayerResult `json:"results"`
}

// AllPeriodStats returns the full-game stat line for the given player, or
// nil when the payload has no "all" period entry for them.
func (fr *FixtureResultInput) AllPeriodStats(playerID string) *StatLine {
	for _, result := range fr.Results {
		if result.Player.ID != playerID {
			continue
		}
		for _, period := range result.Stats {
			if period.Period == "all" {
				stats := period.Stats
				return &stats
			}
		}
	}
	return nil
}

// ToPlayerHistory builds a PlayerHistory row for playerID from this fixture
// result. Returns nil when the player has no full-game stats in the payload.
func (fr *FixtureResultInput) ToPlayerHistory(playerID string, syncedAt time.Time) *PlayerHistory {
	stats := fr.AllPeriodStats(playerID)
	if stats == nil {
		return nil
	}

	history := &PlayerHistory{
		PlayerID:  playerID,
		FixtureID: fr.Fixture.ID,
		GameID:    fr.Fixture.GameID,

		Fouls:          stats.Fouls,
		Blocks:         stats.Blocks,
		Points:         stats.Points,
		Steals:         stats.Steals,
		Assists:        stats.Assists,
		Minutes:        stats.Minutes,
		Seconds:        stats.Seconds,
		Turnovers:      stats.Turnovers,
		PlusMinus:      stats.PlusMinus,
		TotalRebounds:  stats.TotalRebounds,
		DefRebounds:    stats.DefRebounds,
		OffRebounds:    stats.OffRebounds,
		FlagrantFouls:  stats.FlagrantFouls,
		TechnicalFouls: stats.TechnicalFouls,
		BlocksReceived: stats.BlocksReceived,
		FirstBasket:    stats.FirstBasket,
		FieldGoalsMade: stats.FieldGoalsMade,
		FieldGoalsAtt:  stats.FieldGoalsAtt,
		FreeThrowsMade: stats.FreeThrowsMade,
		FreeThrowsAtt:  stats.FreeThrowsAtt,
		TwoPointsMade:  stats.TwoPointsMade,
		TwoPointsAtt:   stats.TwoPointsAtt,
		ThreePtsMade:   stats.ThreePtsMade,
		ThreePtsAtt:    stats.ThreePtsAtt,
		PointsOffTO:    stats.PointsOffTO,

		LastSyncedAt: syncedAt,
	}

	if startDate, err := time.Parse(time.RFC3339, fr.Fixture.StartDate); err == nil {
		history.StartDate = startDate
	}

	return history
}
