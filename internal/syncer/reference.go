package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"trendybets/ingestion/internal/cache"
	"trendybets/ingestion/internal/client"
	"trendybets/ingestion/internal/models"
	"trendybets/ingestion/internal/repository"

	"github.com/rs/zerolog/log"
)

// Ledger streams for the reference syncs.
const (
	SyncTypeTeams    = "teams"
	SyncTypePlayers  = "players"
	SyncTypeFixtures = "fixtures"
	SyncTypeOdds     = "odds"
)

// ReferenceSyncer handles the full-table reference syncs: teams, players,
// fixtures, and odds. These refresh whole datasets rather than walking a
// watermark; each run still appends a ledger entry.
type ReferenceSyncer struct {
	client *client.Client
	db     *repository.Database
	cache  *cache.RedisCache
	league string
}

// NewReferenceSyncer builds a reference syncer. cache may be nil.
func NewReferenceSyncer(apiClient *client.Client, db *repository.Database, redisCache *cache.RedisCache, league string) *ReferenceSyncer {
	return &ReferenceSyncer{
		client: apiClient,
		db:     db,
		cache:  redisCache,
		league: league,
	}
}

// SyncTeams refreshes the teams table from the API
func (s *ReferenceSyncer) SyncTeams(ctx context.Context) (*Summary, error) {
	startedAt := time.Now().UTC()

	teamsData, err := s.client.FetchTeams(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch teams: %w", err)
	}

	stored := 0
	var unitErrors []models.UnitError
	for _, teamData := range teamsData {
		input, err := decodeInput[models.TeamInput](teamData)
		if err != nil {
			continue
		}

		team := input.ToTeam(s.league)
		if err := s.db.Teams.Upsert(ctx, team); err != nil {
			log.Error().Err(err).Str("team_id", team.ID).Msg("Failed to store team")
			unitErrors = append(unitErrors, models.UnitError{UnitID: team.ID, Message: err.Error()})
			continue
		}
		stored++
	}

	log.Info().Int("teams", stored).Msg("Teams sync complete")
	return s.finish(ctx, SyncTypeTeams, startedAt, stored, len(teamsData), unitErrors)
}

// SyncPlayers refreshes the players table from the full league roster
func (s *ReferenceSyncer) SyncPlayers(ctx context.Context) (*Summary, error) {
	startedAt := time.Now().UTC()

	playersData, err := s.client.FetchPlayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch players: %w", err)
	}

	stored := 0
	roster := make(map[string]struct{}, len(playersData))
	var unitErrors []models.UnitError
	for _, playerData := range playersData {
		input, err := decodeInput[models.PlayerInput](playerData)
		if err != nil {
			continue
		}
		roster[input.ID] = struct{}{}

		player := input.ToPlayer(s.league)
		if err := s.db.Players.Upsert(ctx, player); err != nil {
			log.Error().Err(err).Str("player_id", player.ID).Msg("Failed to store player")
			unitErrors = append(unitErrors, models.UnitError{UnitID: player.ID, Message: err.Error()})
			continue
		}
		stored++
	}

	// Players who dropped off every roster stop being work units for the
	// history sync. An empty API response is treated as an upstream fault,
	// not a league-wide cut.
	if len(roster) > 0 {
		if err := s.deactivateMissing(ctx, roster); err != nil {
			log.Warn().Err(err).Msg("Failed to deactivate players missing from roster")
		}
	}

	// The roster changed, so the cached work-unit list is stale.
	if err := s.cache.Delete(ctx, activePlayersCacheKey); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate active-players cache")
	}

	log.Info().Int("players", stored).Msg("Players sync complete")
	return s.finish(ctx, SyncTypePlayers, startedAt, stored, len(playersData), unitErrors)
}

// deactivateMissing flips is_active off for stored players absent from the
// fetched roster.
func (s *ReferenceSyncer) deactivateMissing(ctx context.Context, roster map[string]struct{}) error {
	active, err := s.db.Players.ListActive(ctx)
	if err != nil {
		return err
	}

	stale := missingPlayerIDs(active, roster)
	if len(stale) == 0 {
		return nil
	}

	if err := s.db.Players.MarkInactive(ctx, stale); err != nil {
		return err
	}

	log.Info().Int("players", len(stale)).Msg("Deactivated players missing from roster")
	return nil
}

// missingPlayerIDs returns the ids of stored players that do not appear in
// the fetched roster.
func missingPlayerIDs(active []*models.Player, roster map[string]struct{}) []string {
	var missing []string
	for _, player := range active {
		if _, ok := roster[player.ID]; !ok {
			missing = append(missing, player.ID)
		}
	}
	return missing
}

// SyncFixtures refreshes upcoming and in-progress fixtures
func (s *ReferenceSyncer) SyncFixtures(ctx context.Context) (*Summary, error) {
	startedAt := time.Now().UTC()

	fixturesData, err := s.client.FetchActiveFixtures(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fixtures: %w", err)
	}

	stored := 0
	var unitErrors []models.UnitError
	for _, fixtureData := range fixturesData {
		input, err := decodeInput[models.FixtureInput](fixtureData)
		if err != nil {
			continue
		}

		fixture := input.ToFixture(s.league)
		if err := s.db.Fixtures.Upsert(ctx, fixture); err != nil {
			log.Error().Err(err).Str("fixture_id", fixture.ID).Msg("Failed to store fixture")
			unitErrors = append(unitErrors, models.UnitError{UnitID: fixture.ID, Message: err.Error()})
			continue
		}
		stored++
	}

	log.Info().Int("fixtures", stored).Msg("Fixtures sync complete")
	return s.finish(ctx, SyncTypeFixtures, startedAt, stored, len(fixturesData), unitErrors)
}

// oddsPayload is the per-fixture odds envelope in the odds feed
type oddsPayload struct {
	ID        string             `json:"id"`
	StartDate string             `json:"start_date"`
	Odds      []models.OddsInput `json:"odds"`
}

// SyncOdds refreshes current lines for upcoming fixtures and prunes lines
// for games that have already tipped off
func (s *ReferenceSyncer) SyncOdds(ctx context.Context) (*Summary, error) {
	startedAt := time.Now().UTC()

	fixtures, err := s.db.Fixtures.ListUpcoming(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming fixtures: %w", err)
	}

	fixtureIDs := make([]string, 0, len(fixtures))
	for _, fixture := range fixtures {
		fixtureIDs = append(fixtureIDs, fixture.ID)
	}

	oddsData, err := s.client.FetchFixtureOdds(ctx, fixtureIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch odds: %w", err)
	}

	syncedAt := time.Now().UTC()
	stored := 0
	var unitErrors []models.UnitError
	for _, fixtureOdds := range oddsData {
		payload, err := decodeInput[oddsPayload](fixtureOdds)
		if err != nil {
			continue
		}

		startDate, err := time.Parse(time.RFC3339, payload.StartDate)
		if err != nil {
			startDate = syncedAt
		}

		rows := make([]*models.Odds, 0, len(payload.Odds))
		for i := range payload.Odds {
			rows = append(rows, payload.Odds[i].ToOdds(payload.ID, startDate, syncedAt))
		}

		written, err := s.db.Odds.UpsertBatch(ctx, rows)
		stored += written
		if err != nil {
			log.Error().Err(err).Str("fixture_id", payload.ID).Msg("Failed to store odds")
			unitErrors = append(unitErrors, models.UnitError{UnitID: payload.ID, Message: err.Error()})
		}
	}

	if _, err := s.db.Odds.DeleteStale(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to prune stale odds")
	}

	log.Info().Int("odds", stored).Int("fixtures", len(fixtureIDs)).Msg("Odds sync complete")
	return s.finish(ctx, SyncTypeOdds, startedAt, stored, len(oddsData), unitErrors)
}

// finish appends the run's ledger entry and builds the summary
func (s *ReferenceSyncer) finish(ctx context.Context, syncType string, startedAt time.Time, records, units int, unitErrors []models.UnitError) (*Summary, error) {
	entry := &models.RunRecord{
		SyncType:         syncType,
		StartedAt:        startedAt,
		CompletedAt:      nullTimeNow(),
		Status:           models.RunStatusCompleted,
		Watermark:        nullTime(startedAt),
		RecordsProcessed: records,
		Errors:           unitErrors,
	}

	if err := s.db.SyncLog.Record(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record %s sync run: %w", syncType, err)
	}

	return &Summary{RecordsProcessed: records, UnitsProcessed: units - len(unitErrors)}, nil
}

// decodeInput round-trips one API record through JSON into a typed input
func decodeInput[T any](record map[string]interface{}) (*T, error) {
	jsonData, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}

	var input T
	if err := json.Unmarshal(jsonData, &input); err != nil {
		return nil, err
	}

	return &input, nil
}
