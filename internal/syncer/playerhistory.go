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

const (
	// SyncTypePlayerHistory is the ledger stream for player stat-line syncs.
	SyncTypePlayerHistory = "player-history"

	activePlayersCacheKey = "sync:active-players"
	activePlayersCacheTTL = 10 * time.Minute
)

// PlayerHistorySource lists active players as work units and fetches each
// player's completed-fixture results since the cursor.
type PlayerHistorySource struct {
	client *client.Client
	db     *repository.Database
	cache  *cache.RedisCache
}

// NewPlayerHistorySource builds the source. cache may be nil.
func NewPlayerHistorySource(apiClient *client.Client, db *repository.Database, redisCache *cache.RedisCache) *PlayerHistorySource {
	return &PlayerHistorySource{
		client: apiClient,
		db:     db,
		cache:  redisCache,
	}
}

// Units returns one work unit per active player. The id list is cached
// briefly so fan-out shards planning against the same roster agree on
// ordering.
func (s *PlayerHistorySource) Units(ctx context.Context) ([]WorkUnit, error) {
	ids, err := cache.GetOrLoad(ctx, s.cache, activePlayersCacheKey, activePlayersCacheTTL, func(ctx context.Context) ([]string, error) {
		players, err := s.db.Players.ListActive(ctx)
		if err != nil {
			return nil, err
		}

		ids := make([]string, 0, len(players))
		for _, player := range players {
			ids = append(ids, player.ID)
		}
		return ids, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list active players: %w", err)
	}

	units := make([]WorkUnit, 0, len(ids))
	for _, id := range ids {
		units = append(units, WorkUnit{ID: id})
	}
	return units, nil
}

// FetchSince fetches one player's completed results since the cursor.
func (s *PlayerHistorySource) FetchSince(ctx context.Context, unit WorkUnit, since time.Time) ([]map[string]interface{}, error) {
	return s.client.FetchPlayerResults(ctx, unit.ID, since)
}

// PlayerHistorySink converts fixture-result payloads into stat-line rows and
// upserts them keyed on (player_id, fixture_id).
type PlayerHistorySink struct {
	db *repository.Database
}

// NewPlayerHistorySink builds the sink.
func NewPlayerHistorySink(db *repository.Database) *PlayerHistorySink {
	return &PlayerHistorySink{db: db}
}

// Upsert writes one player's fetched results. Records that decode but carry
// no full-game stat line are skipped, not errors.
func (s *PlayerHistorySink) Upsert(ctx context.Context, unit WorkUnit, records []map[string]interface{}) (int, error) {
	syncedAt := time.Now().UTC()

	histories := make([]*models.PlayerHistory, 0, len(records))
	for _, record := range records {
		jsonData, err := json.Marshal(record)
		if err != nil {
			continue
		}

		var result models.FixtureResultInput
		if err := json.Unmarshal(jsonData, &result); err != nil {
			log.Debug().
				Err(err).
				Str("player_id", unit.ID).
				Msg("Skipping undecodable fixture result")
			continue
		}

		if history := result.ToPlayerHistory(unit.ID, syncedAt); history != nil {
			histories = append(histories, history)
		}
	}

	written, err := s.db.History.UpsertBatch(ctx, histories)
	if err != nil {
		return written, err
	}

	return written, nil
}
