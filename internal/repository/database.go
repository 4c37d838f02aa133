package repository

import (
	"context"
	"fmt"
	"time"

	"trendybets/ingestion/internal/pool"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// Database owns the connection pool and provides access to repositories.
// Every query runs through a pool-acquired connection so the pool's size
// bounds and health checks apply uniformly.
type Database struct {
	Pool *pool.Pool[*pgx.Conn]

	// Repositories
	Teams    *TeamRepository
	Players  *PlayerRepository
	Fixtures *FixtureRepository
	History  *PlayerHistoryRepository
	Odds     *OddsRepository
	SyncLog  *SyncLogRepository
}

// Config holds database configuration
type Config struct {
	DSN  string
	Pool pool.Config
}

// NewDatabase creates the connection pool and initializes repositories
func NewDatabase(ctx context.Context, cfg Config) (*Database, error) {
	poolCfg := cfg.Pool
	if poolCfg.Max == 0 {
		poolCfg = pool.DefaultConfig()
	}

	p, err := pool.New(ctx, poolCfg, func(ctx context.Context) (*pgx.Conn, error) {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return pgx.Connect(connectCtx, cfg.DSN)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	log.Info().Msg("Successfully connected to database")

	db := &Database{
		Pool: p,
	}

	db.Teams = &TeamRepository{db: db}
	db.Players = &PlayerRepository{db: db}
	db.Fixtures = &FixtureRepository{db: db}
	db.History = &PlayerHistoryRepository{db: db}
	db.Odds = &OddsRepository{db: db}
	db.SyncLog = &SyncLogRepository{db: db}

	return db, nil
}

// withConn runs fn with a pooled connection, releasing it on every exit path
func (db *Database) withConn(ctx context.Context, fn func(conn *pgx.Conn) error) error {
	return db.Pool.WithConn(ctx, fn)
}

// Close closes the connection pool
func (db *Database) Close(ctx context.Context) {
	if db.Pool != nil {
		db.Pool.Close(ctx)
		log.Info().Msg("Database connection pool closed")
	}
}

// Health checks if the database is reachable through the pool
func (db *Database) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	err := db.withConn(ctx, func(conn *pgx.Conn) error {
		return conn.Ping(ctx)
	})
	if err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	return nil
}

// PoolStats returns connection pool statistics
func (db *Database) PoolStats() map[string]interface{} {
	stat := db.Pool.Stats()
	return map[string]interface{}{
		"total_conns":  stat.Total,
		"in_use_conns": stat.InUse,
		"idle_conns":   stat.Idle,
	}
}
