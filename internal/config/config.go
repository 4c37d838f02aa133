package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// OpticOdds API
	OpticOddsAPIKey  string        `envconfig:"OPTICODDS_API_KEY" required:"true"`
	OpticOddsBaseURL string        `envconfig:"OPTICODDS_BASE_URL" default:"https://api.opticodds.com/api/v3"`
	OpticOddsTimeout time.Duration `envconfig:"OPTICODDS_TIMEOUT" default:"30s"`

	// League selection
	Sport  string `envconfig:"SPORT" default:"basketball"`
	League string `envconfig:"LEAGUE" default:"nba"`

	// Database
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"trendybets"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"trendybets_user"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" required:"true"`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`

	// Connection pool
	PoolMinConns            int           `envconfig:"POOL_MIN_CONNS" default:"2"`
	PoolMaxConns            int           `envconfig:"POOL_MAX_CONNS" default:"10"`
	PoolIdleTimeout         time.Duration `envconfig:"POOL_IDLE_TIMEOUT" default:"30s"`
	PoolAcquireTimeout      time.Duration `envconfig:"POOL_ACQUIRE_TIMEOUT" default:"10s"`
	PoolHealthCheckInterval time.Duration `envconfig:"POOL_HEALTH_CHECK_INTERVAL" default:"10s"`

	// Redis
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Sync API surface
	APIPort  int    `envconfig:"API_PORT" default:"8080"`
	APIToken string `envconfig:"API_TOKEN" required:"true"`

	// Sync tuning
	SyncBatchSize       int           `envconfig:"SYNC_BATCH_SIZE" default:"5"`
	SyncFanoutThreshold int           `envconfig:"SYNC_FANOUT_THRESHOLD" default:"20"`
	SyncShardSize       int           `envconfig:"SYNC_SHARD_SIZE" default:"10"`
	SyncInterBatchDelay time.Duration `envconfig:"SYNC_INTER_BATCH_DELAY" default:"1s"`

	// Scheduler
	EnableScheduler    bool   `envconfig:"ENABLE_SCHEDULER" default:"true"`
	InitialSyncEnabled bool   `envconfig:"INITIAL_SYNC_ENABLED" default:"false"`
	TeamsSyncCron      string `envconfig:"TEAMS_SYNC_CRON" default:"0 2 * * *"`
	PlayersSyncCron    string `envconfig:"PLAYERS_SYNC_CRON" default:"0 3 * * *"`
	HistorySyncCron    string `envconfig:"HISTORY_SYNC_CRON" default:"10 3 * * *"`
	FixturesSyncCron   string `envconfig:"FIXTURES_SYNC_CRON" default:"*/30 * * * *"`
	OddsSyncCron       string `envconfig:"ODDS_SYNC_CRON" default:"*/10 * * * *"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if in development mode
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.OpticOddsAPIKey == "" {
		return fmt.Errorf("OPTICODDS_API_KEY is required")
	}

	if c.DatabasePassword == "" {
		return fmt.Errorf("DATABASE_PASSWORD is required")
	}

	if c.APIToken == "" {
		return fmt.Errorf("API_TOKEN is required")
	}

	if c.PoolMinConns < 0 || c.PoolMaxConns < 1 || c.PoolMinConns > c.PoolMaxConns {
		return fmt.Errorf("invalid pool bounds: min=%d max=%d", c.PoolMinConns, c.PoolMaxConns)
	}

	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DatabaseUser,
		c.DatabasePassword,
		c.DatabaseHost,
		c.DatabasePort,
		c.DatabaseName,
		c.DatabaseSSLMode,
	)
}
