package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds everything the server reads from the environment.
type Config struct {
	Env       string `envconfig:"APP_ENV" default:"development"`
	Port      string `envconfig:"PORT" default:"8080"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`

	DB       DBConfig
	Redis    RedisConfig
	Gateway  GatewayConfig
	Cache    CacheConfig
	Paging   PagingConfig
	Snapshot SnapshotConfig

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	FrontendDistPath   string   `envconfig:"FRONTEND_DIST_PATH"`
}

type DBConfig struct {
	Driver string `envconfig:"DB_DRIVER" default:"sqlite"`
	Path   string `envconfig:"DB_PATH" default:"./tcg_inventory.db"`
	URL    string `envconfig:"DATABASE_URL"`
}

// RedisConfig is optional; when URL is empty preferences live in the database.
type RedisConfig struct {
	URL       string `envconfig:"REDIS_URL"`
	KeyPrefix string `envconfig:"REDIS_KEY_PREFIX" default:"inv"`
}

// GatewayConfig throttles calls into the backing store. RPS <= 0 disables it.
type GatewayConfig struct {
	RPS   float64 `envconfig:"GATEWAY_RPS" default:"0"`
	Burst int     `envconfig:"GATEWAY_BURST" default:"10"`
}

type CacheConfig struct {
	Size                int           `envconfig:"CACHE_SIZE" default:"2048"`
	SearchStaleTime     time.Duration `envconfig:"CACHE_SEARCH_STALE_TIME" default:"30s"`
	PriceAlertStaleTime time.Duration `envconfig:"CACHE_PRICE_ALERT_STALE_TIME" default:"5m"`
}

type PagingConfig struct {
	LibraryBatchSize    int           `envconfig:"LIBRARY_BATCH_SIZE" default:"10"`
	SetBatchSize        int           `envconfig:"SET_BATCH_SIZE" default:"44"`
	CardBatchSize       int           `envconfig:"CARD_BATCH_SIZE" default:"24"`
	SearchBatchSize     int           `envconfig:"SEARCH_BATCH_SIZE" default:"20"`
	ViewportMinInterval time.Duration `envconfig:"VIEWPORT_MIN_INTERVAL" default:"0s"`
}

type SnapshotConfig struct {
	Hour          int           `envconfig:"SNAPSHOT_HOUR" default:"23"`
	CheckInterval time.Duration `envconfig:"SNAPSHOT_CHECK_INTERVAL" default:"15m"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// A missing .env is the normal case in production.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.DB.Driver) {
	case DriverSQLite:
		if c.DB.Path == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DB.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	if c.Snapshot.Hour < 0 || c.Snapshot.Hour > 23 {
		return fmt.Errorf("SNAPSHOT_HOUR must be between 0 and 23, got %d", c.Snapshot.Hour)
	}
	for name, size := range map[string]int{
		"LIBRARY_BATCH_SIZE": c.Paging.LibraryBatchSize,
		"SET_BATCH_SIZE":     c.Paging.SetBatchSize,
		"CARD_BATCH_SIZE":    c.Paging.CardBatchSize,
		"SEARCH_BATCH_SIZE":  c.Paging.SearchBatchSize,
	} {
		if size <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, size)
		}
	}
	return nil
}

func (c *Config) IsDev() bool {
	return strings.EqualFold(c.Env, "development")
}
