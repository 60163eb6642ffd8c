package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrNoDatabase is returned alongside a usable Config when DATABASE_URL is
// unset; callers fall back to in-memory adapters.
var ErrNoDatabase = errors.New("DATABASE_URL not set, using in-memory storage")

type Config struct {
	Env         string `env:"APP_ENV" envDefault:"development"`
	ListenAddr  string `env:"LISTEN_ADDR" envDefault:":8080"`
	DatabaseURL string `env:"DATABASE_URL"`

	DBMaxConns          int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns          int32         `env:"DB_MIN_CONNS" envDefault:"0"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"30s"`
	DBConnectTimeout    time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"5s"`

	EventWorkers      int           `env:"EVENT_WORKERS" envDefault:"0"`
	EventPollInterval time.Duration `env:"EVENT_POLL_INTERVAL" envDefault:"500ms"`

	ExtractionURL     string        `env:"EXTRACTION_URL"`
	ExtractionTimeout time.Duration `env:"EXTRACTION_TIMEOUT" envDefault:"10s"`

	DemoMode         bool   `env:"DEMO_MODE" envDefault:"false"`
	DemoOrgID        string `env:"DEMO_ORG_ID" envDefault:"demo-org"`
	EnforceDocGating bool   `env:"ENFORCE_DOC_GATING" envDefault:"true"`
}

// Load reads an optional .env file, then the environment. A missing
// database URL is reported as ErrNoDatabase with a usable Config.
func Load(files ...string) (Config, error) {
	_ = godotenv.Load(files...)

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if cfg.EventWorkers < 0 {
		return cfg, fmt.Errorf("EVENT_WORKERS must not be negative, got %d", cfg.EventWorkers)
	}
	if cfg.DBMaxConns < 1 || cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		return cfg, fmt.Errorf("DB_MIN_CONNS/DB_MAX_CONNS out of range: %d/%d", cfg.DBMinConns, cfg.DBMaxConns)
	}
	if cfg.EventPollInterval <= 0 {
		cfg.EventPollInterval = 500 * time.Millisecond
	}
	if cfg.DatabaseURL == "" {
		return cfg, ErrNoDatabase
	}
	return cfg, nil
}
