package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	DriverSQLite  = "sqlite"
	DriverMongoDB = "mongodb"

	devSecret = "kolnoa-development-secret-change-me"
)

// Config is read from the process environment (and an optional .env file)
type Config struct {
	Address string `env:"ADDRESS" envDefault:":8080"`
	SiteURL string `env:"SITE_URL" envDefault:"http://localhost:8080"`
	GinMode string `env:"GIN_MODE" envDefault:"release"`

	DBDriver    string `env:"DB_DRIVER" envDefault:"sqlite"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"file:kolnoa.db"`
	DBName      string `env:"DB_NAME" envDefault:"kolnoa"`

	CookieSecret   string        `env:"COOKIE_SECRET"`
	JWTSecret      string        `env:"JWT_SECRET"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"1h"`
	AdminUsernames []string      `env:"ADMIN_USERNAMES" envSeparator:","`

	TMDBAPIKey        string        `env:"TMDB_API_KEY"`
	MovieshowsFeedURL string        `env:"MOVIESHOWS_FEED_URL"`
	SyncInterval      time.Duration `env:"SYNC_INTERVAL" envDefault:"6h"`

	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`

	MigrationsDir string `env:"MIGRATIONS_DIR" envDefault:"migrations"`
	LocalesDir    string `env:"LOCALES_DIR"`
	DefaultLocale string `env:"DEFAULT_LOCALE" envDefault:"he"`
	ItemsPerPage  int64  `env:"ITEMS_PER_PAGE" envDefault:"24"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`

	MetricsRate  float64 `env:"METRICS_RATE" envDefault:"20"`
	MetricsBurst int     `env:"METRICS_BURST" envDefault:"40"`
}

// ParseEnv loads configuration from environment variables
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads the .env file if there is one, then the environment
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	if cfg.DBDriver != DriverSQLite && cfg.DBDriver != DriverMongoDB {
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
	if cfg.ItemsPerPage <= 0 {
		return nil, fmt.Errorf("ITEMS_PER_PAGE must be positive, got %d", cfg.ItemsPerPage)
	}
	if cfg.SyncInterval <= 0 {
		return nil, fmt.Errorf("SYNC_INTERVAL must be positive, got %s", cfg.SyncInterval)
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive, got %s", cfg.SessionTTL)
	}
	if cfg.CookieSecret == "" {
		log.Warn().Msg("COOKIE_SECRET is not set, using a development secret")
		cfg.CookieSecret = devSecret
	}
	if cfg.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is not set, using a development secret")
		cfg.JWTSecret = devSecret
	}
	return &cfg, nil
}

// IsAdminUsername reports whether username is listed in ADMIN_USERNAMES
func (c Config) IsAdminUsername(username string) bool {
	for _, admin := range c.AdminUsernames {
		if strings.EqualFold(strings.TrimSpace(admin), username) {
			return true
		}
	}
	return false
}
