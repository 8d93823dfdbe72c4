package infra

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends selectable via STORE_BACKEND.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	StoreBackend string `env:"STORE_BACKEND" envDefault:"postgres"`

	// Database
	DatabaseURL   string `env:"DATABASE_URL"`
	PGHost        string `env:"PGHOST" envDefault:"localhost"`
	PGPort        int    `env:"PGPORT" envDefault:"5432"`
	PGUser        string `env:"PGUSER" envDefault:"gamesocial"`
	PGPassword    string `env:"PGPASSWORD" envDefault:"gamesocial"`
	PGDatabase    string `env:"PGDATABASE" envDefault:"gamesocial"`
	PGMaxConns    int    `env:"PG_MAX_CONNS" envDefault:"20"`
	PGMinConns    int    `env:"PG_MIN_CONNS" envDefault:"2"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"true"`

	// Redis
	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	// JWT (tokens are issued by the identity service; we only validate)
	JWTSecret string `env:"JWT_SECRET" envDefault:"change-me-in-production"`

	// Server
	APIPort int `env:"API_PORT" envDefault:"3100"`

	// Kafka
	KafkaBrokers     string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaEnabled     bool   `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaTopicPrefix string `env:"KAFKA_TOPIC_PREFIX" envDefault:"gamesocial"`

	// Event publish circuit breaker
	PublishFailThreshold int           `env:"PUBLISH_FAIL_THRESHOLD" envDefault:"5"`
	PublishResetTimeout  time.Duration `env:"PUBLISH_RESET_TIMEOUT" envDefault:"30s"`

	// Window reset
	ResetBatchSize   int    `env:"RESET_BATCH_SIZE" envDefault:"500"`
	ResetDailyCron   string `env:"RESET_DAILY_CRON" envDefault:"0 0 * * *"`
	ResetWeeklyCron  string `env:"RESET_WEEKLY_CRON" envDefault:"0 0 * * 1"`
	ResetTimezone    string `env:"RESET_TIMEZONE" envDefault:"UTC"`
	SchedulerEnabled bool   `env:"SCHEDULER_ENABLED" envDefault:"true"`

	// Leaderboard and chat limits
	LeaderboardMaxK   int `env:"LEADERBOARD_MAX_K" envDefault:"100"`
	ChatMaxMessageLen int `env:"CHAT_MAX_MESSAGE_LEN" envDefault:"1000"`
	ChatRateLimit     int `env:"CHAT_RATE_LIMIT" envDefault:"30"`

	// Dev
	AllowInsecureDefaults bool `env:"ALLOW_INSECURE_DEFAULTS" envDefault:"false"`
}

// LoadConfig parses environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks the store settings and the secrets the API needs.
// Set ALLOW_INSECURE_DEFAULTS=true to bypass the secret checks (local dev only).
func (c *Config) Validate() error {
	if err := c.ValidateStore(); err != nil {
		return err
	}

	if c.AllowInsecureDefaults {
		return nil
	}
	if c.JWTSecret == "change-me-in-production" {
		return fmt.Errorf("JWT_SECRET is set to the insecure default; set a strong secret or set ALLOW_INSECURE_DEFAULTS=true for local dev")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET is too short (%d chars); minimum 32 characters required", len(c.JWTSecret))
	}
	return nil
}

// ValidateStore checks the backend, reset and leaderboard settings. Binaries that
// never serve HTTP use it instead of Validate.
func (c *Config) ValidateStore() error {
	switch c.StoreBackend {
	case BackendPostgres, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be one of postgres, redis, memory; got %q", c.StoreBackend)
	}
	if c.ResetBatchSize <= 0 {
		return fmt.Errorf("RESET_BATCH_SIZE must be positive, got %d", c.ResetBatchSize)
	}
	if c.StoreBackend == BackendPostgres && (c.PGMaxConns <= 0 || c.PGMinConns > c.PGMaxConns) {
		return fmt.Errorf("PG_MAX_CONNS must be positive and at least PG_MIN_CONNS, got %d/%d", c.PGMaxConns, c.PGMinConns)
	}
	if c.LeaderboardMaxK <= 0 {
		return fmt.Errorf("LEADERBOARD_MAX_K must be positive, got %d", c.LeaderboardMaxK)
	}
	_, err := c.Location()
	return err
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}

// Location resolves RESET_TIMEZONE for the reset scheduler.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.ResetTimezone)
	if err != nil {
		return nil, fmt.Errorf("RESET_TIMEZONE %q: %w", c.ResetTimezone, err)
	}
	return loc, nil
}
