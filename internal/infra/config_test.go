package infra

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, 500, cfg.ResetBatchSize)
	assert.Equal(t, "0 0 * * *", cfg.ResetDailyCron)
	assert.Equal(t, "0 0 * * 1", cfg.ResetWeeklyCron)
	assert.Equal(t, 100, cfg.LeaderboardMaxK)
	assert.Equal(t, 1000, cfg.ChatMaxMessageLen)
	assert.Equal(t, 30*time.Second, cfg.PublishResetTimeout)
	assert.True(t, cfg.RunMigrations)
	assert.Equal(t, 20, cfg.PGMaxConns)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("REDIS_URL", "redis://cache:6380/2")
	t.Setenv("RESET_BATCH_SIZE", "250")
	t.Setenv("RESET_TIMEZONE", "America/New_York")
	t.Setenv("CHAT_RATE_LIMIT", "0")
	t.Setenv("PUBLISH_RESET_TIMEOUT", "1m")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.StoreBackend)
	assert.Equal(t, "redis://cache:6380/2", cfg.RedisURL)
	assert.Equal(t, 250, cfg.ResetBatchSize)
	assert.Equal(t, "America/New_York", cfg.ResetTimezone)
	assert.Zero(t, cfg.ChatRateLimit)
	assert.Equal(t, time.Minute, cfg.PublishResetTimeout)
}

func TestLoadConfig_BadValue(t *testing.T) {
	t.Setenv("RESET_BATCH_SIZE", "lots")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func validConfig() *Config {
	return &Config{
		StoreBackend:    BackendMemory,
		JWTSecret:       "0123456789abcdef0123456789abcdef",
		ResetBatchSize:  500,
		ResetTimezone:   "UTC",
		LeaderboardMaxK: 100,
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"unknown backend", func(c *Config) { c.StoreBackend = "firestore" }, "STORE_BACKEND"},
		{"zero batch", func(c *Config) { c.ResetBatchSize = 0 }, "RESET_BATCH_SIZE"},
		{"zero max k", func(c *Config) { c.LeaderboardMaxK = 0 }, "LEADERBOARD_MAX_K"},
		{"bad timezone", func(c *Config) { c.ResetTimezone = "Mars/Olympus" }, "RESET_TIMEZONE"},
		{"default secret", func(c *Config) { c.JWTSecret = "change-me-in-production" }, "insecure default"},
		{"short secret", func(c *Config) { c.JWTSecret = "short" }, "too short"},
		{"postgres pool", func(c *Config) { c.StoreBackend = BackendPostgres; c.PGMaxConns = 2; c.PGMinConns = 5 }, "PG_MAX_CONNS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("insecure defaults allowed for dev", func(t *testing.T) {
		cfg := validConfig()
		cfg.JWTSecret = "change-me-in-production"
		cfg.AllowInsecureDefaults = true
		assert.NoError(t, cfg.Validate())
	})
}

func TestConfig_ValidateStore(t *testing.T) {
	cfg := validConfig()
	cfg.JWTSecret = "change-me-in-production"
	assert.NoError(t, cfg.ValidateStore())

	cfg.ResetTimezone = "Nowhere/Special"
	assert.ErrorContains(t, cfg.ValidateStore(), "RESET_TIMEZONE")
}

func TestConfig_DSN(t *testing.T) {
	t.Run("DATABASE_URL wins", func(t *testing.T) {
		cfg := &Config{DatabaseURL: "postgres://x@y/z"}
		assert.Equal(t, "postgres://x@y/z", cfg.DSN())
	})

	t.Run("built from PG vars", func(t *testing.T) {
		cfg := &Config{PGUser: "u", PGPassword: "p", PGHost: "db", PGPort: 6543, PGDatabase: "scores"}
		assert.Equal(t, "postgres://u:p@db:6543/scores?sslmode=disable", cfg.DSN())
	})
}

func TestConfig_Location(t *testing.T) {
	cfg := &Config{ResetTimezone: "UTC"}
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}
