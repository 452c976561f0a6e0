package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "none", cfg.Realtime.Relay)
	assert.Equal(t, 10, cfg.Realtime.MessagesPerSecond)
	assert.Equal(t, 20, cfg.Realtime.Burst)
	assert.Equal(t, 50, cfg.Feed.MaxPageSize)
	assert.Equal(t, "indexed", cfg.Feed.RankStrategy)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("FEED_MAX_PAGE_SIZE", "20")
	t.Setenv("REALTIME_RELAY", "nats")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 20, cfg.Feed.MaxPageSize)
	assert.Equal(t, "nats", cfg.Realtime.Relay)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := Load()
		assert.ErrorContains(t, err, "JWT_SECRET")
	})

	t.Run("unknown relay", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s")
		t.Setenv("REALTIME_RELAY", "kafka")
		_, err := Load()
		assert.ErrorContains(t, err, "REALTIME_RELAY")
	})

	t.Run("mongo without uri", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s")
		t.Setenv("DB_DRIVER", "mongo")
		t.Setenv("MONGO_URI", "")
		_, err := Load()
		assert.ErrorContains(t, err, "MONGO_URI")
	})
}

func TestPostgresDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "u", Name: "n", SSLMode: "disable", Password: "p"}
	assert.Equal(t, "host=db port=5432 user=u dbname=n sslmode=disable password=p", d.PostgresDSN())

	d.URL = "postgres://x"
	assert.Equal(t, "postgres://x", d.PostgresDSN())
}
