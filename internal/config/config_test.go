// internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://caro@localhost/caro")

	cfg, err := LoadServer()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "caro_match_events", cfg.MatchEventQueue)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, 72*time.Hour, cfg.TokenExpire.Duration())
	assert.Equal(t, 120, cfg.DefaultTurnTimeLimit)
	assert.True(t, cfg.MigrateOnStart)
	assert.Equal(t, 30*time.Second, cfg.LeaderboardCacheTTL)
}

func TestLoadServerOverrides(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://caro@db/caro")
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("TOKEN_EXPIRE_TIME", "never")
	t.Setenv("REDIS_DB", "3")

	cfg, err := LoadServer()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Zero(t, cfg.TokenExpire.Duration())
	assert.Equal(t, 3, cfg.RedisDB)
}

func TestLoadServerRequiresDSN(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	_, err := LoadServer()
	assert.Error(t, err)
}

func TestLoadServerRejectsBadTokenTTL(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://caro@localhost/caro")
	t.Setenv("TOKEN_EXPIRE_TIME", "soon")
	_, err := LoadServer()
	assert.Error(t, err)
}

func TestLoadHistorian(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://caro@localhost/caro")
	t.Setenv("HISTORIAN_FLUSH_INTERVAL", "2s")

	cfg, err := LoadHistorian()
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.FlushInterval)
}

func TestNewLogger(t *testing.T) {
	l := NewLogger("debug", true)
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, l.Formatter)

	l = NewLogger("loud", false)
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, l.Formatter)
}
