package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"PORT", "LOG_LEVEL", "POSTGRES_USER", "POSTGRES_PASSWORD", "PG_HOST", "PG_PORT", "PG_DATABASE",
		"DISABLE_DB", "REDIS_ADDR", "REDIS_DB", "DISABLE_REDIS", "HISTORIAN_QUEUE_NAME",
		"HISTORIAN_BATCH_SIZE", "HISTORIAN_FLUSH_MS", "MATCH_INACTIVITY_TIMEOUT_SEC",
		"TOKEN_EXPIRE_TIME", "TURN_TIMER_SEC", "JWT_PRIVATE_KEY_PATH", "JWT_PUBLIC_KEY_PATH",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	assert.Equal(t, "oldskool_actions", cfg.QueueName)
	assert.Equal(t, 20, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.FlushInterval)
	assert.Equal(t, 30, cfg.TurnTimerSec)
	assert.Zero(t, cfg.TokenTTL)
	assert.False(t, cfg.DisableDB)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DISABLE_REDIS", "true")
	t.Setenv("TOKEN_EXPIRE_TIME", "72h")
	t.Setenv("TURN_TIMER_SEC", "0")
	t.Setenv("POSTGRES_USER", "switch")
	t.Setenv("POSTGRES_PASSWORD", "p@ss")
	t.Setenv("PG_HOST", "db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
	assert.True(t, cfg.DisableRedis)
	assert.Equal(t, 72*time.Hour, cfg.TokenTTL)
	assert.Zero(t, cfg.TurnTimerSec)
	assert.Equal(t, "postgres://switch:p%40ss@db:5432/oldskool", cfg.Postgres.DSN())
}

func TestLoadRejectsMalformed(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_DB", "one")
	t.Setenv("LOG_LEVEL", "loud")
	t.Setenv("HISTORIAN_BATCH_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_DB")
}

func TestLoadRequiresBothKeyPaths(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_PRIVATE_KEY_PATH", "/keys/jwt.key")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_PUBLIC_KEY_PATH")

	t.Setenv("JWT_PUBLIC_KEY_PATH", "/keys/jwt.pub")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/keys/jwt.pub", cfg.JWTPublicKeyPath)
}
