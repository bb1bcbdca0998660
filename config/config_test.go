package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigBindsSnakeCaseKeys(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 1048576, cfg.Server.MaxHeaderBytes)

	assert.Equal(t, "http://localhost:9090", cfg.OCR.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.OCR.Timeout)

	assert.Equal(t, 30*time.Minute, cfg.Chat.CacheTTL)
	assert.Equal(t, 256, cfg.Chat.InitialTokens)
	assert.Equal(t, 512, cfg.Chat.RetryTokens)

	assert.Equal(t, 7, cfg.Schedule.HorizonDays)
	assert.Equal(t, "postgres", cfg.Storage.KVBackend)
	assert.Equal(t, "mediminder:", cfg.Storage.KeyPrefix)

	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 20.0, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 40, cfg.RateLimit.Burst)

	assert.Equal(t, 3, cfg.Redis.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.Redis.RetryBackoff)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("OCR_API_KEY", "test-key")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "test-key", cfg.OCR.APIKey)
}

func TestLoadConfigRejectsMalformedPort(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-port")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_PORT")
}
