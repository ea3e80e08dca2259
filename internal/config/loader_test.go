package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Environment)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "data/observation_history.csv", cfg.Storage.HistoryFile)
	assert.Equal(t, 3, cfg.Consensus.PromoteThreshold)
	assert.Equal(t, 5, cfg.Consensus.AlertThreshold)
	assert.Equal(t, time.Hour, cfg.Consensus.SwarmIdleTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PROMOTE_THRESHOLD", "4")
	t.Setenv("SWARM_IDLE_TTL", "30m")
	t.Setenv("HISTORY_FILE", "/tmp/history.csv")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Consensus.PromoteThreshold)
	assert.Equal(t, 30*time.Minute, cfg.Consensus.SwarmIdleTTL)
	assert.Equal(t, "/tmp/history.csv", cfg.Storage.HistoryFile)
}

func TestLoadRejectsInvalidEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "production-ish")

	_, err := Load()
	require.Error(t, err)

	cfgErr, ok := err.(*ConfigError)
	require.True(t, ok, "expected *ConfigError, got %T", err)
	assert.Equal(t, ErrValidation, cfgErr.Type)
}

func TestLoadRejectsUnparsableDuration(t *testing.T) {
	t.Setenv("SWARM_IDLE_TTL", "soon")

	_, err := Load()
	require.Error(t, err)

	cfgErr, ok := err.(*ConfigError)
	require.True(t, ok, "expected *ConfigError, got %T", err)
	assert.Equal(t, ErrParsing, cfgErr.Type)
}
