package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, "cyno", cfg.User)
	assert.Equal(t, "cyno", cfg.Database)
	assert.Equal(t, "disable", cfg.SSLMode)
	assert.Equal(t, 25, cfg.MaxOpenConns)
	assert.Equal(t, 10, cfg.MaxIdleConns)
}

func TestLoadConfigFromEnv_MissingPassword(t *testing.T) {
	t.Setenv("DB_PASSWORD", "")
	_, err := LoadConfigFromEnv()
	assert.Error(t, err)
}

func TestConfigValidate_IdleExceedsOpen(t *testing.T) {
	cfg := Config{Password: "x", MaxOpenConns: 5, MaxIdleConns: 10}
	assert.Error(t, cfg.Validate())
}

func TestLoadConfigFromEnv_InvalidPort(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_PORT", "not-a-port")
	_, err := LoadConfigFromEnv()
	assert.Error(t, err)
}
