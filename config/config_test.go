package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	t.Setenv("TABLEBOOKER_CONFIG_DIR", t.TempDir())

	v, err := LoadConfig()
	require.NoError(t, err)
	cfg, err := ParseConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, 16, cfg.Allocation.MaxBruteForceTables)
	assert.Equal(t, 8, cfg.Allocation.CodeLength)
	assert.Equal(t, 30*time.Minute, cfg.Booking.PendingTTL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Events.Brokers)
	assert.Equal(t, 30*time.Second, cfg.Events.ReplayInterval)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("storage:\n  driver: memory\nallocation:\n  max_attempts: 9\n  lock_ttl: 2s\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	t.Setenv("TABLEBOOKER_CONFIG_DIR", dir)
	t.Setenv("TABLEBOOKER_SERVER_PORT", "9090")

	v, err := LoadConfig()
	require.NoError(t, err)
	cfg, err := ParseConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 9, cfg.Allocation.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Allocation.LockTTL)
	assert.Equal(t, "9090", cfg.Server.Port)
}
