package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-chat/lumen/internal/platform/config"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := config.LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, "lumen:", cfg.Cache.Prefix)

	assert.Equal(t, int64(100*1024*1024), cfg.Storage.SystemMaxStorageBytes)
	assert.Equal(t, int64(20*1024*1024), cfg.Storage.DefaultStorageBytes)
	assert.Equal(t, 10, cfg.Storage.DefaultMaxFilesPerMessage)
	assert.Equal(t, 30, cfg.Storage.DefaultFileRetentionDays)
	assert.Equal(t, 10000, cfg.Storage.GlobalMonthlyTransformLimit)
	assert.Equal(t, 100, cfg.Storage.SweepBatchSize)
	assert.Equal(t, 30*time.Second, cfg.Storage.SweepMaxRuntime)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORAGE_DEFAULT_BYTES", "1048576")
	t.Setenv("STORAGE_GLOBAL_MONTHLY_TRANSFORM_LIMIT", "250")
	t.Setenv("STORAGE_SWEEP_MAX_RUNTIME", "5s")
	t.Setenv("CACHE_BACKEND", "redis")

	cfg, err := config.LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, int64(1048576), cfg.Storage.DefaultStorageBytes)
	assert.Equal(t, 250, cfg.Storage.GlobalMonthlyTransformLimit)
	assert.Equal(t, 5*time.Second, cfg.Storage.SweepMaxRuntime)
	assert.Equal(t, "redis", cfg.Cache.Backend)
}

func TestLoadFromEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")
	t.Setenv("STORAGE_SWEEP_MAX_RUNTIME", "soon")

	cfg, err := config.LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Storage.SweepMaxRuntime)
}
