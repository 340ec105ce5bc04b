package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestApplyEnv(t *testing.T) {
	t.Setenv("BOTFRONT_CACHE_TTL", "PT2M")
	t.Setenv("BOTFRONT_CACHE_LOCAL_MAX_ITEMS", "42")
	t.Setenv("BOTFRONT_CORS_ENABLED", "true")
	t.Setenv("BOTFRONT_MAX_BODY_SIZE", "2M")
	t.Setenv("BOTFRONT_DB_MIGRATE_AT_START", "false")
	t.Setenv("BOTFRONT_API_KEYS_AGENT", "k1, k2")
	t.Setenv("BOTFRONT_MIGRATION_LOCK_TIMEOUT", "10m")

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv())

	require.Equal(t, 2*time.Minute, cfg.CacheTTL)
	require.Equal(t, int64(42), cfg.LocalCacheMaxItems)
	require.True(t, cfg.CORSEnabled)
	require.Equal(t, int64(2*1024*1024), cfg.MaxBodySize)
	require.False(t, cfg.DatastoreMigrateAtStart)
	require.Equal(t, 10*time.Minute, cfg.MigrationLockTimeout)
	require.Equal(t, "agent", cfg.APIKeys["k1"])
	require.Equal(t, "agent", cfg.APIKeys["k2"])
}

func TestApplyEnv_InvalidValue(t *testing.T) {
	t.Setenv("BOTFRONT_CACHE_TTL", "soon")
	cfg := DefaultConfig()
	require.Error(t, cfg.ApplyEnv())
}

func TestParseDuration(t *testing.T) {
	d, err := parseDuration("PT1H30M")
	require.NoError(t, err)
	require.Equal(t, 90*time.Minute, d)

	d, err = parseDuration("45s")
	require.NoError(t, err)
	require.Equal(t, 45*time.Second, d)

	_, err = parseDuration("PT")
	require.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(file, []byte("BOTFRONT_TEST_DOTENV=from-file\n"), 0o600))
	t.Setenv("BOTFRONT_TEST_DOTENV", "")
	os.Unsetenv("BOTFRONT_TEST_DOTENV")

	require.NoError(t, LoadDotEnv(file, filepath.Join(dir, "missing.env")))
	require.Equal(t, "from-file", os.Getenv("BOTFRONT_TEST_DOTENV"))
}
