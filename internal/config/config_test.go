package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, "fleetdb", cfg.MongoDB)
	assert.Equal(t, 10*time.Second, cfg.MongoTimeout)
	assert.Equal(t, "vehicles", cfg.VehiclesCollection)
	assert.Equal(t, "users", cfg.UsersCollection)
	assert.Equal(t, "telemetry_history", cfg.HistoryCollection)
	assert.Empty(t, cfg.RedisURL)
	assert.Equal(t, "fleet/+/telemetry", cfg.MQTTTopic)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://mongo:27017")
	t.Setenv("MONGO_TIMEOUT", "3s")
	t.Setenv("REPORT_CACHE_TTL", "1m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mongodb://mongo:27017", cfg.MongoURI)
	assert.Equal(t, 3*time.Second, cfg.MongoTimeout)
	assert.Equal(t, time.Minute, cfg.ReportCacheTTL)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("MONGO_DB=fleet_from_file\nLOG_LEVEL=debug\n"), 0o600))
	t.Setenv("LOG_LEVEL", "warn")
	// godotenv only fills unset variables; make sure MONGO_DB is unset.
	t.Setenv("MONGO_DB", "")
	os.Unsetenv("MONGO_DB")

	cfg, err := Load(path)
	require.NoError(t, err)
	t.Cleanup(func() { os.Unsetenv("MONGO_DB") })

	assert.Equal(t, "fleet_from_file", cfg.MongoDB)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("MONGO_TIMEOUT", "soon")

	_, err := Load()
	assert.Error(t, err)
}
