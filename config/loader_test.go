package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 5, cfg.Scheduling.MaxRounds)
	assert.Equal(t, DefaultApprovalSentinel, cfg.Scheduling.ApprovalSentinel)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.NoError(t, cfg.Validate())
}

func TestLoader_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	data := []byte(`
database:
  driver: sqlite
  name: ":memory:"
scheduling:
  max_rounds: 3
  approval_sentinel: "Schedule approved."
recall:
  timeout: 5s
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, ":memory:", cfg.Database.Name)
	assert.Equal(t, 3, cfg.Scheduling.MaxRounds)
	assert.Equal(t, "Schedule approved.", cfg.Scheduling.ApprovalSentinel)
	assert.Equal(t, 5*time.Second, cfg.Recall.Timeout)
	// Untouched sections keep defaults.
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/config.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Scheduling.MaxRounds, cfg.Scheduling.MaxRounds)
}

func TestLoader_EnvOverride(t *testing.T) {
	t.Setenv("FLEETASSIST_SCHEDULING_MAX_ROUNDS", "7")
	t.Setenv("FLEETASSIST_DATABASE_DRIVER", "sqlite")
	t.Setenv("FLEETASSIST_RECALL_TIMEOUT", "3s")
	t.Setenv("FLEETASSIST_REDIS_ENABLED", "true")
	t.Setenv("FLEETASSIST_LOG_OUTPUT_PATHS", "stdout, /var/log/fleetassist.log")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Scheduling.MaxRounds)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 3*time.Second, cfg.Recall.Timeout)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, []string{"stdout", "/var/log/fleetassist.log"}, cfg.Log.OutputPaths)
}

func TestLoader_Validator(t *testing.T) {
	called := false
	_, err := NewLoader().
		WithValidator(func(c *Config) error {
			called = true
			return nil
		}).
		Load()
	require.NoError(t, err)
	assert.True(t, called)
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scheduling.MaxRounds = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_rounds")

	cfg = DefaultConfig()
	cfg.Scheduling.ApprovalSentinel = ""
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "approval_sentinel")

	cfg = DefaultConfig()
	cfg.Database.Driver = "oracle"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	pg := DatabaseConfig{
		Driver: "postgres", Host: "db", Port: 5432,
		User: "svc", Password: "secret", Name: "fleet", SSLMode: "require",
	}
	assert.Equal(t,
		"host=db port=5432 user=svc password=secret dbname=fleet sslmode=require",
		pg.DSN())

	sq := DatabaseConfig{Driver: "sqlite", Name: "fleet.db"}
	assert.Equal(t, "fleet.db", sq.DSN())

	other := DatabaseConfig{Driver: "other"}
	assert.Equal(t, "", other.DSN())
}
