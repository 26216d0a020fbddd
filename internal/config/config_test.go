package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 8, cfg.Rows)
	assert.Equal(t, 15, cfg.Cols)
	assert.Equal(t, time.Second, cfg.ScanInterval)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garden.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 9000
db_path: /tmp/g.db
scan_interval: 500ms
demo_layout: false
cors_origins: ["https://garden.example"]
`), 0o644))

	t.Setenv("GARDEN_PORT", "9100")
	t.Setenv("GARDEN_SEED", "42")
	t.Setenv("GARDEN_ADMIN_KEY", "secret")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Port, "env wins over file")
	assert.Equal(t, "/tmp/g.db", cfg.DBPath)
	assert.Equal(t, 500*time.Millisecond, cfg.ScanInterval)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, "secret", cfg.AdminKey)
	assert.False(t, cfg.DemoLayout)
	assert.Equal(t, []string{"https://garden.example"}, cfg.CORSOrigins)
	assert.Equal(t, 33*time.Millisecond, cfg.FrameInterval, "unset keys keep defaults")
}

func TestLoadFromEnvPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garden.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rows: 4\n"), 0o644))
	t.Setenv("GARDEN_CONFIG", path)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Rows)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [1,2"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestBadEnvIgnored(t *testing.T) {
	t.Setenv("GARDEN_PORT", "eighty")
	t.Setenv("GARDEN_SEED", "x")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, int64(0), cfg.Seed)
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Port = 0
	cfg.DBPath = ""
	cfg.ScanInterval = 0
	cfg.Rows = -1

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"port 0", "db_path", "scan_interval", "grid -1x15"} {
		assert.Contains(t, err.Error(), want)
	}
}
