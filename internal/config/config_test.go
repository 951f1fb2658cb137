package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigRequiresMaxRows(t *testing.T) {
	path := writeConfig(t, `{"generation": {}}`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_rows")
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `{
		"server": {"port": 9090},
		"generation": {"max_rows": 400}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 400, cfg.Generation.MaxRows)
	assert.Equal(t, "local", cfg.Storage.Backend)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("GENERATION_MAX_ROWS", "100")
	t.Setenv("SERVER_PORT", "7070")

	path := writeConfig(t, `{"generation": {"max_rows": 400}}`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Generation.MaxRows)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadConfigS3BackendRequiresBucket(t *testing.T) {
	path := writeConfig(t, `{
		"generation": {"max_rows": 400},
		"storage": {"backend": "s3"}
	}`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket")
}

func TestLoadConfigServerTimeoutDefaults(t *testing.T) {
	path := writeConfig(t, `{"generation": {"max_rows": 400}}`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
}

func TestDatabaseURL(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "certs", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/certs?sslmode=disable", db.GetDatabaseURL())
}
