package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "data", cfg.DataDirectory)
	assert.Equal(t, DefaultPageSize, cfg.PageSize)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reldb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_directory: /tmp/mydata\nwatch_schemas: true\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/mydata", cfg.DataDirectory)
	assert.True(t, cfg.WatchSchemas)
	assert.Equal(t, DefaultPageSize, cfg.PageSize)
}

func TestPaths(t *testing.T) {
	cfg := Config{DataDirectory: "data"}
	assert.Equal(t, filepath.Join("data", "schemas", "users.schema.json"), cfg.SchemaPath("users"))
	assert.Equal(t, filepath.Join("data", "tables", "users.dat"), cfg.TableDataPath("users"))
	assert.Equal(t, filepath.Join("data", "indexes", "pk_users_id.idx"), cfg.IndexPath("pk_users_id"))
}
