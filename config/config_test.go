package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	require.Equal(t, "localhost", cfg.Database.Host)
	require.Equal(t, 4, cfg.Actors.Thumbnail.MaxTasks)
}

func TestLoadParsesTOMLOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogd.toml")
	const body = `
storage_dir = "/srv/catalogd/blobs"
asset_roots = ["/photos", "/videos"]

[database]
host = "db.internal"
dbname = "catalogd_prod"

[actors.thumbnail]
max_tasks = 8
max_queue_size = 128
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "db.internal", cfg.Database.Host)
	require.Equal(t, "catalogd_prod", cfg.Database.DBName)
	require.Equal(t, "/srv/catalogd/blobs", cfg.StorageDir)
	require.Equal(t, []string{"/photos", "/videos"}, cfg.AssetRoots)
	require.Equal(t, 8, cfg.Actors.Thumbnail.MaxTasks)
	require.Equal(t, 128, cfg.Actors.Thumbnail.MaxQueueSize)
	// Untouched sections keep their defaults.
	require.Equal(t, 2, cfg.Actors.ImageConvert.MaxTasks)
}

func TestEnvOverridesWinOverFileAndDefaults(t *testing.T) {
	t.Setenv("DB_HOST", "env-db.internal")
	t.Setenv("ASSET_ROOTS", "/a,/b,/c")
	t.Setenv("DURABLE_ADMISSION", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "env-db.internal", cfg.Database.Host)
	require.Equal(t, []string{"/a", "/b", "/c"}, cfg.AssetRoots)
	require.True(t, cfg.DurableAdmission)
}

func TestDatabaseConfigDSN(t *testing.T) {
	c := DatabaseConfig{Host: "h", Port: "5432", User: "u", Password: "p", DBName: "d", SSL: "disable"}
	require.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", c.DSN())
}
