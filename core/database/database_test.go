package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigNormalize(t *testing.T) {
	var off Config
	require.NoError(t, off.Normalize())

	bad := Config{Enabled: true}
	require.Error(t, bad.Normalize())

	cfg := Config{Enabled: true, Host: "db", Name: "minerva", User: "bot", Password: "p@ss word"}
	require.NoError(t, cfg.Normalize())
	assert.Equal(t, "5432", cfg.Port)
	assert.Equal(t, "disable", cfg.SSLMode)
	assert.Equal(t, 4, cfg.MaxConnections)
	assert.Equal(t, 30, cfg.WaitSeconds)
	assert.Equal(t, "postgres://bot:p%40ss%20word@db:5432/minerva?sslmode=disable", cfg.URL())
	assert.Equal(t, "user=bot password=p@ss word host=db port=5432 dbname=minerva sslmode=disable", cfg.DSN())
}

func TestMigrationFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"000002_topic_index.up.sql":    {Data: []byte("--")},
		"000001_interactions.up.sql":   {Data: []byte("--")},
		"000001_interactions.down.sql": {Data: []byte("--")},
		"README.md":                    {Data: []byte("x")},
	}
	files := listMigrationFiles(fsys)
	assert.Equal(t, []string{"000001_interactions.up.sql", "000002_topic_index.up.sql"}, files)
	assert.Equal(t, uint64(2), parseVersion(files[1]))
	assert.Equal(t, []string{"000002_topic_index.up.sql"}, selectApplied(files, 1, 2))
	assert.Empty(t, selectApplied(files, 2, 2))
}
