package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigConnectionStrings(t *testing.T) {
	cfg := Config{Host: "db", Port: "5432", User: "walk", Password: "p@ss", Name: "walkbot"}
	require.True(t, cfg.Enabled())
	require.Equal(t, "user=walk password=p@ss host=db port=5432 dbname=walkbot sslmode=disable", cfg.DSN())
	require.Equal(t, "postgres://walk:p%40ss@db:5432/walkbot?sslmode=disable", cfg.URL())
	require.False(t, Config{}.Enabled())
}

func TestMigrationFileSelection(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002_b.up.sql", "0001_a.up.sql", "0001_a.down.sql", "0003_c.up.sql"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("--"), 0o644))
	}
	files := listMigrationFiles(dir)
	require.Equal(t, []string{"0001_a.up.sql", "0002_b.up.sql", "0003_c.up.sql"}, files)
	require.Equal(t, []string{"0002_b.up.sql", "0003_c.up.sql"}, selectApplied(files, 1, 3))
	require.Empty(t, selectApplied(files, 3, 3))

	resolved, err := resolveMigrationsDir(dir)
	require.NoError(t, err)
	require.Equal(t, dir, resolved)
}
