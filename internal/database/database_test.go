package database

import (
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "skate.db")
	db, err := OpenAndMigrate(path)
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"users", "matches", "progress", "favorites", "goals", "goal_settings", "notes", "links"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}

	var applied int
	require.NoError(t, db.QueryRow(`SELECT COUNT(1) FROM _migrations`).Scan(&applied))
	assert.Equal(t, 4, applied)

	// Running again is a no-op.
	require.NoError(t, Migrate(db))
	require.NoError(t, db.QueryRow(`SELECT COUNT(1) FROM _migrations`).Scan(&applied))
	assert.Equal(t, 4, applied)
}

func TestProgressLevelCheck(t *testing.T) {
	db, err := OpenAndMigrate(filepath.Join(t.TempDir(), "skate.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`INSERT INTO progress(owner, trick_id, stance, level, updated_at) VALUES ('o','ollie','regular',7,'now')`)
	assert.Error(t, err)
}

func TestMigrate_FailedFileLeavesNoTrace(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "skate.db"))
	require.NoError(t, err)
	defer db.Close()

	fsys := fstest.MapFS{
		"m/001_a.sql": {Data: []byte(`CREATE TABLE a (x INTEGER);`)},
		"m/002_b.sql": {Data: []byte(`CREATE TABLE b (x INTEGER); INSERT INTO missing VALUES (1);`)},
	}
	err = migrate(db, fsys, "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "m/002_b.sql")

	tables := func() []string {
		rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('a','b') ORDER BY name`)
		require.NoError(t, err)
		defer rows.Close()
		var out []string
		for rows.Next() {
			var n string
			require.NoError(t, rows.Scan(&n))
			out = append(out, n)
		}
		return out
	}
	assert.Equal(t, []string{"a"}, tables())

	var recorded []string
	rows, err := db.Query(`SELECT name FROM _migrations ORDER BY name`)
	require.NoError(t, err)
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		recorded = append(recorded, n)
	}
	require.NoError(t, rows.Close())
	assert.Equal(t, []string{"m/001_a.sql"}, recorded)

	// Fixing the file lets the next run pick it up.
	fsys["m/002_b.sql"] = &fstest.MapFile{Data: []byte(`CREATE TABLE b (x INTEGER);`)}
	require.NoError(t, migrate(db, fsys, "m"))
	assert.Equal(t, []string{"a", "b"}, tables())
}
