// internal/database/database.go
//
// SQLite access for the skate server.
//   - Open: connection settings shared by every store.
//   - Migrate: embedded sql/*.sql files, each applied once and recorded in
//     _migrations by path.
//
// The stores in internal/progress, internal/goals and internal/httpserver
// assume this schema.

package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

//go:embed sql/*.sql
var migrations embed.FS

// Open opens (creating if missing) the SQLite file, making its
// parent directory first. Connections use WAL, a 5s busy timeout, foreign
// keys and BEGIN IMMEDIATE transactions, so read-modify-write transactions
// queue on the write lock instead of failing mid-way.
func Open(file string) (*sql.DB, error) {
	dir := filepath.Dir(file)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", file+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on&_txlock=immediate")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open %s: %w", file, err)
	}
	return db, nil
}

// Migrate applies the embedded sql/*.sql files that _migrations has not
// recorded yet.
func Migrate(db *sql.DB) error {
	return migrate(db, migrations, "sql")
}

// migrate runs every *.sql file under dir in name order. Each file and its
// _migrations row commit together, so a failing file leaves no trace and
// is retried on the next start.
func migrate(db *sql.DB, fsys fs.FS, dir string) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY)`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	files, err := fs.Glob(fsys, dir+"/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)

	applied := 0
	for _, name := range files {
		var one int
		err := db.QueryRow(`SELECT 1 FROM _migrations WHERE name=?`, name).Scan(&one)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("query _migrations: %w", err)
		}

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if err := applyFile(db, name, string(body)); err != nil {
			return err
		}
		applied++
	}
	log.Debug().Int("applied", applied).Int("total", len(files)).Msg("migrations up to date")
	return nil
}

func applyFile(db *sql.DB, name, body string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(body); err != nil {
		return fmt.Errorf("apply %s: %w", name, err)
	}
	if _, err := tx.Exec(`INSERT INTO _migrations (name) VALUES (?)`, name); err != nil {
		return fmt.Errorf("record %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}
	log.Info().Str("migration", name).Msg("applied")
	return nil
}

// OpenAndMigrate is the startup sequence: Open, then Migrate.
func OpenAndMigrate(file string) (*sql.DB, error) {
	db, err := Open(file)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}
