// internal/progress/progress.go
//
// Per-trick, per-stance proficiency and favorite tricks.
// Responsibilities:
//   - Proficiency scale 0..4 with display labels.
//   - Levels snapshot used by the goal generator.
//   - SQLite-backed Store keyed by owner (user id or anonymous id).
//   - Personal notes per trick and stance, saved links per trick (notes.go).

package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shunskating/skate-server/internal/game"
)

// MaxLevel is the top of the proficiency scale.
const MaxLevel = 4

// Labels names each proficiency level, indexed by level.
var Labels = [MaxLevel + 1]string{
	"Não sei",
	"Tô aprendendo",
	"Acerto às vezes",
	"Tô pegando a base",
	"Tá na base",
}

// ErrInvalidLevel is returned for levels outside 0..MaxLevel.
var ErrInvalidLevel = errors.New("progress level must be between 0 and 4")

// Label returns the display label for a level ("" when out of range).
func Label(level int) string {
	if level < 0 || level > MaxLevel {
		return ""
	}
	return Labels[level]
}

// Key is the storage key for a trick in a stance.
func Key(trickID string, s game.Stance) string { return trickID + "_" + string(s) }

// Levels maps Key(trick, stance) to a proficiency level. Missing keys are 0.
type Levels map[string]int

// Get returns the level for a trick in a stance.
func (l Levels) Get(trickID string, s game.Stance) int { return l[Key(trickID, s)] }

// Best returns the highest level recorded for a trick across all stances.
func (l Levels) Best(trickID string) int {
	best := 0
	for _, s := range game.Stances {
		if v := l.Get(trickID, s); v > best {
			best = v
		}
	}
	return best
}

// Store persists proficiency and favorites in SQLite.
type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Levels loads every recorded level for owner.
func (s *Store) Levels(ctx context.Context, owner string) (Levels, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT trick_id, stance, level FROM progress WHERE owner=?`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := Levels{}
	for rows.Next() {
		var trickID, stance string
		var lvl int
		if err := rows.Scan(&trickID, &stance, &lvl); err != nil {
			return nil, err
		}
		out[Key(trickID, game.Stance(stance))] = lvl
	}
	return out, rows.Err()
}

// Set records a level; level 0 removes the row.
func (s *Store) Set(ctx context.Context, owner, trickID string, st game.Stance, level int) error {
	if level < 0 || level > MaxLevel {
		return fmt.Errorf("set %s: %w", Key(trickID, st), ErrInvalidLevel)
	}
	if level == 0 {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM progress WHERE owner=? AND trick_id=? AND stance=?`, owner, trickID, string(st))
		return err
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO progress (owner, trick_id, stance, level, updated_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(owner, trick_id, stance) DO UPDATE SET level=excluded.level, updated_at=excluded.updated_at`,
		owner, trickID, string(st), level, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// Favorites lists owner's favorite trick IDs, oldest first.
func (s *Store) Favorites(ctx context.Context, owner string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT trick_id FROM favorites WHERE owner=? ORDER BY created_at ASC, trick_id ASC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ToggleFavorite flips a trick's favorite flag and reports the new state.
func (s *Store) ToggleFavorite(ctx context.Context, owner, trickID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE owner=? AND trick_id=?`, owner, trickID)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return false, nil
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO favorites (owner, trick_id, created_at) VALUES (?, ?, ?)`,
		owner, trickID, time.Now().UTC().Format(time.RFC3339Nano))
	return err == nil, err
}

// Claim moves anonymous progress, favorites, notes and links to a user
// account. Rows the user already has win.
func (s *Store) Claim(ctx context.Context, anonID, userID string) error {
	if anonID == "" || userID == "" || anonID == userID {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, table := range []string{"progress", "favorites", "notes", "links"} {
		if _, err := tx.ExecContext(ctx, `UPDATE OR IGNORE `+table+` SET owner=? WHERE owner=?`, userID, anonID); err != nil {
			return fmt.Errorf("claim %s: %w", table, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE owner=?`, anonID); err != nil {
			return fmt.Errorf("claim %s: %w", table, err)
		}
	}
	return tx.Commit()
}
