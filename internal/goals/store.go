package goals

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Record is a generated goal for one owner and period.
type Record struct {
	Owner     string      `json:"-"`
	Kind      Kind        `json:"kind"`
	Period    string      `json:"period"`
	Line      []Stop      `json:"line,omitempty"`
	Items     []DailyItem `json:"items,omitempty"`
	Tricks    []string    `json:"tricks,omitempty"` // custom lines
	Completed bool        `json:"completed"`
	Swaps     int         `json:"swaps"`
}

// payload is the JSON column shape.
type payload struct {
	Line  []Stop      `json:"line,omitempty"`
	Items  []DailyItem `json:"items,omitempty"`
	Tricks []string    `json:"tricks,omitempty"`
	Swaps  int         `json:"swaps,omitempty"`
}

// querier is the part of *sql.DB and *sql.Tx the record helpers need.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Store persists goals and park settings in SQLite.
type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Load returns the stored record; found is false when none exists.
func (s *Store) Load(ctx context.Context, owner string, kind Kind, period string) (Record, bool, error) {
	return load(ctx, s.db, owner, kind, period)
}

// Save inserts or replaces a record.
func (s *Store) Save(ctx context.Context, rec Record) error {
	return save(ctx, s.db, rec)
}

// Modify applies fn to the stored record inside one transaction. A missing
// record starts out empty. When fn fails nothing is written.
func (s *Store) Modify(ctx context.Context, owner string, kind Kind, period string, fn func(*Record) error) (Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, err
	}
	defer func() { _ = tx.Rollback() }()

	rec, found, err := load(ctx, tx, owner, kind, period)
	if err != nil {
		return Record{}, err
	}
	if !found {
		rec = Record{Owner: owner, Kind: kind, Period: period}
	}
	if err := fn(&rec); err != nil {
		return rec, err
	}
	if err := save(ctx, tx, rec); err != nil {
		return Record{}, err
	}
	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("commit goal %s/%s: %w", kind, period, err)
	}
	return rec, nil
}

func load(ctx context.Context, q querier, owner string, kind Kind, period string) (rec Record, found bool, err error) {
	var body string
	var completed int
	err = q.QueryRowContext(ctx,
		`SELECT payload, completed FROM goals WHERE owner=? AND kind=? AND period=?`,
		owner, string(kind), period,
	).Scan(&body, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	var p payload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return Record{}, false, fmt.Errorf("decode goal %s/%s: %w", kind, period, err)
	}
	return Record{
		Owner:     owner,
		Kind:      kind,
		Period:    period,
		Line:      p.Line,
		Items:     p.Items,
		Tricks:    p.Tricks,
		Completed: completed != 0,
		Swaps:     p.Swaps,
	}, true, nil
}

func save(ctx context.Context, q querier, rec Record) error {
	body, err := json.Marshal(payload{Line: rec.Line, Items: rec.Items, Tricks: rec.Tricks, Swaps: rec.Swaps})
	if err != nil {
		return err
	}
	completed := 0
	if rec.Completed {
		completed = 1
	}
	_, err = q.ExecContext(ctx, `
        INSERT INTO goals (owner, kind, period, payload, completed, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(owner, kind, period) DO UPDATE SET
            payload=excluded.payload, completed=excluded.completed, updated_at=excluded.updated_at`,
		rec.Owner, string(rec.Kind), rec.Period, string(body), completed, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// Settings returns owner's park settings, or the defaults.
func (s *Store) Settings(ctx context.Context, owner string) (Settings, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM goal_settings WHERE owner=?`, owner).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultSettings().Normalize(), nil
	}
	if err != nil {
		return Settings{}, err
	}
	var st Settings
	if err := json.Unmarshal([]byte(body), &st); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return st.Normalize(), nil
}

// SaveSettings normalizes and stores settings.
func (s *Store) SaveSettings(ctx context.Context, owner string, st Settings) (Settings, error) {
	st = st.Normalize()
	body, err := json.Marshal(st)
	if err != nil {
		return Settings{}, err
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO goal_settings (owner, payload, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(owner) DO UPDATE SET payload=excluded.payload, updated_at=excluded.updated_at`,
		owner, string(body), time.Now().UTC().Format(time.RFC3339),
	)
	return st, err
}

// Claim moves anonymous goals and settings to a user account. Rows the user
// already has win.
func (s *Store) Claim(ctx context.Context, anonID, userID string) error {
	if anonID == "" || userID == "" || anonID == userID {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, table := range []string{"goals", "goal_settings"} {
		if _, err := tx.ExecContext(ctx, `UPDATE OR IGNORE `+table+` SET owner=? WHERE owner=?`, userID, anonID); err != nil {
			return fmt.Errorf("claim %s: %w", table, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE owner=?`, anonID); err != nil {
			return fmt.Errorf("claim %s: %w", table, err)
		}
	}
	return tx.Commit()
}
