package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shunskating/skate-server/internal/game"
)

// MaxNoteLen caps a note, in bytes.
const MaxNoteLen = 4000

var (
	ErrNoteTooLong  = errors.New("note is too long")
	ErrInvalidLink  = errors.New("link must be an http(s) URL")
	ErrLinkNotFound = errors.New("link not found")
)

// Link is a saved reference (tutorial, clip) for a trick.
type Link struct {
	ID      int64  `json:"id"`
	TrickID string `json:"trickId"`
	URL     string `json:"url"`
	Title   string `json:"title"`
}

// Note returns owner's note for a trick in a stance ("" when none).
func (s *Store) Note(ctx context.Context, owner, trickID string, st game.Stance) (string, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM notes WHERE owner=? AND trick_id=? AND stance=?`, owner, trickID, string(st),
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return body, err
}

// SetNote stores a note; a blank note removes it.
func (s *Store) SetNote(ctx context.Context, owner, trickID string, st game.Stance, body string) error {
	if len(body) > MaxNoteLen {
		return fmt.Errorf("note %s: %w", Key(trickID, st), ErrNoteTooLong)
	}
	if strings.TrimSpace(body) == "" {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM notes WHERE owner=? AND trick_id=? AND stance=?`, owner, trickID, string(st))
		return err
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO notes (owner, trick_id, stance, body, updated_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(owner, trick_id, stance) DO UPDATE SET body=excluded.body, updated_at=excluded.updated_at`,
		owner, trickID, string(st), body, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// Links lists owner's links for a trick, oldest first.
func (s *Store) Links(ctx context.Context, owner, trickID string) ([]Link, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, title FROM links WHERE owner=? AND trick_id=? ORDER BY id ASC`, owner, trickID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Link{}
	for rows.Next() {
		l := Link{TrickID: trickID}
		if err := rows.Scan(&l.ID, &l.URL, &l.Title); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// AddLink saves a link. The title defaults to the URL.
func (s *Store) AddLink(ctx context.Context, owner, trickID, rawURL, title string) (Link, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Link{}, fmt.Errorf("%q: %w", rawURL, ErrInvalidLink)
	}
	l := Link{TrickID: trickID, URL: u.String(), Title: strings.TrimSpace(title)}
	if l.Title == "" {
		l.Title = l.URL
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO links (owner, trick_id, url, title, created_at) VALUES (?, ?, ?, ?, ?)`,
		owner, trickID, l.URL, l.Title, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return Link{}, err
	}
	l.ID, err = res.LastInsertId()
	return l, err
}

// DeleteLink removes one of owner's links.
func (s *Store) DeleteLink(ctx context.Context, owner string, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM links WHERE owner=? AND id=?`, owner, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrLinkNotFound
	}
	return nil
}
