// internal/store/memory.go
//
// In-memory store for live matches.
// Matches in progress are held here between commands; finished matches are
// written to SQLite by the HTTP layer.
//
// Characteristics:
//   - Stores game.Match values keyed by ID, each tagged with its owner.
//   - Concurrency-safe via RWMutex; Update serializes a read-modify-write
//     so two commands on the same match cannot interleave.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"errors"
	"sync"

	"github.com/shunskating/skate-server/internal/game"
)

// ErrNotFound is returned for unknown match IDs.
var ErrNotFound = errors.New("match not found")

// Store defines the persistence interface for live matches.
type Store interface {
	// Save inserts or replaces a match for owner.
	Save(ctx context.Context, owner string, m game.Match) error

	// Get returns the match and its owner.
	Get(ctx context.Context, id string) (game.Match, string, error)

	// Update runs fn on the current match and stores its result atomically.
	// When fn fails nothing is stored.
	Update(ctx context.Context, id string, fn func(game.Match) (game.Match, error)) (game.Match, error)

	// Replace runs fn on the match and stores its result under the returned
	// match's ID, dropping id in the same step. The owner carries over.
	Replace(ctx context.Context, id string, fn func(game.Match) (game.Match, error)) (game.Match, error)

	// Reassign moves every match owned by from to to and reports how many moved.
	Reassign(ctx context.Context, from, to string) (int, error)

	// Delete drops a match; unknown IDs are not an error.
	Delete(ctx context.Context, id string) error
}

type entry struct {
	owner string
	match game.Match
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu      sync.RWMutex
	matches map[string]entry
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{matches: make(map[string]entry)}
}

func (m *memory) Save(ctx context.Context, owner string, g game.Match) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matches[g.ID] = entry{owner: owner, match: g}
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (game.Match, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.matches[id]; ok {
		return e.match, e.owner, nil
	}
	return game.Match{}, "", ErrNotFound
}

func (m *memory) Update(ctx context.Context, id string, fn func(game.Match) (game.Match, error)) (game.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.matches[id]
	if !ok {
		return game.Match{}, ErrNotFound
	}
	next, err := fn(e.match)
	if err != nil {
		return e.match, err
	}
	e.match = next
	m.matches[id] = e
	return next, nil
}

func (m *memory) Replace(ctx context.Context, id string, fn func(game.Match) (game.Match, error)) (game.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.matches[id]
	if !ok {
		return game.Match{}, ErrNotFound
	}
	next, err := fn(e.match)
	if err != nil {
		return e.match, err
	}
	delete(m.matches, id)
	m.matches[next.ID] = entry{owner: e.owner, match: next}
	return next, nil
}

func (m *memory) Reassign(ctx context.Context, from, to string) (int, error) {
	if from == "" || from == to {
		return 0, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, e := range m.matches {
		if e.owner == from {
			e.owner = to
			m.matches[id] = e
			n++
		}
	}
	return n, nil
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.matches, id)
	return nil
}
