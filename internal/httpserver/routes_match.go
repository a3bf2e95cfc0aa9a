// internal/httpserver/routes_match.go
//
// S.K.A.T.E. match endpoints (optional auth).
// Responsibilities:
//   - Create matches and apply player commands through the game engine.
//   - Return {match, events}; events carry a suggested display delay.
//   - Fan events out to websocket subscribers.
//   - Persist finished matches and bump account stats.
//
// Notes:
//   - Live matches live in the in-memory store, owned by the user id or the
//     guest cookie; someone else's match answers 404.
//   - Abandoned matches are discarded. A rematch gets a fresh id.

package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/shunskating/skate-server/internal/catalog"
	"github.com/shunskating/skate-server/internal/game"
	"github.com/shunskating/skate-server/internal/store"
)

func (s *Server) mountMatches(r chi.Router) {
	r.Post("/matches", s.handleNewMatch)
	r.Get("/matches/{id}", s.handleGetMatch)
	r.Post("/matches/{id}/coin", s.command(func(r *http.Request) (game.Command, error) {
		var body struct {
			Call string `json:"call"`
		}
		err := decodeJSON(r, &body)
		return game.CallCoin(body.Call), err
	}))
	r.Post("/matches/{id}/trick", s.command(func(r *http.Request) (game.Command, error) {
		var body struct {
			TrickID string `json:"trickId"`
			Stance  string `json:"stance"`
		}
		if err := decodeJSON(r, &body); err != nil {
			return game.Command{}, err
		}
		st, err := game.ParseStance(body.Stance)
		return game.ChooseTrick(body.TrickID, st), err
	}))
	r.Post("/matches/{id}/landed", s.command(constant(game.ReportLanded())))
	r.Post("/matches/{id}/missed", s.command(constant(game.ReportMissed())))
	r.Delete("/matches/{id}", s.command(constant(game.Abandon())))
	r.Post("/matches/{id}/rematch", s.handleRematch)
}

// ------------------------------- views -------------------------------------

// matchView is the match as rendered for the client.
type matchView struct {
	game.Match
	PlayerWord   string                          `json:"playerWord"`
	OpponentWord string                          `json:"opponentWord"`
	Available    map[game.Stance][]catalog.Trick `json:"available"`
	Remaining    int                             `json:"remaining"`
}

// eventView adds the display delay in milliseconds.
type eventView struct {
	game.Event
	DelayMs int64 `json:"delayMs"`
}

type matchResponse struct {
	Match  matchView   `json:"match"`
	Events []eventView `json:"events"`
}

func (s *Server) view(m game.Match) matchView {
	avail := make(map[game.Stance][]catalog.Trick, len(game.Stances))
	for _, st := range game.Stances {
		list := m.Pool.Available(st)
		if list == nil {
			list = []catalog.Trick{}
		}
		avail[st] = list
	}
	return matchView{
		Match:        m,
		PlayerWord:   game.LetterString(m.PlayerLetters),
		OpponentWord: game.LetterString(m.OpponentLetters),
		Available:    avail,
		Remaining:    m.Pool.Remaining(),
	}
}

func eventViews(events []game.Event) []eventView {
	out := make([]eventView, 0, len(events))
	for _, e := range events {
		out = append(out, eventView{Event: e, DelayMs: e.Delay.Milliseconds()})
	}
	return out
}

// ------------------------------ handlers -----------------------------------

// handleNewMatch starts a match for {level, category}. Both are optional:
// level defaults to iniciante, category to "livre".
func (s *Server) handleNewMatch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Level    string `json:"level"`
		Category string `json:"category"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	level := game.Iniciante
	if body.Level != "" {
		l, err := game.ParseLevel(body.Level)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		level = l
	}
	gameType := body.Category
	if gameType == "" {
		gameType = catalog.GameTypeFree
	}
	tricks, err := s.catalog.ForGameType(gameType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	m, events, err := game.NewMatch(game.MatchConfig{
		ID:       uuid.NewString(),
		Level:    level,
		GameType: gameType,
		Tricks:   tricks,
	}, s.rng)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	owner := s.ownerID(w, r)
	if err := s.store.Save(r.Context(), owner, m); err != nil {
		writeError(w, http.StatusInternalServerError, "store_error")
		return
	}
	log.Info().Str("match", m.ID).Str("level", string(level)).Str("type", gameType).
		Str("opponent", m.Opponent).Msg("match started")
	writeJSON(w, http.StatusCreated, matchResponse{Match: s.view(m), Events: eventViews(events)})
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	m, ok := s.ownedMatch(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, matchResponse{Match: s.view(m), Events: []eventView{}})
}

// constant adapts a body-less command for s.command.
func constant(cmd game.Command) func(*http.Request) (game.Command, error) {
	return func(*http.Request) (game.Command, error) { return cmd, nil }
}

// command builds a handler that decodes a command, applies it atomically and
// reports the result.
func (s *Server) command(decode func(*http.Request) (game.Command, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.ownedMatch(w, r); !ok {
			return
		}
		cmd, err := decode(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		id := chi.URLParam(r, "id")
		var (
			events []game.Event
			before game.Phase
		)
		m, err := s.store.Update(r.Context(), id, func(cur game.Match) (game.Match, error) {
			before = cur.Phase
			next, ev, err := game.Apply(cur, cmd, s.rng)
			events = ev
			return next, err
		})
		if err != nil {
			writeEngineError(w, err)
			return
		}

		if m.Phase == game.PhaseMatchOver && before != game.PhaseMatchOver {
			s.persistFinished(r, m)
		}
		s.broadcast(m, events)
		if m.Phase == game.PhaseAbandoned {
			_ = s.store.Delete(r.Context(), id)
			s.hub.closeRoom(id)
			log.Info().Str("match", id).Msg("match abandoned")
		}
		writeJSON(w, http.StatusOK, matchResponse{Match: s.view(m), Events: eventViews(events)})
	}
}

// handleRematch replaces a finished match with a fresh one under a new id.
// Subscribers of the old match receive {"type":"rematch","payload":{"id":...}}.
func (s *Server) handleRematch(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.ownedMatch(w, r); !ok {
		return
	}
	id := chi.URLParam(r, "id")
	var events []game.Event
	m, err := s.store.Replace(r.Context(), id, func(cur game.Match) (game.Match, error) {
		next, ev, err := game.Apply(cur, game.Rematch(), s.rng)
		if err != nil {
			return cur, err
		}
		next.ID = uuid.NewString()
		events = ev
		return next, nil
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	s.hub.publish(id, "rematch", map[string]string{"id": m.ID})
	s.hub.closeRoom(id)
	log.Info().Str("match", m.ID).Str("previous", id).Msg("rematch started")
	writeJSON(w, http.StatusCreated, matchResponse{Match: s.view(m), Events: eventViews(events)})
}

// ownedMatch loads the {id} match and checks it belongs to the caller.
// It writes a 404 and returns false otherwise.
func (s *Server) ownedMatch(w http.ResponseWriter, r *http.Request) (game.Match, bool) {
	m, owner, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil || owner != s.requestOwner(r) {
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Error().Err(err).Msg("store get")
		}
		writeError(w, http.StatusNotFound, "not_found")
		return game.Match{}, false
	}
	return m, true
}

// broadcast pushes each event, then the resulting view, to subscribers.
func (s *Server) broadcast(m game.Match, events []game.Event) {
	if s.hub.subscribers(m.ID) == 0 {
		return
	}
	for _, ev := range eventViews(events) {
		s.hub.publish(m.ID, "event", ev)
	}
	s.hub.publish(m.ID, "match", s.view(m))
}

// writeEngineError maps engine rejections to HTTP statuses: 409 for
// commands that are valid but not now, 400 for malformed ones.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, game.ErrWrongPhase), errors.Is(err, game.ErrNotYourTurn), errors.Is(err, game.ErrComboUsed):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

// persistFinished records a finished match and, for accounts, bumps stats.
// Failures are logged; the match result is already decided.
func (s *Server) persistFinished(r *http.Request, m game.Match) {
	var userID, anonID any
	me := currentUser(r)
	if me != nil {
		userID = me.ID
	} else {
		anonID = s.requestOwner(r)
	}

	tx, err := s.db.BeginTx(r.Context(), nil)
	if err != nil {
		log.Error().Err(err).Msg("persist match: begin")
		return
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT INTO matches (id, user_id, anonymous_id, level, game_type, opponent, status,
	                         player_letters, opponent_letters, winner, started_at, finished_at)
	                      VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		m.ID, userID, anonID, string(m.Level), m.GameType, m.Opponent, string(m.Phase),
		m.PlayerLetters, m.OpponentLetters, string(m.Winner),
		m.StartedAt.UTC().Format(time.RFC3339), time.Now().UTC().Format(time.RFC3339)); err != nil {
		log.Error().Err(err).Str("match", m.ID).Msg("persist match")
		return
	}
	if me != nil {
		if err := bumpStats(tx, me.ID, m.Winner == game.SidePlayer); err != nil {
			log.Error().Err(err).Str("user", me.ID).Msg("bump stats")
			return
		}
	}
	if err := tx.Commit(); err != nil {
		log.Error().Err(err).Msg("persist match: commit")
		return
	}
	log.Info().Str("match", m.ID).Str("winner", string(m.Winner)).Msg("match finished")
}
