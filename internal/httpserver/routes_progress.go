package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/shunskating/skate-server/internal/game"
	"github.com/shunskating/skate-server/internal/progress"
)

// mountProgress registers proficiency and favorites routes.
func (s *Server) mountProgress(r chi.Router) {
	r.Get("/progress", s.handleGetProgress)
	r.Put("/progress", s.handleSetProgress)
	r.Get("/favorites", s.handleFavorites)
	r.Post("/favorites/{trickId}", s.handleToggleFavorite)

	r.Route("/tricks/{trickId}", func(r chi.Router) {
		r.Use(s.knownTrick)
		r.Get("/notes", s.handleGetNote)
		r.Put("/notes", s.handleSetNote)
		r.Get("/links", s.handleLinks)
		r.Post("/links", s.handleAddLink)
		r.Delete("/links/{linkId}", s.handleDeleteLink)
	})
}

// GET /progress → {"levels": {"ollie_regular": 3, ...}, "labels": [...]}
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	levels, err := s.progress.Levels(r.Context(), s.ownerID(w, r))
	if err != nil {
		log.Error().Err(err).Msg("load progress")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"levels": levels, "labels": progress.Labels})
}

// PUT /progress {trickId, stance, level}
func (s *Server) handleSetProgress(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TrickID string `json:"trickId"`
		Stance  string `json:"stance"`
		Level   int    `json:"level"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if _, ok := s.catalog.Find(body.TrickID); !ok {
		writeError(w, http.StatusBadRequest, "unknown trick")
		return
	}
	st, err := game.ParseStance(body.Stance)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	owner := s.ownerID(w, r)
	if err := s.progress.Set(r.Context(), owner, body.TrickID, st, body.Level); err != nil {
		if errors.Is(err, progress.ErrInvalidLevel) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Msg("set progress")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"trickId": body.TrickID,
		"stance":  st,
		"level":   body.Level,
		"label":   progress.Label(body.Level),
	})
}

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	ids, err := s.progress.Favorites(r.Context(), s.ownerID(w, r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"favorites": ids})
}

// POST /favorites/{trickId} toggles and returns the new state.
func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "trickId")
	if _, ok := s.catalog.Find(id); !ok {
		writeError(w, http.StatusNotFound, "unknown trick")
		return
	}
	on, err := s.progress.ToggleFavorite(r.Context(), s.ownerID(w, r), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trickId": id, "favorite": on})
}

// knownTrick answers 404 for trick ids missing from the catalog.
func (s *Server) knownTrick(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.catalog.Find(chi.URLParam(r, "trickId")); !ok {
			writeError(w, http.StatusNotFound, "unknown trick")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GET /tricks/{trickId}/notes?stance=fakie → {trickId, stance, note}
func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "trickId")
	st, err := game.ParseStance(r.URL.Query().Get("stance"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	note, err := s.progress.Note(r.Context(), s.ownerID(w, r), id, st)
	if err != nil {
		log.Error().Err(err).Msg("load note")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trickId": id, "stance": st, "note": note})
}

// PUT /tricks/{trickId}/notes {stance, note}; a blank note deletes it.
func (s *Server) handleSetNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "trickId")
	var body struct {
		Stance string `json:"stance"`
		Note   string `json:"note"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	st, err := game.ParseStance(body.Stance)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.progress.SetNote(r.Context(), s.ownerID(w, r), id, st, body.Note); err != nil {
		if errors.Is(err, progress.ErrNoteTooLong) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Msg("save note")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trickId": id, "stance": st, "note": body.Note})
}

func (s *Server) handleLinks(w http.ResponseWriter, r *http.Request) {
	links, err := s.progress.Links(r.Context(), s.ownerID(w, r), chi.URLParam(r, "trickId"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"links": links})
}

// POST /tricks/{trickId}/links {url, title} → 201 with the saved link.
func (s *Server) handleAddLink(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL   string `json:"url"`
		Title string `json:"title"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	l, err := s.progress.AddLink(r.Context(), s.ownerID(w, r), chi.URLParam(r, "trickId"), body.URL, body.Title)
	if err != nil {
		if errors.Is(err, progress.ErrInvalidLink) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Msg("add link")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (s *Server) handleDeleteLink(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "linkId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid link id")
		return
	}
	if err := s.progress.DeleteLink(r.Context(), s.ownerID(w, r), id); err != nil {
		if errors.Is(err, progress.ErrLinkNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}
