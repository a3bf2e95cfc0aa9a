// internal/httpserver/server.go
//
// HTTP server wiring for the skate backend.
// Responsibilities:
//   - Router + middleware (request IDs, access log, JSON, CORS, timeouts, panic recovery).
//   - Public endpoints: "/", "/health", "/catalog".
//   - Match endpoints (optional auth): create, command, view, event stream.
//   - Progress, favorites and goals (optional auth, keyed by user or guest id).
//   - Auth + profile/stat endpoints: /auth/*, /stats/me, /matches/mine.
//
// Notes:
//   - Guests are identified by an anonymous cookie; signing up or logging in
//     moves their progress, goals, live and finished matches to the account.
//   - The websocket stream is mounted outside the request timeout.

package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/shunskating/skate-server/internal/catalog"
	"github.com/shunskating/skate-server/internal/game"
	"github.com/shunskating/skate-server/internal/goals"
	"github.com/shunskating/skate-server/internal/progress"
	"github.com/shunskating/skate-server/internal/store"
)

// Server bundles the router, live match store, DB-backed stores and the
// event hub.
type Server struct {
	r         *chi.Mux
	cfg       Config
	store     store.Store
	db        *sql.DB
	catalog   *catalog.Catalog
	rng       game.Rand
	progress  *progress.Store
	goals     *goals.Service
	goalStore *goals.Store
	hub       *hub
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg Config, st store.Store, db *sql.DB, cat *catalog.Catalog, rng game.Rand) *Server {
	ps := progress.NewStore(db)
	gs := goals.NewStore(db)
	s := &Server{
		r:         chi.NewRouter(),
		cfg:       cfg,
		store:     st,
		db:        db,
		catalog:   cat,
		rng:       rng,
		progress:  ps,
		goals:     goals.NewService(gs, cat, ps, cfg.GoalsSalt),
		goalStore: gs,
		hub:       newHub(),
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(hlog.NewHandler(log.Logger))
	s.r.Use(hlog.AccessHandler(accessLog))
	s.r.Use(chimw.Recoverer)
	s.r.Use(jsonContentType)
	s.r.Use(s.cors)

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"service":"skate-server","endpoints":["/health","/catalog","POST /matches","/goals/*","/progress","/auth/*"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	// Live event stream: long-lived, so no request timeout.
	s.r.With(s.withOptionalAuth()).Get("/matches/{id}/events", s.handleEvents)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))

		r.Get("/catalog", s.handleCatalog)
		r.With(s.withOptionalAuth()).Get("/catalog/{category}", s.handleCatalogCategory)

		// Gameplay, progress and goals: OPTIONAL AUTH (guests can play)
		opt := r.With(s.withOptionalAuth())
		s.mountMatches(opt)
		s.mountProgress(opt)
		s.mountGoals(opt)

		// Auth + profile/stats
		s.mountAuthRoutes(r)
	})

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// accessLog writes one line per request through the request-scoped logger.
func accessLog(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("req_id", chimw.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request")
}

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", s.cfg.ClientOrigin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------ catalog ------------------------------------

type categoryView struct {
	Name   string          `json:"name"`
	Tricks []catalog.Trick `json:"tricks"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	out := []categoryView{}
	for _, name := range s.catalog.Categories() {
		out = append(out, categoryView{Name: name, Tricks: s.catalog.ByCategory(name)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": out, "stances": game.Stances, "levels": game.Levels})
}

// handleCatalogCategory lists one category, optionally narrowed with
// ?difficulty=facil|intermediaria|dificil. The caller's favorites come first.
func (s *Server) handleCatalogCategory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "category")
	tricks := s.catalog.ByCategory(name)
	if tricks == nil {
		writeError(w, http.StatusNotFound, "unknown category")
		return
	}
	tricks, err := catalog.Filter(tricks, r.URL.Query().Get("difficulty"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if owner := s.requestOwner(r); owner != "" {
		favs, err := s.progress.Favorites(r.Context(), owner)
		if err != nil {
			log.Error().Err(err).Msg("load favorites")
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		catalog.FavoritesFirst(tricks, favs)
	}
	writeJSON(w, http.StatusOK, categoryView{Name: name, Tricks: tricks})
}

// ------------------------------ helpers ------------------------------------

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes {"error": msg}.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads a JSON body into v; an empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
