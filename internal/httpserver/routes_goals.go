// internal/httpserver/routes_goals.go
//
// HTTP routes for goals ("metas") and park settings.
//   - GET  /goals/settings                      → park settings
//   - PUT  /goals/settings                      → save park settings
//   - GET  /goals/{kind}                        → current daily/weekly/monthly goal
//   - POST /goals/daily/{index}/toggle          → flip a daily item
//   - POST /goals/{kind}/complete               → finish a weekly/monthly line
//   - POST /goals/{kind}/stops/{index}/swap     → replace one stop {category}
//   - GET  /goals/custom/{cadence}              → hand-built weekly/monthly line
//   - POST /goals/custom/{cadence}/tricks       → append {trickId}
//   - DELETE /goals/custom/{cadence}/tricks/{index}
//   - POST /goals/custom/{cadence}/complete     → needs 3 (weekly) or 5 (monthly) tricks
//
// Goals are generated on first access within a period and stored per owner,
// so reloading the page shows the same line until the period rolls over.

package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/shunskating/skate-server/internal/goals"
)

// mountGoals registers all /goals routes.
func (s *Server) mountGoals(r chi.Router) {
	r.Route("/goals", func(r chi.Router) {
		r.Get("/settings", s.handleGoalSettings)
		r.Put("/settings", s.handleSaveGoalSettings)
		r.Get("/{kind}", s.handleGetGoal)
		r.Post("/daily/{index}/toggle", s.handleToggleDaily)
		r.Post("/{kind}/complete", s.handleCompleteGoal)
		r.Post("/{kind}/stops/{index}/swap", s.handleSwapStop)

		r.Route("/custom/{cadence}", func(r chi.Router) {
			r.Get("/", s.handleGetCustom)
			r.Post("/tricks", s.handleAddCustom)
			r.Delete("/tricks/{index}", s.handleRemoveCustom)
			r.Post("/complete", s.handleCompleteCustom)
		})
	})
}

// goalView adds display strings to a stored record.
type goalView struct {
	goals.Record
	Stops []string `json:"stops,omitempty"`
}

func newGoalView(rec goals.Record) goalView {
	v := goalView{Record: rec}
	for _, st := range rec.Line {
		v.Stops = append(v.Stops, st.Place+": "+st.String())
	}
	return v
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	k, err := goals.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	rec, err := s.goals.Get(r.Context(), s.ownerID(w, r), k)
	s.respondGoal(w, rec, err)
}

func (s *Server) handleToggleDaily(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid index")
		return
	}
	rec, err := s.goals.ToggleDaily(r.Context(), s.ownerID(w, r), idx)
	s.respondGoal(w, rec, err)
}

func (s *Server) handleCompleteGoal(w http.ResponseWriter, r *http.Request) {
	k, err := goals.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	owner := s.ownerID(w, r)
	rec, err := s.goals.Complete(r.Context(), owner, k)
	if err == nil {
		log.Info().Str("owner", owner).Str("kind", string(k)).Str("period", rec.Period).Msg("goal completed")
	}
	s.respondGoal(w, rec, err)
}

func (s *Server) handleSwapStop(w http.ResponseWriter, r *http.Request) {
	k, err := goals.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid index")
		return
	}
	var body struct {
		Category string `json:"category"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	rec, err := s.goals.Swap(r.Context(), s.ownerID(w, r), k, idx, body.Category)
	s.respondGoal(w, rec, err)
}

// customKind resolves {cadence}, writing a 404 when it is not weekly or monthly.
func customKind(w http.ResponseWriter, r *http.Request) (goals.Kind, bool) {
	k, err := goals.ParseCustom(chi.URLParam(r, "cadence"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return "", false
	}
	return k, true
}

func (s *Server) handleGetCustom(w http.ResponseWriter, r *http.Request) {
	k, ok := customKind(w, r)
	if !ok {
		return
	}
	rec, err := s.goals.Get(r.Context(), s.ownerID(w, r), k)
	s.respondGoal(w, rec, err)
}

func (s *Server) handleAddCustom(w http.ResponseWriter, r *http.Request) {
	k, ok := customKind(w, r)
	if !ok {
		return
	}
	var body struct {
		TrickID string `json:"trickId"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	rec, err := s.goals.AddCustom(r.Context(), s.ownerID(w, r), k, body.TrickID)
	s.respondGoal(w, rec, err)
}

func (s *Server) handleRemoveCustom(w http.ResponseWriter, r *http.Request) {
	k, ok := customKind(w, r)
	if !ok {
		return
	}
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid index")
		return
	}
	rec, err := s.goals.RemoveCustom(r.Context(), s.ownerID(w, r), k, idx)
	s.respondGoal(w, rec, err)
}

func (s *Server) handleCompleteCustom(w http.ResponseWriter, r *http.Request) {
	k, ok := customKind(w, r)
	if !ok {
		return
	}
	owner := s.ownerID(w, r)
	rec, err := s.goals.Complete(r.Context(), owner, k)
	if err == nil {
		log.Info().Str("owner", owner).Str("kind", string(k)).Str("period", rec.Period).Msg("goal completed")
	}
	s.respondGoal(w, rec, err)
}

func (s *Server) handleGoalSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.goals.Settings(r.Context(), s.ownerID(w, r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": st, "obstacles": goals.Obstacles})
}

func (s *Server) handleSaveGoalSettings(w http.ResponseWriter, r *http.Request) {
	var body goals.Settings
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	st, err := s.goals.SaveSettings(r.Context(), s.ownerID(w, r), body)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": st})
}

// respondGoal writes rec or maps a goals error: 409 when the goal is
// already done, 400 for bad input, 500 otherwise.
func (s *Server) respondGoal(w http.ResponseWriter, rec goals.Record, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, newGoalView(rec))
	case errors.Is(err, goals.ErrCompleted):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, goals.ErrNotLine), errors.Is(err, goals.ErrStopIndex),
		errors.Is(err, goals.ErrItemIndex), errors.Is(err, goals.ErrUnknownCategory),
		errors.Is(err, goals.ErrUnknownTrick), errors.Is(err, goals.ErrLineFull), errors.Is(err, goals.ErrLineTooShort):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Msg("goals")
		writeError(w, http.StatusInternalServerError, "db_error")
	}
}
