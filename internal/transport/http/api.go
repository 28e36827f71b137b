package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"treasurehunt-service/internal/app"
	"treasurehunt-service/internal/domain"
)

// APIHandler exposes the read-side monitoring surface and the bulk admin
// operations over plain HTTP.
type APIHandler struct {
	service *app.GameService
}

func NewAPIHandler(service *app.GameService) *APIHandler {
	return &APIHandler{service: service}
}

// Register attaches the API routes to mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/leaderboard", h.leaderboard)
	mux.HandleFunc("GET /api/teams/{id}", h.teamState)
	mux.HandleFunc("GET /api/teams/{id}/view", h.teamView)
	mux.HandleFunc("POST /api/admin/activate", h.activateAll)
	mux.HandleFunc("POST /api/admin/reset", h.resetAll)
}

func (h *APIHandler) leaderboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Leaderboard(r.Context()))
}

func (h *APIHandler) teamState(w http.ResponseWriter, r *http.Request) {
	team, err := h.service.TeamState(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (h *APIHandler) teamView(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.TeamView(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *APIHandler) activateAll(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.ActivateAllTeams(r.Context())
	if err != nil {
		var missing *domain.MissingRoadmapError
		if errors.As(err, &missing) {
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":        err.Error(),
				"teamsMissing": missing.TeamIDs,
			})
			return
		}
		writeError(w, err)
		return
	}
	log.Info().Int("teams", count).Msg("game activated")
	writeJSON(w, http.StatusOK, map[string]int{"activated": count})
}

func (h *APIHandler) resetAll(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.ResetAllTeams(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	log.Info().Int("teams", count).Msg("game reset")
	writeJSON(w, http.StatusOK, map[string]int{"reset": count})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, domain.ErrTeamNotFound) {
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}
