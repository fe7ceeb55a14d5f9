package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/mcdev12/ladders/go/internal/gameerr"
	"github.com/mcdev12/ladders/go/internal/models"
	"github.com/rs/zerolog/log"
)

// StateProvider resolves a session snapshot
type StateProvider interface {
	State(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
}

// StateHandler serves session snapshots to clients resyncing after a
// reconnect.
type StateHandler struct {
	stateProvider StateProvider
}

func NewStateHandler(provider StateProvider) *StateHandler {
	return &StateHandler{stateProvider: provider}
}

type errorBody struct {
	Code    gameerr.Code `json:"code"`
	Message string       `json:"message"`
}

// HandleGetSessionState handles GET /api/sessions/{id}/state
func (h *StateHandler) HandleGetSessionState(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid session id format", http.StatusBadRequest)
		return
	}

	session, err := h.stateProvider.State(r.Context(), sessionID)
	if err != nil {
		status := httpStatus(err)
		if status == http.StatusInternalServerError {
			log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to get session state")
		}
		writeJSON(w, status, errorBody{Code: gameerr.Kind(err), Message: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// RegisterStateRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/sessions/{id}/state", h.HandleGetSessionState)
}

func httpStatus(err error) int {
	switch gameerr.Kind(err) {
	case gameerr.CodeNotFound:
		return http.StatusNotFound
	case gameerr.CodeInvalidTransition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
