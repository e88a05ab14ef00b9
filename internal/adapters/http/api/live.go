package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/rallyboard/internal/adapters/gateway"
	"github.com/okian/rallyboard/internal/domain/model"
)

// LiveHandler handles live-match mutation requests.
type LiveHandler struct {
	deps Dependencies
}

// NewLiveHandler creates a new live-match handler.
func NewLiveHandler(deps Dependencies) *LiveHandler {
	return &LiveHandler{deps: deps}
}

// HandlePostLive handles POST /live requests. The body is a full live-match
// record; the write is relayed to the backend and the local board updates
// when the resulting push comes back.
func (h *LiveHandler) HandlePostLive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req model.LiveMatch
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.Join(ErrBadRequest, err))
		return
	}
	if err := h.deps.SetLiveMatch(r.Context(), &req); err != nil {
		writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}

// HandlePostClear handles POST /live/clear requests.
func (h *LiveHandler) HandlePostClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := h.deps.ClearLiveMatch(r.Context()); err != nil {
		writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}

// writeMutationError maps gateway errors onto HTTP statuses. Validation
// failures are the caller's fault; transport failures are the backend's.
func writeMutationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gateway.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation", err)
	case errors.Is(err, gateway.ErrTransport):
		writeError(w, http.StatusBadGateway, "transport", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal", err)
	}
}
