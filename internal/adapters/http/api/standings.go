package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/rallyboard/internal/domain/model"
)

// StandingsHandler handles standings mutation requests.
type StandingsHandler struct {
	deps Dependencies
}

// NewStandingsHandler creates a new standings handler.
func NewStandingsHandler(deps Dependencies) *StandingsHandler {
	return &StandingsHandler{deps: deps}
}

// HandlePostStandings handles POST /standings requests. The body replaces
// both group tables wholesale; there is no per-row patching.
func (h *StandingsHandler) HandlePostStandings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req model.GroupStandings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.Join(ErrBadRequest, err))
		return
	}
	if err := h.deps.UpsertStandings(r.Context(), &req); err != nil {
		writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}
