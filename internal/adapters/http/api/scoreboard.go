package api

import (
	"net/http"

	"github.com/okian/rallyboard/internal/adapters/syncer"
	"github.com/okian/rallyboard/internal/domain/model"
)

// scoreboardResponse is the combined read shape served to viewers that
// prefer polling over the websocket feed.
type scoreboardResponse struct {
	LiveMatch         *model.LiveMatch      `json:"liveMatch"`
	LiveMatchRevision model.Revision        `json:"liveMatchRevision"`
	Standings         *model.GroupStandings `json:"standings"`
	StandingsRevision model.Revision        `json:"standingsRevision"`
	Sync              syncer.Status         `json:"sync"`
}

// ScoreboardHandler serves the combined scoreboard read.
type ScoreboardHandler struct {
	deps Dependencies
}

// NewScoreboardHandler creates a new scoreboard handler.
func NewScoreboardHandler(deps Dependencies) *ScoreboardHandler {
	return &ScoreboardHandler{deps: deps}
}

// HandleGetScoreboard handles GET /scoreboard requests.
func (h *ScoreboardHandler) HandleGetScoreboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	live, liveRev := h.deps.LiveMatch()
	standings, standingsRev := h.deps.Standings()
	writeJSON(w, http.StatusOK, scoreboardResponse{
		LiveMatch:         live,
		LiveMatchRevision: liveRev,
		Standings:         standings,
		StandingsRevision: standingsRev,
		Sync:              h.deps.SyncStatus(),
	})
}
