// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/rallyboard/internal/adapters/syncer"
	"github.com/okian/rallyboard/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Read operations expose the canonical values and their revisions.
	LiveMatch() (*model.LiveMatch, model.Revision)
	Standings() (*model.GroupStandings, model.Revision)
	SyncStatus() syncer.Status

	// Write operations relay editor mutations to the remote backend.
	SetLiveMatch(ctx context.Context, v *model.LiveMatch) error
	ClearLiveMatch(ctx context.Context) error
	UpsertStandings(ctx context.Context, gs *model.GroupStandings) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	scoreboardHandler *ScoreboardHandler
	liveHandler       *LiveHandler
	standingsHandler  *StandingsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		scoreboardHandler: NewScoreboardHandler(deps),
		liveHandler:       NewLiveHandler(deps),
		standingsHandler:  NewStandingsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/scoreboard", MetricsMiddleware(s.scoreboardHandler.HandleGetScoreboard, "scoreboard"))
	mux.HandleFunc("/live", MetricsMiddleware(s.liveHandler.HandlePostLive, "live"))
	mux.HandleFunc("/live/clear", MetricsMiddleware(s.liveHandler.HandlePostClear, "live_clear"))
	mux.HandleFunc("/standings", MetricsMiddleware(s.standingsHandler.HandlePostStandings, "standings"))
}

type ackResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
