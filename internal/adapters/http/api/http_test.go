package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/rallyboard/internal/adapters/gateway"
	"github.com/okian/rallyboard/internal/adapters/syncer"
	"github.com/okian/rallyboard/internal/domain/model"
)

type fakeDeps struct {
	live         *model.LiveMatch
	liveRev      model.Revision
	standings    *model.GroupStandings
	standingsRev model.Revision
	status       syncer.Status

	setLiveErr  error
	upsertErr   error
	gotLive     *model.LiveMatch
	gotClear    bool
	gotUpserted *model.GroupStandings
}

func (f *fakeDeps) LiveMatch() (*model.LiveMatch, model.Revision) { return f.live, f.liveRev }
func (f *fakeDeps) Standings() (*model.GroupStandings, model.Revision) {
	return f.standings, f.standingsRev
}
func (f *fakeDeps) SyncStatus() syncer.Status { return f.status }

func (f *fakeDeps) SetLiveMatch(ctx context.Context, v *model.LiveMatch) error {
	f.gotLive = v
	return f.setLiveErr
}

func (f *fakeDeps) ClearLiveMatch(ctx context.Context) error {
	f.gotClear = true
	return f.setLiveErr
}

func (f *fakeDeps) UpsertStandings(ctx context.Context, gs *model.GroupStandings) error {
	f.gotUpserted = gs
	return f.upsertErr
}

type fakeStats struct{}

func (fakeStats) GetStats() map[string]interface{} {
	return map[string]interface{}{"service": "test"}
}

func newTestMux(deps *fakeDeps) *http.ServeMux {
	mux := http.NewServeMux()
	NewServer(deps, fakeStats{}).Register(context.Background(), mux)
	return mux
}

func TestScoreboardRead(t *testing.T) {
	deps := &fakeDeps{
		live:         &model.LiveMatch{Team1: "Kanthapuram", Team2: "Vaalal"},
		liveRev:      7,
		standings:    &model.GroupStandings{GroupA: []model.TeamStanding{{Name: "Kanthapuram", Points: 4}}, GroupB: []model.TeamStanding{}},
		standingsRev: 3,
		status:       syncer.Status{Running: true, Connected: true},
	}
	mux := newTestMux(deps)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scoreboard", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp scoreboardResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.LiveMatch == nil || resp.LiveMatch.Team1 != "Kanthapuram" {
		t.Fatalf("unexpected live match: %+v", resp.LiveMatch)
	}
	if resp.LiveMatchRevision != 7 || resp.StandingsRevision != 3 {
		t.Fatalf("unexpected revisions: %d %d", resp.LiveMatchRevision, resp.StandingsRevision)
	}
	if !resp.Sync.Connected {
		t.Fatal("expected sync.connected true")
	}
}

func TestScoreboardWrongMethod(t *testing.T) {
	mux := newTestMux(&fakeDeps{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scoreboard", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestPostLive(t *testing.T) {
	deps := &fakeDeps{}
	mux := newTestMux(deps)

	body := `{"team1":"Kanthapuram","team2":"Vaalal","team1SetScore":1,"matchType":"Group Stage"}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/live", strings.NewReader(body)))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if deps.gotLive == nil || deps.gotLive.Team1 != "Kanthapuram" || deps.gotLive.Team1SetScore != 1 {
		t.Fatalf("gateway did not receive the match: %+v", deps.gotLive)
	}
}

func TestPostLiveBadJSON(t *testing.T) {
	mux := newTestMux(&fakeDeps{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/live", strings.NewReader("{not json")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPostLiveValidationError(t *testing.T) {
	deps := &fakeDeps{setLiveErr: gateway.ErrValidation}
	mux := newTestMux(deps)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/live", strings.NewReader(`{"team1":"a","team2":"a"}`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != "validation" {
		t.Fatalf("expected validation code, got %q", resp.Code)
	}
}

func TestPostLiveTransportError(t *testing.T) {
	deps := &fakeDeps{setLiveErr: gateway.ErrTransport}
	mux := newTestMux(deps)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/live", strings.NewReader(`{"team1":"a","team2":"b"}`)))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestPostLiveClear(t *testing.T) {
	deps := &fakeDeps{}
	mux := newTestMux(deps)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/live/clear", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if !deps.gotClear {
		t.Fatal("clear was not relayed")
	}
}

func TestPostStandings(t *testing.T) {
	deps := &fakeDeps{}
	mux := newTestMux(deps)

	body := `{"groupA":[{"name":"Kanthapuram","points":4}],"groupB":[{"name":"Kizhisseri"}]}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/standings", strings.NewReader(body)))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if deps.gotUpserted == nil || len(deps.gotUpserted.GroupA) != 1 || deps.gotUpserted.GroupA[0].Points != 4 {
		t.Fatalf("gateway did not receive the standings: %+v", deps.gotUpserted)
	}
}

func TestStats(t *testing.T) {
	mux := newTestMux(&fakeDeps{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var stats map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats["service"] != "test" {
		t.Fatalf("unexpected stats: %v", stats)
	}
}
