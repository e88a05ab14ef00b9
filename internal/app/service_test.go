package service

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/okian/rallyboard/internal/adapters/remote"
	"github.com/okian/rallyboard/internal/domain/model"
	"github.com/okian/rallyboard/internal/domain/session"
	"github.com/okian/rallyboard/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		os.Exit(1)
	}
	os.Exit(m.Run())
}

// fakeBackend plays the authoritative side of the channel and writer
// contracts: every accepted write is echoed back as a push, the way the
// real backend confirms mutations.
type fakeBackend struct {
	mu        sync.Mutex
	h         remote.Handler
	live      *model.LiveMatch
	standings *model.GroupStandings
	writes    int
}

func (f *fakeBackend) Start(ctx context.Context, h remote.Handler) error {
	f.mu.Lock()
	f.h = h
	f.mu.Unlock()
	h.OnConnected(ctx, false)
	return nil
}

func (f *fakeBackend) Snapshot(ctx context.Context) (remote.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return remote.Snapshot{LiveMatch: f.live.Clone(), Standings: f.standings.Clone()}, nil
}

func (f *fakeBackend) Stop() error { return nil }

func (f *fakeBackend) SetLiveMatch(ctx context.Context, v *model.LiveMatch) error {
	f.mu.Lock()
	f.live = v.Clone()
	f.writes++
	h := f.h
	f.mu.Unlock()
	h.OnLiveMatch(ctx, v.Clone())
	return nil
}

func (f *fakeBackend) UpsertStandings(ctx context.Context, groupA, groupB []model.TeamStanding) error {
	gs := &model.GroupStandings{
		GroupA: append([]model.TeamStanding(nil), groupA...),
		GroupB: append([]model.TeamStanding(nil), groupB...),
	}
	f.mu.Lock()
	f.standings = gs
	f.writes++
	h := f.h
	f.mu.Unlock()
	h.OnStandings(ctx, gs.Clone())
	return nil
}

func (f *fakeBackend) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func (f *fakeBackend) pushStandings(ctx context.Context, gs *model.GroupStandings) {
	f.mu.Lock()
	f.standings = gs.Clone()
	h := f.h
	f.mu.Unlock()
	h.OnStandings(ctx, gs.Clone())
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestServiceStartAppliesSnapshot(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{
		live: &model.LiveMatch{Team1: "Kanthapuram", Team2: "Vaalal", Status: "live", MatchType: model.MatchTypeGroupStage},
		standings: &model.GroupStandings{
			GroupA: []model.TeamStanding{{Name: "Kanthapuram", Points: 2}},
			GroupB: []model.TeamStanding{{Name: "Kizhisseri"}},
		},
	}

	svc := New(backend, backend)
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer svc.Stop()

	waitFor(t, func() bool {
		_, rev := svc.Standings()
		return rev > 0
	})

	live, _ := svc.LiveMatch()
	if live == nil || live.Team1 != "Kanthapuram" {
		t.Fatalf("unexpected live match: %+v", live)
	}
	standings, _ := svc.Standings()
	if standings == nil || len(standings.GroupA) != 1 || standings.GroupA[0].Points != 2 {
		t.Fatalf("unexpected standings: %+v", standings)
	}

	stats := svc.GetStats()
	if stats["service"] != "rallyboard" {
		t.Fatalf("unexpected stats: %v", stats)
	}
	if stats["sync_connected"] != true {
		t.Fatalf("expected sync_connected true: %v", stats)
	}
}

func TestServiceSeedsStandingsFromRosters(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{}

	svc := New(backend, backend,
		WithRosters([]string{"Kanthapuram", "Marakkara"}, []string{"Kizhisseri"}),
	)
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer svc.Stop()

	waitFor(t, func() bool {
		standings, _ := svc.Standings()
		return standings != nil
	})

	standings, _ := svc.Standings()
	if len(standings.GroupA) != 2 || len(standings.GroupB) != 1 {
		t.Fatalf("unexpected seeded standings: %+v", standings)
	}
	for _, row := range append(standings.GroupA, standings.GroupB...) {
		if row.Points != 0 || row.MatchesPlayed != 0 {
			t.Fatalf("seeded rows must be zeroed: %+v", row)
		}
	}
}

func TestServiceEditConflictAndResolve(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{
		standings: &model.GroupStandings{
			GroupA: []model.TeamStanding{
				{Name: "Kanthapuram", Points: 2},
				{Name: "Marakkara", Points: 3},
			},
			GroupB: []model.TeamStanding{},
		},
	}

	svc := New(backend, backend)
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer svc.Stop()

	waitFor(t, func() bool {
		standings, _ := svc.Standings()
		return standings != nil
	})

	var conflicts []model.Revision
	var conflictMu sync.Mutex
	sess := svc.OpenStandingsSession(ctx, session.WithConflictHandler(func(rev model.Revision) {
		conflictMu.Lock()
		conflicts = append(conflicts, rev)
		conflictMu.Unlock()
	}))
	defer sess.Close()

	// The editor bumps Kanthapuram to 4 points.
	err := sess.Edit(func(draft *model.GroupStandings) *model.GroupStandings {
		for i := range draft.GroupA {
			if draft.GroupA[i].Name == "Kanthapuram" {
				draft.GroupA[i].Points = 4
			}
		}
		return draft
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if sess.State() != session.StateDirty {
		t.Fatalf("expected dirty state, got %s", sess.State())
	}

	// Meanwhile the backend pushes Marakkara at 6 points.
	backend.pushStandings(ctx, &model.GroupStandings{
		GroupA: []model.TeamStanding{
			{Name: "Kanthapuram", Points: 2},
			{Name: "Marakkara", Points: 6},
		},
		GroupB: []model.TeamStanding{},
	})

	waitFor(t, func() bool { return sess.State() == session.StateDirtyConflict })

	// The draft holds the local edit untouched while the baseline moved on.
	draft := sess.Draft()
	if points := findPoints(t, draft.GroupA, "Kanthapuram"); points != 4 {
		t.Fatalf("draft lost the local edit: %d", points)
	}
	baseline := sess.Baseline()
	if points := findPoints(t, baseline.GroupA, "Marakkara"); points != 6 {
		t.Fatalf("baseline missed the remote change: %d", points)
	}
	conflictMu.Lock()
	if len(conflicts) != 1 {
		conflictMu.Unlock()
		t.Fatalf("expected one conflict notification, got %d", len(conflicts))
	}
	conflictMu.Unlock()

	// The editor folds the remote change into the draft, then submits.
	err = sess.Edit(func(draft *model.GroupStandings) *model.GroupStandings {
		for i := range draft.GroupA {
			if draft.GroupA[i].Name == "Marakkara" {
				draft.GroupA[i].Points = 6
			}
		}
		return draft
	})
	if err != nil {
		t.Fatalf("resolve edit: %v", err)
	}
	if err := sess.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}

	waitFor(t, func() bool {
		standings, _ := svc.Standings()
		return standings != nil && findPoints(t, standings.GroupA, "Kanthapuram") == 4
	})

	// The store ranks on replace, so the board shows Marakkara first.
	standings, _ := svc.Standings()
	if standings.GroupA[0].Name != "Marakkara" || standings.GroupA[0].Points != 6 {
		t.Fatalf("unexpected winner row: %+v", standings.GroupA[0])
	}
	if standings.GroupA[1].Name != "Kanthapuram" || standings.GroupA[1].Points != 4 {
		t.Fatalf("unexpected runner-up row: %+v", standings.GroupA[1])
	}
}

func TestServiceLastWriterWins(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{
		standings: &model.GroupStandings{
			GroupA: []model.TeamStanding{{Name: "Kanthapuram", Points: 9}},
			GroupB: []model.TeamStanding{},
		},
	}

	svc := New(backend, backend)
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer svc.Stop()

	waitFor(t, func() bool {
		standings, _ := svc.Standings()
		return standings != nil
	})

	// A direct write overwrites whatever the backend held, no merge.
	err := svc.UpsertStandings(ctx, &model.GroupStandings{
		GroupA: []model.TeamStanding{{Name: "Kanthapuram", Points: 1}},
		GroupB: []model.TeamStanding{},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	waitFor(t, func() bool {
		standings, _ := svc.Standings()
		return standings != nil && findPoints(t, standings.GroupA, "Kanthapuram") == 1
	})
}

func findPoints(t *testing.T, rows []model.TeamStanding, name string) int {
	t.Helper()
	for _, row := range rows {
		if row.Name == name {
			return row.Points
		}
	}
	t.Fatalf("team %q not found", name)
	return 0
}
