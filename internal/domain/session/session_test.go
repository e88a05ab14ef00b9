package session_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/rallyboard/internal/domain/bus"
	"github.com/okian/rallyboard/internal/domain/model"
	"github.com/okian/rallyboard/internal/domain/session"
	"github.com/okian/rallyboard/internal/domain/store"
	"github.com/okian/rallyboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		os.Exit(1)
	}
	os.Exit(m.Run())
}

func noSubmit(ctx context.Context, v *model.LiveMatch) error { return nil }

func TestSession_OpenSeedsFromStore(t *testing.T) {
	Convey("Given a store with a live match", t, func() {
		st := store.New(bus.New())
		ctx := context.Background()
		current := &model.LiveMatch{Team1: "Vaalal", Team2: "Marakkara", Team1SetScore: 1}
		st.ReplaceLiveMatch(ctx, current)

		Convey("When a session opens", func() {
			s := session.OpenLiveMatch(ctx, st, noSubmit)
			defer s.Close()

			Convey("Then draft and baseline equal the canonical value", func() {
				So(s.Draft().Equal(current), ShouldBeTrue)
				So(s.Baseline().Equal(current), ShouldBeTrue)
				So(s.BaseRevision(), ShouldEqual, 1)
				So(s.State(), ShouldEqual, session.StateClean)
			})

			Convey("And the draft is a detached copy", func() {
				d := s.Draft()
				d.Team1SetScore = 2
				So(s.Draft().Team1SetScore, ShouldEqual, 1)
			})
		})
	})
}

func TestSession_IdleAdoption(t *testing.T) {
	Convey("Given a clean session with no local edits", t, func() {
		st := store.New(bus.New())
		ctx := context.Background()
		st.ReplaceLiveMatch(ctx, &model.LiveMatch{Team1: "A", Team2: "B"})
		s := session.OpenLiveMatch(ctx, st, noSubmit)
		defer s.Close()

		Convey("When a remote update arrives", func() {
			remote := &model.LiveMatch{Team1: "A", Team2: "B", Team1CurrentPoints: 7}
			st.ReplaceLiveMatch(ctx, remote)

			Convey("Then the session adopts it silently", func() {
				So(s.Draft().Equal(remote), ShouldBeTrue)
				So(s.Baseline().Equal(remote), ShouldBeTrue)
				So(s.BaseRevision(), ShouldEqual, 2)
				So(s.State(), ShouldEqual, session.StateClean)
				So(s.Conflicts(), ShouldEqual, 0)
			})
		})
	})
}

func TestSession_EditPreservation(t *testing.T) {
	Convey("Given a session with unsaved edits", t, func() {
		st := store.New(bus.New())
		ctx := context.Background()
		st.ReplaceLiveMatch(ctx, &model.LiveMatch{Team1: "A", Team2: "B"})

		var warned []model.Revision
		s := session.OpenLiveMatch(ctx, st, noSubmit,
			session.WithConflictHandler(func(rev model.Revision) {
				warned = append(warned, rev)
			}),
		)
		defer s.Close()

		err := s.Edit(func(d *model.LiveMatch) *model.LiveMatch {
			d.Team1CurrentPoints = 12
			return d
		})
		So(err, ShouldBeNil)
		So(s.State(), ShouldEqual, session.StateDirty)

		Convey("When a remote update lands mid-edit", func() {
			remote := &model.LiveMatch{Team1: "A", Team2: "B", Team2CurrentPoints: 9}
			st.ReplaceLiveMatch(ctx, remote)

			Convey("Then the draft keeps the editor's pending change", func() {
				So(s.Draft().Team1CurrentPoints, ShouldEqual, 12)
				So(s.Draft().Team2CurrentPoints, ShouldEqual, 0)
			})

			Convey("And only the baseline tracks the new ground truth", func() {
				So(s.Baseline().Equal(remote), ShouldBeTrue)
				So(s.BaseRevision(), ShouldEqual, 2)
				So(s.State(), ShouldEqual, session.StateDirtyConflict)
			})

			Convey("And exactly one warning fired for the event", func() {
				So(s.Conflicts(), ShouldEqual, 1)
				So(warned, ShouldResemble, []model.Revision{2})
			})

			Convey("And a second remote event warns again", func() {
				st.ReplaceLiveMatch(ctx, nil)
				So(s.Conflicts(), ShouldEqual, 2)
				So(s.Draft().Team1CurrentPoints, ShouldEqual, 12)
				So(s.Baseline(), ShouldBeNil)
			})
		})
	})
}

func TestSession_EditBackToBaselineIsClean(t *testing.T) {
	Convey("Given a session edited away from and back to its baseline", t, func() {
		st := store.New(bus.New())
		ctx := context.Background()
		base := &model.LiveMatch{Team1: "A", Team2: "B", Team1CurrentPoints: 3}
		st.ReplaceLiveMatch(ctx, base)
		s := session.OpenLiveMatch(ctx, st, noSubmit)
		defer s.Close()

		_ = s.Edit(func(d *model.LiveMatch) *model.LiveMatch {
			d.Team1CurrentPoints = 4
			return d
		})
		So(s.State(), ShouldEqual, session.StateDirty)
		_ = s.Edit(func(d *model.LiveMatch) *model.LiveMatch {
			d.Team1CurrentPoints = 3
			return d
		})
		So(s.State(), ShouldEqual, session.StateClean)

		Convey("When a remote update now arrives", func() {
			remote := &model.LiveMatch{Team1: "A", Team2: "B", Team1CurrentPoints: 5}
			st.ReplaceLiveMatch(ctx, remote)

			Convey("Then it is adopted without a warning", func() {
				So(s.Draft().Equal(remote), ShouldBeTrue)
				So(s.Conflicts(), ShouldEqual, 0)
			})
		})
	})
}

func TestSession_SubmitLifecycle(t *testing.T) {
	Convey("Given a session with a pending draft", t, func() {
		st := store.New(bus.New())
		ctx := context.Background()
		s := session.OpenLiveMatch(ctx, st, func(ctx context.Context, v *model.LiveMatch) error {
			return nil
		})
		_ = s.SetDraft(&model.LiveMatch{Team1: "A", Team2: "B"})

		Convey("When submission succeeds", func() {
			So(s.Submit(ctx), ShouldBeNil)

			Convey("Then the session is closed and further edits fail", func() {
				So(s.Edit(func(d *model.LiveMatch) *model.LiveMatch { return d }), ShouldEqual, session.ErrClosed)
				So(s.Submit(ctx), ShouldEqual, session.ErrClosed)
			})

			Convey("And later remote events are ignored", func() {
				before := s.Conflicts()
				st.ReplaceLiveMatch(ctx, &model.LiveMatch{Team1: "X", Team2: "Y"})
				So(s.Conflicts(), ShouldEqual, before)
			})
		})
	})

	Convey("Given a gateway that rejects the write", t, func() {
		st := store.New(bus.New())
		ctx := context.Background()
		submitErr := errors.New("remote unreachable")
		s := session.OpenStandings(ctx, st, func(ctx context.Context, v *model.GroupStandings) error {
			return submitErr
		})
		defer s.Close()
		_ = s.SetDraft(&model.GroupStandings{GroupA: []model.TeamStanding{{Name: "A"}}})

		Convey("When submission fails", func() {
			err := s.Submit(ctx)

			Convey("Then the error surfaces and the draft survives", func() {
				So(errors.Is(err, submitErr), ShouldBeTrue)
				So(s.Draft().GroupA[0].Name, ShouldEqual, "A")
				So(s.Edit(func(d *model.GroupStandings) *model.GroupStandings { return d }), ShouldBeNil)
			})
		})
	})
}
