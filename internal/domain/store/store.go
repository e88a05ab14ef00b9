// Package store holds the canonical scoreboard state.
//
// The store owns exactly two values: the live match (nullable singleton) and
// the group standings. All mutation goes through the replace methods, which
// are the single entry point: each replace is atomic with respect to other
// replaces of the same kind, bumps that kind's revision by exactly one, and
// fans the new value out on the change bus before returning. Replaces are
// never suppressed on no-op writes; an equal value still advances the
// revision, which is what edit sessions key their merge guard on.
//
// Fan-out happens while the per-kind lock is held so listeners observe a
// fully consistent store and receive events in replace order. Listeners get
// the new value inside the event and must not call back into the store for
// the same kind during delivery.
package store

import (
	"context"
	"sync"

	"github.com/okian/rallyboard/internal/domain/bus"
	"github.com/okian/rallyboard/internal/domain/model"
	"github.com/okian/rallyboard/internal/domain/ranking"
	"github.com/okian/rallyboard/pkg/metrics"
)

// Store holds the two canonical values plus their revision counters.
type Store struct {
	bus *bus.Bus

	liveMu  sync.Mutex
	live    *model.LiveMatch
	liveRev model.Revision

	standingsMu  sync.Mutex
	standings    *model.GroupStandings
	standingsRev model.Revision
}

// Option applies a configuration option to the Store.
type Option func(*Store)

// New creates an empty store publishing on b.
func New(b *bus.Bus, opts ...Option) *Store {
	s := &Store{bus: b}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReplaceLiveMatch replaces the canonical live match and returns the new
// revision. A nil value is the "no match" state and is stored verbatim.
func (s *Store) ReplaceLiveMatch(ctx context.Context, v *model.LiveMatch) model.Revision {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()

	s.live = v.Clone()
	s.liveRev++
	metrics.RecordStoreReplace(string(model.KindLiveMatch))
	metrics.UpdateStoreRevision(string(model.KindLiveMatch), int64(s.liveRev))

	s.bus.Publish(ctx, model.Event{
		Kind:      model.KindLiveMatch,
		Revision:  s.liveRev,
		LiveMatch: s.live.Clone(),
	})
	return s.liveRev
}

// ReplaceStandings re-ranks both groups, stores the ranked value, and
// publishes it. Consumers never observe unranked standings. A nil value is
// the cold "no standings yet" state and is stored verbatim.
func (s *Store) ReplaceStandings(ctx context.Context, v *model.GroupStandings) model.Revision {
	s.standingsMu.Lock()
	defer s.standingsMu.Unlock()

	s.standings = ranking.RankGroups(v)
	s.standingsRev++
	metrics.RecordStoreReplace(string(model.KindStandings))
	metrics.UpdateStoreRevision(string(model.KindStandings), int64(s.standingsRev))

	s.bus.Publish(ctx, model.Event{
		Kind:      model.KindStandings,
		Revision:  s.standingsRev,
		Standings: s.standings.Clone(),
	})
	return s.standingsRev
}

// LiveMatch returns a copy of the canonical live match and its revision.
func (s *Store) LiveMatch() (*model.LiveMatch, model.Revision) {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()
	return s.live.Clone(), s.liveRev
}

// Standings returns a copy of the canonical standings and their revision.
func (s *Store) Standings() (*model.GroupStandings, model.Revision) {
	s.standingsMu.Lock()
	defer s.standingsMu.Unlock()
	return s.standings.Clone(), s.standingsRev
}

// Subscribe registers fn for changes of the given kind. The current value is
// delivered to fn synchronously before Subscribe returns, so no listener has
// to wait for the next change to learn current state. The returned handle is
// idempotent.
func (s *Store) Subscribe(ctx context.Context, kind model.Kind, fn bus.Listener) bus.Unsubscribe {
	switch kind {
	case model.KindLiveMatch:
		s.liveMu.Lock()
		defer s.liveMu.Unlock()
		fn(ctx, model.Event{Kind: kind, Revision: s.liveRev, LiveMatch: s.live.Clone()})
		return s.bus.Subscribe(kind, fn)
	case model.KindStandings:
		s.standingsMu.Lock()
		defer s.standingsMu.Unlock()
		fn(ctx, model.Event{Kind: kind, Revision: s.standingsRev, Standings: s.standings.Clone()})
		return s.bus.Subscribe(kind, fn)
	default:
		return func() {}
	}
}
