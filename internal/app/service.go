// Package service provides the core scoreboard service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/rallyboard/internal/adapters/gateway"
	"github.com/okian/rallyboard/internal/adapters/remote"
	"github.com/okian/rallyboard/internal/adapters/syncer"
	"github.com/okian/rallyboard/internal/domain/bus"
	"github.com/okian/rallyboard/internal/domain/model"
	"github.com/okian/rallyboard/internal/domain/session"
	"github.com/okian/rallyboard/internal/domain/store"
	"github.com/okian/rallyboard/pkg/logger"
)

// Service owns the canonical state and the adapters around it: the syncer
// feeding the store from the remote channel, and the gateway relaying editor
// writes back out. Reads always come from the store; writes never touch it.
type Service struct {
	mu sync.RWMutex

	// Core components
	bus     *bus.Bus
	store   *store.Store
	gateway *gateway.Gateway
	syncer  *syncer.Syncer

	channel remote.Channel
	writer  remote.Writer

	// Configuration
	rosterGroupA    []string
	rosterGroupB    []string
	writeTimeout    time.Duration
	snapshotTimeout time.Duration
	backoffMin      time.Duration
	backoffMax      time.Duration
	clock           clockwork.Clock

	// State
	started bool
	seeded  bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithRosters sets the fixed tournament rosters used to seed zeroed
// standings when the backend has none.
func WithRosters(groupA, groupB []string) Option {
	return func(s *Service) {
		s.rosterGroupA = groupA
		s.rosterGroupB = groupB
	}
}

// WithWriteTimeout bounds a single remote write.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// WithSnapshotTimeout bounds a single snapshot request.
func WithSnapshotTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.snapshotTimeout = d
		}
	}
}

// WithResyncBackoff sets the snapshot retry backoff range.
func WithResyncBackoff(minDelay, maxDelay time.Duration) Option {
	return func(s *Service) {
		if minDelay > 0 && maxDelay >= minDelay {
			s.backoffMin = minDelay
			s.backoffMax = maxDelay
		}
	}
}

// WithClock sets the clock used for retry backoff.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service over the given remote channel and writer.
func New(channel remote.Channel, writer remote.Writer, opts ...Option) *Service {
	s := &Service{
		channel:         channel,
		writer:          writer,
		writeTimeout:    10 * time.Second,
		snapshotTimeout: 5 * time.Second,
		backoffMin:      500 * time.Millisecond,
		backoffMax:      30 * time.Second,
		clock:           clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting scoreboard service...")

	s.bus = bus.New(bus.WithLogger(s.logger.Named("bus")))
	s.store = store.New(s.bus)
	s.gateway = gateway.New(s.writer,
		gateway.WithWriteTimeout(s.writeTimeout),
		gateway.WithLogger(s.logger.Named("gateway")),
	)
	s.syncer = syncer.New(s.channel, s.store,
		syncer.WithClock(s.clock),
		syncer.WithSnapshotTimeout(s.snapshotTimeout),
		syncer.WithBackoff(s.backoffMin, s.backoffMax),
		syncer.WithSnapshotHook(s.onSnapshot),
		syncer.WithLogger(s.logger.Named("syncer")),
	)

	if err := s.syncer.Start(ctx); err != nil {
		return err
	}

	s.started = true
	s.logger.Info(ctx, "scoreboard service started")
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(context.Background(), "stopping scoreboard service...")
	s.syncer.Stop()
	s.started = false
	s.logger.Info(context.Background(), "scoreboard service stopped")
}

// Store exposes the canonical store for read-side consumers such as the
// websocket hub.
func (s *Service) Store() *store.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

// LiveMatch returns the current live match and its revision.
func (s *Service) LiveMatch() (*model.LiveMatch, model.Revision) {
	return s.Store().LiveMatch()
}

// Standings returns the current standings and their revision.
func (s *Service) Standings() (*model.GroupStandings, model.Revision) {
	return s.Store().Standings()
}

// SyncStatus reports the syncer's health.
func (s *Service) SyncStatus() syncer.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.syncer == nil {
		return syncer.Status{}
	}
	return s.syncer.Status()
}

// SetLiveMatch relays a live-match upsert to the backend.
func (s *Service) SetLiveMatch(ctx context.Context, v *model.LiveMatch) error {
	return s.gw().SetLiveMatch(ctx, v)
}

// ClearLiveMatch relays a live-match clear to the backend.
func (s *Service) ClearLiveMatch(ctx context.Context) error {
	return s.gw().ClearLiveMatch(ctx)
}

// UpsertStandings relays a replace-all standings write to the backend.
func (s *Service) UpsertStandings(ctx context.Context, gs *model.GroupStandings) error {
	return s.gw().UpsertStandings(ctx, gs)
}

// OpenLiveMatchSession opens an edit session over the live match. Submitting
// relays the draft through the gateway.
func (s *Service) OpenLiveMatchSession(ctx context.Context, opts ...session.Option) *session.Session[*model.LiveMatch] {
	return session.OpenLiveMatch(ctx, s.Store(), s.gw().SetLiveMatch, opts...)
}

// OpenStandingsSession opens an edit session over the standings.
func (s *Service) OpenStandingsSession(ctx context.Context, opts ...session.Option) *session.Session[*model.GroupStandings] {
	return session.OpenStandings(ctx, s.Store(), s.gw().UpsertStandings, opts...)
}

// GetStats returns service statistics for the stats endpoint.
func (s *Service) GetStats() map[string]interface{} {
	live, liveRev := s.LiveMatch()
	_, standingsRev := s.Standings()
	status := s.SyncStatus()
	return map[string]interface{}{
		"service":            "rallyboard",
		"live_match_active":  live.InProgress(),
		"live_match_rev":     int64(liveRev),
		"standings_rev":      int64(standingsRev),
		"sync_running":       status.Running,
		"sync_connected":     status.Connected,
		"sync_resyncs":       status.Resyncs,
		"sync_last_snapshot": status.LastSnapshotUnix,
	}
}

// onSnapshot runs after every applied snapshot. A backend that has never
// stored standings answers with none; the first such snapshot seeds zeroed
// tables from the configured rosters so editors start from a full board.
func (s *Service) onSnapshot(ctx context.Context, snap remote.Snapshot) {
	if snap.Standings != nil {
		return
	}
	s.mu.Lock()
	if s.seeded || (len(s.rosterGroupA) == 0 && len(s.rosterGroupB) == 0) {
		s.mu.Unlock()
		return
	}
	gw := s.gateway
	seed := &model.GroupStandings{
		GroupA: make([]model.TeamStanding, 0, len(s.rosterGroupA)),
		GroupB: make([]model.TeamStanding, 0, len(s.rosterGroupB)),
	}
	for _, name := range s.rosterGroupA {
		seed.GroupA = append(seed.GroupA, model.NewTeamStanding(name))
	}
	for _, name := range s.rosterGroupB {
		seed.GroupB = append(seed.GroupB, model.NewTeamStanding(name))
	}
	s.mu.Unlock()

	if err := gw.UpsertStandings(ctx, seed); err != nil {
		s.logger.Warn(ctx, "standings seed failed", logger.Error(err))
		return
	}
	s.mu.Lock()
	s.seeded = true
	s.mu.Unlock()
	s.logger.Info(ctx, "seeded zeroed standings from rosters",
		logger.Int("groupA", len(seed.GroupA)),
		logger.Int("groupB", len(seed.GroupB)),
	)
}

func (s *Service) gw() *gateway.Gateway {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gateway
}
