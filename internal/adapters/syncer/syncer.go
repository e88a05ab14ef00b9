// Package syncer keeps the canonical store current from the remote channel.
//
// On every connect or resume the syncer requests a full snapshot and
// replaces both canonical values wholesale; the remote is always
// authoritative and local state is never merged against it. Per-value pushes
// replace only that value. On channel errors the store is left untouched so
// viewers degrade to the last-known-good data instead of a blank board.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/rallyboard/internal/adapters/remote"
	"github.com/okian/rallyboard/internal/domain/model"
	"github.com/okian/rallyboard/internal/domain/store"
	"github.com/okian/rallyboard/pkg/logger"
	"github.com/okian/rallyboard/pkg/metrics"
)

// Default syncer configuration constants.
const (
	defaultSnapshotTimeout = 5 * time.Second
	defaultBackoffMin      = 500 * time.Millisecond
	defaultBackoffMax      = 30 * time.Second
)

// Status is the syncer's externally visible health. LastSchemaError lets the
// read surface distinguish "a push was dropped" from "no data yet".
type Status struct {
	Running          bool   `json:"running"`
	Connected        bool   `json:"connected"`
	Resyncs          int    `json:"resyncs"`
	LastSnapshotUnix int64  `json:"lastSnapshotUnix,omitempty"`
	LastError        string `json:"lastError,omitempty"`
	LastSchemaError  string `json:"lastSchemaError,omitempty"`
}

// SnapshotHook observes every successfully applied snapshot. Used by the
// service to seed empty standings from the configured rosters.
type SnapshotHook func(ctx context.Context, snap remote.Snapshot)

// Syncer adapts a remote channel into store replaces.
type Syncer struct {
	channel remote.Channel
	store   *store.Store
	clock   clockwork.Clock

	snapshotTimeout time.Duration
	backoffMin      time.Duration
	backoffMax      time.Duration
	hook            SnapshotHook
	logger          logger.Logger

	mu      sync.Mutex
	status  Status
	started bool
	stopped bool
	stopCh  chan struct{}
	resync  chan struct{}
}

// Option applies a configuration option to the Syncer.
type Option func(*Syncer)

// WithClock sets the clock used for retry backoff.
func WithClock(c clockwork.Clock) Option {
	return func(s *Syncer) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithSnapshotTimeout bounds a single snapshot request.
func WithSnapshotTimeout(d time.Duration) Option {
	return func(s *Syncer) {
		if d > 0 {
			s.snapshotTimeout = d
		}
	}
}

// WithBackoff sets the snapshot retry backoff range.
func WithBackoff(minDelay, maxDelay time.Duration) Option {
	return func(s *Syncer) {
		if minDelay > 0 && maxDelay >= minDelay {
			s.backoffMin = minDelay
			s.backoffMax = maxDelay
		}
	}
}

// WithSnapshotHook registers fn for applied snapshots.
func WithSnapshotHook(fn SnapshotHook) Option {
	return func(s *Syncer) {
		if fn != nil {
			s.hook = fn
		}
	}
}

// WithLogger sets a custom logger for the syncer.
func WithLogger(l logger.Logger) Option {
	return func(s *Syncer) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a syncer feeding st from ch.
func New(ch remote.Channel, st *store.Store, opts ...Option) *Syncer {
	s := &Syncer{
		channel:         ch,
		store:           st,
		clock:           clockwork.NewRealClock(),
		snapshotTimeout: defaultSnapshotTimeout,
		backoffMin:      defaultBackoffMin,
		backoffMax:      defaultBackoffMax,
		stopCh:          make(chan struct{}),
		resync:          make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins consuming the channel. Idempotent.
func (s *Syncer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.status.Running = true
	s.mu.Unlock()

	go s.run(ctx)

	if err := s.channel.Start(ctx, s); err != nil {
		s.Stop()
		return fmt.Errorf("channel start: %w", err)
	}
	return nil
}

// Stop tears the syncer down and detaches from the channel. Idempotent and
// synchronous: no further store replaces happen after Stop returns.
func (s *Syncer) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.status.Running = false
	close(s.stopCh)
	s.mu.Unlock()

	_ = s.channel.Stop()
	metrics.UpdateSyncConnected(false)
}

// Status returns a copy of the current syncer status.
func (s *Syncer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// OnConnected implements remote.Handler. Every connect or resume schedules a
// full resync; multiple signals coalesce into one pending snapshot.
func (s *Syncer) OnConnected(ctx context.Context, resumed bool) {
	s.mu.Lock()
	s.status.Connected = true
	if resumed {
		s.status.Resyncs++
	}
	s.mu.Unlock()
	metrics.UpdateSyncConnected(true)

	select {
	case s.resync <- struct{}{}:
	default:
	}
}

// OnLiveMatch implements remote.Handler.
func (s *Syncer) OnLiveMatch(ctx context.Context, v *model.LiveMatch) {
	if s.isStopped() {
		return
	}
	s.store.ReplaceLiveMatch(ctx, v)
	metrics.RecordSyncPush(string(model.KindLiveMatch))
}

// OnStandings implements remote.Handler.
func (s *Syncer) OnStandings(ctx context.Context, v *model.GroupStandings) {
	if s.isStopped() {
		return
	}
	s.store.ReplaceStandings(ctx, v)
	metrics.RecordSyncPush(string(model.KindStandings))
}

// OnError implements remote.Handler. Schema errors mean a dropped update;
// everything else marks the connection degraded. Neither touches the store.
func (s *Syncer) OnError(ctx context.Context, err error) {
	s.mu.Lock()
	if isSchema(err) {
		s.status.LastSchemaError = err.Error()
	} else {
		s.status.Connected = false
		s.status.LastError = err.Error()
	}
	s.mu.Unlock()

	if isSchema(err) {
		metrics.RecordSyncSchemaDrop()
		s.log().Warn(ctx, "dropped malformed remote update", logger.Error(err))
		return
	}
	metrics.UpdateSyncConnected(false)
	s.log().Error(ctx, "remote channel error", logger.Error(err))
}

func (s *Syncer) run(ctx context.Context) {
	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-s.resync:
			s.snapshotWithRetry(ctx)
		}
	}
}

// snapshotWithRetry keeps requesting a snapshot with doubling backoff until
// it succeeds or the syncer stops. The stale canonical values stay visible
// the whole time.
func (s *Syncer) snapshotWithRetry(ctx context.Context) {
	delay := s.backoffMin
	for {
		if s.trySnapshot(ctx) {
			return
		}
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-s.clock.After(delay):
		}
		delay *= 2
		if delay > s.backoffMax {
			delay = s.backoffMax
		}
	}
}

func (s *Syncer) trySnapshot(ctx context.Context) bool {
	reqCtx, cancel := context.WithTimeout(ctx, s.snapshotTimeout)
	defer cancel()

	snap, err := s.channel.Snapshot(reqCtx)
	if err != nil {
		s.OnError(ctx, fmt.Errorf("snapshot: %w", err))
		// A schema-broken snapshot will stay broken; retrying would loop
		// on the same payload.
		return isSchema(err)
	}
	if s.isStopped() {
		return true
	}

	s.store.ReplaceLiveMatch(ctx, snap.LiveMatch)
	s.store.ReplaceStandings(ctx, snap.Standings)

	s.mu.Lock()
	s.status.LastSnapshotUnix = s.clock.Now().Unix()
	s.status.LastError = ""
	s.mu.Unlock()
	metrics.RecordSyncSnapshot()
	s.log().Info(ctx, "applied remote snapshot",
		logger.Any("hasLiveMatch", snap.LiveMatch != nil),
		logger.Any("hasStandings", snap.Standings != nil),
	)

	if s.hook != nil {
		s.hook(ctx, snap)
	}
	return true
}

func (s *Syncer) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func isSchema(err error) bool {
	return errors.Is(err, remote.ErrSchema)
}

func (s *Syncer) log() logger.Logger {
	if s.logger != nil {
		return s.logger
	}
	return logger.Get().Named("syncer")
}
