// Package natschan implements the remote boundary over NATS subjects.
//
// Pushes arrive on <prefix>.live_match and <prefix>.standings as wire JSON;
// a full snapshot is requested over request/reply on <prefix>.snapshot, and
// editor writes go out as request/reply on <prefix>.write.*. Reconnects are
// surfaced through the connection's handlers so the consumer can re-snapshot
// instead of relying on missed-push replay.
package natschan

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/okian/rallyboard/internal/adapters/remote"
	"github.com/okian/rallyboard/internal/domain/model"
	"github.com/okian/rallyboard/pkg/logger"
	"github.com/okian/rallyboard/pkg/metrics"
)

const defaultSubjectPrefix = "scoreboard"

// Channel adapts a NATS connection to the remote Channel and Writer
// contracts. The connection is owned by the caller.
type Channel struct {
	nc     *nats.Conn
	prefix string
	logger logger.Logger

	mu      sync.Mutex
	subs    []*nats.Subscription
	started bool
	stopped bool
}

// Option applies a configuration option to the Channel.
type Option func(*Channel)

// WithSubjectPrefix overrides the subject prefix for all subjects.
func WithSubjectPrefix(prefix string) Option {
	return func(c *Channel) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithLogger sets a custom logger for the channel.
func WithLogger(l logger.Logger) Option {
	return func(c *Channel) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a channel over nc.
func New(nc *nats.Conn, opts ...Option) *Channel {
	c := &Channel{
		nc:     nc,
		prefix: defaultSubjectPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("natschan")
	}
	return c
}

// Start subscribes to the push subjects and wires connection signals to h.
func (c *Channel) Start(ctx context.Context, h remote.Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}

	c.nc.SetReconnectHandler(func(_ *nats.Conn) {
		metrics.RecordSyncReconnect()
		h.OnConnected(ctx, true)
	})
	c.nc.SetDisconnectErrHandler(func(_ *nats.Conn, err error) {
		if err != nil {
			h.OnError(ctx, fmt.Errorf("nats disconnected: %w", err))
		}
	})

	liveSub, err := c.nc.Subscribe(c.subject("live_match"), func(msg *nats.Msg) {
		c.handleLiveMatch(ctx, h, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe live_match: %w", err)
	}
	standingsSub, err := c.nc.Subscribe(c.subject("standings"), func(msg *nats.Msg) {
		c.handleStandings(ctx, h, msg.Data)
	})
	if err != nil {
		_ = liveSub.Unsubscribe()
		return fmt.Errorf("subscribe standings: %w", err)
	}
	c.subs = []*nats.Subscription{liveSub, standingsSub}
	c.started = true

	h.OnConnected(ctx, false)
	return nil
}

// Snapshot requests the full current state over request/reply.
func (c *Channel) Snapshot(ctx context.Context) (remote.Snapshot, error) {
	msg, err := c.nc.RequestWithContext(ctx, c.subject("snapshot"), nil)
	if err != nil {
		return remote.Snapshot{}, fmt.Errorf("snapshot request: %w", err)
	}
	var payload remote.SnapshotPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		return remote.Snapshot{}, fmt.Errorf("%w: snapshot: %v", remote.ErrSchema, err)
	}
	return remote.DecodeSnapshot(payload)
}

// Stop drops the subscriptions. Idempotent.
func (c *Channel) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return nil
	}
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.subs = nil
	c.stopped = true
	return nil
}

// SetLiveMatch publishes a live-match write and waits for the ack reply.
func (c *Channel) SetLiveMatch(ctx context.Context, v *model.LiveMatch) error {
	row := remote.EncodeLiveMatch(v)
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encode live match: %w", err)
	}
	if _, err := c.nc.RequestWithContext(ctx, c.subject("write.live_match"), data); err != nil {
		return fmt.Errorf("write live match: %w", err)
	}
	return nil
}

// UpsertStandings publishes a replace-all standings write and waits for the
// ack reply.
func (c *Channel) UpsertStandings(ctx context.Context, groupA, groupB []model.TeamStanding) error {
	rows := remote.EncodeStandings(groupA, groupB)
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode standings: %w", err)
	}
	if _, err := c.nc.RequestWithContext(ctx, c.subject("write.standings"), data); err != nil {
		return fmt.Errorf("write standings: %w", err)
	}
	return nil
}

func (c *Channel) handleLiveMatch(ctx context.Context, h remote.Handler, data []byte) {
	var row *remote.LiveMatchRow
	if err := json.Unmarshal(data, &row); err != nil {
		h.OnError(ctx, fmt.Errorf("%w: live match push: %v", remote.ErrSchema, err))
		return
	}
	h.OnLiveMatch(ctx, remote.DecodeLiveMatch(row))
}

func (c *Channel) handleStandings(ctx context.Context, h remote.Handler, data []byte) {
	var rows []remote.StandingRow
	if err := json.Unmarshal(data, &rows); err != nil {
		h.OnError(ctx, fmt.Errorf("%w: standings push: %v", remote.ErrSchema, err))
		return
	}
	standings, err := remote.DecodeStandings(rows)
	if err != nil {
		h.OnError(ctx, err)
		return
	}
	h.OnStandings(ctx, standings)
}

func (c *Channel) subject(suffix string) string {
	return c.prefix + "." + suffix
}
