// Package gateway validates editor mutations and forwards them to the
// remote writer.
//
// The gateway is a stateless relay: it never writes to the local store, and
// it never retries. A successful write comes back to the process as a push
// on the remote channel, which keeps the store the single source of truth.
// Retrying a failed score write automatically could double-apply it; retry
// is a user action.
package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/rallyboard/internal/adapters/remote"
	"github.com/okian/rallyboard/internal/domain/model"
	"github.com/okian/rallyboard/pkg/logger"
	"github.com/okian/rallyboard/pkg/metrics"
)

const defaultWriteTimeout = 10 * time.Second

// Gateway relays validated mutations to the remote writer.
type Gateway struct {
	writer       remote.Writer
	writeTimeout time.Duration
	logger       logger.Logger
}

// Option applies a configuration option to the Gateway.
type Option func(*Gateway)

// WithWriteTimeout bounds a single remote write; expiry is a transport error.
func WithWriteTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.writeTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the gateway.
func WithLogger(l logger.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// New creates a gateway writing through w.
func New(w remote.Writer, opts ...Option) *Gateway {
	g := &Gateway{
		writer:       w,
		writeTimeout: defaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SetLiveMatch validates and forwards a live-match upsert. Nil clears the
// match; a non-nil match needs two distinct, non-empty team names.
func (g *Gateway) SetLiveMatch(ctx context.Context, v *model.LiveMatch) error {
	if err := validateLiveMatch(v); err != nil {
		metrics.RecordMutationRejected(string(model.KindLiveMatch))
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, g.writeTimeout)
	defer cancel()
	if err := g.writer.SetLiveMatch(writeCtx, v); err != nil {
		metrics.RecordMutationTransportError(string(model.KindLiveMatch))
		g.log().Error(ctx, "live match write failed", logger.Error(err))
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	metrics.RecordMutationAccepted(string(model.KindLiveMatch))
	return nil
}

// ClearLiveMatch clears the live match; equivalent to SetLiveMatch(nil).
func (g *Gateway) ClearLiveMatch(ctx context.Context) error {
	return g.SetLiveMatch(ctx, nil)
}

// UpsertStandings validates and forwards a replace-all standings write.
// Both groups must be present (possibly empty) with unique names per group.
func (g *Gateway) UpsertStandings(ctx context.Context, gs *model.GroupStandings) error {
	if err := validateStandings(gs); err != nil {
		metrics.RecordMutationRejected(string(model.KindStandings))
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, g.writeTimeout)
	defer cancel()
	if err := g.writer.UpsertStandings(writeCtx, gs.GroupA, gs.GroupB); err != nil {
		metrics.RecordMutationTransportError(string(model.KindStandings))
		g.log().Error(ctx, "standings write failed", logger.Error(err))
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	metrics.RecordMutationAccepted(string(model.KindStandings))
	return nil
}

func validateLiveMatch(v *model.LiveMatch) error {
	if v == nil {
		return nil
	}
	t1 := strings.TrimSpace(v.Team1)
	t2 := strings.TrimSpace(v.Team2)
	switch {
	case t1 == "":
		return fmt.Errorf("%w: team1 name must not be empty", ErrValidation)
	case t2 == "":
		return fmt.Errorf("%w: team2 name must not be empty", ErrValidation)
	case t1 == t2:
		return fmt.Errorf("%w: a team cannot play itself", ErrValidation)
	}
	if v.Team1SetScore < 0 || v.Team1CurrentPoints < 0 || v.Team2SetScore < 0 || v.Team2CurrentPoints < 0 {
		return fmt.Errorf("%w: scores must not be negative", ErrValidation)
	}
	if !model.KnownMatchType(v.MatchType) {
		return fmt.Errorf("%w: unknown match type %q", ErrValidation, v.MatchType)
	}
	return nil
}

func validateStandings(gs *model.GroupStandings) error {
	if gs == nil {
		return fmt.Errorf("%w: standings must not be null", ErrValidation)
	}
	if gs.GroupA == nil || gs.GroupB == nil {
		return fmt.Errorf("%w: both groups must be present", ErrValidation)
	}
	if err := validateGroup("groupA", gs.GroupA); err != nil {
		return err
	}
	return validateGroup("groupB", gs.GroupB)
}

func validateGroup(group string, teams []model.TeamStanding) error {
	seen := make(map[string]struct{}, len(teams))
	for _, t := range teams {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			return fmt.Errorf("%w: %s has a team with no name", ErrValidation, group)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: duplicate team %q in %s", ErrValidation, name, group)
		}
		seen[name] = struct{}{}
		if t.MatchesPlayed < 0 || t.Wins < 0 || t.Losses < 0 || t.SetsWon < 0 || t.SetsLost < 0 {
			return fmt.Errorf("%w: negative counters for team %q in %s", ErrValidation, name, group)
		}
	}
	return nil
}

func (g *Gateway) log() logger.Logger {
	if g.logger != nil {
		return g.logger
	}
	return logger.Get().Named("gateway")
}
