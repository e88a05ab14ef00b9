// Package remote defines the boundary to the authoritative backend.
//
// The backend is consumed through two narrow contracts: a push Channel that
// delivers eventually-consistent values and connection signals, and a Writer
// that accepts editor mutations. The wire schema at this boundary uses
// flattened snake_case fields distinct from the in-process model; the codec
// in this package is a pure renaming with explicit zero-defaults for null
// numeric fields.
package remote

import (
	"context"

	"github.com/okian/rallyboard/internal/domain/model"
)

// Snapshot is a full copy of both canonical values, requested after a
// transport (re)connect. Nil fields mean the backend holds no value.
type Snapshot struct {
	LiveMatch *model.LiveMatch
	Standings *model.GroupStandings
}

// Handler receives pushes and connection signals from a Channel. All calls
// may come from transport goroutines.
type Handler interface {
	// OnConnected fires when the channel is established, and again with
	// resumed=true after every reconnect. The consumer is expected to
	// request a fresh Snapshot; missed pushes are never replayed.
	OnConnected(ctx context.Context, resumed bool)

	// OnLiveMatch delivers a live-match push. Nil means cleared.
	OnLiveMatch(ctx context.Context, v *model.LiveMatch)

	// OnStandings delivers a full standings push.
	OnStandings(ctx context.Context, v *model.GroupStandings)

	// OnError reports transport or schema trouble. Errors wrapping
	// ErrSchema mean a push was dropped; the connection itself is fine.
	OnError(ctx context.Context, err error)
}

// Channel is the push side of the backend.
type Channel interface {
	// Start begins delivering signals and pushes to h.
	Start(ctx context.Context, h Handler) error

	// Snapshot requests the full current state of both canonical values.
	Snapshot(ctx context.Context) (Snapshot, error)

	// Stop tears the channel down. Idempotent.
	Stop() error
}

// Writer is the mutation side of the backend.
type Writer interface {
	// SetLiveMatch upserts the live-match singleton. Nil clears it.
	SetLiveMatch(ctx context.Context, v *model.LiveMatch) error

	// UpsertStandings replaces both group tables wholesale.
	UpsertStandings(ctx context.Context, groupA, groupB []model.TeamStanding) error
}
