// Package session implements the editor-side merge guard.
//
// An edit session holds a draft copy of one canonical value plus the baseline
// it was derived from and the revision of that baseline. Remote changes
// arriving through the change bus never clobber unsaved local edits: while
// the draft differs from the baseline only the baseline advances, and the
// caller is told the ground truth moved under them. An idle session (draft
// still equal to its baseline) silently adopts remote changes so a viewer's
// form tracks the world.
//
// State machine: clean -> dirty on a local edit, dirty -> dirty-conflict on
// a remote event, back to clean when an edit restores the baseline value or
// a remote value is adopted.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/okian/rallyboard/internal/domain/bus"
	"github.com/okian/rallyboard/internal/domain/model"
	"github.com/okian/rallyboard/internal/domain/store"
	"github.com/okian/rallyboard/pkg/logger"
	"github.com/okian/rallyboard/pkg/metrics"
)

// State describes the merge-guard state of a session.
type State string

// Session states.
const (
	StateClean         State = "clean"
	StateDirty         State = "dirty"
	StateDirtyConflict State = "dirty-with-pending-conflict"
)

// Value constrains the canonical value types a session can edit.
type Value[T any] interface {
	Clone() T
	Equal(T) bool
}

// Submitter forwards a draft to the mutation gateway.
type Submitter[T any] func(ctx context.Context, v T) error

// ConflictHandler is called once per remote event that lands while the
// session has unsaved edits. It runs synchronously during fan-out.
type ConflictHandler func(newRevision model.Revision)

// Session is one editor's view of a single canonical value.
type Session[T Value[T]] struct {
	mu sync.Mutex

	id           string
	kind         model.Kind
	draft        T
	baseline     T
	baseRevision model.Revision
	state        State
	conflicts    int
	closed       bool

	submit     Submitter[T]
	onConflict ConflictHandler
	unsub      bus.Unsubscribe
	logger     logger.Logger
}

// Option configures a session.
type Option func(*settings)

type settings struct {
	onConflict ConflictHandler
	logger     logger.Logger
}

// WithConflictHandler registers fn for background-change warnings.
func WithConflictHandler(fn ConflictHandler) Option {
	return func(s *settings) {
		if fn != nil {
			s.onConflict = fn
		}
	}
}

// WithLogger sets a custom logger for the session.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// OpenLiveMatch opens an edit session on the live match. The current
// canonical value seeds both draft and baseline before Open returns.
func OpenLiveMatch(ctx context.Context, st *store.Store, submit Submitter[*model.LiveMatch], opts ...Option) *Session[*model.LiveMatch] {
	s := newSession[*model.LiveMatch](model.KindLiveMatch, submit, opts...)
	s.unsub = st.Subscribe(ctx, model.KindLiveMatch, func(ctx context.Context, ev model.Event) {
		s.handleRemote(ctx, ev.LiveMatch, ev.Revision)
	})
	return s
}

// OpenStandings opens an edit session on the group standings.
func OpenStandings(ctx context.Context, st *store.Store, submit Submitter[*model.GroupStandings], opts ...Option) *Session[*model.GroupStandings] {
	s := newSession[*model.GroupStandings](model.KindStandings, submit, opts...)
	s.unsub = st.Subscribe(ctx, model.KindStandings, func(ctx context.Context, ev model.Event) {
		s.handleRemote(ctx, ev.Standings, ev.Revision)
	})
	return s
}

func newSession[T Value[T]](kind model.Kind, submit Submitter[T], opts ...Option) *Session[T] {
	cfg := &settings{}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Session[T]{
		id:           uuid.NewString(),
		kind:         kind,
		state:        StateClean,
		baseRevision: -1, // sentinel until the subscription snapshot arrives
		submit:       submit,
		onConflict:   cfg.onConflict,
		logger:       cfg.logger,
	}
}

// ID returns the session identifier.
func (s *Session[T]) ID() string { return s.id }

// Kind returns the canonical kind this session edits.
func (s *Session[T]) Kind() model.Kind { return s.kind }

// Draft returns a copy of the current draft.
func (s *Session[T]) Draft() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

// Baseline returns a copy of the baseline the draft is compared against.
func (s *Session[T]) Baseline() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseline.Clone()
}

// BaseRevision returns the revision the baseline was taken from.
func (s *Session[T]) BaseRevision() model.Revision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseRevision
}

// State returns the current merge-guard state.
func (s *Session[T]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Conflicts returns how many background-change warnings have fired.
func (s *Session[T]) Conflicts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conflicts
}

// Edit applies a change to the draft only; the baseline is untouched. The
// apply function receives a copy of the draft and returns the new draft,
// which lets an edit also create a value where none existed (nil live match).
func (s *Session[T]) Edit(apply func(draft T) T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.draft = apply(s.draft.Clone())
	if s.draft.Equal(s.baseline) {
		s.state = StateClean
	} else if s.state == StateClean {
		s.state = StateDirty
	}
	return nil
}

// SetDraft replaces the draft wholesale.
func (s *Session[T]) SetDraft(v T) error {
	return s.Edit(func(T) T { return v.Clone() })
}

// Submit forwards the draft to the gateway. On success the session closes;
// canonical state will arrive through the change bus. On failure the session
// stays open so the editor's input is not lost.
func (s *Session[T]) Submit(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	draft := s.draft.Clone()
	s.mu.Unlock()

	// The gateway call may block on the remote; never hold the lock here or
	// bus fan-out into this session would stall behind the write.
	if err := s.submit(ctx, draft); err != nil {
		metrics.RecordSessionSubmitError(string(s.kind))
		return err
	}
	s.Close()
	return nil
}

// Close tears the session down and detaches it from the bus. Idempotent.
func (s *Session[T]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsub := s.unsub
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// handleRemote is the merge guard. Runs synchronously on bus fan-out.
func (s *Session[T]) handleRemote(ctx context.Context, v T, rev model.Revision) {
	s.mu.Lock()
	if s.closed || rev == s.baseRevision {
		s.mu.Unlock()
		return
	}

	if s.draft.Equal(s.baseline) {
		// No unsaved edits: adopt the remote value outright.
		s.draft = v.Clone()
		s.baseline = v.Clone()
		s.baseRevision = rev
		s.state = StateClean
		s.mu.Unlock()
		return
	}

	// Unsaved edits: keep the draft, refresh only the ground truth, and warn.
	s.baseline = v.Clone()
	s.baseRevision = rev
	s.state = StateDirtyConflict
	s.conflicts++
	onConflict := s.onConflict
	s.mu.Unlock()

	metrics.RecordSessionConflict(string(s.kind))
	s.log().Warn(ctx, "background data changed while editing",
		logger.String("session", s.id),
		logger.String("kind", string(s.kind)),
		logger.Int64("revision", int64(rev)),
	)
	if onConflict != nil {
		onConflict(rev)
	}
}

func (s *Session[T]) log() logger.Logger {
	if s.logger != nil {
		return s.logger
	}
	return logger.Get().Named("session")
}
