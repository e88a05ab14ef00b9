// Package model contains domain models passed between layers.
package model

import "strings"

// Kind identifies one of the two canonical values held by the store.
type Kind string

// Canonical value kinds.
const (
	KindLiveMatch Kind = "live_match"
	KindStandings Kind = "standings"
)

// Revision is a per-kind monotonically increasing counter. It advances by
// exactly one on every successful replace, including no-op writes.
type Revision int64

// MatchType values accepted on a live match.
const (
	MatchTypeNone       = ""
	MatchTypeGroupStage = "Group Stage"
	MatchTypeQualifier  = "Qualifier"
	MatchTypeExhibition = "Exhibition"
	MatchTypeSemiFinal  = "Semi-Final"
	MatchTypeFinal      = "Final"
)

// KnownMatchType reports whether mt is one of the accepted match types.
func KnownMatchType(mt string) bool {
	switch mt {
	case MatchTypeNone, MatchTypeGroupStage, MatchTypeQualifier,
		MatchTypeExhibition, MatchTypeSemiFinal, MatchTypeFinal:
		return true
	}
	return false
}

// LiveMatch is the singleton live-match record. A nil *LiveMatch is the
// "no match in progress" state; clearing and absence are the same state.
type LiveMatch struct {
	MatchNo            int    `json:"matchNo,omitempty"`
	Team1              string `json:"team1"`
	Team1SetScore      int    `json:"team1SetScore"`
	Team1CurrentPoints int    `json:"team1CurrentPoints"`
	Team2              string `json:"team2"`
	Team2SetScore      int    `json:"team2SetScore"`
	Team2CurrentPoints int    `json:"team2CurrentPoints"`
	Status             string `json:"status"`
	MatchType          string `json:"matchType"`
}

// InProgress reports whether the match counts as in progress. Both an empty
// status and "live" mean in progress.
func (m *LiveMatch) InProgress() bool {
	if m == nil {
		return false
	}
	s := strings.TrimSpace(strings.ToLower(m.Status))
	return s == "" || s == "live"
}

// Clone returns a value copy, preserving nil.
func (m *LiveMatch) Clone() *LiveMatch {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}

// Equal reports field-for-field equality, treating two nils as equal.
func (m *LiveMatch) Equal(o *LiveMatch) bool {
	if m == nil || o == nil {
		return m == o
	}
	return *m == *o
}

// TeamStanding is one team's row in a group table. Identity key is Name.
type TeamStanding struct {
	Name          string `json:"name"`
	MatchesPlayed int    `json:"matchesPlayed"`
	Wins          int    `json:"wins"`
	Losses        int    `json:"losses"`
	SetsWon       int    `json:"setsWon"`
	SetsLost      int    `json:"setsLost"`
	Points        int    `json:"points"`
	BreakPoints   int    `json:"breakPoints"`
}

// NewTeamStanding returns a zeroed row for a team, as used when standings are
// first initialized from the configured rosters.
func NewTeamStanding(name string) TeamStanding {
	return TeamStanding{Name: name}
}

// GroupKey identifies one of the two groups.
type GroupKey string

// Group keys as they appear on the wire.
const (
	GroupA GroupKey = "A"
	GroupB GroupKey = "B"
)

// GroupStandings holds both group tables. Stored order carries no meaning;
// display order is always derived by the ranking engine.
type GroupStandings struct {
	GroupA []TeamStanding `json:"groupA"`
	GroupB []TeamStanding `json:"groupB"`
}

// Clone returns a deep copy, preserving nil.
func (g *GroupStandings) Clone() *GroupStandings {
	if g == nil {
		return nil
	}
	c := &GroupStandings{}
	if g.GroupA != nil {
		c.GroupA = make([]TeamStanding, len(g.GroupA))
		copy(c.GroupA, g.GroupA)
	}
	if g.GroupB != nil {
		c.GroupB = make([]TeamStanding, len(g.GroupB))
		copy(c.GroupB, g.GroupB)
	}
	return c
}

// Equal reports field-for-field equality including row order, treating two
// nils as equal. Row order matters here on purpose: the store ranks before
// storing, so equal-and-ranked means truly unchanged.
func (g *GroupStandings) Equal(o *GroupStandings) bool {
	if g == nil || o == nil {
		return g == o
	}
	return equalRows(g.GroupA, o.GroupA) && equalRows(g.GroupB, o.GroupB)
}

func equalRows(a, b []TeamStanding) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Event is what the change bus delivers on every store replace. Exactly one
// of LiveMatch or Standings is meaningful, selected by Kind.
type Event struct {
	Kind      Kind
	Revision  Revision
	LiveMatch *LiveMatch
	Standings *GroupStandings
}
