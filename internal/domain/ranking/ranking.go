// Package ranking computes the display order of group standings.
//
// Ranking is a pure function over team rows: callers pass a snapshot and get
// a new, ordered slice back. The tournament tie-break rules, in order:
//
//  1. points, descending
//  2. wins, descending
//  3. break points (aggregate point differential), descending
//  4. team name, ascending
//
// The final name tie-break makes the order total, so any two permutations of
// the same rows rank identically.
package ranking

import (
	"sort"

	"github.com/okian/rallyboard/internal/domain/model"
)

// Rank returns teams in display order. The input slice is never mutated.
// Ranking is idempotent: Rank(Rank(x)) == Rank(x).
func Rank(teams []model.TeamStanding) []model.TeamStanding {
	ranked := make([]model.TeamStanding, len(teams))
	copy(ranked, teams)
	sort.SliceStable(ranked, func(i, j int) bool {
		return Less(ranked[i], ranked[j])
	})
	return ranked
}

// Less reports whether a ranks strictly ahead of b under the tie-break rules.
func Less(a, b model.TeamStanding) bool {
	if a.Points != b.Points {
		return a.Points > b.Points
	}
	if a.Wins != b.Wins {
		return a.Wins > b.Wins
	}
	if a.BreakPoints != b.BreakPoints {
		return a.BreakPoints > b.BreakPoints
	}
	return a.Name < b.Name
}

// RankGroups returns a copy of g with both group tables ranked. Nil in, nil out.
func RankGroups(g *model.GroupStandings) *model.GroupStandings {
	if g == nil {
		return nil
	}
	return &model.GroupStandings{
		GroupA: Rank(g.GroupA),
		GroupB: Rank(g.GroupB),
	}
}
