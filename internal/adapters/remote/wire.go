package remote

import (
	"fmt"
	"strings"

	"github.com/okian/rallyboard/internal/domain/model"
)

// LiveMatchRow is the live match as it travels on the wire. Numeric fields
// are pointers so a backend null decodes distinctly and defaults to zero.
type LiveMatchRow struct {
	MatchNo            *int   `json:"match_no,omitempty"`
	Team1              string `json:"team1"`
	Team1SetScore      *int   `json:"team1_set_score"`
	Team1CurrentPoints *int   `json:"team1_current_points"`
	Team2              string `json:"team2"`
	Team2SetScore      *int   `json:"team2_set_score"`
	Team2CurrentPoints *int   `json:"team2_current_points"`
	Status             string `json:"status"`
	MatchType          string `json:"match_type"`
}

// StandingRow is one team's table row on the wire, tagged with its group.
type StandingRow struct {
	GroupKey      string `json:"group_key"`
	Name          string `json:"name"`
	MatchesPlayed *int   `json:"matches_played"`
	Wins          *int   `json:"wins"`
	Losses        *int   `json:"losses"`
	SetsWon       *int   `json:"sets_won"`
	SetsLost      *int   `json:"sets_lost"`
	Points        *int   `json:"points"`
	BreakPoints   *int   `json:"break_points"`
}

// SnapshotPayload is the full-state reply to a snapshot request.
type SnapshotPayload struct {
	LiveMatch *LiveMatchRow `json:"live_match"`
	Standings []StandingRow `json:"standings"`
}

// EncodeLiveMatch maps the in-process model onto the wire row. Nil encodes
// as an all-zero row, which is how the backend represents "cleared".
func EncodeLiveMatch(v *model.LiveMatch) LiveMatchRow {
	if v == nil {
		v = &model.LiveMatch{}
	}
	return LiveMatchRow{
		MatchNo:            intPtr(v.MatchNo),
		Team1:              v.Team1,
		Team1SetScore:      intPtr(v.Team1SetScore),
		Team1CurrentPoints: intPtr(v.Team1CurrentPoints),
		Team2:              v.Team2,
		Team2SetScore:      intPtr(v.Team2SetScore),
		Team2CurrentPoints: intPtr(v.Team2CurrentPoints),
		Status:             v.Status,
		MatchType:          v.MatchType,
	}
}

// DecodeLiveMatch maps a wire row onto the model. A nil row or an all-empty
// row (the backend's cleared state) decodes to nil.
func DecodeLiveMatch(row *LiveMatchRow) *model.LiveMatch {
	if row == nil {
		return nil
	}
	m := &model.LiveMatch{
		MatchNo:            intVal(row.MatchNo),
		Team1:              row.Team1,
		Team1SetScore:      intVal(row.Team1SetScore),
		Team1CurrentPoints: intVal(row.Team1CurrentPoints),
		Team2:              row.Team2,
		Team2SetScore:      intVal(row.Team2SetScore),
		Team2CurrentPoints: intVal(row.Team2CurrentPoints),
		Status:             row.Status,
		MatchType:          row.MatchType,
	}
	if (*m == model.LiveMatch{}) {
		return nil
	}
	return m
}

// EncodeStandings flattens both groups into tagged wire rows.
func EncodeStandings(groupA, groupB []model.TeamStanding) []StandingRow {
	rows := make([]StandingRow, 0, len(groupA)+len(groupB))
	for _, t := range groupA {
		rows = append(rows, encodeStandingRow(model.GroupA, t))
	}
	for _, t := range groupB {
		rows = append(rows, encodeStandingRow(model.GroupB, t))
	}
	return rows
}

// DecodeStandings groups tagged wire rows back into the model. Rows with a
// missing name or an unknown group key make the whole payload a schema error;
// a partially applied standings table would be worse than a dropped update.
func DecodeStandings(rows []StandingRow) (*model.GroupStandings, error) {
	g := &model.GroupStandings{
		GroupA: []model.TeamStanding{},
		GroupB: []model.TeamStanding{},
	}
	for i, row := range rows {
		if strings.TrimSpace(row.Name) == "" {
			return nil, fmt.Errorf("%w: standings row %d has no name", ErrSchema, i)
		}
		t := model.TeamStanding{
			Name:          row.Name,
			MatchesPlayed: intVal(row.MatchesPlayed),
			Wins:          intVal(row.Wins),
			Losses:        intVal(row.Losses),
			SetsWon:       intVal(row.SetsWon),
			SetsLost:      intVal(row.SetsLost),
			Points:        intVal(row.Points),
			BreakPoints:   intVal(row.BreakPoints),
		}
		switch model.GroupKey(strings.ToUpper(strings.TrimSpace(row.GroupKey))) {
		case model.GroupA:
			g.GroupA = append(g.GroupA, t)
		case model.GroupB:
			g.GroupB = append(g.GroupB, t)
		default:
			return nil, fmt.Errorf("%w: standings row %d has unknown group key %q", ErrSchema, i, row.GroupKey)
		}
	}
	return g, nil
}

// DecodeSnapshot maps a full-state payload onto the boundary Snapshot. An
// absent standings list decodes to nil standings, the cold "no data yet"
// state the service seeds from its configured rosters.
func DecodeSnapshot(p SnapshotPayload) (Snapshot, error) {
	snap := Snapshot{LiveMatch: DecodeLiveMatch(p.LiveMatch)}
	if p.Standings == nil {
		return snap, nil
	}
	standings, err := DecodeStandings(p.Standings)
	if err != nil {
		return Snapshot{}, err
	}
	snap.Standings = standings
	return snap, nil
}

func encodeStandingRow(key model.GroupKey, t model.TeamStanding) StandingRow {
	return StandingRow{
		GroupKey:      string(key),
		Name:          t.Name,
		MatchesPlayed: intPtr(t.MatchesPlayed),
		Wins:          intPtr(t.Wins),
		Losses:        intPtr(t.Losses),
		SetsWon:       intPtr(t.SetsWon),
		SetsLost:      intPtr(t.SetsLost),
		Points:        intPtr(t.Points),
		BreakPoints:   intPtr(t.BreakPoints),
	}
}

func intPtr(v int) *int  { return &v }
func intVal(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
