package models

import (
	"encoding/json"
	"slices"
	"strconv"
	"time"
)

// TournamentStatus — этапы жизненного цикла турнира. Переходы только вперёд.
type TournamentStatus string

const (
	StatusSetup      TournamentStatus = "setup"
	StatusGroupStage TournamentStatus = "group_stage"
	StatusPlayoffs   TournamentStatus = "playoffs"
	StatusFinished   TournamentStatus = "finished"
)

func (s TournamentStatus) Valid() bool {
	switch s {
	case StatusSetup, StatusGroupStage, StatusPlayoffs, StatusFinished:
		return true
	}
	return false
}

// Group holds exactly three team ids, kept in current standing order, and the three
// round-robin matches between them.
type Group struct {
	ID      string  `json:"id"`
	TeamIDs []int   `json:"teamIds"`
	Matches []Match `json:"matches"`
}

// MatchIndex returns the position of the match in the group or -1.
func (g Group) MatchIndex(matchID int) int {
	for i := range g.Matches {
		if g.Matches[i].ID == matchID {
			return i
		}
	}
	return -1
}

func (g Group) Clone() Group {
	out := Group{ID: g.ID, TeamIDs: slices.Clone(g.TeamIDs), Matches: make([]Match, len(g.Matches))}
	for i, m := range g.Matches {
		out.Matches[i] = m.Clone()
	}
	return out
}

type Playoff struct {
	Quarterfinals []Match `json:"quarterfinals"`
	Semifinals    []Match `json:"semifinals"`
	ThirdPlace    Match   `json:"thirdPlace"`
	Final         Match   `json:"final"`
	ChampionID    *int    `json:"championId,omitempty"`
	ThirdPlaceID  *int    `json:"thirdPlaceId,omitempty"`
}

// Matches lists every playoff match in bracket order: QF, SF, third place, final.
func (p *Playoff) Matches() []Match {
	all := make([]Match, 0, len(p.Quarterfinals)+len(p.Semifinals)+2)
	all = append(all, p.Quarterfinals...)
	all = append(all, p.Semifinals...)
	return append(all, p.ThirdPlace, p.Final)
}

func (p *Playoff) Clone() *Playoff {
	if p == nil {
		return nil
	}
	out := &Playoff{
		Quarterfinals: make([]Match, len(p.Quarterfinals)),
		Semifinals:    make([]Match, len(p.Semifinals)),
		ThirdPlace:    p.ThirdPlace.Clone(),
		Final:         p.Final.Clone(),
	}
	for i, m := range p.Quarterfinals {
		out.Quarterfinals[i] = m.Clone()
	}
	for i, m := range p.Semifinals {
		out.Semifinals[i] = m.Clone()
	}
	if p.ChampionID != nil {
		id := *p.ChampionID
		out.ChampionID = &id
	}
	if p.ThirdPlaceID != nil {
		id := *p.ThirdPlaceID
		out.ThirdPlaceID = &id
	}
	return out
}

// TournamentState is the single unit of truth. Every action consumes one snapshot
// and produces the next; snapshots are treated as immutable once returned.
type TournamentState struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Sport   Sport            `json:"sport"`
	Teams   []Team           `json:"teams"`
	Groups  []Group          `json:"groups"`
	Playoff *Playoff         `json:"playoff"`
	Status  TournamentStatus `json:"status"`
}

// Team returns the team with the given id.
func (s *TournamentState) Team(id int) (Team, bool) {
	if i := FindTeam(s.Teams, id); i >= 0 {
		return s.Teams[i], true
	}
	return Team{}, false
}

// TeamName returns the team's name, or a positional fallback for unknown ids.
func (s *TournamentState) TeamName(id int) string {
	if t, ok := s.Team(id); ok {
		return t.Name
	}
	return "Equipo " + strconv.Itoa(id)
}

// GroupOf returns the index of the group containing the team or -1.
func (s *TournamentState) GroupOf(teamID int) int {
	for i, g := range s.Groups {
		if slices.Contains(g.TeamIDs, teamID) {
			return i
		}
	}
	return -1
}

// AllMatches returns group matches followed by playoff matches.
func (s *TournamentState) AllMatches() []Match {
	var all []Match
	for _, g := range s.Groups {
		all = append(all, g.Matches...)
	}
	if s.Playoff != nil {
		all = append(all, s.Playoff.Matches()...)
	}
	return all
}

// GroupStageComplete reports whether every group match has been played.
func (s *TournamentState) GroupStageComplete() bool {
	if len(s.Groups) == 0 {
		return false
	}
	for _, g := range s.Groups {
		for _, m := range g.Matches {
			if !m.Played {
				return false
			}
		}
	}
	return true
}

// TournamentRecord is a persisted snapshot with its bookkeeping columns.
type TournamentRecord struct {
	ID         string           `json:"id" db:"id"`
	Name       string           `json:"name" db:"name"`
	Sport      Sport            `json:"sport" db:"sport"`
	Status     TournamentStatus `json:"status" db:"status"`
	Version    int              `json:"version" db:"version"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at" db:"updated_at"`
	ArchiveKey *string          `json:"-" db:"archive_key"`
	ArchiveURL *string          `json:"archive_url,omitempty" db:"-"`

	State TournamentState `json:"state" db:"state"`
}

// ActionLogEntry is one applied action in a tournament's history.
type ActionLogEntry struct {
	ID           int64           `json:"id" db:"id"`
	TournamentID string          `json:"tournament_id" db:"tournament_id"`
	Version      int             `json:"version" db:"version"`
	ActionType   string          `json:"action_type" db:"action_type"`
	Payload      json.RawMessage `json:"payload" db:"payload"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}
