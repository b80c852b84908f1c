package models

import "slices"

// NoTeam marks a playoff slot that has not been filled yet.
const NoTeam = 0

type Round string

const (
	RoundQuarterfinal Round = "QF"
	RoundSemifinal    Round = "SF"
	RoundThirdPlace   Round = "3P"
	RoundFinal        Round = "F"
)

type MatchType string

const (
	MatchTypeGroup   MatchType = "group"
	MatchTypePlayoff MatchType = "playoff"
)

func (t MatchType) Valid() bool {
	return t == MatchTypeGroup || t == MatchTypePlayoff
}

type Match struct {
	ID              int   `json:"id"`
	Team1ID         int   `json:"team1Id"`
	Team2ID         int   `json:"team2Id"`
	Team1Score      int   `json:"team1Score"`
	Team2Score      int   `json:"team2Score"`
	Team1GreenCards int   `json:"team1GreenCards"`
	Team2GreenCards int   `json:"team2GreenCards"`
	Team1SetScores  []int `json:"team1SetScores"`
	Team2SetScores  []int `json:"team2SetScores"`
	Played          bool  `json:"played"`
	Round           Round `json:"round,omitempty"`
}

// NewMatch returns an unplayed fixture with zero scores.
func NewMatch(id, team1ID, team2ID int, round Round) Match {
	return Match{
		ID:             id,
		Team1ID:        team1ID,
		Team2ID:        team2ID,
		Team1SetScores: []int{},
		Team2SetScores: []int{},
		Round:          round,
	}
}

// Ready reports whether both slots hold a team.
func (m Match) Ready() bool {
	return m.Team1ID != NoTeam && m.Team2ID != NoTeam
}

// Involves reports whether the team plays in this match.
func (m Match) Involves(teamID int) bool {
	return teamID != NoTeam && (m.Team1ID == teamID || m.Team2ID == teamID)
}

// Opponent returns the other participant, or NoTeam if teamID is not in the match.
func (m Match) Opponent(teamID int) int {
	switch teamID {
	case m.Team1ID:
		return m.Team2ID
	case m.Team2ID:
		return m.Team1ID
	default:
		return NoTeam
	}
}

// Clone returns a copy that shares no slices with m.
func (m Match) Clone() Match {
	m.Team1SetScores = slices.Clone(m.Team1SetScores)
	m.Team2SetScores = slices.Clone(m.Team2SetScores)
	return m
}

// ScoreInput is the payload of a result entry. For volleyball the set sequences are
// authoritative and the set-win counts are derived from them.
type ScoreInput struct {
	Team1Score      int   `json:"team1Score"`
	Team2Score      int   `json:"team2Score"`
	Team1GreenCards int   `json:"team1GreenCards"`
	Team2GreenCards int   `json:"team2GreenCards"`
	Team1SetScores  []int `json:"team1SetScores,omitempty"`
	Team2SetScores  []int `json:"team2SetScores,omitempty"`
}
