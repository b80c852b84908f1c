// Package standings recomputes group records from match results and orders teams
// under the tie-break rules of each sport. Everything here is a pure function of
// its input.
package standings

import (
	"cmp"
	"slices"
	"strings"

	"github.com/Dosada05/tournament-manager/models"
)

// Points awarded per match.
const (
	PointsWin  = 3
	PointsDraw = 1
	PointsLoss = 0
)

// FairPlay sets the direction of the green card tie-break.
type FairPlay int

const (
	// FewerCardsFirst ranks the team with fewer green cards higher.
	FewerCardsFirst FairPlay = iota
	// MoreCardsFirst ranks the team with more green cards higher.
	MoreCardsFirst
)

func (f FairPlay) String() string {
	if f == MoreCardsFirst {
		return "more_cards_first"
	}
	return "fewer_cards_first"
}

// Options configure the comparator. The same Options value is used for the live
// group ranking and for the cross-group seeding pass.
type Options struct {
	FairPlay FairPlay
}

// Compare orders a before b when it returns a negative number. Precedence: points,
// sport metrics, green cards, name, id. Two distinct teams never compare equal.
func Compare(a, b models.Team, sport models.Sport, opts Options) int {
	if c := cmp.Compare(b.Points, a.Points); c != 0 {
		return c
	}
	if sport.IsNetSet() {
		if c := cmp.Compare(b.SetDifference, a.SetDifference); c != 0 {
			return c
		}
		if c := cmp.Compare(b.PointsDifference, a.PointsDifference); c != 0 {
			return c
		}
		if c := cmp.Compare(b.PointsFor, a.PointsFor); c != 0 {
			return c
		}
	} else {
		if c := cmp.Compare(b.GoalDifference, a.GoalDifference); c != 0 {
			return c
		}
		if c := cmp.Compare(b.GoalsFor, a.GoalsFor); c != 0 {
			return c
		}
	}
	if a.GreenCards != b.GreenCards {
		if opts.FairPlay == MoreCardsFirst {
			return cmp.Compare(b.GreenCards, a.GreenCards)
		}
		return cmp.Compare(a.GreenCards, b.GreenCards)
	}
	if c := strings.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Rank returns a new slice with the teams in ranking order. The input is not modified.
func Rank(teams []models.Team, sport models.Sport, opts Options) []models.Team {
	ranked := slices.Clone(teams)
	slices.SortStableFunc(ranked, func(a, b models.Team) int {
		return Compare(a, b, sport, opts)
	})
	return ranked
}

// Compute rebuilds the records of the given teams from scratch by walking every
// played match in order. Matches involving a team outside teamIDs are skipped.
func Compute(teamIDs []int, matches []models.Match, sport models.Sport) map[int]models.Record {
	records := make(map[int]*models.Record, len(teamIDs))
	for _, id := range teamIDs {
		records[id] = &models.Record{}
	}

	for _, m := range matches {
		if !m.Played {
			continue
		}
		r1, ok1 := records[m.Team1ID]
		r2, ok2 := records[m.Team2ID]
		if !ok1 || !ok2 {
			continue
		}
		r1.Played++
		r2.Played++

		if sport.IsNetSet() {
			applySets(r1, r2, m)
		} else {
			applyGoals(r1, r2, m)
		}
	}

	out := make(map[int]models.Record, len(records))
	for id, r := range records {
		r.GoalDifference = r.GoalsFor - r.GoalsAgainst
		r.SetDifference = r.SetsWon - r.SetsLost
		r.PointsDifference = r.PointsFor - r.PointsAgainst
		out[id] = *r
	}
	return out
}

func applyGoals(r1, r2 *models.Record, m models.Match) {
	r1.GoalsFor += m.Team1Score
	r1.GoalsAgainst += m.Team2Score
	r2.GoalsFor += m.Team2Score
	r2.GoalsAgainst += m.Team1Score

	switch {
	case m.Team1Score > m.Team2Score:
		r1.Wins++
		r2.Losses++
		r1.Points += PointsWin
		r2.Points += PointsLoss
	case m.Team1Score < m.Team2Score:
		r2.Wins++
		r1.Losses++
		r2.Points += PointsWin
		r1.Points += PointsLoss
	default:
		r1.Draws++
		r2.Draws++
		r1.Points += PointsDraw
		r2.Points += PointsDraw
	}
}

// applySets expects Team1Score/Team2Score to hold sets won. A drawn set count cannot
// be entered through the engine; if one is present the second side takes the match.
func applySets(r1, r2 *models.Record, m models.Match) {
	r1.SetsWon += m.Team1Score
	r1.SetsLost += m.Team2Score
	r2.SetsWon += m.Team2Score
	r2.SetsLost += m.Team1Score

	p1, p2 := sum(m.Team1SetScores), sum(m.Team2SetScores)
	r1.PointsFor += p1
	r1.PointsAgainst += p2
	r2.PointsFor += p2
	r2.PointsAgainst += p1

	if m.Team1Score > m.Team2Score {
		r1.Wins++
		r2.Losses++
		r1.Points += PointsWin
	} else {
		r2.Wins++
		r1.Losses++
		r2.Points += PointsWin
	}
}

// GreenCards totals the cards of every played match per team.
func GreenCards(matches []models.Match) map[int]int {
	totals := make(map[int]int)
	for _, m := range matches {
		if !m.Played {
			continue
		}
		if m.Team1ID != models.NoTeam {
			totals[m.Team1ID] += m.Team1GreenCards
		}
		if m.Team2ID != models.NoTeam {
			totals[m.Team2ID] += m.Team2GreenCards
		}
	}
	return totals
}

func sum(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}
