package brackets

import (
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-manager/models"
)

var (
	ErrNotEnoughQualifiers = errors.New("not enough qualified teams to generate the playoff bracket")
	ErrDownstreamDecided   = errors.New("a later playoff match fed by this result has already been played")
)

// seed points at a qualifier by its 1-based overall rank, either among the group
// winners or among the wildcards (best runners-up).
type seed struct {
	wildcard bool
	rank     int
}

// quarterfinalSeeds is the fixed bracket: 1 vs 8, 4 vs 5, 2 vs 7, 3 vs 6 where the
// wildcards take the 7th and 8th seeds.
var quarterfinalSeeds = [4][2]seed{
	{{rank: 1}, {wildcard: true, rank: 2}},
	{{rank: 4}, {rank: 5}},
	{{rank: 2}, {wildcard: true, rank: 1}},
	{{rank: 3}, {rank: 6}},
}

// slot is a side of a downstream match: index into its round, side 1 or 2.
type slot struct {
	match int
	side  int
}

var (
	// QF i feeds semifinal i/2; even quarterfinals fill team1, odd ones team2.
	quarterfinalWinnerTo = [4]slot{{0, 1}, {0, 2}, {1, 1}, {1, 2}}
	// Semifinal winners go to the final, losers to the third-place match, same side.
	semifinalWinnerTo = [2]int{1, 2}
	semifinalLoserTo  = [2]int{1, 2}
)

// SeedPlayoff builds the bracket from the ranked group winners and wildcards
// (team ids, best first). Semifinals, third place and final start empty.
func SeedPlayoff(winners, wildcards []int, firstMatchID int) (*models.Playoff, error) {
	if len(winners) < WinnersQualified || len(wildcards) < WildcardsQualified {
		return nil, fmt.Errorf("%w: %d group winners, %d wildcards", ErrNotEnoughQualifiers, len(winners), len(wildcards))
	}

	pick := func(s seed) int {
		if s.wildcard {
			return wildcards[s.rank-1]
		}
		return winners[s.rank-1]
	}

	matchID := firstMatchID
	next := func() int {
		id := matchID
		matchID++
		return id
	}

	p := &models.Playoff{
		Quarterfinals: make([]models.Match, 0, len(quarterfinalSeeds)),
		Semifinals:    make([]models.Match, 0, 2),
	}
	for _, pair := range quarterfinalSeeds {
		p.Quarterfinals = append(p.Quarterfinals, models.NewMatch(next(), pick(pair[0]), pick(pair[1]), models.RoundQuarterfinal))
	}
	for range 2 {
		p.Semifinals = append(p.Semifinals, models.NewMatch(next(), models.NoTeam, models.NoTeam, models.RoundSemifinal))
	}
	p.ThirdPlace = models.NewMatch(next(), models.NoTeam, models.NoTeam, models.RoundThirdPlace)
	p.Final = models.NewMatch(next(), models.NoTeam, models.NoTeam, models.RoundFinal)
	return p, nil
}

// MatchRef locates a playoff match.
type MatchRef struct {
	Round models.Round
	Index int
}

// Locate finds the match with the given id in the bracket.
func Locate(p *models.Playoff, matchID int) (MatchRef, bool) {
	if p == nil {
		return MatchRef{}, false
	}
	for i, m := range p.Quarterfinals {
		if m.ID == matchID {
			return MatchRef{models.RoundQuarterfinal, i}, true
		}
	}
	for i, m := range p.Semifinals {
		if m.ID == matchID {
			return MatchRef{models.RoundSemifinal, i}, true
		}
	}
	if p.ThirdPlace.ID == matchID {
		return MatchRef{models.RoundThirdPlace, 0}, true
	}
	if p.Final.ID == matchID {
		return MatchRef{models.RoundFinal, 0}, true
	}
	return MatchRef{}, false
}

// Match returns a pointer to the referenced match inside p.
func Match(p *models.Playoff, ref MatchRef) *models.Match {
	switch ref.Round {
	case models.RoundQuarterfinal:
		return &p.Quarterfinals[ref.Index]
	case models.RoundSemifinal:
		return &p.Semifinals[ref.Index]
	case models.RoundThirdPlace:
		return &p.ThirdPlace
	case models.RoundFinal:
		return &p.Final
	}
	return nil
}

// CheckAdvance reports ErrDownstreamDecided when deciding ref with this winner
// and loser would replace a team in a match that is already played.
// Re-entering a result with the same outcome is always allowed.
func CheckAdvance(p *models.Playoff, ref MatchRef, winnerID, loserID int) error {
	switch ref.Round {
	case models.RoundQuarterfinal:
		to := quarterfinalWinnerTo[ref.Index]
		if err := checkSide(&p.Semifinals[to.match], to.side, winnerID); err != nil {
			return err
		}
	case models.RoundSemifinal:
		if err := checkSide(&p.Final, semifinalWinnerTo[ref.Index], winnerID); err != nil {
			return err
		}
		if err := checkSide(&p.ThirdPlace, semifinalLoserTo[ref.Index], loserID); err != nil {
			return err
		}
	}
	return nil
}

func checkSide(m *models.Match, side, teamID int) error {
	current := m.Team2ID
	if side == 1 {
		current = m.Team1ID
	}
	if m.Played && current != teamID {
		return fmt.Errorf("%w: match %d", ErrDownstreamDecided, m.ID)
	}
	return nil
}

// Advance propagates a decided match through the bracket. p is modified in place,
// so callers pass a copy. It reports whether the tournament is now decided.
func Advance(p *models.Playoff, ref MatchRef, winnerID, loserID int) (finished bool) {
	switch ref.Round {
	case models.RoundQuarterfinal:
		to := quarterfinalWinnerTo[ref.Index]
		setSide(&p.Semifinals[to.match], to.side, winnerID)
	case models.RoundSemifinal:
		setSide(&p.Final, semifinalWinnerTo[ref.Index], winnerID)
		setSide(&p.ThirdPlace, semifinalLoserTo[ref.Index], loserID)
	case models.RoundThirdPlace:
		id := winnerID
		p.ThirdPlaceID = &id
	case models.RoundFinal:
		id := winnerID
		p.ChampionID = &id
		return true
	}
	return false
}

func setSide(m *models.Match, side, teamID int) {
	if side == 1 {
		m.Team1ID = teamID
	} else {
		m.Team2ID = teamID
	}
}
