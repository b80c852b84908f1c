package brackets

import (
	"fmt"

	"github.com/Dosada05/tournament-manager/models"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() *RoundRobinGenerator {
	return &RoundRobinGenerator{}
}

// Generate creates a single round robin: each team plays every other team once.
// Pairs follow seed order (0,1), (0,2), (1,2), ... and ids are assigned
// sequentially from firstMatchID.
func (g *RoundRobinGenerator) Generate(teamIDs []int, firstMatchID int) ([]models.Match, error) {
	if len(teamIDs) < 2 {
		return nil, fmt.Errorf("round robin: not enough teams (found %d, min 2 required)", len(teamIDs))
	}

	matches := make([]models.Match, 0, len(teamIDs)*(len(teamIDs)-1)/2)
	matchID := firstMatchID
	for i := 0; i < len(teamIDs); i++ {
		for j := i + 1; j < len(teamIDs); j++ {
			matches = append(matches, models.NewMatch(matchID, teamIDs[i], teamIDs[j], ""))
			matchID++
		}
	}
	return matches, nil
}
