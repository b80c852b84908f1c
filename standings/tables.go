package standings

import (
	"cmp"
	"slices"
	"strings"

	"github.com/Dosada05/tournament-manager/models"
)

// GroupTeams joins the group's team ids against the team store, keeping group order.
// Unknown ids are skipped.
func GroupTeams(state *models.TournamentState, g models.Group) []models.Team {
	teams := make([]models.Team, 0, len(g.TeamIDs))
	for _, id := range g.TeamIDs {
		if t, ok := state.Team(id); ok {
			teams = append(teams, t)
		}
	}
	return teams
}

// Leaders returns the ranked group winners and the ranked runners-up.
func Leaders(state *models.TournamentState, opts Options) (winners, runnersUp []models.Team) {
	for _, g := range state.Groups {
		ranked := Rank(GroupTeams(state, g), state.Sport, opts)
		if len(ranked) > 0 {
			winners = append(winners, ranked[0])
		}
		if len(ranked) > 1 {
			runnersUp = append(runnersUp, ranked[1])
		}
	}
	return Rank(winners, state.Sport, opts), Rank(runnersUp, state.Sport, opts)
}

// View builds every standings table of the tournament.
func View(state *models.TournamentState, opts Options) models.StandingsView {
	view := models.StandingsView{
		TournamentID: state.ID,
		Sport:        state.Sport,
		Groups:       make([]models.GroupTable, 0, len(state.Groups)),
	}
	for _, g := range state.Groups {
		ranked := Rank(GroupTeams(state, g), state.Sport, opts)
		view.Groups = append(view.Groups, models.GroupTable{
			GroupID: g.ID,
			Rows:    rows(state, ranked),
		})
	}

	winners, runnersUp := Leaders(state, opts)
	view.Winners = rows(state, winners)
	view.RunnersUp = rows(state, runnersUp)
	view.FairPlay = FairPlayTable(state)
	return view
}

// FairPlayTable lists every team by green cards, most first, then by name.
func FairPlayTable(state *models.TournamentState) []models.TournamentStanding {
	teams := slices.Clone(state.Teams)
	slices.SortStableFunc(teams, func(a, b models.Team) int {
		if c := cmp.Compare(b.GreenCards, a.GreenCards); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return rows(state, teams)
}

func rows(state *models.TournamentState, teams []models.Team) []models.TournamentStanding {
	out := make([]models.TournamentStanding, 0, len(teams))
	for i, t := range teams {
		row := models.TournamentStanding{
			Rank:       i + 1,
			TeamID:     t.ID,
			Name:       t.Name,
			Record:     t.Record,
			GreenCards: t.GreenCards,
		}
		if gi := state.GroupOf(t.ID); gi >= 0 {
			row.GroupID = state.Groups[gi].ID
		}
		out = append(out, row)
	}
	return out
}
