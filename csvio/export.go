package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/Dosada05/tournament-manager/models"
	"github.com/Dosada05/tournament-manager/standings"
)

var (
	generalHeaders    = []string{"Equipo", "Pts", "PJ", "G", "E", "P", "DG", "GF", "GC", "T. Verdes"}
	volleyballHeaders = []string{"Equipo", "Pts", "PJ", "G", "P", "DS", "DP", "T. Verdes"}
)

// FileName is the download name of a tournament's export.
func FileName(state *models.TournamentState) string {
	name := []rune(state.Name)
	for i, r := range name {
		if r == ' ' {
			name[i] = '_'
		}
	}
	return string(name) + "_datos.csv"
}

// Export writes the group tables and, once generated, the playoff results.
func Export(w io.Writer, state *models.TournamentState, opts standings.Options) error {
	cw := csv.NewWriter(w)

	write := func(record ...string) {
		// csv.Writer keeps the first error and reports it from Error.
		_ = cw.Write(record)
	}

	write("FASE DE GRUPOS")
	write()
	for _, g := range state.Groups {
		write(g.ID)
		if state.Sport.IsNetSet() {
			write(volleyballHeaders...)
		} else {
			write(generalHeaders...)
		}
		for _, t := range standings.Rank(standings.GroupTeams(state, g), state.Sport, opts) {
			write(teamRow(t, state.Sport)...)
		}
		write()
	}

	if p := state.Playoff; p != nil {
		write("ELIMINATORIAS")
		write()
		write("Ronda", "Partido", "Resultado")
		rounds := []struct {
			label   string
			matches []models.Match
		}{
			{"Cuartos de Final", p.Quarterfinals},
			{"Semifinales", p.Semifinals},
			{"3er y 4to Puesto", []models.Match{p.ThirdPlace}},
			{"Final", []models.Match{p.Final}},
		}
		for _, round := range rounds {
			for _, m := range round.matches {
				if !m.Ready() {
					continue
				}
				result := "Pendiente"
				if m.Played {
					result = fmt.Sprintf("%d - %d", m.Team1Score, m.Team2Score)
				}
				write(round.label, fmt.Sprintf("%s vs %s", state.TeamName(m.Team1ID), state.TeamName(m.Team2ID)), result)
			}
		}
		if p.ChampionID != nil {
			write()
			write("CAMPEÓN", state.TeamName(*p.ChampionID))
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write csv export: %w", err)
	}
	return nil
}

func teamRow(t models.Team, sport models.Sport) []string {
	itoa := strconv.Itoa
	if sport.IsNetSet() {
		return []string{t.Name, itoa(t.Points), itoa(t.Played), itoa(t.Wins), itoa(t.Losses),
			itoa(t.SetDifference), itoa(t.PointsDifference), itoa(t.GreenCards)}
	}
	return []string{t.Name, itoa(t.Points), itoa(t.Played), itoa(t.Wins), itoa(t.Draws), itoa(t.Losses),
		itoa(t.GoalDifference), itoa(t.GoalsFor), itoa(t.GoalsAgainst), itoa(t.GreenCards)}
}
