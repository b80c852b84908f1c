package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Dosada05/tournament-manager/csvio"
	"github.com/Dosada05/tournament-manager/models"
	"github.com/Dosada05/tournament-manager/standings"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

type summary struct {
	Name     string         `yaml:"name"`
	Sport    models.Sport   `yaml:"sport"`
	Status   string         `yaml:"status"`
	Groups   []groupSummary `yaml:"groups"`
	Playoff  []matchSummary `yaml:"playoff,omitempty"`
	Champion string         `yaml:"champion,omitempty"`
	FairPlay []string       `yaml:"fair_play"`
}

type groupSummary struct {
	Group   string         `yaml:"group"`
	Table   []tableRow     `yaml:"table"`
	Matches []matchSummary `yaml:"matches"`
}

type tableRow struct {
	Rank   int    `yaml:"rank"`
	ID     int    `yaml:"id"`
	Team   string `yaml:"team"`
	Points int    `yaml:"points"`
	Played int    `yaml:"played"`
	Diff   int    `yaml:"diff"`
	Cards  int    `yaml:"green_cards"`
}

type matchSummary struct {
	ID     int    `yaml:"id"`
	Round  string `yaml:"round,omitempty"`
	Home   string `yaml:"home"`
	Away   string `yaml:"away"`
	Result string `yaml:"result"`
}

func showAction(cCtx *cli.Context) error {
	state, err := loadState(cCtx.String(stateFlag))
	if err != nil {
		return err
	}

	var out io.Writer = cCtx.App.Writer
	if target := cCtx.String("output"); target != stdoutCLIName {
		f, err := os.Create(target)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	switch format := cCtx.String("format"); format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	case "csv":
		return csvio.Export(out, &state, ranking(cCtx))
	case "yaml":
		yamlEncoder := yaml.NewEncoder(out)
		yamlEncoder.SetIndent(2)
		if err := yamlEncoder.Encode(summarize(&state, ranking(cCtx))); err != nil {
			return fmt.Errorf("encoding to YAML failed: %w", err)
		}
		return yamlEncoder.Close()
	default:
		return fmt.Errorf("unknown format %q, want yaml, json or csv", format)
	}
}

func summarize(state *models.TournamentState, opts standings.Options) summary {
	s := summary{Name: state.Name, Sport: state.Sport, Status: string(state.Status)}

	view := standings.View(state, opts)
	for i, table := range view.Groups {
		g := groupSummary{Group: table.GroupID}
		for _, row := range table.Rows {
			diff := row.GoalDifference
			if state.Sport.IsNetSet() {
				diff = row.SetDifference
			}
			g.Table = append(g.Table, tableRow{
				Rank: row.Rank, ID: row.TeamID, Team: row.Name,
				Points: row.Points, Played: row.Played, Diff: diff, Cards: row.GreenCards,
			})
		}
		for _, m := range state.Groups[i].Matches {
			g.Matches = append(g.Matches, summarizeMatch(state, m))
		}
		s.Groups = append(s.Groups, g)
	}

	if p := state.Playoff; p != nil {
		for _, m := range p.Matches() {
			s.Playoff = append(s.Playoff, summarizeMatch(state, m))
		}
		if p.ChampionID != nil {
			s.Champion = state.TeamName(*p.ChampionID)
		}
	}

	for _, row := range view.FairPlay {
		s.FairPlay = append(s.FairPlay, fmt.Sprintf("%s (%d)", row.Name, row.GreenCards))
	}
	return s
}

func summarizeMatch(state *models.TournamentState, m models.Match) matchSummary {
	ms := matchSummary{ID: m.ID, Round: string(m.Round), Home: "TBD", Away: "TBD", Result: "pending"}
	if m.Team1ID != models.NoTeam {
		ms.Home = state.TeamName(m.Team1ID)
	}
	if m.Team2ID != models.NoTeam {
		ms.Away = state.TeamName(m.Team2ID)
	}
	if m.Played {
		ms.Result = fmt.Sprintf("%d-%d", m.Team1Score, m.Team2Score)
	}
	return ms
}
