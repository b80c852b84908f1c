package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Dosada05/tournament-manager/csvio"
	"github.com/Dosada05/tournament-manager/engine"
	"github.com/Dosada05/tournament-manager/models"
	"github.com/Dosada05/tournament-manager/standings"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

const (
	stateFlag          = "state"
	moreCardsFirstFlag = "more-cards-first"
	stdoutCLIName      = "-"
)

func newApp(stdout io.Writer) *cli.App {
	return &cli.App{
		Name:    "cupctl",
		Usage:   "Run an 18-team group and playoff tournament from a local state file",
		Version: semanticVersion,
		Writer:  stdout,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    stateFlag,
				Aliases: []string{"s"},
				Usage:   "Path to the tournament state JSON file",
				Value:   "tournament.json",
				EnvVars: []string{"CUPCTL_STATE"},
			},
			&cli.BoolFlag{
				Name:    moreCardsFirstFlag,
				Usage:   "Rank the team with more green cards higher on a tie",
				EnvVars: []string{"FAIR_PLAY_MORE_IS_BETTER"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "setup",
				Usage: "Create a tournament from an import file and draw the groups",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "csv", Aliases: []string{"i"}, Usage: "Import file: name, sport, then 18 team lines", Required: true},
					&cli.Int64Flag{Name: "seed", Usage: "Seed for the group draw (default: current time)"},
					&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing state file"},
				},
				Action: setupAction,
			},
			{
				Name:  "score",
				Usage: "Record or correct a match result",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "match", Aliases: []string{"m"}, Required: true},
					&cli.StringFlag{Name: "score", Usage: "Result as A-B (sets won for volleyball)"},
					&cli.StringFlag{Name: "sets", Usage: "Volleyball set scores, e.g. 25-20,23-25,15-10"},
					&cli.StringFlag{Name: "cards", Usage: "Green cards as A,B", Value: "0,0"},
					&cli.BoolFlag{Name: "playoff", Usage: "The match id refers to a playoff match"},
				},
				Action: scoreAction,
			},
			{
				Name:   "playoffs",
				Usage:  "Seed the playoff bracket once every group match is played",
				Action: playoffsAction,
			},
			{
				Name:  "override",
				Usage: "Declare the winner of a playoff match",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "match", Aliases: []string{"m"}, Required: true},
					&cli.IntFlag{Name: "winner", Aliases: []string{"w"}, Required: true},
				},
				Action: overrideAction,
			},
			{
				Name:  "rename",
				Usage: "Rename a team",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "team", Aliases: []string{"t"}, Required: true},
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Required: true},
				},
				Action: renameAction,
			},
			{
				Name:  "edit",
				Usage: "Change the tournament name or sport",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}},
					&cli.StringFlag{Name: "sport"},
				},
				Action: editAction,
			},
			{
				Name:  "show",
				Usage: "Print the tournament",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "yaml, json or csv", Value: "yaml"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "File to write, or \"-\" for stdout", Value: stdoutCLIName},
				},
				Action: showAction,
			},
		},
	}
}

func ranking(cCtx *cli.Context) standings.Options {
	if cCtx.Bool(moreCardsFirstFlag) {
		return standings.Options{FairPlay: standings.MoreCardsFirst}
	}
	return standings.Options{FairPlay: standings.FewerCardsFirst}
}

func setupAction(cCtx *cli.Context) error {
	path := cCtx.String(stateFlag)
	if _, err := os.Stat(path); err == nil && !cCtx.Bool("force") {
		return fmt.Errorf("state file %s already exists, pass --force to overwrite", path)
	}

	f, err := os.Open(cCtx.String("csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	parsed, err := csvio.Parse(f)
	if err != nil {
		return err
	}

	seed := cCtx.Int64("seed")
	if !cCtx.IsSet("seed") {
		seed = time.Now().UnixNano()
	}
	eng := engine.New(engine.WithRand(rand.New(rand.NewSource(seed))), engine.WithStandings(ranking(cCtx)))

	initial := models.TournamentState{ID: uuid.NewString(), Name: parsed.Name, Status: models.StatusSetup}
	state, err := eng.Apply(initial, engine.SetupTournament{Name: parsed.Name, TeamNames: parsed.Teams, Sport: parsed.Sport})
	if err != nil {
		return err
	}
	if err := saveState(path, state); err != nil {
		return err
	}
	fmt.Fprintf(cCtx.App.Writer, "created %q (%s), groups drawn with seed %d\n", state.Name, state.Sport, seed)
	return nil
}

func scoreAction(cCtx *cli.Context) error {
	var scores models.ScoreInput
	var err error

	if sets := cCtx.String("sets"); sets != "" {
		scores.Team1SetScores, scores.Team2SetScores, err = parseSets(sets)
		if err != nil {
			return err
		}
	}
	if score := cCtx.String("score"); score != "" {
		scores.Team1Score, scores.Team2Score, err = parsePair(score, "-")
		if err != nil {
			return fmt.Errorf("--score: %w", err)
		}
	} else if cCtx.String("sets") == "" {
		return errors.New("either --score or --sets is required")
	}
	scores.Team1GreenCards, scores.Team2GreenCards, err = parsePair(cCtx.String("cards"), ",")
	if err != nil {
		return fmt.Errorf("--cards: %w", err)
	}

	action := engine.UpdateMatchScore{MatchID: cCtx.Int("match"), Scores: scores}
	if cCtx.Bool("playoff") {
		action.MatchType = models.MatchTypePlayoff
	}
	return apply(cCtx, action)
}

func playoffsAction(cCtx *cli.Context) error {
	state, err := loadState(cCtx.String(stateFlag))
	if err != nil {
		return err
	}
	if state.Status == models.StatusGroupStage && !state.GroupStageComplete() {
		return errors.New("every group match must be played before generating playoffs")
	}
	return apply(cCtx, engine.GeneratePlayoffs{})
}

func overrideAction(cCtx *cli.Context) error {
	return apply(cCtx, engine.OverridePlayoffWinner{MatchID: cCtx.Int("match"), WinnerID: cCtx.Int("winner")})
}

func renameAction(cCtx *cli.Context) error {
	return apply(cCtx, engine.EditTeamName{TeamID: cCtx.Int("team"), NewName: cCtx.String("name")})
}

func editAction(cCtx *cli.Context) error {
	state, err := loadState(cCtx.String(stateFlag))
	if err != nil {
		return err
	}
	details := engine.EditTournamentDetails{Name: state.Name, Sport: state.Sport}
	if cCtx.IsSet("name") {
		details.Name = cCtx.String("name")
	}
	if cCtx.IsSet("sport") {
		details.Sport = models.Sport(strings.ToLower(cCtx.String("sport")))
	}
	return apply(cCtx, details)
}

// apply loads the state file, applies one action and writes the result back.
func apply(cCtx *cli.Context, action engine.Action) error {
	path := cCtx.String(stateFlag)
	state, err := loadState(path)
	if err != nil {
		return err
	}

	next, err := engine.New(engine.WithStandings(ranking(cCtx))).Apply(state, action)
	if err != nil {
		return fmt.Errorf("%s: %w", action.Type(), err)
	}
	if err := saveState(path, next); err != nil {
		return err
	}
	fmt.Fprintf(cCtx.App.Writer, "%s applied, status %s\n", action.Type(), next.Status)
	return nil
}

func loadState(path string) (models.TournamentState, error) {
	var state models.TournamentState
	data, err := os.ReadFile(path)
	if err != nil {
		return state, fmt.Errorf("read state file: %w", err)
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("decode state file %s: %w", path, err)
	}
	return state, nil
}

// saveState replaces the file atomically so an interrupted write never leaves a
// truncated state behind.
func saveState(path string, state models.TournamentState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".cupctl-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func parsePair(s, sep string) (int, int, error) {
	a, b, ok := strings.Cut(strings.TrimSpace(s), sep)
	if !ok {
		return 0, 0, fmt.Errorf("expected two numbers separated by %q, got %q", sep, s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(a))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid number %q", a)
	}
	y, err := strconv.Atoi(strings.TrimSpace(b))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid number %q", b)
	}
	return x, y, nil
}

// parseSets reads "25-20,23-25" into the two per-team sequences.
func parseSets(s string) ([]int, []int, error) {
	var team1, team2 []int
	for _, set := range strings.Split(s, ",") {
		a, b, err := parsePair(set, "-")
		if err != nil {
			return nil, nil, fmt.Errorf("--sets: %w", err)
		}
		team1 = append(team1, a)
		team2 = append(team2, b)
	}
	return team1, team2, nil
}
