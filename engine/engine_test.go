package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	"github.com/Dosada05/tournament-manager/brackets"
	"github.com/Dosada05/tournament-manager/models"
	"github.com/Dosada05/tournament-manager/standings"
)

func teamNames() []string {
	names := make([]string, brackets.TeamCount)
	for i := range names {
		names[i] = fmt.Sprintf("Team %02d", i+1)
	}
	return names
}

func newTestEngine(seed int64) *Engine {
	return New(WithRand(rand.New(rand.NewSource(seed))))
}

func mustApply(t *testing.T, e *Engine, state models.TournamentState, action Action) models.TournamentState {
	t.Helper()
	next, err := e.Apply(state, action)
	if err != nil {
		t.Fatalf("Apply(%s): %v", action.Type(), err)
	}
	return next
}

func setupState(t *testing.T, e *Engine, sport models.Sport) models.TournamentState {
	t.Helper()
	return mustApply(t, e, models.TournamentState{ID: "t1", Name: "Copa"}, SetupTournament{
		TeamNames: teamNames(),
		Sport:     sport,
	})
}

func goals(a, b int) models.ScoreInput {
	return models.ScoreInput{Team1Score: a, Team2Score: b}
}

// playGroups finishes the group stage: team1 of every fixture wins, with a margin
// that grows with the group index so the group winners are all distinct on goals.
func playGroups(t *testing.T, e *Engine, state models.TournamentState) models.TournamentState {
	t.Helper()
	for gi, g := range state.Groups {
		for mi, m := range g.Matches {
			state = mustApply(t, e, state, UpdateMatchScore{
				MatchID:   m.ID,
				Scores:    goals(gi+mi+1, 0),
				MatchType: models.MatchTypeGroup,
			})
		}
	}
	return state
}

func findGroupMatch(state models.TournamentState, id int) models.Match {
	for _, g := range state.Groups {
		if i := g.MatchIndex(id); i >= 0 {
			return g.Matches[i]
		}
	}
	return models.Match{}
}

func team(t *testing.T, state models.TournamentState, id int) models.Team {
	t.Helper()
	tm, ok := state.Team(id)
	if !ok {
		t.Fatalf("team %d not found", id)
	}
	return tm
}

func TestSetupTournament(t *testing.T) {
	state := setupState(t, newTestEngine(1), models.SportGeneral)

	if state.Status != models.StatusGroupStage {
		t.Errorf("status = %s, want %s", state.Status, models.StatusGroupStage)
	}
	if len(state.Teams) != brackets.TeamCount {
		t.Fatalf("teams = %d, want %d", len(state.Teams), brackets.TeamCount)
	}
	if len(state.Groups) != brackets.GroupCount {
		t.Fatalf("groups = %d, want %d", len(state.Groups), brackets.GroupCount)
	}

	seen := make(map[int]int)
	nextMatchID := brackets.FirstGroupMatchID
	for gi, g := range state.Groups {
		if want := brackets.GroupLabel(gi); g.ID != want {
			t.Errorf("group %d id = %q, want %q", gi, g.ID, want)
		}
		if len(g.TeamIDs) != brackets.GroupSize || len(g.Matches) != 3 {
			t.Fatalf("group %s: %d teams, %d matches", g.ID, len(g.TeamIDs), len(g.Matches))
		}
		for _, id := range g.TeamIDs {
			seen[id]++
		}
		pairs := [][2]int{{0, 1}, {0, 2}, {1, 2}}
		for mi, m := range g.Matches {
			if m.ID != nextMatchID {
				t.Errorf("match id = %d, want %d", m.ID, nextMatchID)
			}
			nextMatchID++
			want := pairs[mi]
			if m.Team1ID != g.TeamIDs[want[0]] || m.Team2ID != g.TeamIDs[want[1]] {
				t.Errorf("group %s match %d pairs %d-%d", g.ID, m.ID, m.Team1ID, m.Team2ID)
			}
			if m.Played {
				t.Errorf("match %d is played after setup", m.ID)
			}
		}
	}
	for id := 1; id <= brackets.TeamCount; id++ {
		if seen[id] != 1 {
			t.Errorf("team %d appears in %d groups", id, seen[id])
		}
	}
	if state.Playoff != nil {
		t.Error("playoff should be empty after setup")
	}
}

func TestSetupIsDeterministicForSeed(t *testing.T) {
	a := setupState(t, newTestEngine(42), models.SportGeneral)
	b := setupState(t, newTestEngine(42), models.SportGeneral)
	if !reflect.DeepEqual(a.Groups, b.Groups) {
		t.Error("same seed produced different groups")
	}
}

func TestSetupValidation(t *testing.T) {
	e := newTestEngine(1)
	blank := teamNames()
	blank[5] = "   "

	tests := []struct {
		name   string
		action SetupTournament
		want   error
	}{
		{"too few teams", SetupTournament{TeamNames: teamNames()[:17], Sport: models.SportGeneral}, ErrWrongTeamCount},
		{"blank name", SetupTournament{TeamNames: blank, Sport: models.SportGeneral}, ErrEmptyTeamName},
		{"unknown sport", SetupTournament{TeamNames: teamNames(), Sport: "chess"}, ErrInvalidSport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			initial := models.TournamentState{ID: "t1", Name: "Copa"}
			got, err := e.Apply(initial, tt.action)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if !reflect.DeepEqual(got, initial) {
				t.Error("state changed on error")
			}
		})
	}

	started := setupState(t, e, models.SportGeneral)
	if _, err := e.Apply(started, SetupTournament{TeamNames: teamNames(), Sport: models.SportGeneral}); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("second setup err = %v, want %v", err, ErrInvalidStatus)
	}
}

func TestScoreCorrectionRecomputesStandings(t *testing.T) {
	e := newTestEngine(7)
	state := setupState(t, e, models.SportGeneral)
	m := state.Groups[0].Matches[0]

	state = mustApply(t, e, state, UpdateMatchScore{MatchID: m.ID, Scores: goals(3, 1), MatchType: models.MatchTypeGroup})
	state = mustApply(t, e, state, UpdateMatchScore{MatchID: m.ID, Scores: goals(2, 2), MatchType: models.MatchTypeGroup})

	for _, id := range []int{m.Team1ID, m.Team2ID} {
		r := team(t, state, id).Record
		want := models.Record{Played: 1, Draws: 1, Points: 1, GoalsFor: 2, GoalsAgainst: 2}
		if r != want {
			t.Errorf("team %d record = %+v, want %+v", id, r, want)
		}
	}
}

func TestGroupOrderFollowsRanking(t *testing.T) {
	e := newTestEngine(3)
	state := setupState(t, e, models.SportGeneral)
	g := state.Groups[0]
	// The third seed beats both others.
	last := g.TeamIDs[2]
	state = mustApply(t, e, state, UpdateMatchScore{MatchID: g.Matches[1].ID, Scores: goals(0, 2)})
	state = mustApply(t, e, state, UpdateMatchScore{MatchID: g.Matches[2].ID, Scores: goals(0, 1)})

	if state.Groups[0].TeamIDs[0] != last {
		t.Errorf("group leader = %d, want %d", state.Groups[0].TeamIDs[0], last)
	}
	want := teamIDs(standings.Rank(standings.GroupTeams(&state, state.Groups[0]), state.Sport, e.Ranking()))
	if !reflect.DeepEqual(state.Groups[0].TeamIDs, want) {
		t.Errorf("group order = %v, want %v", state.Groups[0].TeamIDs, want)
	}
}

func TestGeneratePlayoffsSeeding(t *testing.T) {
	e := newTestEngine(11)
	state := playGroups(t, e, setupState(t, e, models.SportGeneral))

	state = mustApply(t, e, state, GeneratePlayoffs{})
	if state.Status != models.StatusPlayoffs {
		t.Fatalf("status = %s, want %s", state.Status, models.StatusPlayoffs)
	}

	winners, runnersUp := standings.Leaders(&state, e.Ranking())
	w, x := teamIDs(winners), teamIDs(runnersUp)
	want := [4][2]int{{w[0], x[1]}, {w[3], w[4]}, {w[1], x[0]}, {w[2], w[5]}}

	p := state.Playoff
	if len(p.Quarterfinals) != 4 || len(p.Semifinals) != 2 {
		t.Fatalf("bracket shape: %d QF, %d SF", len(p.Quarterfinals), len(p.Semifinals))
	}
	for i, qf := range p.Quarterfinals {
		if qf.ID != brackets.FirstPlayoffMatchID+i {
			t.Errorf("QF%d id = %d", i+1, qf.ID)
		}
		if qf.Team1ID != want[i][0] || qf.Team2ID != want[i][1] {
			t.Errorf("QF%d = %d vs %d, want %d vs %d", i+1, qf.Team1ID, qf.Team2ID, want[i][0], want[i][1])
		}
	}
	for _, m := range []models.Match{p.Semifinals[0], p.Semifinals[1], p.ThirdPlace, p.Final} {
		if m.Team1ID != models.NoTeam || m.Team2ID != models.NoTeam {
			t.Errorf("match %d should start empty", m.ID)
		}
	}
	if p.Final.ID != 107 || p.ThirdPlace.ID != 106 {
		t.Errorf("final/third ids = %d/%d", p.Final.ID, p.ThirdPlace.ID)
	}

	if _, err := e.Apply(state, GeneratePlayoffs{}); !errors.Is(err, ErrPlayoffsAlreadyGenerated) {
		t.Errorf("second generate err = %v, want %v", err, ErrPlayoffsAlreadyGenerated)
	}
}

func TestPlayoffRunsToChampion(t *testing.T) {
	e := newTestEngine(5)
	state := mustApply(t, e, playGroups(t, e, setupState(t, e, models.SportGeneral)), GeneratePlayoffs{})
	qf := state.Playoff.Quarterfinals

	if _, err := e.Apply(state, UpdateMatchScore{MatchID: 104, Scores: goals(1, 0), MatchType: models.MatchTypePlayoff}); !errors.Is(err, ErrMatchNotReady) {
		t.Errorf("semifinal before quarterfinals err = %v, want %v", err, ErrMatchNotReady)
	}
	if _, err := e.Apply(state, UpdateMatchScore{MatchID: qf[0].ID, Scores: goals(1, 1), MatchType: models.MatchTypePlayoff}); !errors.Is(err, ErrPlayoffDraw) {
		t.Errorf("drawn playoff err = %v, want %v", err, ErrPlayoffDraw)
	}

	// Team1 wins QF1 and QF3, team2 wins QF2 and QF4.
	state = mustApply(t, e, state, UpdateMatchScore{MatchID: qf[0].ID, Scores: goals(2, 0)})
	state = mustApply(t, e, state, UpdateMatchScore{MatchID: qf[1].ID, Scores: goals(0, 1)})
	state = mustApply(t, e, state, UpdateMatchScore{MatchID: qf[2].ID, Scores: goals(3, 2)})
	state = mustApply(t, e, state, UpdateMatchScore{MatchID: qf[3].ID, Scores: goals(1, 4)})

	sf := state.Playoff.Semifinals
	if sf[0].Team1ID != qf[0].Team1ID || sf[0].Team2ID != qf[1].Team2ID {
		t.Errorf("SF1 = %d vs %d", sf[0].Team1ID, sf[0].Team2ID)
	}
	if sf[1].Team1ID != qf[2].Team1ID || sf[1].Team2ID != qf[3].Team2ID {
		t.Errorf("SF2 = %d vs %d", sf[1].Team1ID, sf[1].Team2ID)
	}

	state = mustApply(t, e, state, UpdateMatchScore{MatchID: sf[0].ID, Scores: goals(1, 0)})
	state = mustApply(t, e, state, UpdateMatchScore{MatchID: sf[1].ID, Scores: goals(0, 2)})

	p := state.Playoff
	if p.Final.Team1ID != sf[0].Team1ID || p.Final.Team2ID != sf[1].Team2ID {
		t.Errorf("final = %d vs %d", p.Final.Team1ID, p.Final.Team2ID)
	}
	if p.ThirdPlace.Team1ID != sf[0].Team2ID || p.ThirdPlace.Team2ID != sf[1].Team1ID {
		t.Errorf("third place = %d vs %d", p.ThirdPlace.Team1ID, p.ThirdPlace.Team2ID)
	}

	state = mustApply(t, e, state, UpdateMatchScore{MatchID: p.ThirdPlace.ID, Scores: goals(2, 1)})
	if state.Status != models.StatusPlayoffs {
		t.Errorf("status after third place = %s, want %s", state.Status, models.StatusPlayoffs)
	}
	if state.Playoff.ThirdPlaceID == nil || *state.Playoff.ThirdPlaceID != p.ThirdPlace.Team1ID {
		t.Errorf("third place id = %v", state.Playoff.ThirdPlaceID)
	}

	state = mustApply(t, e, state, UpdateMatchScore{MatchID: p.Final.ID, Scores: goals(0, 3)})
	if state.Status != models.StatusFinished {
		t.Errorf("status after final = %s, want %s", state.Status, models.StatusFinished)
	}
	if state.Playoff.ChampionID == nil || *state.Playoff.ChampionID != p.Final.Team2ID {
		t.Errorf("champion = %v, want %d", state.Playoff.ChampionID, p.Final.Team2ID)
	}
}

func TestOverridePlayoffWinner(t *testing.T) {
	e := newTestEngine(9)
	state := mustApply(t, e, playGroups(t, e, setupState(t, e, models.SportGeneral)), GeneratePlayoffs{})
	qf := state.Playoff.Quarterfinals[0]

	outsider := state.Playoff.Quarterfinals[1].Team1ID
	got, err := e.Apply(state, OverridePlayoffWinner{MatchID: qf.ID, WinnerID: outsider})
	if !errors.Is(err, ErrWinnerNotInMatch) {
		t.Fatalf("err = %v, want %v", err, ErrWinnerNotInMatch)
	}
	if !reflect.DeepEqual(got, state) {
		t.Error("state changed on rejected override")
	}

	if _, err := e.Apply(state, OverridePlayoffWinner{MatchID: 105, WinnerID: qf.Team1ID}); !errors.Is(err, ErrMatchNotReady) {
		t.Errorf("override on empty match err = %v, want %v", err, ErrMatchNotReady)
	}
	if _, err := e.Apply(state, OverridePlayoffWinner{MatchID: 999, WinnerID: qf.Team1ID}); !errors.Is(err, ErrMatchNotFound) {
		t.Errorf("override on unknown match err = %v, want %v", err, ErrMatchNotFound)
	}

	state = mustApply(t, e, state, OverridePlayoffWinner{MatchID: qf.ID, WinnerID: qf.Team2ID})
	decided := state.Playoff.Quarterfinals[0]
	if !decided.Played || decided.Team1Score != 0 || decided.Team2Score != 1 {
		t.Errorf("overridden match = %+v", decided)
	}
	if state.Playoff.Semifinals[0].Team1ID != qf.Team2ID {
		t.Errorf("SF1 team1 = %d, want %d", state.Playoff.Semifinals[0].Team1ID, qf.Team2ID)
	}
}

func TestVolleyballScoring(t *testing.T) {
	e := newTestEngine(2)
	state := setupState(t, e, models.SportVolleyball)
	m := state.Groups[0].Matches[0]

	sets := func(a, b []int) UpdateMatchScore {
		return UpdateMatchScore{
			MatchID:   m.ID,
			MatchType: models.MatchTypeGroup,
			Scores:    models.ScoreInput{Team1SetScores: a, Team2SetScores: b},
		}
	}

	invalid := map[string]UpdateMatchScore{
		"no sets":       sets(nil, nil),
		"uneven":        sets([]int{25, 25}, []int{20}),
		"tied set":      sets([]int{25, 20}, []int{25, 18}),
		"level count":   sets([]int{25, 20}, []int{20, 25}),
		"negative set":  sets([]int{25, -1}, []int{20, 10}),
		"negative card": {MatchID: m.ID, Scores: models.ScoreInput{Team1SetScores: []int{25}, Team2SetScores: []int{20}, Team1GreenCards: -1}},
	}
	for name, action := range invalid {
		if _, err := e.Apply(state, action); !errors.Is(err, ErrInvalidScore) {
			t.Errorf("%s: err = %v, want %v", name, err, ErrInvalidScore)
		}
	}

	state = mustApply(t, e, state, sets([]int{25, 20, 15}, []int{20, 25, 10}))
	played := findGroupMatch(state, m.ID)
	if played.Team1Score != 2 || played.Team2Score != 1 {
		t.Errorf("set count = %d-%d, want 2-1", played.Team1Score, played.Team2Score)
	}

	winner := team(t, state, m.Team1ID).Record
	want := models.Record{
		Played: 1, Wins: 1, Points: 3,
		SetsWon: 2, SetsLost: 1, SetDifference: 1,
		PointsFor: 60, PointsAgainst: 55, PointsDifference: 5,
	}
	if winner != want {
		t.Errorf("winner record = %+v, want %+v", winner, want)
	}
	loser := team(t, state, m.Team2ID).Record
	if loser.Losses != 1 || loser.Points != 0 || loser.SetDifference != -1 {
		t.Errorf("loser record = %+v", loser)
	}
}

func TestGreenCardsCountAcrossStages(t *testing.T) {
	e := newTestEngine(4)
	state := setupState(t, e, models.SportGeneral)
	for gi, g := range state.Groups {
		for mi, m := range g.Matches {
			state = mustApply(t, e, state, UpdateMatchScore{
				MatchID: m.ID,
				Scores:  models.ScoreInput{Team1Score: gi + mi + 1, Team1GreenCards: 1},
			})
		}
	}
	state = mustApply(t, e, state, GeneratePlayoffs{})

	qf := state.Playoff.Quarterfinals[0]
	before := team(t, state, qf.Team1ID).GreenCards
	state = mustApply(t, e, state, UpdateMatchScore{
		MatchID: qf.ID,
		Scores:  models.ScoreInput{Team1Score: 1, Team1GreenCards: 2},
	})
	if got := team(t, state, qf.Team1ID).GreenCards; got != before+2 {
		t.Errorf("green cards = %d, want %d", got, before+2)
	}

	// Every team's card total must equal the sum over its played matches.
	totals := standings.GreenCards(state.AllMatches())
	for _, tm := range state.Teams {
		if tm.GreenCards != totals[tm.ID] {
			t.Errorf("team %d cards = %d, want %d", tm.ID, tm.GreenCards, totals[tm.ID])
		}
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	e := newTestEngine(8)
	state := playGroups(t, e, setupState(t, e, models.SportGeneral))
	state = mustApply(t, e, state, GeneratePlayoffs{})

	snapshot, err := json.Marshal(state)
	if err != nil {
		t.Fatal(err)
	}

	qf := state.Playoff.Quarterfinals[0]
	actions := []Action{
		UpdateMatchScore{MatchID: 1, Scores: goals(0, 5)},
		UpdateMatchScore{MatchID: qf.ID, Scores: models.ScoreInput{Team1Score: 3, Team1GreenCards: 1}},
		OverridePlayoffWinner{MatchID: qf.ID, WinnerID: qf.Team2ID},
		EditTeamName{TeamID: qf.Team1ID, NewName: "Renamed"},
		EditTournamentDetails{Name: "Otra", Sport: models.SportVolleyball},
	}
	for _, a := range actions {
		mustApply(t, e, state, a)
	}

	after, err := json.Marshal(state)
	if err != nil {
		t.Fatal(err)
	}
	if string(after) != string(snapshot) {
		t.Error("input snapshot was modified")
	}
}

func TestEditTeamName(t *testing.T) {
	e := newTestEngine(6)
	state := setupState(t, e, models.SportGeneral)

	state = mustApply(t, e, state, EditTeamName{TeamID: 3, NewName: "  Leones  "})
	if got := team(t, state, 3).Name; got != "Leones" {
		t.Errorf("name = %q, want %q", got, "Leones")
	}
	if _, err := e.Apply(state, EditTeamName{TeamID: 3, NewName: " "}); !errors.Is(err, ErrEmptyTeamName) {
		t.Errorf("blank rename err = %v", err)
	}
	if _, err := e.Apply(state, EditTeamName{TeamID: 99, NewName: "X"}); !errors.Is(err, ErrTeamNotFound) {
		t.Errorf("unknown team err = %v", err)
	}
}

func TestEditTournamentDetails(t *testing.T) {
	e := newTestEngine(6)
	state := setupState(t, e, models.SportGeneral)

	state = mustApply(t, e, state, EditTournamentDetails{Name: "Copa 2026", Sport: models.SportVolleyball})
	if state.Name != "Copa 2026" || state.Sport != models.SportVolleyball {
		t.Errorf("details = %q/%s", state.Name, state.Sport)
	}
	if _, err := e.Apply(state, EditTournamentDetails{Name: "", Sport: models.SportGeneral}); !errors.Is(err, ErrEmptyName) {
		t.Errorf("empty name err = %v", err)
	}
	if _, err := e.Apply(state, EditTournamentDetails{Name: "X", Sport: "cricket"}); !errors.Is(err, ErrInvalidSport) {
		t.Errorf("bad sport err = %v", err)
	}
}

func TestGeneratePlayoffsRequiresGroupStage(t *testing.T) {
	e := newTestEngine(1)
	if _, err := e.Apply(models.TournamentState{}, GeneratePlayoffs{}); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("err = %v, want %v", err, ErrInvalidStatus)
	}
}

func TestDecodeAction(t *testing.T) {
	action, err := DecodeAction([]byte(`{"type":"UPDATE_MATCH_SCORE","payload":{"matchId":4,"matchType":"group","scores":{"team1Score":2,"team2Score":1,"team1GreenCards":1,"team2GreenCards":0}}}`))
	if err != nil {
		t.Fatal(err)
	}
	update, ok := action.(UpdateMatchScore)
	if !ok {
		t.Fatalf("decoded %T", action)
	}
	if update.MatchID != 4 || update.Scores.Team1Score != 2 || update.Scores.Team1GreenCards != 1 {
		t.Errorf("decoded %+v", update)
	}

	if _, err := DecodeAction([]byte(`{"type":"GENERATE_PLAYOFFS"}`)); err != nil {
		t.Errorf("generate playoffs without payload: %v", err)
	}
	if _, err := DecodeAction([]byte(`{"type":"RESET"}`)); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("unknown type err = %v", err)
	}
	if _, err := DecodeAction([]byte(`{"type":"EDIT_TEAM_NAME"}`)); err == nil {
		t.Error("missing payload should fail")
	}

	encoded, err := EncodeAction(OverridePlayoffWinner{MatchID: 101, WinnerID: 7})
	if err != nil {
		t.Fatal(err)
	}
	back, err := DecodeAction(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if back != (OverridePlayoffWinner{MatchID: 101, WinnerID: 7}) {
		t.Errorf("round trip = %+v", back)
	}
}

func playoffState(t *testing.T, e *Engine) models.TournamentState {
	t.Helper()
	return mustApply(t, e, playGroups(t, e, setupState(t, e, models.SportGeneral)), GeneratePlayoffs{})
}

// playRound decides every listed playoff match 2-1 for team1.
func playRound(t *testing.T, e *Engine, state models.TournamentState, ids ...int) models.TournamentState {
	t.Helper()
	for _, id := range ids {
		state = mustApply(t, e, state, UpdateMatchScore{MatchID: id, Scores: goals(2, 1), MatchType: models.MatchTypePlayoff})
	}
	return state
}

func TestPlayoffCorrectionAfterLaterRound(t *testing.T) {
	e := newTestEngine(12)
	state := playoffState(t, e)
	qf := state.Playoff.Quarterfinals

	// QF1 and QF2 decided, SF1 played; QF3 and QF4 decided, SF2 still open.
	state = playRound(t, e, state, 100, 101, 102, 103, 104)

	tests := []struct {
		name   string
		action Action
	}{
		{"changed winner feeding a played semifinal", UpdateMatchScore{MatchID: 100, Scores: goals(0, 1)}},
		{"override feeding a played semifinal", OverridePlayoffWinner{MatchID: 101, WinnerID: qf[1].Team2ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Apply(state, tt.action)
			if !errors.Is(err, ErrDownstreamDecided) {
				t.Fatalf("err = %v, want %v", err, ErrDownstreamDecided)
			}
			if !reflect.DeepEqual(got, state) {
				t.Error("state changed on rejected correction")
			}
		})
	}

	// Same winner, new score: allowed.
	fixed := mustApply(t, e, state, UpdateMatchScore{MatchID: 100, Scores: goals(4, 0)})
	if fixed.Playoff.Semifinals[0].Team1ID != qf[0].Team1ID {
		t.Errorf("SF1 team1 = %d, want %d", fixed.Playoff.Semifinals[0].Team1ID, qf[0].Team1ID)
	}

	// SF2 not played yet, so QF3 can still change hands.
	flipped := mustApply(t, e, state, UpdateMatchScore{MatchID: 102, Scores: goals(0, 3)})
	if flipped.Playoff.Semifinals[1].Team1ID != qf[2].Team2ID {
		t.Errorf("SF2 team1 = %d, want %d", flipped.Playoff.Semifinals[1].Team1ID, qf[2].Team2ID)
	}

	// Once the final and the third-place match are played, semifinals are locked too.
	done := playRound(t, e, state, 105, 106, 107)
	champion := *done.Playoff.ChampionID
	sf := done.Playoff.Semifinals[0]
	for _, a := range []Action{
		UpdateMatchScore{MatchID: sf.ID, Scores: goals(0, 2)},
		OverridePlayoffWinner{MatchID: sf.ID, WinnerID: sf.Team2ID},
		UpdateMatchScore{MatchID: 100, Scores: goals(0, 1)},
	} {
		got, err := e.Apply(done, a)
		if !errors.Is(err, ErrDownstreamDecided) {
			t.Errorf("%+v: err = %v, want %v", a, err, ErrDownstreamDecided)
		}
		if *got.Playoff.ChampionID != champion || got.Playoff.Final.Team1ID != sf.Team1ID {
			t.Errorf("%+v: final changed to %d, champion %d", a, got.Playoff.Final.Team1ID, *got.Playoff.ChampionID)
		}
	}
}

func TestOverrideDecidesSemifinalsAndFinal(t *testing.T) {
	e := newTestEngine(13)
	state := playRound(t, e, playoffState(t, e), 100, 101, 102, 103)
	sf := state.Playoff.Semifinals

	state = mustApply(t, e, state, OverridePlayoffWinner{MatchID: sf[0].ID, WinnerID: sf[0].Team2ID})
	state = mustApply(t, e, state, OverridePlayoffWinner{MatchID: sf[1].ID, WinnerID: sf[1].Team1ID})

	p := state.Playoff
	if p.Final.Team1ID != sf[0].Team2ID || p.Final.Team2ID != sf[1].Team1ID {
		t.Errorf("final = %d vs %d, want %d vs %d", p.Final.Team1ID, p.Final.Team2ID, sf[0].Team2ID, sf[1].Team1ID)
	}
	if p.ThirdPlace.Team1ID != sf[0].Team1ID || p.ThirdPlace.Team2ID != sf[1].Team2ID {
		t.Errorf("third place = %d vs %d, want %d vs %d", p.ThirdPlace.Team1ID, p.ThirdPlace.Team2ID, sf[0].Team1ID, sf[1].Team2ID)
	}

	state = mustApply(t, e, state, OverridePlayoffWinner{MatchID: p.ThirdPlace.ID, WinnerID: p.ThirdPlace.Team2ID})
	if state.Playoff.ThirdPlaceID == nil || *state.Playoff.ThirdPlaceID != p.ThirdPlace.Team2ID {
		t.Errorf("third place id = %v, want %d", state.Playoff.ThirdPlaceID, p.ThirdPlace.Team2ID)
	}
	if state.Status != models.StatusPlayoffs {
		t.Errorf("status after third place = %s, want %s", state.Status, models.StatusPlayoffs)
	}

	state = mustApply(t, e, state, OverridePlayoffWinner{MatchID: p.Final.ID, WinnerID: p.Final.Team1ID})
	if state.Status != models.StatusFinished {
		t.Errorf("status = %s, want %s", state.Status, models.StatusFinished)
	}
	if state.Playoff.ChampionID == nil || *state.Playoff.ChampionID != p.Final.Team1ID {
		t.Errorf("champion = %v, want %d", state.Playoff.ChampionID, p.Final.Team1ID)
	}
}

func TestUpdateUnknownGroupMatch(t *testing.T) {
	e := newTestEngine(14)
	state := setupState(t, e, models.SportGeneral)

	for _, mt := range []models.MatchType{models.MatchTypeGroup, ""} {
		got, err := e.Apply(state, UpdateMatchScore{MatchID: 99, Scores: goals(1, 0), MatchType: mt})
		if !errors.Is(err, ErrMatchNotFound) {
			t.Errorf("match type %q: err = %v, want %v", mt, err, ErrMatchNotFound)
		}
		if !reflect.DeepEqual(got, state) {
			t.Errorf("match type %q: state changed", mt)
		}
	}
}

func TestGroupRecordsAfterResultSequence(t *testing.T) {
	e := newTestEngine(15)
	state := setupState(t, e, models.SportGeneral)
	m := state.Groups[1].Matches

	steps := []struct {
		matchID int
		score   models.ScoreInput
	}{
		{m[0].ID, goals(2, 0)},
		{m[1].ID, goals(1, 1)},
		{m[0].ID, goals(0, 3)},
		{m[2].ID, goals(4, 2)},
		{m[1].ID, goals(0, 1)},
		{m[2].ID, goals(2, 2)},
		{m[0].ID, goals(1, 1)},
	}
	for i, s := range steps {
		state = mustApply(t, e, state, UpdateMatchScore{MatchID: s.matchID, Scores: s.score, MatchType: models.MatchTypeGroup})

		g := state.Groups[1]
		for _, id := range g.TeamIDs {
			var played, points, scored, conceded int
			for _, gm := range g.Matches {
				if !gm.Played || !gm.Involves(id) {
					continue
				}
				own, other := gm.Team1Score, gm.Team2Score
				if gm.Team2ID == id {
					own, other = other, own
				}
				played++
				scored += own
				conceded += other
				switch {
				case own > other:
					points += standings.PointsWin
				case own == other:
					points += standings.PointsDraw
				}
			}

			r := team(t, state, id).Record
			if r.Played != played || r.Points != points || r.GoalsFor != scored || r.GoalsAgainst != conceded {
				t.Errorf("step %d team %d record = %+v, want played %d points %d goals %d:%d",
					i, id, r, played, points, scored, conceded)
			}
		}
	}
}
