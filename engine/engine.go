// Package engine applies tournament actions to immutable snapshots. Apply never
// mutates its input: every changed part of the state is copied before it is
// written, so callers may keep and share previous snapshots freely.
package engine

import (
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Dosada05/tournament-manager/brackets"
	"github.com/Dosada05/tournament-manager/models"
	"github.com/Dosada05/tournament-manager/standings"
)

type Engine struct {
	mu       sync.Mutex
	rng      *rand.Rand
	ranking  standings.Options
	fixtures *brackets.RoundRobinGenerator
}

type Option func(*Engine)

// WithRand sets the source used to shuffle teams into groups.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) {
		e.rng = rng
	}
}

// WithStandings sets the ranking options used for group order and seeding.
func WithStandings(opts standings.Options) Option {
	return func(e *Engine) {
		e.ranking = opts
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		fixtures: brackets.NewRoundRobinGenerator(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ranking returns the ranking options the engine was built with.
func (e *Engine) Ranking() standings.Options {
	return e.ranking
}

// Apply returns the snapshot that results from applying action to state. On error
// the returned snapshot is state itself.
func (e *Engine) Apply(state models.TournamentState, action Action) (models.TournamentState, error) {
	var (
		next models.TournamentState
		err  error
	)
	switch a := action.(type) {
	case SetupTournament:
		next, err = e.setup(state, a)
	case UpdateMatchScore:
		next, err = e.updateScore(state, a)
	case GeneratePlayoffs:
		next, err = e.generatePlayoffs(state)
	case EditTeamName:
		next, err = e.renameTeam(state, a)
	case EditTournamentDetails:
		next, err = e.editDetails(state, a)
	case OverridePlayoffWinner:
		next, err = e.overrideWinner(state, a)
	default:
		err = fmt.Errorf("%w: %T", ErrUnknownAction, action)
	}
	if err != nil {
		return state, err
	}
	return next, nil
}

func (e *Engine) setup(state models.TournamentState, a SetupTournament) (models.TournamentState, error) {
	if state.Status != "" && state.Status != models.StatusSetup {
		return state, fmt.Errorf("%w: setup in status %s", ErrInvalidStatus, state.Status)
	}
	if len(a.TeamNames) != brackets.TeamCount {
		return state, fmt.Errorf("%w: got %d", ErrWrongTeamCount, len(a.TeamNames))
	}
	if !a.Sport.Valid() {
		return state, fmt.Errorf("%w: %q", ErrInvalidSport, a.Sport)
	}

	teams := make([]models.Team, len(a.TeamNames))
	order := make([]int, len(a.TeamNames))
	for i, raw := range a.TeamNames {
		name := strings.TrimSpace(raw)
		if name == "" {
			return state, fmt.Errorf("%w: team %d", ErrEmptyTeamName, i+1)
		}
		teams[i] = models.Team{ID: i + 1, Name: name}
		order[i] = i + 1
	}
	e.shuffle(order)

	groups := make([]models.Group, 0, brackets.GroupCount)
	for i := range brackets.GroupCount {
		ids := slices.Clone(order[i*brackets.GroupSize : (i+1)*brackets.GroupSize])
		matches, err := e.fixtures.Generate(ids, brackets.FirstGroupMatchID+i*len(ids))
		if err != nil {
			return state, fmt.Errorf("generate fixtures for %s: %w", brackets.GroupLabel(i), err)
		}
		groups = append(groups, models.Group{ID: brackets.GroupLabel(i), TeamIDs: ids, Matches: matches})
	}

	next := state
	if name := strings.TrimSpace(a.Name); name != "" {
		next.Name = name
	}
	next.Sport = a.Sport
	next.Teams = teams
	next.Groups = groups
	next.Playoff = nil
	next.Status = models.StatusGroupStage
	return next, nil
}

func (e *Engine) shuffle(ids []int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rng.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
}

func (e *Engine) updateScore(state models.TournamentState, a UpdateMatchScore) (models.TournamentState, error) {
	matchType := a.MatchType
	if matchType == "" {
		matchType = models.MatchTypePlayoff
		for _, g := range state.Groups {
			if g.MatchIndex(a.MatchID) >= 0 {
				matchType = models.MatchTypeGroup
				break
			}
		}
	}

	switch matchType {
	case models.MatchTypeGroup:
		return e.updateGroupMatch(state, a.MatchID, a.Scores)
	case models.MatchTypePlayoff:
		return e.updatePlayoffMatch(state, a.MatchID, a.Scores)
	}
	return state, fmt.Errorf("%w: match type %q", ErrInvalidScore, a.MatchType)
}

func (e *Engine) updateGroupMatch(state models.TournamentState, matchID int, in models.ScoreInput) (models.TournamentState, error) {
	if state.Status == "" || state.Status == models.StatusSetup {
		return state, fmt.Errorf("%w: no group stage yet", ErrInvalidStatus)
	}
	gi, mi := -1, -1
	for i, g := range state.Groups {
		if idx := g.MatchIndex(matchID); idx >= 0 {
			gi, mi = i, idx
			break
		}
	}
	if gi < 0 {
		return state, fmt.Errorf("%w: group match %d", ErrMatchNotFound, matchID)
	}

	match := state.Groups[gi].Matches[mi].Clone()
	if err := applyScore(&match, in, state.Sport); err != nil {
		return state, err
	}

	next := state
	next.Groups = slices.Clone(state.Groups)
	group := state.Groups[gi].Clone()
	group.Matches[mi] = match
	next.Groups[gi] = group

	next.Teams = slices.Clone(state.Teams)
	records := standings.Compute(group.TeamIDs, group.Matches, next.Sport)
	for id, r := range records {
		if i := models.FindTeam(next.Teams, id); i >= 0 {
			next.Teams[i].Record = r
		}
	}
	refreshGreenCards(&next)
	e.rerank(&next, gi)
	return next, nil
}

func (e *Engine) updatePlayoffMatch(state models.TournamentState, matchID int, in models.ScoreInput) (models.TournamentState, error) {
	ref, ok := brackets.Locate(state.Playoff, matchID)
	if !ok {
		return state, fmt.Errorf("%w: playoff match %d", ErrMatchNotFound, matchID)
	}
	current := brackets.Match(state.Playoff, ref)
	if !current.Ready() {
		return state, fmt.Errorf("%w: match %d", ErrMatchNotReady, matchID)
	}

	match := current.Clone()
	if err := applyScore(&match, in, state.Sport); err != nil {
		return state, err
	}
	if match.Team1Score == match.Team2Score {
		return state, fmt.Errorf("%w: match %d", ErrPlayoffDraw, matchID)
	}

	winner, loser := match.Team1ID, match.Team2ID
	if match.Team2Score > match.Team1Score {
		winner, loser = loser, winner
	}
	return e.decidePlayoff(state, ref, match, winner, loser)
}

func (e *Engine) overrideWinner(state models.TournamentState, a OverridePlayoffWinner) (models.TournamentState, error) {
	ref, ok := brackets.Locate(state.Playoff, a.MatchID)
	if !ok {
		return state, fmt.Errorf("%w: playoff match %d", ErrMatchNotFound, a.MatchID)
	}
	current := brackets.Match(state.Playoff, ref)
	if !current.Ready() {
		return state, fmt.Errorf("%w: match %d", ErrMatchNotReady, a.MatchID)
	}
	if !current.Involves(a.WinnerID) {
		return state, fmt.Errorf("%w: team %d in match %d", ErrWinnerNotInMatch, a.WinnerID, a.MatchID)
	}

	// A symbolic 1-0 for the chosen side. Cards already entered are kept.
	match := current.Clone()
	match.Team1Score, match.Team2Score = 0, 1
	if a.WinnerID == match.Team1ID {
		match.Team1Score, match.Team2Score = 1, 0
	}
	match.Team1SetScores = []int{}
	match.Team2SetScores = []int{}
	match.Played = true
	return e.decidePlayoff(state, ref, match, a.WinnerID, match.Opponent(a.WinnerID))
}

// decidePlayoff stores a decided playoff match and pushes its teams downstream.
// A changed outcome is refused once the match it feeds has been played.
func (e *Engine) decidePlayoff(state models.TournamentState, ref brackets.MatchRef, match models.Match, winner, loser int) (models.TournamentState, error) {
	if err := brackets.CheckAdvance(state.Playoff, ref, winner, loser); err != nil {
		return state, err
	}

	next := state
	next.Playoff = state.Playoff.Clone()
	*brackets.Match(next.Playoff, ref) = match
	if brackets.Advance(next.Playoff, ref, winner, loser) {
		next.Status = models.StatusFinished
	}

	next.Teams = slices.Clone(state.Teams)
	refreshGreenCards(&next)

	next.Groups = slices.Clone(state.Groups)
	for _, id := range []int{match.Team1ID, match.Team2ID} {
		if gi := next.GroupOf(id); gi >= 0 {
			next.Groups[gi] = next.Groups[gi].Clone()
			e.rerank(&next, gi)
		}
	}
	return next, nil
}

func (e *Engine) generatePlayoffs(state models.TournamentState) (models.TournamentState, error) {
	if state.Playoff != nil {
		return state, ErrPlayoffsAlreadyGenerated
	}
	if state.Status != models.StatusGroupStage {
		return state, fmt.Errorf("%w: playoffs in status %s", ErrInvalidStatus, state.Status)
	}

	winners, runnersUp := standings.Leaders(&state, e.ranking)
	wildcards := runnersUp
	if len(wildcards) > brackets.WildcardsQualified {
		wildcards = wildcards[:brackets.WildcardsQualified]
	}
	playoff, err := brackets.SeedPlayoff(teamIDs(winners), teamIDs(wildcards), brackets.FirstPlayoffMatchID)
	if err != nil {
		return state, err
	}

	next := state
	next.Playoff = playoff
	next.Status = models.StatusPlayoffs
	return next, nil
}

func (e *Engine) renameTeam(state models.TournamentState, a EditTeamName) (models.TournamentState, error) {
	name := strings.TrimSpace(a.NewName)
	if name == "" {
		return state, ErrEmptyTeamName
	}
	i := models.FindTeam(state.Teams, a.TeamID)
	if i < 0 {
		return state, fmt.Errorf("%w: %d", ErrTeamNotFound, a.TeamID)
	}

	next := state
	next.Teams = slices.Clone(state.Teams)
	next.Teams[i].Name = name

	// Name is a tie-break, so the team's group order may change.
	if gi := next.GroupOf(a.TeamID); gi >= 0 {
		next.Groups = slices.Clone(state.Groups)
		next.Groups[gi] = next.Groups[gi].Clone()
		e.rerank(&next, gi)
	}
	return next, nil
}

func (e *Engine) editDetails(state models.TournamentState, a EditTournamentDetails) (models.TournamentState, error) {
	name := strings.TrimSpace(a.Name)
	if name == "" {
		return state, ErrEmptyName
	}
	if !a.Sport.Valid() {
		return state, fmt.Errorf("%w: %q", ErrInvalidSport, a.Sport)
	}
	next := state
	next.Name = name
	next.Sport = a.Sport
	return next, nil
}

// rerank rewrites the team order of group gi. The group must already be a private
// copy in state.
func (e *Engine) rerank(state *models.TournamentState, gi int) {
	g := &state.Groups[gi]
	g.TeamIDs = teamIDs(standings.Rank(standings.GroupTeams(state, *g), state.Sport, e.ranking))
}

// refreshGreenCards recomputes every team's card total. state.Teams must already be
// a private copy.
func refreshGreenCards(state *models.TournamentState) {
	totals := standings.GreenCards(state.AllMatches())
	for i := range state.Teams {
		state.Teams[i].GreenCards = totals[state.Teams[i].ID]
	}
}

// applyScore validates in and writes it into m, marking the match as played.
func applyScore(m *models.Match, in models.ScoreInput, sport models.Sport) error {
	if in.Team1GreenCards < 0 || in.Team2GreenCards < 0 {
		return fmt.Errorf("%w: negative green cards", ErrInvalidScore)
	}
	m.Team1GreenCards = in.Team1GreenCards
	m.Team2GreenCards = in.Team2GreenCards

	if sport.IsNetSet() {
		won1, won2, err := countSets(in.Team1SetScores, in.Team2SetScores)
		if err != nil {
			return err
		}
		m.Team1Score, m.Team2Score = won1, won2
		m.Team1SetScores = slices.Clone(in.Team1SetScores)
		m.Team2SetScores = slices.Clone(in.Team2SetScores)
	} else {
		if in.Team1Score < 0 || in.Team2Score < 0 {
			return fmt.Errorf("%w: negative score", ErrInvalidScore)
		}
		m.Team1Score, m.Team2Score = in.Team1Score, in.Team2Score
		m.Team1SetScores = []int{}
		m.Team2SetScores = []int{}
	}
	m.Played = true
	return nil
}

// countSets derives set wins from the per-set points. Sequences must be non-empty,
// of equal length, with no tied or negative set, and must not end level.
func countSets(sets1, sets2 []int) (won1, won2 int, err error) {
	if len(sets1) == 0 || len(sets1) != len(sets2) {
		return 0, 0, fmt.Errorf("%w: set sequences must be non-empty and of equal length", ErrInvalidScore)
	}
	for i := range sets1 {
		a, b := sets1[i], sets2[i]
		switch {
		case a < 0 || b < 0:
			return 0, 0, fmt.Errorf("%w: negative points in set %d", ErrInvalidScore, i+1)
		case a == b:
			return 0, 0, fmt.Errorf("%w: set %d is tied", ErrInvalidScore, i+1)
		case a > b:
			won1++
		default:
			won2++
		}
	}
	if won1 == won2 {
		return 0, 0, fmt.Errorf("%w: sets won are level %d-%d", ErrInvalidScore, won1, won2)
	}
	return won1, won2, nil
}

func teamIDs(teams []models.Team) []int {
	ids := make([]int, len(teams))
	for i, t := range teams {
		ids[i] = t.ID
	}
	return ids
}
