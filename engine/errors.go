package engine

import (
	"errors"

	"github.com/Dosada05/tournament-manager/brackets"
)

// Ошибки движка. При любой из них Apply возвращает исходный снимок без изменений.
var (
	// Setup validation
	ErrWrongTeamCount = errors.New("tournament requires exactly 18 team names")
	ErrEmptyTeamName  = errors.New("team name must not be empty")
	ErrEmptyName      = errors.New("tournament name must not be empty")
	ErrInvalidSport   = errors.New("unsupported sport")

	// Lifecycle
	ErrInvalidStatus            = errors.New("action is not allowed in the current tournament status")
	ErrPlayoffsAlreadyGenerated = errors.New("playoffs have already been generated")
	ErrNotEnoughQualifiers      = brackets.ErrNotEnoughQualifiers
	ErrDownstreamDecided        = brackets.ErrDownstreamDecided

	// Lookups
	ErrMatchNotFound = errors.New("match not found")
	ErrTeamNotFound  = errors.New("team not found")

	// Results
	ErrInvalidScore     = errors.New("invalid score")
	ErrPlayoffDraw      = errors.New("a playoff match cannot end in a draw")
	ErrMatchNotReady    = errors.New("playoff match does not have both teams yet")
	ErrWinnerNotInMatch = errors.New("winner is not a participant of the match")

	ErrUnknownAction = errors.New("unknown action")
)
