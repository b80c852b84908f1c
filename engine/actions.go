package engine

import (
	"encoding/json"
	"fmt"

	"github.com/Dosada05/tournament-manager/models"
)

type ActionType string

const (
	ActionSetupTournament       ActionType = "SETUP_TOURNAMENT"
	ActionUpdateMatchScore      ActionType = "UPDATE_MATCH_SCORE"
	ActionGeneratePlayoffs      ActionType = "GENERATE_PLAYOFFS"
	ActionEditTeamName          ActionType = "EDIT_TEAM_NAME"
	ActionEditTournamentDetails ActionType = "EDIT_TOURNAMENT_DETAILS"
	ActionOverridePlayoffWinner ActionType = "OVERRIDE_PLAYOFF_WINNER"
)

// Action is one of the six state transitions the engine understands.
type Action interface {
	Type() ActionType
}

type SetupTournament struct {
	// Name is optional; when empty the snapshot keeps its current name.
	Name      string       `json:"name,omitempty"`
	TeamNames []string     `json:"teams"`
	Sport     models.Sport `json:"sport"`
}

type UpdateMatchScore struct {
	MatchID int               `json:"matchId"`
	Scores  models.ScoreInput `json:"scores"`
	// MatchType may be left empty, the engine then looks the id up in the groups
	// first and the bracket second.
	MatchType models.MatchType `json:"matchType,omitempty"`
}

type GeneratePlayoffs struct{}

type EditTeamName struct {
	TeamID  int    `json:"teamId"`
	NewName string `json:"newName"`
}

type EditTournamentDetails struct {
	Name  string       `json:"name"`
	Sport models.Sport `json:"sport"`
}

type OverridePlayoffWinner struct {
	MatchID  int `json:"matchId"`
	WinnerID int `json:"winnerId"`
}

func (SetupTournament) Type() ActionType       { return ActionSetupTournament }
func (UpdateMatchScore) Type() ActionType      { return ActionUpdateMatchScore }
func (GeneratePlayoffs) Type() ActionType      { return ActionGeneratePlayoffs }
func (EditTeamName) Type() ActionType          { return ActionEditTeamName }
func (EditTournamentDetails) Type() ActionType { return ActionEditTournamentDetails }
func (OverridePlayoffWinner) Type() ActionType { return ActionOverridePlayoffWinner }

// Envelope is the wire form of an action: {"type": "...", "payload": {...}}.
type Envelope struct {
	Type    ActionType      `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DecodeAction parses an action envelope.
func DecodeAction(data []byte) (Action, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode action envelope: %w", err)
	}
	return env.Action()
}

// Action converts the envelope into a typed action.
func (env Envelope) Action() (Action, error) {
	var action Action
	switch env.Type {
	case ActionSetupTournament:
		action = &SetupTournament{}
	case ActionUpdateMatchScore:
		action = &UpdateMatchScore{}
	case ActionGeneratePlayoffs:
		return GeneratePlayoffs{}, nil
	case ActionEditTeamName:
		action = &EditTeamName{}
	case ActionEditTournamentDetails:
		action = &EditTournamentDetails{}
	case ActionOverridePlayoffWinner:
		action = &OverridePlayoffWinner{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Type)
	}

	if len(env.Payload) == 0 {
		return nil, fmt.Errorf("decode %s: payload is required", env.Type)
	}
	if err := json.Unmarshal(env.Payload, action); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
	}

	switch a := action.(type) {
	case *SetupTournament:
		return *a, nil
	case *UpdateMatchScore:
		return *a, nil
	case *EditTeamName:
		return *a, nil
	case *EditTournamentDetails:
		return *a, nil
	case *OverridePlayoffWinner:
		return *a, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Type)
}

// EncodeAction wraps an action into its envelope form.
func EncodeAction(action Action) ([]byte, error) {
	env := Envelope{Type: action.Type()}
	if _, empty := action.(GeneratePlayoffs); !empty {
		payload, err := json.Marshal(action)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", action.Type(), err)
		}
		env.Payload = payload
	}
	return json.Marshal(env)
}
