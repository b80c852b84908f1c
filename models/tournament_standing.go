package models

// TournamentStanding is one row of a computed standings table. It is a view joined
// from the team store on demand and is never persisted.
type TournamentStanding struct {
	Rank    int    `json:"rank"`
	GroupID string `json:"group_id,omitempty"`
	TeamID  int    `json:"team_id"`
	Name    string `json:"name"`
	Record
	GreenCards int `json:"green_cards"`
}

type GroupTable struct {
	GroupID string               `json:"group_id"`
	Rows    []TournamentStanding `json:"rows"`
}

// StandingsView bundles every ranking a tournament shows: group tables, the
// cross-group placement of winners and runners-up, and the fair-play leaderboard.
type StandingsView struct {
	TournamentID string               `json:"tournament_id"`
	Sport        Sport                `json:"sport"`
	Groups       []GroupTable         `json:"groups"`
	Winners      []TournamentStanding `json:"winners"`
	RunnersUp    []TournamentStanding `json:"runners_up"`
	FairPlay     []TournamentStanding `json:"fair_play"`
}
