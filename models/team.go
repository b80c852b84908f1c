package models

// Record is the derived standing of a team inside its group. Every field is
// rebuilt from the group's played matches; nothing here is authoritative.
type Record struct {
	Played int `json:"played"`
	Wins   int `json:"wins"`
	Draws  int `json:"draws"`
	Losses int `json:"losses"`
	Points int `json:"points"`

	// general
	GoalsFor       int `json:"goalsFor"`
	GoalsAgainst   int `json:"goalsAgainst"`
	GoalDifference int `json:"goalDifference"`

	// volleyball
	SetsWon          int `json:"setsWon"`
	SetsLost         int `json:"setsLost"`
	SetDifference    int `json:"setDifference"`
	PointsFor        int `json:"pointsFor"`
	PointsAgainst    int `json:"pointsAgainst"`
	PointsDifference int `json:"pointsDifference"`
}

// Team is the single store entry for a team. Groups and matches refer to it by ID.
type Team struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Record

	// GreenCards is summed over every played match of the team, group and playoff.
	GreenCards int `json:"greenCards"`
}

// FindTeam returns the index of the team with the given id or -1.
func FindTeam(teams []Team, id int) int {
	for i := range teams {
		if teams[i].ID == id {
			return i
		}
	}
	return -1
}
