package models

// Sport выбирает схему подсчёта очков.
type Sport string

const (
	// SportGeneral covers goal-scoring sports (futsal, basketball, handball): 3/1/0 points.
	SportGeneral Sport = "general"
	// SportVolleyball is a net-set sport: the side with more sets won takes 3 points.
	SportVolleyball Sport = "volleyball"
)

func (s Sport) Valid() bool {
	return s == SportGeneral || s == SportVolleyball
}

// IsNetSet reports whether results are recorded as per-set score sequences.
func (s Sport) IsNetSet() bool {
	return s == SportVolleyball
}
