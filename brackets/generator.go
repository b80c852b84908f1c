package brackets

import "fmt"

// Fixed tournament format.
const (
	GroupCount = 6
	GroupSize  = 3
	TeamCount  = GroupCount * GroupSize

	// FirstGroupMatchID is the id of the first group fixture; ids then run in group order.
	FirstGroupMatchID = 1
	// FirstPlayoffMatchID is the id of QF1; the remaining playoff ids follow in
	// bracket order (QF1..QF4, SF1, SF2, third place, final).
	FirstPlayoffMatchID = 100

	WinnersQualified   = GroupCount
	WildcardsQualified = 2
)

// GroupLabel returns the human label of the i-th group: "Grupo A", "Grupo B", ...
func GroupLabel(i int) string {
	return fmt.Sprintf("Grupo %c", 'A'+rune(i))
}
