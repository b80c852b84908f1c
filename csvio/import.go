// Package csvio reads the plain-text tournament import format and writes the CSV
// results export.
package csvio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Dosada05/tournament-manager/brackets"
	"github.com/Dosada05/tournament-manager/models"
)

var (
	ErrTooFewLines  = errors.New("import file must have a name line, a sport line and 18 team lines")
	ErrInvalidSport = errors.New("sport line must be 'general' or 'volleyball'")
)

// Import is a parsed tournament definition.
type Import struct {
	Name  string       `json:"name" yaml:"name"`
	Sport models.Sport `json:"sport" yaml:"sport"`
	Teams []string     `json:"teams" yaml:"teams"`
}

// Parse reads the import format: blank lines are ignored, the first line is the
// tournament name, the second the sport and the next 18 the team names. Lines after
// the 18th team are ignored.
func Parse(r io.Reader) (Import, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return Import{}, fmt.Errorf("read import file: %w", err)
	}

	want := 2 + brackets.TeamCount
	if len(lines) < want {
		return Import{}, fmt.Errorf("%w: found %d lines", ErrTooFewLines, len(lines))
	}

	sport := models.Sport(strings.ToLower(lines[1]))
	if !sport.Valid() {
		return Import{}, fmt.Errorf("%w: got %q", ErrInvalidSport, lines[1])
	}

	return Import{
		Name:  lines[0],
		Sport: sport,
		Teams: lines[2:want],
	}, nil
}
