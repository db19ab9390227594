package puzzle

import (
	"encoding/json"
	"fmt"

	"github.com/crossplay/backend/internal/apperr"
	"github.com/crossplay/backend/internal/game"
)

// ErrEmptyGrid is returned when a puzzle has zero rows or a zero-width row.
var ErrEmptyGrid = fmt.Errorf("%w: EMPTY_GRID", apperr.ErrValidation)

// Puzzle is the input artifact consumed once at game creation. Solution
// cells are letters, or "."/"#"/null for black squares. The puzzle grid
// cells are either a number, the string "#", or an object carrying a cell
// number plus style hints.
type Puzzle struct {
	Info     game.Info           `json:"info"`
	Solution [][]*string         `json:"solution"`
	Grid     [][]json.RawMessage `json:"puzzle"`
	Clues    RawClues            `json:"clues"`
}

// RawClues keeps both directions raw; each may be a pair-array, an object
// array, or a sparse string array (three legacy shapes).
type RawClues struct {
	Across json.RawMessage `json:"across"`
	Down   json.RawMessage `json:"down"`
}

// Clue is the normalized form.
type Clue struct {
	Number int
	Text   string
}

// CellStyle carries the optional style hints of an object-shaped puzzle
// grid cell.
type CellStyle struct {
	ShapeBG string `json:"shapebg,omitempty"`
	FillBG  string `json:"fillbg,omitempty"`
}

type gridCell struct {
	black  bool
	number int
	style  CellStyle
}

// parseGridCell decodes one puzzle grid cell from its three accepted
// shapes.
func parseGridCell(raw json.RawMessage) (gridCell, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return gridCell{black: true}, nil
	}

	var num int
	if err := json.Unmarshal(raw, &num); err == nil {
		return gridCell{number: num}, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "#" {
			return gridCell{black: true}, nil
		}
		return gridCell{}, apperr.Validation("unexpected puzzle cell %q", s)
	}

	var obj struct {
		Cell  int       `json:"cell"`
		Style CellStyle `json:"style"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return gridCell{number: obj.Cell, style: obj.Style}, nil
	}

	return gridCell{}, apperr.Validation("unparseable puzzle cell")
}

func isBlackSolution(s *string) bool {
	return s == nil || *s == "" || *s == "." || *s == "#"
}
