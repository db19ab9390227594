package puzzle

import (
	"github.com/crossplay/backend/internal/apperr"
	"github.com/crossplay/backend/internal/game"
)

// BuildInitialGame turns an input puzzle into the initial game state
// snapshotted into the create event: black cells are detected from the
// solution, word-start cells get sequential numbers in row-major order,
// circles and shades are extracted from the puzzle grid styles, and clues
// are normalized into sparse arrays indexed by cell number.
func BuildInitialGame(p *Puzzle) (*game.State, error) {
	h := len(p.Solution)
	if h == 0 {
		return nil, ErrEmptyGrid
	}
	w := len(p.Solution[0])
	for _, row := range p.Solution {
		if len(row) == 0 {
			return nil, ErrEmptyGrid
		}
		if len(row) != w {
			return nil, apperr.Validation("solution rows have unequal widths")
		}
	}

	black := make([][]bool, h)
	for r := range p.Solution {
		black[r] = make([]bool, w)
		for c := range p.Solution[r] {
			black[r][c] = isBlackSolution(p.Solution[r][c])
		}
	}

	// Parse the puzzle grid when present; it must agree with the solution
	// on black squares and is the only source of circle/shade styles.
	styles := make([][]CellStyle, h)
	for r := range styles {
		styles[r] = make([]CellStyle, w)
	}
	if len(p.Grid) > 0 {
		if len(p.Grid) != h {
			return nil, apperr.Validation("puzzle and solution grids disagree on height")
		}
		for r := range p.Grid {
			if len(p.Grid[r]) != w {
				return nil, apperr.Validation("puzzle and solution grids disagree on width")
			}
			for c := range p.Grid[r] {
				cell, err := parseGridCell(p.Grid[r][c])
				if err != nil {
					return nil, err
				}
				if cell.black != black[r][c] {
					return nil, apperr.Validation("puzzle and solution grids disagree on black cell (%d,%d)", r, c)
				}
				styles[r][c] = cell.style
			}
		}
	}

	grid := make([][]game.Cell, h)
	solution := make([][]string, h)
	var circles, shades []int

	isBlack := func(r, c int) bool {
		return r < 0 || r >= h || c < 0 || c >= w || black[r][c]
	}

	number := 0
	acrossStarts := map[int]bool{}
	downStarts := map[int]bool{}
	for r := 0; r < h; r++ {
		grid[r] = make([]game.Cell, w)
		solution[r] = make([]string, w)
		for c := 0; c < w; c++ {
			if black[r][c] {
				grid[r][c] = game.Cell{Black: true}
				continue
			}
			solution[r][c] = *p.Solution[r][c]

			startsAcross := isBlack(r, c-1) && !isBlack(r, c+1)
			startsDown := isBlack(r-1, c) && !isBlack(r+1, c)
			if startsAcross || startsDown {
				number++
				grid[r][c].Number = number
				acrossStarts[number] = startsAcross
				downStarts[number] = startsDown
			}

			idx := r*w + c
			if styles[r][c].ShapeBG == "circle" {
				circles = append(circles, idx)
			}
			if styles[r][c].FillBG != "" {
				shades = append(shades, idx)
			}
		}
	}

	across, err := NormalizeClues(p.Clues.Across)
	if err != nil {
		return nil, err
	}
	down, err := NormalizeClues(p.Clues.Down)
	if err != nil {
		return nil, err
	}

	clues := game.Clues{
		Across: make([]string, number+1),
		Down:   make([]string, number+1),
	}
	for _, cl := range across {
		if cl.Number < 1 || cl.Number > number || !acrossStarts[cl.Number] {
			return nil, apperr.Validation("across clue %d does not start an across word", cl.Number)
		}
		clues.Across[cl.Number] = cl.Text
	}
	for _, cl := range down {
		if cl.Number < 1 || cl.Number > number || !downStarts[cl.Number] {
			return nil, apperr.Validation("down clue %d does not start a down word", cl.Number)
		}
		clues.Down[cl.Number] = cl.Text
	}

	return &game.State{
		Info:     p.Info,
		Grid:     grid,
		Solution: solution,
		Clues:    clues,
		Circles:  circles,
		Shades:   shades,
		Chat:     game.Chat{Messages: []game.ChatMessage{}},
		Cursors:  []game.Cursor{},
		Clock:    game.Clock{Paused: true},
	}, nil
}
