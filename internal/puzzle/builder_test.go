package puzzle

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/crossplay/backend/internal/apperr"
)

func mustPuzzle(t *testing.T, raw string) *Puzzle {
	t.Helper()
	var p Puzzle
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("unmarshal puzzle: %v", err)
	}
	return &p
}

// A 3x3 grid with a black center cell:
//
//	C A T
//	O . E   (black at 1,1)
//	W E B
//
// Word starts: CAT and COW at (0,0), TEB at (0,2), WEB at (2,0). Cells
// whose across and down runs are both length one get no number.
const testPuzzleJSON = `{
	"info": {"title": "mini", "author": "t"},
	"solution": [["C","A","T"],["O",null,"E"],["W","E","B"]],
	"puzzle": [
		[1, 2, 3],
		[4, "#", {"cell": 5, "style": {"shapebg": "circle"}}],
		[{"cell": 6, "style": {"fillbg": "gray"}}, 7, 0]
	],
	"clues": {
		"across": [[1, "Feline"], [3, "Spider's work"]],
		"down": [[1, "Bovine"], [2, "Tangled trio"]]
	}
}`

func TestBuildInitialGameNumbering(t *testing.T) {
	s, err := BuildInitialGame(mustPuzzle(t, testPuzzleJSON))
	if err != nil {
		t.Fatalf("BuildInitialGame: %v", err)
	}

	wantNumbers := map[[2]int]int{
		{0, 0}: 1, {0, 2}: 2, {2, 0}: 3,
	}
	for r := range s.Grid {
		for c := range s.Grid[r] {
			want := wantNumbers[[2]int{r, c}]
			if got := s.Grid[r][c].Number; got != want {
				t.Errorf("cell (%d,%d) number = %d, want %d", r, c, got, want)
			}
		}
	}

	if !s.Grid[1][1].Black {
		t.Error("cell (1,1) should be black")
	}
	if s.Solution[1][1] != "" {
		t.Error("black solution cell should be empty")
	}
	if s.Solution[0][0] != "C" || s.Solution[2][2] != "B" {
		t.Errorf("solution letters wrong: %v", s.Solution)
	}
}

func TestBuildInitialGameClues(t *testing.T) {
	s, err := BuildInitialGame(mustPuzzle(t, testPuzzleJSON))
	if err != nil {
		t.Fatalf("BuildInitialGame: %v", err)
	}

	if got := s.Clues.Across[1]; got != "Feline" {
		t.Errorf("across[1] = %q, want Feline", got)
	}
	if got := s.Clues.Across[3]; got != "Spider's work" {
		t.Errorf("across[3] = %q", got)
	}
	if got := s.Clues.Down[2]; got != "Tangled trio" {
		t.Errorf("down[2] = %q", got)
	}
	// Numbers without a clue in that direction stay empty.
	if got := s.Clues.Across[2]; got != "" {
		t.Errorf("across[2] = %q, want empty", got)
	}
}

func TestBuildInitialGameStyles(t *testing.T) {
	s, err := BuildInitialGame(mustPuzzle(t, testPuzzleJSON))
	if err != nil {
		t.Fatalf("BuildInitialGame: %v", err)
	}

	// (1,2) is index 5; (2,0) is index 6 in a 3-wide grid.
	if len(s.Circles) != 1 || s.Circles[0] != 5 {
		t.Errorf("circles = %v, want [5]", s.Circles)
	}
	if len(s.Shades) != 1 || s.Shades[0] != 6 {
		t.Errorf("shades = %v, want [6]", s.Shades)
	}
}

func TestBuildInitialGameStartsPaused(t *testing.T) {
	s, err := BuildInitialGame(mustPuzzle(t, testPuzzleJSON))
	if err != nil {
		t.Fatal(err)
	}
	if !s.Clock.Paused || s.Clock.TotalTime != 0 {
		t.Errorf("initial clock = %+v, want paused at zero", s.Clock)
	}
	if s.Solved {
		t.Error("fresh game marked solved")
	}
}

func TestBuildInitialGameEmptyGrid(t *testing.T) {
	for _, raw := range []string{
		`{"solution": []}`,
		`{"solution": [[]]}`,
	} {
		_, err := BuildInitialGame(mustPuzzle(t, raw))
		if !errors.Is(err, ErrEmptyGrid) {
			t.Errorf("BuildInitialGame(%s) = %v, want EMPTY_GRID", raw, err)
		}
	}
}

func TestBuildInitialGameRaggedSolution(t *testing.T) {
	_, err := BuildInitialGame(mustPuzzle(t, `{"solution": [["A","B"],["C"]]}`))
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("ragged solution = %v, want VALIDATION_ERROR", err)
	}
}

func TestBuildInitialGameGridDisagreement(t *testing.T) {
	raw := `{
		"solution": [["A","B"],["C","D"]],
		"puzzle": [[1, 2], ["#", 0]]
	}`
	_, err := BuildInitialGame(mustPuzzle(t, raw))
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("disagreeing grids = %v, want VALIDATION_ERROR", err)
	}
}

func TestBuildInitialGameBadClueNumber(t *testing.T) {
	raw := `{
		"solution": [["A","B"],["C","D"]],
		"clues": {"across": [[9, "Nowhere"]], "down": []}
	}`
	_, err := BuildInitialGame(mustPuzzle(t, raw))
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("out-of-range clue = %v, want VALIDATION_ERROR", err)
	}
}

func TestNormalizeCluesShapes(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []Clue
	}{
		{
			name: "pair arrays",
			raw:  `[[4, "Second"], [1, "First"]]`,
			want: []Clue{{Number: 1, Text: "First"}, {Number: 4, Text: "Second"}},
		},
		{
			name: "object arrays",
			raw:  `[{"number": 1, "clue": "First"}, {"number": 4, "clue": "Second"}]`,
			want: []Clue{{Number: 1, Text: "First"}, {Number: 4, Text: "Second"}},
		},
		{
			name: "object arrays with swapped fields",
			raw:  `[{"number": "First", "clue": 1}]`,
			want: []Clue{{Number: 1, Text: "First"}},
		},
		{
			name: "sparse array",
			raw:  `[null, "First", null, null, "Second"]`,
			want: []Clue{{Number: 1, Text: "First"}, {Number: 4, Text: "Second"}},
		},
		{
			name: "numeric strings",
			raw:  `[["2", "First"]]`,
			want: []Clue{{Number: 2, Text: "First"}},
		},
		{
			name: "null input",
			raw:  `null`,
			want: nil,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := NormalizeClues(json.RawMessage(c.raw))
			if err != nil {
				t.Fatalf("NormalizeClues: %v", err)
			}
			if len(got) != len(c.want) {
				t.Fatalf("got %v, want %v", got, c.want)
			}
			for i := range got {
				if got[i] != c.want[i] {
					t.Errorf("clue %d = %+v, want %+v", i, got[i], c.want[i])
				}
			}
		})
	}
}

func TestNormalizeCluesRejectsGarbage(t *testing.T) {
	for _, raw := range []string{
		`"not an array"`,
		`[[1]]`,
		`[true]`,
	} {
		if _, err := NormalizeClues(json.RawMessage(raw)); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("NormalizeClues(%s) = %v, want VALIDATION_ERROR", raw, err)
		}
	}
}
