package game

// Cell is the runtime state of one grid square.
type Cell struct {
	Value        string `json:"value"`
	SolvedByUser string `json:"solvedByUser,omitempty"`
	Good         bool   `json:"good,omitempty"`
	Bad          bool   `json:"bad,omitempty"`
	Revealed     bool   `json:"revealed,omitempty"`
	Pencil       bool   `json:"pencil,omitempty"`
	Black        bool   `json:"black"`
	Number       int    `json:"number,omitempty"`
}

// Clock tracks accumulated solve time in milliseconds.
type Clock struct {
	Paused        bool  `json:"paused"`
	TotalTime     int64 `json:"totalTime"`
	TrueTotalTime int64 `json:"trueTotalTime"`
	LastUpdated   int64 `json:"lastUpdated"`
}

// Info is the puzzle metadata carried in the create event.
type Info struct {
	Title       string `json:"title,omitempty"`
	Author      string `json:"author,omitempty"`
	Copyright   string `json:"copyright,omitempty"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
}

// Clues are sparse arrays indexed by cell number.
type Clues struct {
	Across []string `json:"across"`
	Down   []string `json:"down"`
}

type ChatMessage struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

type Chat struct {
	Messages []ChatMessage `json:"messages"`
}

type Cursor struct {
	ID        string `json:"id"`
	R         int    `json:"r"`
	C         int    `json:"c"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// UserMeta is per-user presentation state attached to a game.
type UserMeta struct {
	DisplayName string `json:"displayName,omitempty"`
	TeamName    string `json:"teamName,omitempty"`
	TeamID      int    `json:"teamId,omitempty"`
}

// State is the live snapshot of one game, produced by reducing its event
// log. Solution cells are "" for black squares.
type State struct {
	Info          Info                `json:"info"`
	Grid          [][]Cell            `json:"grid"`
	Solution      [][]string          `json:"solution"`
	Clues         Clues               `json:"clues"`
	Circles       []int               `json:"circles,omitempty"`
	Shades        []int               `json:"shades,omitempty"`
	Chat          Chat                `json:"chat"`
	Cursors       []Cursor            `json:"cursors"`
	Users         map[string]UserMeta `json:"users,omitempty"`
	Clock         Clock               `json:"clock"`
	Solved        bool                `json:"solved"`
	ContestSolved bool                `json:"contestSolved,omitempty"`
	CluesRevealed bool                `json:"cluesRevealed,omitempty"`
}

// Contest reports whether this is a contest puzzle, whose solved flag is
// driven by markSolved/unmarkSolved instead of the grid.
func (s *State) Contest() bool {
	return s.Info.Type == "contest"
}

// Clone returns a deep copy. The reducer never mutates its input, so
// callers may retain returned states indefinitely (the history engine memo
// depends on this).
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s

	out.Grid = make([][]Cell, len(s.Grid))
	for r := range s.Grid {
		out.Grid[r] = append([]Cell(nil), s.Grid[r]...)
	}
	out.Solution = make([][]string, len(s.Solution))
	for r := range s.Solution {
		out.Solution[r] = append([]string(nil), s.Solution[r]...)
	}
	out.Clues.Across = append([]string(nil), s.Clues.Across...)
	out.Clues.Down = append([]string(nil), s.Clues.Down...)
	out.Circles = append([]int(nil), s.Circles...)
	out.Shades = append([]int(nil), s.Shades...)
	out.Chat.Messages = append([]ChatMessage(nil), s.Chat.Messages...)
	out.Cursors = append([]Cursor(nil), s.Cursors...)
	if s.Users != nil {
		out.Users = make(map[string]UserMeta, len(s.Users))
		for k, v := range s.Users {
			out.Users[k] = v
		}
	}
	return &out
}

// hasSolution reports whether the solution grid carries any letters at all.
// Logs imported from legacy sources may have empty solutions; those games
// can never auto-solve.
func (s *State) hasSolution() bool {
	for _, row := range s.Solution {
		for _, letter := range row {
			if letter != "" {
				return true
			}
		}
	}
	return false
}

// isGridSolved reports whether every non-black cell matches the solution.
func (s *State) isGridSolved() bool {
	if !s.hasSolution() {
		return false
	}
	for r := range s.Grid {
		for c := range s.Grid[r] {
			cell := &s.Grid[r][c]
			if cell.Black {
				continue
			}
			if cell.Value != s.Solution[r][c] {
				return false
			}
		}
	}
	return true
}
