package game

import (
	"encoding/json"
	"testing"

	"github.com/crossplay/backend/internal/events"
)

// newTestState builds a started 2x2 game with a black corner:
//
//	A B
//	C #
func newTestState(t *testing.T, infoType string) *State {
	t.Helper()
	s := &State{
		Info: Info{Title: "test", Type: infoType},
		Grid: [][]Cell{
			{{Value: "", Number: 1}, {Value: "", Number: 2}},
			{{Value: "", Number: 3}, {Black: true}},
		},
		Solution: [][]string{{"A", "B"}, {"C", ""}},
		Clock:    Clock{Paused: true, LastUpdated: 1000},
		Chat:     Chat{Messages: []ChatMessage{}},
		Cursors:  []Cursor{},
	}
	return s
}

func mkEvent(t *testing.T, typ events.Type, ts int64, params any) events.Event {
	t.Helper()
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			t.Fatalf("marshal params: %v", err)
		}
		raw = b
	}
	return events.Event{Type: typ, Timestamp: ts, Params: raw}
}

func cellUpdate(t *testing.T, ts int64, r, c int, value string, autocheck bool) events.Event {
	return mkEvent(t, events.TypeUpdateCell, ts, events.UpdateCellParams{
		Cell:      events.CellRef{R: r, C: c},
		Value:     value,
		Autocheck: autocheck,
		ID:        "u1",
	})
}

func TestReduceCreate(t *testing.T) {
	snapshot, err := json.Marshal(newTestState(t, ""))
	if err != nil {
		t.Fatal(err)
	}
	e := mkEvent(t, events.TypeCreate, 5000, events.CreateParams{PID: "p1", Version: 1, Game: snapshot})

	s := Reduce(nil, e, false)
	if s == nil {
		t.Fatal("create on nil state returned nil")
	}
	if !s.Clock.Paused {
		t.Error("initial clock must be paused")
	}
	if s.Clock.LastUpdated != 5000 {
		t.Errorf("clock lastUpdated = %d, want 5000", s.Clock.LastUpdated)
	}
	if s.Solved {
		t.Error("fresh game must not be solved")
	}

	// A second create leaves the state untouched.
	s2 := Reduce(s, e, false)
	if s2 != s {
		t.Error("second create should return the input state")
	}
}

func TestReduceNilStateIgnoresNonCreate(t *testing.T) {
	e := cellUpdate(t, 1000, 0, 0, "A", false)
	if got := Reduce(nil, e, false); got != nil {
		t.Errorf("non-create on nil state = %+v, want nil", got)
	}
}

func TestReduceUnknownTypeIsNoop(t *testing.T) {
	s := newTestState(t, "")
	got := Reduce(s, events.Event{Type: "explode", Timestamp: 2000}, false)
	if got != s {
		t.Error("unknown event type should return the input state")
	}
}

func TestReduceNeverMutatesInput(t *testing.T) {
	s := newTestState(t, "")
	before, _ := json.Marshal(s)

	Reduce(s, cellUpdate(t, 2000, 0, 0, "A", true), false)
	Reduce(s, mkEvent(t, events.TypeClockStart, 2000, nil), false)

	after, _ := json.Marshal(s)
	if string(before) != string(after) {
		t.Errorf("input state mutated:\nbefore %s\nafter  %s", before, after)
	}
}

func TestSolveGridPausesClock(t *testing.T) {
	s := newTestState(t, "")
	s = Reduce(s, mkEvent(t, events.TypeClockStart, 2000, nil), false)
	if s.Clock.Paused {
		t.Fatal("clock should be running after clockStart")
	}

	s = Reduce(s, cellUpdate(t, 3000, 0, 0, "A", false), false)
	s = Reduce(s, cellUpdate(t, 4000, 0, 1, "B", false), false)
	if s.Solved {
		t.Fatal("grid not yet complete")
	}
	s = Reduce(s, cellUpdate(t, 5000, 1, 0, "C", false), false)

	if !s.Solved {
		t.Fatal("grid complete, state should be solved")
	}
	if !s.Clock.Paused {
		t.Error("clock must pause on the transition to solved")
	}
}

func TestAutocheckMarksGoodAndBad(t *testing.T) {
	s := newTestState(t, "")

	s = Reduce(s, cellUpdate(t, 2000, 0, 0, "X", true), false)
	cell := s.Grid[0][0]
	if cell.Good || !cell.Bad {
		t.Errorf("wrong autochecked cell: good=%v bad=%v, want bad only", cell.Good, cell.Bad)
	}

	s = Reduce(s, cellUpdate(t, 3000, 0, 0, "A", true), false)
	cell = s.Grid[0][0]
	if !cell.Good || cell.Bad {
		t.Errorf("correct autochecked cell: good=%v bad=%v, want good only", cell.Good, cell.Bad)
	}
}

func TestGoodCellsAreSticky(t *testing.T) {
	s := newTestState(t, "")
	s = Reduce(s, cellUpdate(t, 2000, 0, 0, "A", true), false)
	if !s.Grid[0][0].Good {
		t.Fatal("cell should be good")
	}

	s = Reduce(s, cellUpdate(t, 3000, 0, 0, "Z", false), false)
	if got := s.Grid[0][0].Value; got != "A" {
		t.Errorf("good cell overwritten to %q, want A", got)
	}
}

func TestBlackCellsIgnoreWrites(t *testing.T) {
	s := newTestState(t, "")
	s = Reduce(s, cellUpdate(t, 2000, 1, 1, "Z", false), false)
	if s.Grid[1][1].Value != "" {
		t.Error("black cell accepted a value")
	}

	s = Reduce(s, mkEvent(t, events.TypeCheck, 3000, events.ScopeParams{
		Scope: []events.CellRef{{R: 1, C: 1}},
	}), false)
	cell := s.Grid[1][1]
	if cell.Good || cell.Bad {
		t.Error("black cell was checked")
	}
}

func TestCheckSkipsEmptyCells(t *testing.T) {
	s := newTestState(t, "")
	s = Reduce(s, mkEvent(t, events.TypeCheck, 2000, events.ScopeParams{
		Scope: []events.CellRef{{R: 0, C: 0}},
	}), false)
	cell := s.Grid[0][0]
	if cell.Good || cell.Bad {
		t.Error("empty cell should not be marked by check")
	}
}

func TestRevealMarksOnlyIncorrectCells(t *testing.T) {
	s := newTestState(t, "")
	s = Reduce(s, cellUpdate(t, 2000, 0, 0, "A", false), false)
	s = Reduce(s, cellUpdate(t, 2100, 0, 1, "X", false), false)

	s = Reduce(s, mkEvent(t, events.TypeReveal, 3000, events.ScopeParams{
		Scope: []events.CellRef{{R: 0, C: 0}, {R: 0, C: 1}},
	}), false)

	if s.Grid[0][0].Revealed {
		t.Error("cell that was already correct must not be flagged revealed")
	}
	if !s.Grid[0][1].Revealed {
		t.Error("incorrect cell must be flagged revealed")
	}
	if got := s.Grid[0][1].Value; got != "B" {
		t.Errorf("revealed value = %q, want B", got)
	}
	for _, ref := range []events.CellRef{{R: 0, C: 0}, {R: 0, C: 1}} {
		if !s.Grid[ref.R][ref.C].Good {
			t.Errorf("cell %v should be good after reveal", ref)
		}
	}
}

func TestResetClearsCells(t *testing.T) {
	s := newTestState(t, "")
	s = Reduce(s, cellUpdate(t, 2000, 0, 0, "A", true), false)
	s = Reduce(s, mkEvent(t, events.TypeReset, 3000, events.ScopeParams{
		Scope: []events.CellRef{{R: 0, C: 0}},
	}), false)

	cell := s.Grid[0][0]
	if cell.Value != "" || cell.Good || cell.Bad || cell.Revealed {
		t.Errorf("reset left cell %+v", cell)
	}
}

func TestClockCapsLargeGaps(t *testing.T) {
	s := newTestState(t, "")
	s = Reduce(s, mkEvent(t, events.TypeClockStart, 2000, nil), false)

	// Ten minutes of silence only counts as one max increment.
	s = Reduce(s, mkEvent(t, events.TypeClockPause, 602000, nil), false)
	if s.Clock.TotalTime != MaxClockIncrementMS {
		t.Errorf("totalTime = %d, want %d", s.Clock.TotalTime, MaxClockIncrementMS)
	}
}

func TestClockPausedAccumulatesNothing(t *testing.T) {
	s := newTestState(t, "")
	s = Reduce(s, cellUpdate(t, 20000, 0, 0, "A", false), false)
	if s.Clock.TotalTime != 0 {
		t.Errorf("paused clock accumulated %d ms", s.Clock.TotalTime)
	}
}

func TestClockReset(t *testing.T) {
	s := newTestState(t, "")
	s = Reduce(s, mkEvent(t, events.TypeClockStart, 2000, nil), false)
	s = Reduce(s, mkEvent(t, events.TypeClockPause, 7000, nil), false)
	if s.Clock.TotalTime == 0 {
		t.Fatal("clock should have accumulated time")
	}

	s = Reduce(s, mkEvent(t, events.TypeClockReset, 8000, nil), false)
	if s.Clock.TotalTime != 0 || s.Clock.TrueTotalTime != 0 {
		t.Errorf("clockReset left totals %d/%d", s.Clock.TotalTime, s.Clock.TrueTotalTime)
	}
	if s.Clock.LastUpdated != 8000 {
		t.Errorf("clockReset lastUpdated = %d, want 8000", s.Clock.LastUpdated)
	}
}

func TestContestSolveIsManual(t *testing.T) {
	s := newTestState(t, "contest")

	// Filling the grid does not solve a contest puzzle.
	s = Reduce(s, cellUpdate(t, 2000, 0, 0, "A", false), false)
	s = Reduce(s, cellUpdate(t, 2100, 0, 1, "B", false), false)
	s = Reduce(s, cellUpdate(t, 2200, 1, 0, "C", false), false)
	if s.Solved {
		t.Fatal("contest puzzle auto-solved from the grid")
	}

	// Autocheck and check are disabled for contests.
	s = Reduce(s, mkEvent(t, events.TypeCheck, 2300, events.ScopeParams{
		Scope: []events.CellRef{{R: 0, C: 0}},
	}), false)
	if s.Grid[0][0].Good {
		t.Error("check should be a no-op for contest puzzles")
	}

	s = Reduce(s, mkEvent(t, events.TypeMarkSolved, 3000, nil), false)
	if !s.Solved || !s.ContestSolved {
		t.Error("markSolved should solve a contest puzzle")
	}
	s = Reduce(s, mkEvent(t, events.TypeUnmarkSolved, 4000, nil), false)
	if s.Solved || s.ContestSolved {
		t.Error("unmarkSolved should clear the contest solve")
	}
}

func TestMarkSolvedIgnoredOutsideContest(t *testing.T) {
	s := newTestState(t, "")
	s = Reduce(s, mkEvent(t, events.TypeMarkSolved, 2000, nil), false)
	if s.Solved {
		t.Error("markSolved should be a no-op for non-contest puzzles")
	}
}

func TestCursorReplacedByID(t *testing.T) {
	s := newTestState(t, "")
	cursor := func(ts int64, id string, r, c int) events.Event {
		return mkEvent(t, events.TypeUpdateCursor, ts, events.UpdateCursorParams{
			Cell: events.CellRef{R: r, C: c}, ID: id,
		})
	}

	s = Reduce(s, cursor(2000, "u1", 0, 0), false)
	s = Reduce(s, cursor(2100, "u2", 0, 1), false)
	s = Reduce(s, cursor(2200, "u1", 1, 0), false)

	if len(s.Cursors) != 2 {
		t.Fatalf("cursor count = %d, want 2", len(s.Cursors))
	}
	if s.Cursors[0].ID != "u1" || s.Cursors[0].R != 1 || s.Cursors[0].C != 0 {
		t.Errorf("u1 cursor = %+v, want moved to (1,0)", s.Cursors[0])
	}
}

func TestChatAppendsInOrder(t *testing.T) {
	s := newTestState(t, "")
	s = Reduce(s, mkEvent(t, events.TypeSendChatMessage, 2000, events.ChatParams{ID: "u1", Message: "hi"}), false)
	s = Reduce(s, mkEvent(t, events.TypeSendChatMessage, 2100, events.ChatParams{ID: "u2", Message: "hello"}), false)

	if len(s.Chat.Messages) != 2 {
		t.Fatalf("message count = %d, want 2", len(s.Chat.Messages))
	}
	if s.Chat.Messages[0].Text != "hi" || s.Chat.Messages[1].Text != "hello" {
		t.Errorf("messages out of order: %+v", s.Chat.Messages)
	}
}

func TestUserMetaUpdates(t *testing.T) {
	s := newTestState(t, "")
	s = Reduce(s, mkEvent(t, events.TypeUpdateDisplayName, 2000, events.DisplayNameParams{ID: "u1", DisplayName: "Ada"}), false)
	s = Reduce(s, mkEvent(t, events.TypeUpdateTeamID, 2100, events.TeamIDParams{ID: "u1", TeamID: 2}), false)

	meta := s.Users["u1"]
	if meta.DisplayName != "Ada" || meta.TeamID != 2 {
		t.Errorf("user meta = %+v", meta)
	}

	// Out-of-range team ids are dropped.
	s = Reduce(s, mkEvent(t, events.TypeUpdateTeamID, 2200, events.TeamIDParams{ID: "u1", TeamID: 7}), false)
	if s.Users["u1"].TeamID != 2 {
		t.Error("out-of-range teamId applied")
	}
}

func TestEmptySolutionNeverSolves(t *testing.T) {
	s := newTestState(t, "")
	s.Solution = [][]string{{"", ""}, {"", ""}}
	s = Reduce(s, cellUpdate(t, 2000, 0, 0, "A", false), false)
	if s.Solved {
		t.Error("game with an empty solution must never auto-solve")
	}
}
