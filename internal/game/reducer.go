package game

import (
	"encoding/json"

	"github.com/crossplay/backend/internal/events"
)

// MaxClockIncrementMS caps the delta added by a single clock tick, so one
// huge gap (a laptop resumed from sleep) cannot dominate the solve time.
var MaxClockIncrementMS int64 = 30000

// SetMaxClockIncrement overrides the tick ceiling; called once at startup
// from configuration.
func SetMaxClockIncrement(ms int64) {
	if ms > 0 {
		MaxClockIncrementMS = ms
	}
}

// Reduce is the pure state transition: (state, event) -> state. The input
// state is never mutated. A nil state only accepts a create event; anything
// else returns the input unchanged. Unknown event types return the input
// unchanged. The optimistic flag does not alter semantics; callers treat
// optimistic results as provisional.
func Reduce(s *State, e events.Event, optimistic bool) *State {
	_ = optimistic

	if e.Type == events.TypeCreate {
		if s != nil {
			// A second create is a store-level conflict; the reducer is
			// defensive and ignores it.
			return s
		}
		return reduceCreate(e)
	}
	if s == nil {
		return nil
	}
	if !events.KnownGameType(e.Type) {
		return s
	}

	next := s.Clone()

	switch e.Type {
	case events.TypeClockReset:
		next.Clock.TotalTime = 0
		next.Clock.TrueTotalTime = 0
		next.Clock.LastUpdated = e.Timestamp
		return next
	case events.TypeClockStart, events.TypeStartGame:
		next.tick(e.Timestamp, false)
		return next
	case events.TypeClockPause:
		next.tick(e.Timestamp, true)
		return next
	}

	next.tick(e.Timestamp, next.Clock.Paused)

	switch e.Type {
	case events.TypeUpdateCell:
		var p events.UpdateCellParams
		if json.Unmarshal(e.Params, &p) == nil {
			next.applyUpdateCell(p)
		}

	case events.TypeUpdateCursor:
		var p events.UpdateCursorParams
		if json.Unmarshal(e.Params, &p) == nil {
			ts := p.Timestamp
			if ts == 0 {
				ts = e.Timestamp
			}
			next.applyCursor(Cursor{ID: p.ID, R: p.Cell.R, C: p.Cell.C, Timestamp: ts})
		}

	case events.TypeCheck:
		var p events.ScopeParams
		if json.Unmarshal(e.Params, &p) == nil {
			next.applyCheck(p.Scope)
		}

	case events.TypeReveal:
		var p events.ScopeParams
		if json.Unmarshal(e.Params, &p) == nil {
			next.applyReveal(p.Scope)
		}

	case events.TypeReset:
		var p events.ScopeParams
		if json.Unmarshal(e.Params, &p) == nil {
			next.applyReset(p.Scope)
		}

	case events.TypeRevealAllClues:
		next.CluesRevealed = true

	case events.TypeSendChatMessage:
		var p events.ChatParams
		if json.Unmarshal(e.Params, &p) == nil {
			next.Chat.Messages = append(next.Chat.Messages, ChatMessage{
				ID:        p.ID,
				Text:      p.Message,
				Timestamp: e.Timestamp,
			})
		}

	case events.TypeUpdateDisplayName:
		var p events.DisplayNameParams
		if json.Unmarshal(e.Params, &p) == nil {
			meta := next.userMeta(p.ID)
			meta.DisplayName = p.DisplayName
			next.Users[p.ID] = meta
		}

	case events.TypeUpdateTeamName:
		var p events.TeamNameParams
		if json.Unmarshal(e.Params, &p) == nil {
			meta := next.userMeta(p.ID)
			meta.TeamName = p.TeamName
			next.Users[p.ID] = meta
		}

	case events.TypeUpdateTeamID:
		var p events.TeamIDParams
		if json.Unmarshal(e.Params, &p) == nil && p.TeamID >= 0 && p.TeamID <= 2 {
			meta := next.userMeta(p.ID)
			meta.TeamID = p.TeamID
			next.Users[p.ID] = meta
		}

	case events.TypeMarkSolved:
		if next.Contest() {
			next.ContestSolved = true
			next.Solved = true
		}

	case events.TypeUnmarkSolved:
		if next.Contest() {
			next.ContestSolved = false
			next.Solved = false
		}
	}

	return next
}

func reduceCreate(e events.Event) *State {
	var p events.CreateParams
	if err := json.Unmarshal(e.Params, &p); err != nil {
		return nil
	}

	var s State
	if err := json.Unmarshal(p.Game, &s); err != nil {
		return nil
	}

	// The snapshot may carry stale runtime fields; the initial state is
	// always fresh.
	s.Clock = Clock{Paused: true, TotalTime: 0, TrueTotalTime: 0, LastUpdated: e.Timestamp}
	s.Solved = false
	s.ContestSolved = false
	s.Chat = Chat{Messages: []ChatMessage{}}
	s.Cursors = []Cursor{}
	return &s
}

// tick advances the clock to now, clamping the delta, then applies the new
// paused flag.
func (s *State) tick(now int64, paused bool) {
	delta := now - s.Clock.LastUpdated
	if delta < 0 {
		delta = 0
	}
	if delta > MaxClockIncrementMS {
		delta = MaxClockIncrementMS
	}
	if !s.Clock.Paused {
		s.Clock.TotalTime += delta
		s.Clock.TrueTotalTime += delta
	}
	s.Clock.Paused = paused
	s.Clock.LastUpdated = now
}

func (s *State) inBounds(r, c int) bool {
	return r >= 0 && r < len(s.Grid) && c >= 0 && c < len(s.Grid[r])
}

func (s *State) applyUpdateCell(p events.UpdateCellParams) {
	if !s.inBounds(p.Cell.R, p.Cell.C) {
		return
	}
	cell := &s.Grid[p.Cell.R][p.Cell.C]
	if cell.Black || cell.Good {
		return
	}

	cell.Value = p.Value
	cell.Bad = false
	cell.Pencil = p.Pencil
	cell.SolvedByUser = p.ID

	if p.Autocheck && !s.Contest() && s.Solution[p.Cell.R][p.Cell.C] != "" && cell.Value != "" {
		if cell.Value == s.Solution[p.Cell.R][p.Cell.C] {
			cell.Good = true
		} else {
			cell.Bad = true
		}
	}

	s.recomputeSolved()
}

func (s *State) applyCursor(cur Cursor) {
	for i := range s.Cursors {
		if s.Cursors[i].ID == cur.ID {
			s.Cursors[i] = cur
			return
		}
	}
	s.Cursors = append(s.Cursors, cur)
}

func (s *State) applyCheck(scope []events.CellRef) {
	if s.Contest() {
		return
	}
	for _, ref := range scope {
		if !s.inBounds(ref.R, ref.C) {
			continue
		}
		cell := &s.Grid[ref.R][ref.C]
		if cell.Black || cell.Value == "" {
			continue
		}
		if cell.Value == s.Solution[ref.R][ref.C] {
			cell.Good = true
			cell.Bad = false
		} else {
			cell.Bad = true
			cell.Good = false
		}
	}
}

func (s *State) applyReveal(scope []events.CellRef) {
	if s.Contest() {
		return
	}
	for _, ref := range scope {
		if !s.inBounds(ref.R, ref.C) {
			continue
		}
		cell := &s.Grid[ref.R][ref.C]
		if cell.Black || s.Solution[ref.R][ref.C] == "" {
			continue
		}
		wasCorrect := cell.Value == s.Solution[ref.R][ref.C]
		cell.Value = s.Solution[ref.R][ref.C]
		cell.Good = true
		cell.Bad = false
		if !wasCorrect {
			cell.Revealed = true
		}
	}
	s.recomputeSolved()
}

func (s *State) applyReset(scope []events.CellRef) {
	for _, ref := range scope {
		if !s.inBounds(ref.R, ref.C) {
			continue
		}
		cell := &s.Grid[ref.R][ref.C]
		if cell.Black {
			continue
		}
		cell.Value = ""
		cell.Good = false
		cell.Bad = false
		cell.Revealed = false
	}
	s.recomputeSolved()
}

// recomputeSolved maintains the solved invariant for non-contest puzzles.
// On the transition to solved the clock pauses.
func (s *State) recomputeSolved() {
	if s.Contest() {
		s.Solved = s.ContestSolved
		return
	}
	wasSolved := s.Solved
	s.Solved = s.isGridSolved()
	if s.Solved && !wasSolved {
		s.Clock.Paused = true
	}
}

func (s *State) userMeta(id string) UserMeta {
	if s.Users == nil {
		s.Users = make(map[string]UserMeta)
	}
	return s.Users[id]
}
