package history

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/crossplay/backend/internal/events"
	"github.com/crossplay/backend/internal/game"
)

func createEvent(t *testing.T, ts int64) events.Event {
	t.Helper()
	state := game.State{
		Grid: [][]game.Cell{
			{{Value: "", Number: 1}, {Value: "", Number: 2}},
			{{Value: "", Number: 3}, {Black: true}},
		},
		Solution: [][]string{{"A", "B"}, {"C", ""}},
	}
	snapshot, err := json.Marshal(state)
	if err != nil {
		t.Fatal(err)
	}
	params, err := json.Marshal(events.CreateParams{PID: "p1", Version: 1, Game: snapshot})
	if err != nil {
		t.Fatal(err)
	}
	return events.Event{Type: events.TypeCreate, Timestamp: ts, Params: params}
}

func chatEvent(t *testing.T, ts int64, id, msg string) events.Event {
	t.Helper()
	params, err := json.Marshal(events.ChatParams{ID: "u1", Message: msg})
	if err != nil {
		t.Fatal(err)
	}
	return events.Event{Type: events.TypeSendChatMessage, Timestamp: ts, ID: id, Params: params}
}

// replayAll reduces the full log from scratch, bypassing the memo.
func replayAll(evs []events.Event) *game.State {
	var s *game.State
	for _, e := range evs {
		s = game.Reduce(s, e, false)
	}
	return s
}

func mustAdd(t *testing.T, h *History, e events.Event) {
	t.Helper()
	if err := h.AddEvent(e); err != nil {
		t.Fatalf("AddEvent: %v", err)
	}
}

func TestSnapshotMatchesFullReplay(t *testing.T) {
	h := New(10)
	mustAdd(t, h, createEvent(t, 1000))
	for i := 0; i < 36; i++ {
		mustAdd(t, h, chatEvent(t, int64(2000+i*100), "", fmt.Sprintf("m%d", i)))
	}

	got, _ := json.Marshal(h.Snapshot(false))
	want, _ := json.Marshal(replayAll(h.Events()))
	if string(got) != string(want) {
		t.Errorf("memoized snapshot diverges from full replay\ngot  %s\nwant %s", got, want)
	}
}

func TestMidLogInsertionInvalidatesMemo(t *testing.T) {
	h := New(5)
	mustAdd(t, h, createEvent(t, 1000))
	for i := 0; i < 30; i++ {
		mustAdd(t, h, chatEvent(t, int64(10000+i*1000), "", fmt.Sprintf("late%d", i)))
	}

	// An event with an earlier timestamp lands in the middle of the log.
	mustAdd(t, h, chatEvent(t, 15500, "", "inserted"))

	evs := h.Events()
	for i := 1; i < len(evs); i++ {
		if evs[i].Timestamp < evs[i-1].Timestamp {
			t.Fatalf("log out of order at %d: %d < %d", i, evs[i].Timestamp, evs[i-1].Timestamp)
		}
	}

	got, _ := json.Marshal(h.Snapshot(false))
	want, _ := json.Marshal(replayAll(evs))
	if string(got) != string(want) {
		t.Error("snapshot after mid-log insertion diverges from full replay")
	}

	state := h.Snapshot(false)
	found := false
	for _, m := range state.Chat.Messages {
		if m.Text == "inserted" {
			found = true
		}
	}
	if !found {
		t.Error("inserted event missing from the snapshot")
	}
}

func TestEqualTimestampsKeepInsertionOrder(t *testing.T) {
	h := New(10)
	mustAdd(t, h, createEvent(t, 1000))
	mustAdd(t, h, chatEvent(t, 2000, "", "first"))
	mustAdd(t, h, chatEvent(t, 2000, "", "second"))

	msgs := h.Snapshot(false).Chat.Messages
	if len(msgs) != 2 || msgs[0].Text != "first" || msgs[1].Text != "second" {
		t.Errorf("messages = %+v, want insertion order preserved", msgs)
	}
}

func TestEventBeforeCreateRejected(t *testing.T) {
	h := New(10)
	mustAdd(t, h, createEvent(t, 5000))
	if err := h.AddEvent(chatEvent(t, 4000, "", "early")); err == nil {
		t.Error("event predating create was accepted")
	}
}

func TestSnapshotAtIndex(t *testing.T) {
	h := New(3)
	mustAdd(t, h, createEvent(t, 1000))
	for i := 0; i < 9; i++ {
		mustAdd(t, h, chatEvent(t, int64(2000+i*100), "", fmt.Sprintf("m%d", i)))
	}

	if s := h.SnapshotAtIndex(-1, false); s != nil {
		t.Error("snapshot before any event should be nil")
	}
	if s := h.SnapshotAtIndex(0, false); len(s.Chat.Messages) != 0 {
		t.Error("snapshot at create should have no messages")
	}
	if s := h.SnapshotAtIndex(5, false); len(s.Chat.Messages) != 5 {
		t.Errorf("snapshot at 5 has %d messages, want 5", len(s.Chat.Messages))
	}
	// Out-of-range indexes clamp.
	if s := h.SnapshotAtIndex(99, false); len(s.Chat.Messages) != 9 {
		t.Errorf("clamped snapshot has %d messages, want 9", len(s.Chat.Messages))
	}
}

func TestOptimisticOverlay(t *testing.T) {
	h := New(10)
	mustAdd(t, h, createEvent(t, 1000))
	mustAdd(t, h, chatEvent(t, 2000, "", "confirmed"))

	h.AddOptimisticEvent(chatEvent(t, 0, "opt-1", "pending"))

	if got := len(h.Snapshot(false).Chat.Messages); got != 1 {
		t.Errorf("confirmed snapshot has %d messages, want 1", got)
	}
	if got := len(h.Snapshot(true).Chat.Messages); got != 2 {
		t.Errorf("optimistic snapshot has %d messages, want 2", got)
	}

	// Confirmation by id drops the optimistic copy.
	mustAdd(t, h, chatEvent(t, 3000, "opt-1", "pending"))
	if h.OptimisticCount() != 0 {
		t.Error("confirmed optimistic event still queued")
	}
	if got := len(h.Snapshot(true).Chat.Messages); got != 2 {
		t.Errorf("post-confirmation snapshot has %d messages, want 2", got)
	}
}

func TestOptimisticTimestampsSortAfterConfirmed(t *testing.T) {
	h := New(10)
	mustAdd(t, h, createEvent(t, 1000))
	mustAdd(t, h, chatEvent(t, 9000, "", "last"))

	h.AddOptimisticEvent(chatEvent(t, 0, "a", "one"))
	h.AddOptimisticEvent(chatEvent(t, 0, "b", "two"))

	msgs := h.Snapshot(true).Chat.Messages
	if len(msgs) != 3 {
		t.Fatalf("message count = %d, want 3", len(msgs))
	}
	if msgs[1].Timestamp != 10000 || msgs[2].Timestamp != 10001 {
		t.Errorf("optimistic timestamps = %d, %d; want 10000, 10001",
			msgs[1].Timestamp, msgs[2].Timestamp)
	}
}

func TestExpiredOptimistic(t *testing.T) {
	h := New(10)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return base }

	mustAdd(t, h, createEvent(t, 1000))
	h.AddOptimisticEvent(chatEvent(t, 0, "opt-1", "pending"))

	if ids := h.ExpiredOptimistic(base.Add(time.Second)); len(ids) != 0 {
		t.Errorf("expired too early: %v", ids)
	}
	ids := h.ExpiredOptimistic(base.Add(6 * time.Second))
	if len(ids) != 1 || ids[0] != "opt-1" {
		t.Errorf("expired = %v, want [opt-1]", ids)
	}

	h.ClearOptimisticEvents()
	if h.OptimisticCount() != 0 {
		t.Error("clear left optimistic events queued")
	}
}

func TestSnapshotAtGameTimestamp(t *testing.T) {
	h := New(10)
	mustAdd(t, h, createEvent(t, 1000))
	mustAdd(t, h, events.Event{Type: events.TypeClockStart, Timestamp: 2000})
	mustAdd(t, h, chatEvent(t, 7000, "", "at5s"))
	mustAdd(t, h, chatEvent(t, 12000, "", "at10s"))

	s := h.SnapshotAt(6000)
	if s == nil {
		t.Fatal("nil snapshot")
	}
	if got := len(s.Chat.Messages); got != 1 {
		t.Errorf("snapshot at 6s of game time has %d messages, want 1", got)
	}
}
