// Package history is the client-side replay engine: it keeps the event log
// sorted by timestamp, memoizes intermediate snapshots to make random access
// cheap, and layers unacknowledged optimistic events on top.
package history

import (
	"sort"
	"time"

	"github.com/crossplay/backend/internal/apperr"
	"github.com/crossplay/backend/internal/events"
	"github.com/crossplay/backend/internal/game"
)

const (
	// DefaultMemoRate memoizes every Nth snapshot.
	DefaultMemoRate = 10
	// optimisticWatchdog is how long an optimistic event may sit
	// unacknowledged before the transport is considered dropped.
	optimisticWatchdog = 5 * time.Second
	// optimisticSkew is added to the last server timestamp so optimistic
	// events sort after everything confirmed.
	optimisticSkew = 1000
)

type checkpoint struct {
	index int
	state *game.State
}

// Optimistic is a locally applied event awaiting server confirmation.
type Optimistic struct {
	Event    events.Event
	Deadline time.Time
}

// History replays a single game's event log. It is not safe for concurrent
// use; each consumer owns its instance.
type History struct {
	memoRate int
	now      func() time.Time

	events []events.Event
	// gameTimestamps[i] is the trueTotalTime of the snapshot at index i,
	// backfilled on insertion; used by SnapshotAt.
	gameTimestamps []int64
	memo           []checkpoint
	optimistic     []Optimistic

	lastServerTimestamp int64
}

func New(memoRate int) *History {
	if memoRate <= 0 {
		memoRate = DefaultMemoRate
	}
	return &History{
		memoRate: memoRate,
		now:      time.Now,
		// Seed checkpoint: the nil state before any event.
		memo: []checkpoint{{index: -1, state: nil}},
	}
}

// Len returns the number of confirmed events.
func (h *History) Len() int { return len(h.events) }

// Events returns the confirmed log in replay order.
func (h *History) Events() []events.Event { return h.events }

// AddEvent inserts a confirmed event by timestamp, discards a matching
// optimistic event, invalidates stale memo entries and re-memoizes forward.
func (h *History) AddEvent(e events.Event) error {
	if len(h.events) > 0 && h.events[0].Type == events.TypeCreate && e.Timestamp < h.events[0].Timestamp {
		return apperr.Validation("event predates the create event")
	}

	// Upper bound: equal timestamps keep insertion order.
	idx := sort.Search(len(h.events), func(i int) bool {
		return h.events[i].Timestamp > e.Timestamp
	})

	h.events = append(h.events, events.Event{})
	copy(h.events[idx+1:], h.events[idx:])
	h.events[idx] = e

	h.gameTimestamps = append(h.gameTimestamps, 0)
	copy(h.gameTimestamps[idx+1:], h.gameTimestamps[idx:])

	if e.ID != "" {
		h.dropOptimistic(e.ID)
	}
	if e.Timestamp > h.lastServerTimestamp {
		h.lastServerTimestamp = e.Timestamp
	}

	// Invalidate every checkpoint at or beyond the insertion point; the
	// seed at -1 always survives.
	valid := sort.Search(len(h.memo), func(i int) bool {
		return h.memo[i].index >= idx
	})
	h.memo = h.memo[:valid]

	// Replay forward from the last surviving checkpoint, memoizing every
	// memoRate-th index and backfilling game timestamps.
	last := h.memo[len(h.memo)-1]
	state := last.state
	for i := last.index + 1; i < len(h.events); i++ {
		state = game.Reduce(state, h.events[i], false)
		if state != nil {
			h.gameTimestamps[i] = state.Clock.TrueTotalTime
		}
		if (i+1)%h.memoRate == 0 {
			h.memo = append(h.memo, checkpoint{index: i, state: state})
		}
	}

	return nil
}

// SnapshotAtIndex returns the state after reducing events[0..i]. With
// optimistic set, unconfirmed events are applied on top. The memo is only a
// cache: the reducer is pure, so any checkpoint prefix yields the same
// result.
func (h *History) SnapshotAtIndex(i int, optimistic bool) *game.State {
	if i < -1 {
		i = -1
	}
	if i >= len(h.events) {
		i = len(h.events) - 1
	}

	// Largest checkpoint with index <= i.
	pos := sort.Search(len(h.memo), func(j int) bool {
		return h.memo[j].index > i
	}) - 1
	cp := h.memo[pos]

	state := cp.state
	for j := cp.index + 1; j <= i; j++ {
		state = game.Reduce(state, h.events[j], false)
	}

	if optimistic {
		for _, o := range h.optimistic {
			state = game.Reduce(state, o.Event, true)
		}
	}
	return state
}

// Snapshot returns the current confirmed state, with optimistic events
// applied when requested.
func (h *History) Snapshot(optimistic bool) *game.State {
	return h.SnapshotAtIndex(len(h.events)-1, optimistic)
}

// SnapshotAt returns the snapshot immediately before the given game
// timestamp (trueTotalTime milliseconds).
func (h *History) SnapshotAt(gameTimestamp int64) *game.State {
	idx := sort.Search(len(h.gameTimestamps), func(i int) bool {
		return h.gameTimestamps[i] >= gameTimestamp
	})
	return h.SnapshotAtIndex(idx-1, false)
}

// AddOptimisticEvent queues a locally generated event. Its provisional
// timestamp sorts after all confirmed events; the watchdog deadline marks
// when the transport should be considered dropped.
func (h *History) AddOptimisticEvent(e events.Event) {
	e.Timestamp = h.lastServerTimestamp + optimisticSkew + int64(len(h.optimistic))
	h.optimistic = append(h.optimistic, Optimistic{
		Event:    e,
		Deadline: h.now().Add(optimisticWatchdog),
	})
}

// ExpiredOptimistic returns the ids of optimistic events still queued past
// their deadline; callers reconnect when any exist.
func (h *History) ExpiredOptimistic(now time.Time) []string {
	var ids []string
	for _, o := range h.optimistic {
		if now.After(o.Deadline) {
			ids = append(ids, o.Event.ID)
		}
	}
	return ids
}

// OptimisticCount returns the number of queued optimistic events.
func (h *History) OptimisticCount() int { return len(h.optimistic) }

// ClearOptimisticEvents drops the optimistic queue, on explicit reset or
// reconnection.
func (h *History) ClearOptimisticEvents() {
	h.optimistic = nil
}

func (h *History) dropOptimistic(id string) {
	kept := h.optimistic[:0]
	for _, o := range h.optimistic {
		if o.Event.ID != id {
			kept = append(kept, o)
		}
	}
	h.optimistic = kept
}
