package events

import (
	"encoding/json"
)

// Type identifies a game event.
type Type string

const (
	TypeCreate            Type = "create"
	TypeUpdateCell        Type = "updateCell"
	TypeUpdateCursor      Type = "updateCursor"
	TypeCheck             Type = "check"
	TypeReveal            Type = "reveal"
	TypeReset             Type = "reset"
	TypeRevealAllClues    Type = "revealAllClues"
	TypeStartGame         Type = "startGame"
	TypeSendChatMessage   Type = "sendChatMessage"
	TypeUpdateDisplayName Type = "updateDisplayName"
	TypeUpdateTeamName    Type = "updateTeamName"
	TypeUpdateTeamID      Type = "updateTeamId"
	TypeClockStart        Type = "clockStart"
	TypeClockPause        Type = "clockPause"
	TypeClockReset        Type = "clockReset"
	TypeMarkSolved        Type = "markSolved"
	TypeUnmarkSolved      Type = "unmarkSolved"
)

// Room event types. Rooms are containers for a sequence of games and carry
// presence-style events rather than grid mutations.
const (
	RoomUserJoin  Type = "USER_JOIN"
	RoomUserLeave Type = "USER_LEAVE"
	RoomUserPing  Type = "USER_PING"
	RoomSetGame   Type = "SET_GAME"
	RoomChat      Type = "CHAT"
	RoomPresence  Type = "PRESENCE"
)

var gameTypes = map[Type]struct{}{
	TypeCreate: {}, TypeUpdateCell: {}, TypeUpdateCursor: {}, TypeCheck: {},
	TypeReveal: {}, TypeReset: {}, TypeRevealAllClues: {}, TypeStartGame: {},
	TypeSendChatMessage: {}, TypeUpdateDisplayName: {}, TypeUpdateTeamName: {},
	TypeUpdateTeamID: {}, TypeClockStart: {}, TypeClockPause: {},
	TypeClockReset: {}, TypeMarkSolved: {}, TypeUnmarkSolved: {},
}

var roomTypes = map[Type]struct{}{
	RoomUserJoin: {}, RoomUserLeave: {}, RoomUserPing: {},
	RoomSetGame: {}, RoomChat: {}, RoomPresence: {},
}

// KnownGameType reports whether t is a recognized game event type.
func KnownGameType(t Type) bool {
	_, ok := gameTypes[t]
	return ok
}

// KnownRoomType reports whether t is a recognized room event type.
func KnownRoomType(t Type) bool {
	_, ok := roomTypes[t]
	return ok
}

// Event is the canonical, persisted form of a game or room event. Timestamp
// is milliseconds since epoch and always positive after server-side coercion.
// ID is an optional client-assigned identifier used to reconcile optimistic
// events.
type Event struct {
	Type      Type            `json:"type"`
	Timestamp int64           `json:"timestamp"`
	User      string          `json:"user,omitempty"`
	ID        string          `json:"id,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
}

// CellRef addresses one grid cell.
type CellRef struct {
	R int `json:"r"`
	C int `json:"c"`
}

// CreateParams is the payload of a create event. Game holds the initial
// state snapshot (info, grid, solution, clues, circles, shades).
type CreateParams struct {
	PID     string          `json:"pid"`
	Version float64         `json:"version"`
	Game    json.RawMessage `json:"game"`
}

type UpdateCellParams struct {
	Cell      CellRef `json:"cell"`
	Value     string  `json:"value"`
	Autocheck bool    `json:"autocheck"`
	ID        string  `json:"id"`
	Pencil    bool    `json:"pencil,omitempty"`
}

type UpdateCursorParams struct {
	Cell      CellRef `json:"cell"`
	ID        string  `json:"id"`
	Timestamp int64   `json:"timestamp,omitempty"`
}

// ScopeParams covers check, reveal and reset.
type ScopeParams struct {
	Scope []CellRef `json:"scope"`
	ID    string    `json:"id,omitempty"`
}

type ChatParams struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type DisplayNameParams struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type TeamNameParams struct {
	ID       string `json:"id"`
	TeamName string `json:"teamName"`
}

type TeamIDParams struct {
	ID     string `json:"id"`
	TeamID int    `json:"teamId"`
}
