package ws

import (
	"encoding/json"

	"github.com/crossplay/backend/internal/events"
)

// Inbound RPC names.
const (
	MsgJoinGame         = "join_game"
	MsgLeaveGame        = "leave_game"
	MsgSyncAllGame      = "sync_all_game_events"
	MsgSyncRecentGame   = "sync_recent_game_events"
	MsgSyncArchivedGame = "sync_archived_game_events"
	MsgGameEvent        = "game_event"
	MsgJoinRoom         = "join_room"
	MsgLeaveRoom        = "leave_room"
	MsgSyncAllRoom      = "sync_all_room_events"
	MsgRoomEvent        = "room_event"
	MsgLatencyPing      = "latency_ping"
)

// Outbound message types. Pushed game/room events reuse the inbound names.
const (
	MsgAck  = "ack"
	MsgPong = "pong"
)

// Request is one inbound RPC. ID correlates the ack; each request receives
// exactly one ack.
type Request struct {
	Type    string          `json:"type"`
	ID      int64           `json:"id"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response is an ack or a server push.
type Response struct {
	Type    string        `json:"type"`
	ID      int64         `json:"id,omitempty"`
	Payload any           `json:"payload,omitempty"`
	Error   *ErrorPayload `json:"error,omitempty"`
}

type ErrorPayload struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

// RPC payloads.

type gamePayload struct {
	GID string `json:"gid"`
}

type roomPayload struct {
	RID string `json:"rid"`
}

type syncRecentPayload struct {
	GID   string `json:"gid"`
	Limit int    `json:"limit,omitempty"`
}

type syncArchivedPayload struct {
	GID    string `json:"gid"`
	Offset int    `json:"offset,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

type gameEventPayload struct {
	GID   string          `json:"gid"`
	Event events.RawEvent `json:"event"`
}

type roomEventPayload struct {
	RID   string          `json:"rid"`
	Event events.RawEvent `json:"event"`
}

type latencyPingPayload struct {
	Timestamp json.RawMessage `json:"timestamp"`
}

// Push payloads.

type gameEventPush struct {
	GID   string       `json:"gid"`
	Event events.Event `json:"event"`
}

type roomEventPush struct {
	RID   string       `json:"rid"`
	Event events.Event `json:"event"`
}

type pongPayload struct {
	ClientTimestamp float64 `json:"clientTimestamp"`
	ServerTimestamp int64   `json:"serverTimestamp"`
}

type ackOK struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

type syncResult struct {
	Events []events.Event `json:"events"`
	Total  int            `json:"total"`
}
