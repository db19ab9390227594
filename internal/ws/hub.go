package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/crossplay/backend/internal/apperr"
	"github.com/crossplay/backend/internal/authz"
	"github.com/crossplay/backend/internal/events"
	"github.com/crossplay/backend/internal/logger"
)

const (
	// syncLimit caps how many events one sync RPC may return.
	syncLimit = 1000
)

// GameStore is the persistence surface the hub needs for game logs.
type GameStore interface {
	Append(ctx context.Context, gid string, e events.Event) error
	List(ctx context.Context, gid string, limit, offset int) ([]events.Event, int, error)
	Creator(ctx context.Context, gid string) (string, error)
	Exists(ctx context.Context, gid string) (bool, error)
}

// RoomStore is the persistence surface for room logs.
type RoomStore interface {
	Append(ctx context.Context, rid string, e events.Event) error
	List(ctx context.Context, rid string, limit, offset int) ([]events.Event, int, error)
	Creator(ctx context.Context, rid string) (string, error)
	Exists(ctx context.Context, rid string) (bool, error)
}

// Config carries the hub's tunables.
type Config struct {
	PingInterval time.Duration
	PingTimeout  time.Duration
	RPCTimeout   time.Duration
	SendBuffer   int
}

func (c *Config) defaults() {
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = 10 * time.Second
	}
	if c.RPCTimeout <= 0 {
		c.RPCTimeout = 30 * time.Second
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 256
	}
}

// Hub fans persisted events out to topic subscribers. Topics are
// "game/<gid>" and "room/<rid>"; subscription state lives only in memory
// and dies with the connection.
type Hub struct {
	games GameStore
	rooms RoomStore
	cfg   Config
	now   func() time.Time

	mu   sync.RWMutex
	subs map[string]map[*Client]struct{}

	pubMu      sync.Mutex
	topicLocks map[string]*sync.Mutex
}

func NewHub(games GameStore, rooms RoomStore, cfg Config) *Hub {
	cfg.defaults()
	return &Hub{
		games:      games,
		rooms:      rooms,
		cfg:        cfg,
		now:        time.Now,
		subs:       make(map[string]map[*Client]struct{}),
		topicLocks: make(map[string]*sync.Mutex),
	}
}

func gameTopic(gid string) string { return "game/" + gid }
func roomTopic(rid string) string { return "room/" + rid }

// publishLock returns the mutex serializing writes to one topic. Holding
// it across append and fan-out keeps the order every subscriber sees
// identical to store commit order.
func (h *Hub) publishLock(topic string) *sync.Mutex {
	h.pubMu.Lock()
	defer h.pubMu.Unlock()
	l, ok := h.topicLocks[topic]
	if !ok {
		l = &sync.Mutex{}
		h.topicLocks[topic] = l
	}
	return l
}

func (h *Hub) subscribe(topic string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[topic]
	if !ok {
		set = make(map[*Client]struct{})
		h.subs[topic] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unsubscribe(topic string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[topic]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.subs, topic)
	}
}

// broadcast delivers msg to every subscriber of topic, including the
// sender. Subscribers are snapshotted first so no send happens under the
// subscription lock.
func (h *Hub) broadcast(topic string, msgType string, payload any) {
	data, err := json.Marshal(Response{Type: msgType, Payload: payload})
	if err != nil {
		logger.Error("marshal broadcast", "topic", topic, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.subs[topic]))
	for c := range h.subs[topic] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.enqueue(data)
	}
}

// PublishGameEvent fans an already-persisted game event out to live
// subscribers. Used by writers outside the websocket path.
func (h *Hub) PublishGameEvent(gid string, e events.Event) {
	lock := h.publishLock(gameTopic(gid))
	lock.Lock()
	defer lock.Unlock()
	h.broadcast(gameTopic(gid), MsgGameEvent, gameEventPush{GID: gid, Event: e})
}

// SubscriberCount reports how many clients currently follow a topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}

// handleRequest dispatches one RPC. Every request gets exactly one ack,
// success or error, carrying the request id.
func (h *Hub) handleRequest(c *Client, req Request) {
	ctx, cancel := context.WithTimeout(c.ctx, h.cfg.RPCTimeout)
	defer cancel()

	var (
		payload any
		err     error
	)

	switch req.Type {
	case MsgJoinGame:
		payload, err = h.joinGame(ctx, c, req.Payload)
	case MsgLeaveGame:
		payload, err = h.leaveGame(c, req.Payload)
	case MsgSyncAllGame:
		payload, err = h.syncAllGame(ctx, c, req.Payload)
	case MsgSyncRecentGame:
		payload, err = h.syncRecentGame(ctx, c, req.Payload)
	case MsgSyncArchivedGame:
		payload, err = h.syncArchivedGame(ctx, c, req.Payload)
	case MsgGameEvent:
		payload, err = h.gameEvent(ctx, c, req.Payload)
	case MsgJoinRoom:
		payload, err = h.joinRoom(ctx, c, req.Payload)
	case MsgLeaveRoom:
		payload, err = h.leaveRoom(c, req.Payload)
	case MsgSyncAllRoom:
		payload, err = h.syncAllRoom(ctx, c, req.Payload)
	case MsgRoomEvent:
		payload, err = h.roomEvent(ctx, c, req.Payload)
	case MsgLatencyPing:
		payload, err = h.latencyPing(c, req.Payload)
	default:
		err = apperr.Validation("unknown rpc %q", req.Type)
	}

	if errors.Is(err, context.DeadlineExceeded) || (err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		err = fmt.Errorf("%w: %s", apperr.ErrTimeout, req.Type)
	}
	if err != nil {
		c.sendError(req.ID, err)
		return
	}
	c.reply(req.ID, payload)
}

func decode[T any](raw json.RawMessage) (T, error) {
	var p T
	if len(raw) == 0 {
		return p, apperr.Validation("missing payload")
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, apperr.Validation("malformed payload: %v", err)
	}
	return p, nil
}

func decisionError(d authz.Decision) error {
	switch d.Reason {
	case authz.ReasonInvalidUser:
		return fmt.Errorf("%w: invalid user id", apperr.ErrUnauthenticated)
	case authz.ReasonNotFound:
		return fmt.Errorf("%w: no such log", apperr.ErrNotFound)
	default:
		return fmt.Errorf("%w: access denied", apperr.ErrForbidden)
	}
}

func (h *Hub) joinGame(ctx context.Context, c *Client, raw json.RawMessage) (any, error) {
	p, err := decode[gamePayload](raw)
	if err != nil {
		return nil, err
	}
	if p.GID == "" {
		return nil, apperr.Validation("gid is required")
	}
	d := authz.ForGame(ctx, h.games, c.UserID, p.GID)
	if !d.OK {
		return nil, decisionError(d)
	}
	c.subscribe(gameTopic(p.GID))
	return ackOK{OK: true, Reason: string(d.Reason)}, nil
}

// leaveGame is idempotent; leaving a topic never joined still acks.
func (h *Hub) leaveGame(c *Client, raw json.RawMessage) (any, error) {
	p, err := decode[gamePayload](raw)
	if err != nil {
		return nil, err
	}
	c.unsubscribe(gameTopic(p.GID))
	return ackOK{OK: true}, nil
}

func (h *Hub) syncAllGame(ctx context.Context, c *Client, raw json.RawMessage) (any, error) {
	p, err := decode[gamePayload](raw)
	if err != nil {
		return nil, err
	}
	d := authz.ForGame(ctx, h.games, c.UserID, p.GID)
	if !d.OK {
		return nil, decisionError(d)
	}
	evs, total, err := h.games.List(ctx, p.GID, 0, 0)
	if err != nil {
		return nil, err
	}
	return syncResult{Events: nonNil(evs), Total: total}, nil
}

// syncRecentGame returns the tail of the log: the last min(limit, 1000)
// events in ascending order.
func (h *Hub) syncRecentGame(ctx context.Context, c *Client, raw json.RawMessage) (any, error) {
	p, err := decode[syncRecentPayload](raw)
	if err != nil {
		return nil, err
	}
	d := authz.ForGame(ctx, h.games, c.UserID, p.GID)
	if !d.OK {
		return nil, decisionError(d)
	}

	limit := p.Limit
	if limit <= 0 || limit > syncLimit {
		limit = syncLimit
	}
	_, total, err := h.games.List(ctx, p.GID, 1, 0)
	if err != nil {
		return nil, err
	}
	evs, total, err := h.games.List(ctx, p.GID, limit, recentOffset(total, limit))
	if err != nil {
		return nil, err
	}
	return syncResult{Events: nonNil(evs), Total: total}, nil
}

// syncArchivedGame pages backwards through the portion of the log older
// than the most recent 1000 events. offset counts from the archive tail.
func (h *Hub) syncArchivedGame(ctx context.Context, c *Client, raw json.RawMessage) (any, error) {
	p, err := decode[syncArchivedPayload](raw)
	if err != nil {
		return nil, err
	}
	if p.Offset < 0 {
		return nil, apperr.Validation("offset must be non-negative")
	}
	d := authz.ForGame(ctx, h.games, c.UserID, p.GID)
	if !d.OK {
		return nil, decisionError(d)
	}

	limit := p.Limit
	if limit <= 0 || limit > syncLimit {
		limit = syncLimit
	}
	_, total, err := h.games.List(ctx, p.GID, 1, 0)
	if err != nil {
		return nil, err
	}
	evs, total, err := h.games.List(ctx, p.GID, limit, archivedStart(total, p.Offset))
	if err != nil {
		return nil, err
	}
	return syncResult{Events: nonNil(evs), Total: total}, nil
}

// gameEvent coerces, validates, authorizes, persists and fans out one
// client event. The sender receives the push as well as the ack.
func (h *Hub) gameEvent(ctx context.Context, c *Client, raw json.RawMessage) (any, error) {
	p, err := decode[gameEventPayload](raw)
	if err != nil {
		return nil, err
	}
	if p.GID == "" {
		return nil, apperr.Validation("gid is required")
	}

	e := p.Event.Coerce(h.now())
	if err := events.ValidateGame(e); err != nil {
		return nil, err
	}

	// Writers to one game are serialized so no subscriber can observe
	// events in an order that differs from the log.
	lock := h.publishLock(gameTopic(p.GID))
	lock.Lock()
	defer lock.Unlock()

	d := authz.ForGame(ctx, h.games, c.UserID, p.GID)
	if e.Type == events.TypeCreate {
		// Creation is the one write allowed against a missing log.
		if d.Reason != authz.ReasonNotFound {
			if !d.OK {
				return nil, decisionError(d)
			}
			return nil, fmt.Errorf("%w: game %s already exists", apperr.ErrConflict, p.GID)
		}
	} else if !d.OK {
		return nil, decisionError(d)
	}

	// The event is attributed to the authenticated connection regardless of
	// what the client claimed.
	e.User = c.UserID

	// Persistence must not be abandoned mid-write when the RPC deadline or
	// the connection goes away.
	if err := h.games.Append(context.WithoutCancel(ctx), p.GID, e); err != nil {
		return nil, err
	}
	EventsPersisted.WithLabelValues("game").Inc()

	h.broadcast(gameTopic(p.GID), MsgGameEvent, gameEventPush{GID: p.GID, Event: e})
	return ackOK{OK: true}, nil
}

func (h *Hub) joinRoom(ctx context.Context, c *Client, raw json.RawMessage) (any, error) {
	p, err := decode[roomPayload](raw)
	if err != nil {
		return nil, err
	}
	if p.RID == "" {
		return nil, apperr.Validation("rid is required")
	}
	d := authz.ForRoom(ctx, h.rooms, c.UserID, p.RID)
	// Rooms are created implicitly by their first event, so joining a room
	// that does not exist yet is allowed.
	if !d.OK && d.Reason != authz.ReasonNotFound {
		return nil, decisionError(d)
	}
	c.subscribe(roomTopic(p.RID))
	return ackOK{OK: true, Reason: string(d.Reason)}, nil
}

func (h *Hub) leaveRoom(c *Client, raw json.RawMessage) (any, error) {
	p, err := decode[roomPayload](raw)
	if err != nil {
		return nil, err
	}
	c.unsubscribe(roomTopic(p.RID))
	return ackOK{OK: true}, nil
}

func (h *Hub) syncAllRoom(ctx context.Context, c *Client, raw json.RawMessage) (any, error) {
	p, err := decode[roomPayload](raw)
	if err != nil {
		return nil, err
	}
	d := authz.ForRoom(ctx, h.rooms, c.UserID, p.RID)
	if !d.OK && d.Reason != authz.ReasonNotFound {
		return nil, decisionError(d)
	}
	evs, total, err := h.rooms.List(ctx, p.RID, 0, 0)
	if err != nil {
		return nil, err
	}
	return syncResult{Events: nonNil(evs), Total: total}, nil
}

func (h *Hub) roomEvent(ctx context.Context, c *Client, raw json.RawMessage) (any, error) {
	p, err := decode[roomEventPayload](raw)
	if err != nil {
		return nil, err
	}
	if p.RID == "" {
		return nil, apperr.Validation("rid is required")
	}

	e := p.Event.Coerce(h.now())
	if err := events.ValidateRoom(e); err != nil {
		return nil, err
	}

	lock := h.publishLock(roomTopic(p.RID))
	lock.Lock()
	defer lock.Unlock()

	d := authz.ForRoom(ctx, h.rooms, c.UserID, p.RID)
	if !d.OK && d.Reason != authz.ReasonNotFound {
		return nil, decisionError(d)
	}

	e.User = c.UserID
	if err := h.rooms.Append(context.WithoutCancel(ctx), p.RID, e); err != nil {
		return nil, err
	}
	EventsPersisted.WithLabelValues("room").Inc()

	h.broadcast(roomTopic(p.RID), MsgRoomEvent, roomEventPush{RID: p.RID, Event: e})
	return ackOK{OK: true}, nil
}

// latencyPing echoes the client clock back together with the server clock.
// The pong goes only to the sender; a missing or non-finite client
// timestamp is rejected rather than echoed.
func (h *Hub) latencyPing(c *Client, raw json.RawMessage) (any, error) {
	p, err := decode[latencyPingPayload](raw)
	if err != nil {
		return nil, err
	}
	if len(p.Timestamp) == 0 || string(p.Timestamp) == "null" {
		return nil, apperr.Validation("timestamp is required")
	}
	var clientTS float64
	if err := json.Unmarshal(p.Timestamp, &clientTS); err != nil {
		return nil, apperr.Validation("timestamp must be a number")
	}
	if math.IsNaN(clientTS) || math.IsInf(clientTS, 0) {
		return nil, apperr.Validation("timestamp must be finite")
	}
	c.push(MsgPong, pongPayload{
		ClientTimestamp: clientTS,
		ServerTimestamp: h.now().UnixMilli(),
	})
	return ackOK{OK: true}, nil
}

// recentOffset positions a tail read of limit events in a log of total.
func recentOffset(total, limit int) int {
	off := total - limit
	if off < 0 {
		off = 0
	}
	return off
}

// archivedStart maps an archive offset (counted back from the newest 1000
// events) onto an absolute log position.
func archivedStart(total, offset int) int {
	start := total - syncLimit - offset
	if start < 0 {
		start = 0
	}
	return start
}

func nonNil(evs []events.Event) []events.Event {
	if evs == nil {
		return []events.Event{}
	}
	return evs
}
