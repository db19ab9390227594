package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/crossplay/backend/internal/apperr"
	"github.com/crossplay/backend/internal/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 1 << 20
)

// Client is one authenticated websocket connection. Its state is mutated
// only by its own read task; the bounded Send channel decouples slow
// consumers from publishers, and overflowing it disconnects the client.
type Client struct {
	UserID string
	ConnID string

	conn *websocket.Conn
	send chan []byte
	hub  *Hub
	log  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	subs map[string]struct{}

	closeOnce sync.Once
}

func newClient(userID string, conn *websocket.Conn, hub *Hub) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	connID := uuid.New().String()
	return &Client{
		UserID: userID,
		ConnID: connID,
		conn:   conn,
		send:   make(chan []byte, hub.cfg.SendBuffer),
		hub:    hub,
		log:    logger.With("conn", connID, "user", userID),
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[string]struct{}),
	}
}

// Run drives the connection until it drops.
func (c *Client) Run() {
	ConnectedClients.Inc()
	defer ConnectedClients.Dec()

	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer c.close()

	pongWait := c.hub.cfg.PingInterval + c.hub.cfg.PingTimeout
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("read error", "error", err)
			}
			return
		}

		var req Request
		if err := json.Unmarshal(msg, &req); err != nil {
			c.sendError(0, apperr.Validation("malformed request"))
			continue
		}

		// Each RPC is handled in its own task; disconnecting cancels all
		// in-flight handlers for this connection.
		go c.hub.handleRequest(c, req)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// enqueue offers a message to the send queue. A full queue means the
// subscriber cannot keep up; it is sent a close frame naming the
// condition and disconnected rather than allowed to stall the publisher.
func (c *Client) enqueue(msg []byte) {
	select {
	case c.send <- msg:
	default:
		BackpressureDrops.Inc()
		c.log.Warn("send queue overflow, disconnecting")
		if c.conn != nil {
			frame := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, apperr.Code(apperr.ErrBackpressure))
			_ = c.conn.WriteControl(websocket.CloseMessage, frame, time.Now().Add(writeWait))
		}
		c.close()
	}
}

func (c *Client) reply(id int64, payload any) {
	data, err := json.Marshal(Response{Type: MsgAck, ID: id, Payload: payload})
	if err != nil {
		c.log.Error("marshal ack", "error", err)
		return
	}
	c.enqueue(data)
}

func (c *Client) push(msgType string, payload any) {
	data, err := json.Marshal(Response{Type: msgType, Payload: payload})
	if err != nil {
		c.log.Error("marshal push", "error", err)
		return
	}
	c.enqueue(data)
}

func (c *Client) sendError(id int64, err error) {
	code := apperr.Code(err)
	RPCErrors.WithLabelValues(code).Inc()
	data, merr := json.Marshal(Response{
		Type:  MsgAck,
		ID:    id,
		Error: &ErrorPayload{Code: code, Message: err.Error()},
	})
	if merr != nil {
		return
	}
	c.enqueue(data)
}

func (c *Client) subscribe(topic string) {
	c.mu.Lock()
	c.subs[topic] = struct{}{}
	c.mu.Unlock()
	c.hub.subscribe(topic, c)
}

func (c *Client) unsubscribe(topic string) {
	c.mu.Lock()
	delete(c.subs, topic)
	c.mu.Unlock()
	c.hub.unsubscribe(topic, c)
}

// close tears the connection down once: cancels in-flight handlers, clears
// subscriptions and closes the socket.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.cancel()

		c.mu.Lock()
		topics := make([]string, 0, len(c.subs))
		for t := range c.subs {
			topics = append(topics, t)
		}
		c.subs = map[string]struct{}{}
		c.mu.Unlock()

		for _, t := range topics {
			c.hub.unsubscribe(t, c)
		}

		if c.conn != nil {
			_ = c.conn.Close()
		}
		c.log.Debug("connection closed")
	})
}
