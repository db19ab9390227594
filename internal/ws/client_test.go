package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// dialPair upgrades one connection over a test server and returns both
// ends.
func dialPair(t *testing.T) (server, peer *websocket.Conn) {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	accepted := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		accepted <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	peer, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = peer.Close() })
	return <-accepted, peer
}

func TestOverflowSendsBackpressureClose(t *testing.T) {
	h := NewHub(newFakeStore(), newFakeStore(), Config{SendBuffer: 1})
	server, peer := dialPair(t)

	// No write pump is running, so the second enqueue overflows the queue.
	c := newClient("alice", server, h)
	c.enqueue([]byte(`{}`))
	c.enqueue([]byte(`{}`))

	_ = peer.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := peer.ReadMessage()
	ce, ok := err.(*websocket.CloseError)
	if !ok {
		t.Fatalf("read = %v, want a close error", err)
	}
	if ce.Code != websocket.ClosePolicyViolation {
		t.Errorf("close code = %d, want %d", ce.Code, websocket.ClosePolicyViolation)
	}
	if ce.Text != "BACKPRESSURE" {
		t.Errorf("close reason = %q, want BACKPRESSURE", ce.Text)
	}
}
