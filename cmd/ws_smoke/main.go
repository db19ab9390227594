package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"github.com/crossplay/backend/internal/auth"
)

// ws_smoke drives two live connections through the event protocol against
// a locally running server: A creates a game, B joins it, A sends a cell
// update and both sides should see the push.
func main() {
	secret := os.Getenv("AUTH_TOKEN_SECRET")
	if secret == "" {
		log.Fatal("AUTH_TOKEN_SECRET not set")
	}
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	svc, err := auth.NewService(auth.Options{Secret: secret})
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	tokenA, _, err := svc.IssueToken("smokeA")
	if err != nil {
		log.Fatalf("token A: %v", err)
	}
	tokenB, _, err := svc.IssueToken("smokeB")
	if err != nil {
		log.Fatalf("token B: %v", err)
	}

	dialer := websocket.DefaultDialer

	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	connA, _, err := dialer.Dial(fmt.Sprintf("ws://127.0.0.1:%s/ws?token=%s", port, tokenA), nil)
	if err != nil {
		log.Fatalf("dial A: %v", err)
	}
	defer connA.Close()

	connB, _, err := dialer.Dial(fmt.Sprintf("ws://127.0.0.1:%s/ws?token=%s", port, tokenB), nil)
	if err != nil {
		log.Fatalf("dial B: %v", err)
	}
	defer connB.Close()

	gid := fmt.Sprintf("smoke-%d", time.Now().UnixMilli())

	puzzle := `{"info":{"title":"smoke","type":"daily"},` +
		`"solution":[["A","B"],["C","D"]],` +
		`"puzzle":[[1,2],[3,0]],` +
		`"clues":{"across":[[1,"ab"],[3,"cd"]],"down":[[1,"ac"],[2,"bd"]]}}`

	send := func(conn *websocket.Conn, name string, id int64, typ, payload string) {
		msg := fmt.Sprintf(`{"type":%q,"id":%d,"payload":%s}`, typ, id, payload)
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			log.Fatalf("%s write %s: %v", name, typ, err)
		}
	}

	awaitAck := func(conn *websocket.Conn, name string, id int64) {
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			conn.SetReadDeadline(time.Now().Add(time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				continue
			}
			var obj map[string]any
			_ = json.Unmarshal(msg, &obj)
			if t, _ := obj["type"].(string); t == "ack" {
				if got, _ := obj["id"].(float64); int64(got) == id {
					if e, ok := obj["error"]; ok && e != nil {
						log.Fatalf("%s rpc %d failed: %s", name, id, string(msg))
					}
					log.Printf("%s ack %d: %s", name, id, string(msg))
					return
				}
			}
		}
		log.Fatalf("%s: no ack for rpc %d", name, id)
	}

	awaitPush := func(conn *websocket.Conn, name, typ string) {
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			conn.SetReadDeadline(time.Now().Add(time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				continue
			}
			var obj map[string]any
			_ = json.Unmarshal(msg, &obj)
			if t, _ := obj["type"].(string); t == typ {
				log.Printf("%s push: %s", name, string(msg))
				return
			}
		}
		log.Fatalf("%s: no %s push", name, typ)
	}

	// A creates the game.
	createEvent := fmt.Sprintf(
		`{"gid":%q,"event":{"type":"create","timestamp":{".sv":"timestamp"},"params":{"pid":"smoke","version":1,"game":%s}}}`,
		gid, mustInitialGame(puzzle))
	send(connA, "A", 1, "game_event", createEvent)
	awaitAck(connA, "A", 1)

	send(connA, "A", 2, "join_game", fmt.Sprintf(`{"gid":%q}`, gid))
	awaitAck(connA, "A", 2)

	send(connB, "B", 1, "join_game", fmt.Sprintf(`{"gid":%q}`, gid))
	awaitAck(connB, "B", 1)

	// A fills a cell; B should see the push.
	cellEvent := fmt.Sprintf(
		`{"gid":%q,"event":{"type":"updateCell","timestamp":{".sv":"timestamp"},"params":{"cell":{"r":0,"c":0},"value":"A"}}}`,
		gid)
	send(connA, "A", 3, "game_event", cellEvent)
	awaitAck(connA, "A", 3)
	awaitPush(connB, "B", "game_event")

	send(connB, "B", 2, "sync_all_game_events", fmt.Sprintf(`{"gid":%q}`, gid))
	awaitAck(connB, "B", 2)

	send(connA, "A", 4, "latency_ping", fmt.Sprintf(`{"timestamp":%d}`, time.Now().UnixMilli()))
	awaitAck(connA, "A", 4)
	awaitPush(connA, "A", "pong")

	log.Println("smoke test finished")
}

// mustInitialGame produces a minimal initial state snapshot from the raw
// puzzle JSON, good enough for the create event of a smoke run.
func mustInitialGame(rawPuzzle string) string {
	var p struct {
		Info     json.RawMessage `json:"info"`
		Solution json.RawMessage `json:"solution"`
	}
	if err := json.Unmarshal([]byte(rawPuzzle), &p); err != nil {
		log.Fatalf("puzzle: %v", err)
	}
	out, err := json.Marshal(map[string]any{
		"info":     json.RawMessage(p.Info),
		"solution": json.RawMessage(p.Solution),
		"grid": [][]map[string]any{
			{{"value": "", "number": 1}, {"value": "", "number": 2}},
			{{"value": "", "number": 3}, {"value": ""}},
		},
		"clock": map[string]any{"totalTime": 0, "paused": true},
	})
	if err != nil {
		log.Fatalf("marshal game: %v", err)
	}
	return string(out)
}
