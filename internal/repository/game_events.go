package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/crossplay/backend/internal/apperr"
	"github.com/crossplay/backend/internal/events"
	"github.com/crossplay/backend/internal/game"
	"github.com/crossplay/backend/internal/puzzle"

	"github.com/jackc/pgx/v5/pgxpool"
)

// GameEvents is the durable append-only log of game events. Events are
// immutable after insertion; (gid, ts, seq) gives a total order per game,
// and out-of-order insertion by timestamp is permitted.
type GameEvents struct {
	db *pgxpool.Pool
}

func NewGameEvents(db *pgxpool.Pool) *GameEvents {
	return &GameEvents{db: db}
}

// Append persists one event atomically.
func (r *GameEvents) Append(ctx context.Context, gid string, e events.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("%w: marshal event: %v", apperr.ErrInternal, err)
	}

	var usr *string
	if e.User != "" {
		usr = &e.User
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO game_events (gid, usr, ts, event_type, event_payload)
		 VALUES ($1, $2, $3, $4, $5)`,
		gid, usr, time.UnixMilli(e.Timestamp).UTC(), string(e.Type), payload,
	)
	if err != nil {
		return fmt.Errorf("%w: append game event: %v", apperr.ErrInternal, err)
	}
	return nil
}

// List returns events in ascending (ts, seq) order plus the total count.
// limit <= 0 returns the whole log.
func (r *GameEvents) List(ctx context.Context, gid string, limit, offset int) ([]events.Event, int, error) {
	var total int
	if err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM game_events WHERE gid = $1`, gid,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: count game events: %v", apperr.ErrInternal, err)
	}

	q := `SELECT event_payload FROM game_events WHERE gid = $1 ORDER BY ts ASC, seq ASC`
	args := []any{gid}
	if limit > 0 {
		q += ` LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list game events: %v", apperr.ErrInternal, err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, 0, fmt.Errorf("%w: scan game event: %v", apperr.ErrInternal, err)
		}
		var e events.Event
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, 0, fmt.Errorf("%w: decode game event: %v", apperr.ErrInternal, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", apperr.ErrInternal, err)
	}
	return out, total, nil
}

// Creator returns the user that persisted the create event, or "" when the
// log has none (legacy imports).
func (r *GameEvents) Creator(ctx context.Context, gid string) (string, error) {
	var usr *string
	err := r.db.QueryRow(ctx,
		`SELECT usr FROM game_events
		 WHERE gid = $1 AND event_type = 'create'
		 ORDER BY ts ASC, seq ASC LIMIT 1`, gid,
	).Scan(&usr)
	if err != nil {
		if isNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("%w: lookup creator: %v", apperr.ErrInternal, err)
	}
	if usr == nil {
		return "", nil
	}
	return *usr, nil
}

// Exists reports whether any event has been persisted for gid.
func (r *GameEvents) Exists(ctx context.Context, gid string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM game_events WHERE gid = $1)`, gid,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: existence check: %v", apperr.ErrInternal, err)
	}
	return exists, nil
}

// Info returns the info block of the single create event. Zero or multiple
// create events yield an empty info record.
func (r *GameEvents) Info(ctx context.Context, gid string) (game.Info, error) {
	rows, err := r.db.Query(ctx,
		`SELECT event_payload FROM game_events
		 WHERE gid = $1 AND event_type = 'create'`, gid,
	)
	if err != nil {
		return game.Info{}, fmt.Errorf("%w: lookup info: %v", apperr.ErrInternal, err)
	}
	defer rows.Close()

	var payloads [][]byte
	for rows.Next() {
		var p []byte
		if err := rows.Scan(&p); err != nil {
			return game.Info{}, fmt.Errorf("%w: scan info: %v", apperr.ErrInternal, err)
		}
		payloads = append(payloads, p)
	}
	if err := rows.Err(); err != nil {
		return game.Info{}, fmt.Errorf("%w: %v", apperr.ErrInternal, err)
	}
	if len(payloads) != 1 {
		return game.Info{}, nil
	}

	var e events.Event
	if err := json.Unmarshal(payloads[0], &e); err != nil {
		return game.Info{}, nil
	}
	var cp events.CreateParams
	if err := json.Unmarshal(e.Params, &cp); err != nil {
		return game.Info{}, nil
	}
	var snapshot struct {
		Info game.Info `json:"info"`
	}
	if err := json.Unmarshal(cp.Game, &snapshot); err != nil {
		return game.Info{}, nil
	}
	return snapshot.Info, nil
}

// CreateInitialEvent builds the initial state from a puzzle and appends the
// create event. Re-creating an existing game is a conflict.
func (r *GameEvents) CreateInitialEvent(ctx context.Context, gid, puzzleID string, p *puzzle.Puzzle, userID string) (events.Event, error) {
	exists, err := r.Exists(ctx, gid)
	if err != nil {
		return events.Event{}, err
	}
	if exists {
		return events.Event{}, fmt.Errorf("%w: game %s already exists", apperr.ErrConflict, gid)
	}

	state, err := puzzle.BuildInitialGame(p)
	if err != nil {
		return events.Event{}, err
	}

	snapshot, err := json.Marshal(state)
	if err != nil {
		return events.Event{}, fmt.Errorf("%w: marshal initial state: %v", apperr.ErrInternal, err)
	}
	params, err := json.Marshal(events.CreateParams{PID: puzzleID, Version: 1, Game: snapshot})
	if err != nil {
		return events.Event{}, fmt.Errorf("%w: marshal create params: %v", apperr.ErrInternal, err)
	}

	e := events.Event{
		Type:      events.TypeCreate,
		Timestamp: time.Now().UnixMilli(),
		User:      userID,
		Params:    params,
	}
	if err := r.Append(ctx, gid, e); err != nil {
		return events.Event{}, err
	}
	return e, nil
}
