package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/crossplay/backend/internal/apperr"
	"github.com/crossplay/backend/internal/events"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RoomEvents mirrors GameEvents for room logs. Rooms have no create event;
// the creator is whoever persisted the first event.
type RoomEvents struct {
	db *pgxpool.Pool
}

func NewRoomEvents(db *pgxpool.Pool) *RoomEvents {
	return &RoomEvents{db: db}
}

func (r *RoomEvents) Append(ctx context.Context, rid string, e events.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("%w: marshal event: %v", apperr.ErrInternal, err)
	}

	var usr *string
	if e.User != "" {
		usr = &e.User
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO room_events (rid, usr, ts, event_type, event_payload)
		 VALUES ($1, $2, $3, $4, $5)`,
		rid, usr, time.UnixMilli(e.Timestamp).UTC(), string(e.Type), payload,
	)
	if err != nil {
		return fmt.Errorf("%w: append room event: %v", apperr.ErrInternal, err)
	}
	return nil
}

func (r *RoomEvents) List(ctx context.Context, rid string, limit, offset int) ([]events.Event, int, error) {
	var total int
	if err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM room_events WHERE rid = $1`, rid,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: count room events: %v", apperr.ErrInternal, err)
	}

	q := `SELECT event_payload FROM room_events WHERE rid = $1 ORDER BY ts ASC, seq ASC`
	args := []any{rid}
	if limit > 0 {
		q += ` LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list room events: %v", apperr.ErrInternal, err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, 0, fmt.Errorf("%w: scan room event: %v", apperr.ErrInternal, err)
		}
		var e events.Event
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, 0, fmt.Errorf("%w: decode room event: %v", apperr.ErrInternal, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", apperr.ErrInternal, err)
	}
	return out, total, nil
}

func (r *RoomEvents) Creator(ctx context.Context, rid string) (string, error) {
	var usr *string
	err := r.db.QueryRow(ctx,
		`SELECT usr FROM room_events WHERE rid = $1 ORDER BY ts ASC, seq ASC LIMIT 1`, rid,
	).Scan(&usr)
	if err != nil {
		if isNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("%w: lookup room creator: %v", apperr.ErrInternal, err)
	}
	if usr == nil {
		return "", nil
	}
	return *usr, nil
}

func (r *RoomEvents) Exists(ctx context.Context, rid string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM room_events WHERE rid = $1)`, rid,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: existence check: %v", apperr.ErrInternal, err)
	}
	return exists, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
