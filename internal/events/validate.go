package events

import (
	"encoding/json"

	"github.com/crossplay/backend/internal/apperr"
)

const (
	maxChatMessageLen = 1000
	maxDisplayNameLen = 100
)

// ValidateGame checks a coerced game event against its per-type schema.
// Invalid events are rejected before persistence and never broadcast.
func ValidateGame(e Event) error {
	if !KnownGameType(e.Type) {
		return apperr.Validation("unknown event type %q", e.Type)
	}
	if e.Timestamp <= 0 {
		return apperr.Validation("timestamp must be a positive integer")
	}

	switch e.Type {
	case TypeCreate:
		var p CreateParams
		if err := unmarshalParams(e.Params, &p); err != nil {
			return err
		}
		if len(p.Game) == 0 {
			return apperr.Validation("create requires params.game")
		}

	case TypeUpdateCell:
		var p UpdateCellParams
		if err := unmarshalParams(e.Params, &p); err != nil {
			return err
		}
		if p.Cell.R < 0 || p.Cell.C < 0 {
			return apperr.Validation("cell row/col must be non-negative")
		}

	case TypeUpdateCursor:
		var p UpdateCursorParams
		if err := unmarshalParams(e.Params, &p); err != nil {
			return err
		}
		if p.Cell.R < 0 || p.Cell.C < 0 {
			return apperr.Validation("cell row/col must be non-negative")
		}

	case TypeCheck, TypeReveal:
		var p ScopeParams
		if err := unmarshalParams(e.Params, &p); err != nil {
			return err
		}
		if len(p.Scope) != 1 {
			return apperr.Validation("scope must contain exactly one cell")
		}
		if p.Scope[0].R < 0 || p.Scope[0].C < 0 {
			return apperr.Validation("cell row/col must be non-negative")
		}

	case TypeReset:
		var p ScopeParams
		if err := unmarshalParams(e.Params, &p); err != nil {
			return err
		}
		for _, c := range p.Scope {
			if c.R < 0 || c.C < 0 {
				return apperr.Validation("cell row/col must be non-negative")
			}
		}

	case TypeSendChatMessage:
		var p ChatParams
		if err := unmarshalParams(e.Params, &p); err != nil {
			return err
		}
		if len(p.Message) < 1 || len(p.Message) > maxChatMessageLen {
			return apperr.Validation("message length must be 1..%d", maxChatMessageLen)
		}

	case TypeUpdateDisplayName:
		var p DisplayNameParams
		if err := unmarshalParams(e.Params, &p); err != nil {
			return err
		}
		if len(p.DisplayName) > maxDisplayNameLen {
			return apperr.Validation("display name too long")
		}

	case TypeUpdateTeamID:
		var p TeamIDParams
		if err := unmarshalParams(e.Params, &p); err != nil {
			return err
		}
		if p.TeamID < 0 || p.TeamID > 2 {
			return apperr.Validation("teamId must be 0, 1 or 2")
		}
	}

	return nil
}

// ValidateRoom checks a coerced room event.
func ValidateRoom(e Event) error {
	if !KnownRoomType(e.Type) {
		return apperr.Validation("unknown room event type %q", e.Type)
	}
	if e.Timestamp <= 0 {
		return apperr.Validation("timestamp must be a positive integer")
	}
	if e.Type == RoomChat {
		var p ChatParams
		if err := unmarshalParams(e.Params, &p); err != nil {
			return err
		}
		if len(p.Message) < 1 || len(p.Message) > maxChatMessageLen {
			return apperr.Validation("message length must be 1..%d", maxChatMessageLen)
		}
	}
	return nil
}

func unmarshalParams(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return apperr.Validation("missing params")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperr.Validation("malformed params: %v", err)
	}
	return nil
}
