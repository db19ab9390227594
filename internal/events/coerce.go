package events

import (
	"encoding/json"
	"math"
	"time"
)

// RawEvent is an event as received from a client, before timestamp
// coercion. Timestamp is kept raw because clients may send the server-now
// sentinel object {".sv": "timestamp"} in place of a number.
type RawEvent struct {
	Type      Type            `json:"type"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
	User      string          `json:"user,omitempty"`
	ID        string          `json:"id,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
}

// serverNowSentinel matches the legacy firebase server-timestamp object.
type serverNowSentinel struct {
	SV string `json:".sv"`
}

// Coerce normalizes the raw timestamp into a positive integer millisecond
// value. A missing, zero, negative or non-finite timestamp, as well as the
// {".sv":"timestamp"} sentinel, becomes now. Anything else is accepted
// verbatim.
func (e RawEvent) Coerce(now time.Time) Event {
	return Event{
		Type:      e.Type,
		Timestamp: CoerceTimestamp(e.Timestamp, now),
		User:      e.User,
		ID:        e.ID,
		Params:    e.Params,
	}
}

// CoerceTimestamp implements the timestamp normalization rules for one raw
// timestamp field.
func CoerceTimestamp(raw json.RawMessage, now time.Time) int64 {
	nowMS := now.UnixMilli()
	if len(raw) == 0 {
		return nowMS
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		if math.IsNaN(n) || math.IsInf(n, 0) || n <= 0 {
			return nowMS
		}
		return int64(n)
	}

	var s serverNowSentinel
	if err := json.Unmarshal(raw, &s); err == nil && s.SV == "timestamp" {
		return nowMS
	}

	return nowMS
}
