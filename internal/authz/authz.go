// Package authz decides whether a user may access a game or room log. All
// games are collaborative by design, so any authenticated user is a
// participant of any existing game; the decision table mostly distinguishes
// owners, missing logs and malformed ids. Unknown store errors deny.
package authz

import (
	"context"

	"github.com/crossplay/backend/internal/auth"
)

// Reason classifies an authorization decision.
type Reason string

const (
	ReasonOwner       Reason = "owner"
	ReasonParticipant Reason = "participant"
	ReasonNotFound    Reason = "not-found"
	ReasonDenied      Reason = "denied"
	ReasonInvalidUser Reason = "invalid-user"
)

// Decision is the result of one authorization check.
type Decision struct {
	OK     bool
	Reason Reason
}

// Log is the narrow store surface needed for authorization: creator lookup
// and an existence check.
type Log interface {
	Creator(ctx context.Context, id string) (string, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// ForLog runs the decision table against one log.
func ForLog(ctx context.Context, log Log, userID, id string) Decision {
	if !auth.ValidUserID(userID) {
		return Decision{OK: false, Reason: ReasonInvalidUser}
	}

	creator, err := log.Creator(ctx, id)
	if err != nil {
		// Fail closed on store errors.
		return Decision{OK: false, Reason: ReasonDenied}
	}

	if creator == userID {
		return Decision{OK: true, Reason: ReasonOwner}
	}
	if creator != "" {
		return Decision{OK: true, Reason: ReasonParticipant}
	}

	exists, err := log.Exists(ctx, id)
	if err != nil {
		return Decision{OK: false, Reason: ReasonDenied}
	}
	if exists {
		// Legacy log without a recorded creator.
		return Decision{OK: true, Reason: ReasonParticipant}
	}
	return Decision{OK: false, Reason: ReasonNotFound}
}

// ForGame decides read/write access to a game log.
func ForGame(ctx context.Context, games Log, userID, gid string) Decision {
	return ForLog(ctx, games, userID, gid)
}

// ForRoom decides read/write access to a room log.
func ForRoom(ctx context.Context, rooms Log, userID, rid string) Decision {
	return ForLog(ctx, rooms, userID, rid)
}
