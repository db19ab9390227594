package handlers

import (
	"github.com/crossplay/backend/internal/auth"
	"github.com/crossplay/backend/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Handler bundles the dependencies of the REST surface.
type Handler struct {
	DB         *pgxpool.Pool
	Auth       *auth.Service
	GameEvents *repository.GameEvents
	RoomEvents *repository.RoomEvents
	// MemoRate is the checkpoint interval used when replaying a log for
	// the state endpoint.
	MemoRate int
}

func NewHandler(db *pgxpool.Pool, authSvc *auth.Service, memoRate int) *Handler {
	return &Handler{
		DB:         db,
		Auth:       authSvc,
		GameEvents: repository.NewGameEvents(db),
		RoomEvents: repository.NewRoomEvents(db),
		MemoRate:   memoRate,
	}
}
