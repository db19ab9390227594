package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/crossplay/backend/internal/events"
	"github.com/crossplay/backend/internal/puzzle"

	"github.com/gin-gonic/gin"
)

// GamePublisher pushes a persisted game event to live subscribers.
type GamePublisher interface {
	PublishGameEvent(gid string, e events.Event)
}

type createGameRequest struct {
	GID    string          `json:"gid"`
	PID    string          `json:"pid"`
	Puzzle json.RawMessage `json:"puzzle"`
}

// CreateGame builds the initial game state from a puzzle definition and
// persists the create event. Useful for tooling; interactive clients
// usually create games over the websocket instead.
func (h *Handler) CreateGame(pub GamePublisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := h.Auth.UserFromRequest(c.Request)
		if err != nil {
			abortWithError(c, err)
			return
		}

		var req createGameRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "VALIDATION_ERROR", "message": "malformed body"})
			return
		}
		if req.GID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "VALIDATION_ERROR", "message": "gid is required"})
			return
		}

		var p puzzle.Puzzle
		if err := json.Unmarshal(req.Puzzle, &p); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "VALIDATION_ERROR", "message": "malformed puzzle"})
			return
		}

		e, err := h.GameEvents.CreateInitialEvent(c.Request.Context(), req.GID, req.PID, &p, userID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if pub != nil {
			pub.PublishGameEvent(req.GID, e)
		}

		c.JSON(http.StatusCreated, gin.H{"gid": req.GID, "event": e})
	}
}
