package handlers

import (
	"net/http"

	"github.com/crossplay/backend/internal/authz"
	"github.com/crossplay/backend/internal/history"

	"github.com/gin-gonic/gin"
)

// GameState replays the full event log and returns the resulting
// snapshot, so stateless clients can render a game without implementing
// the reducer.
func (h *Handler) GameState(c *gin.Context) {
	userID, err := h.Auth.UserFromRequest(c.Request)
	if err != nil {
		abortWithError(c, err)
		return
	}

	gid := c.Param("id")
	d := authz.ForGame(c.Request.Context(), h.GameEvents, userID, gid)
	if !d.OK {
		abortWithError(c, decisionError(d))
		return
	}

	evs, total, err := h.GameEvents.List(c.Request.Context(), gid, 0, 0)
	if err != nil {
		abortWithError(c, err)
		return
	}

	replay := history.New(h.MemoRate)
	for _, e := range evs {
		if err := replay.AddEvent(e); err != nil {
			abortWithError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"gid":   gid,
		"total": total,
		"state": replay.Snapshot(false),
	})
}
