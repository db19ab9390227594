package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/crossplay/backend/internal/apperr"
	"github.com/crossplay/backend/internal/authz"
	"github.com/crossplay/backend/internal/events"

	"github.com/gin-gonic/gin"
)

const maxPageSize = 1000

type eventPage struct {
	Events []events.Event `json:"events"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// GameEventLog serves a page of a game's event log over REST, for clients
// and tooling that cannot hold a websocket open.
func (h *Handler) GameEventLog(c *gin.Context) {
	userID, err := h.Auth.UserFromRequest(c.Request)
	if err != nil {
		abortWithError(c, err)
		return
	}

	gid := c.Param("id")
	limit, offset, err := pageParams(c)
	if err != nil {
		abortWithError(c, err)
		return
	}

	d := authz.ForGame(c.Request.Context(), h.GameEvents, userID, gid)
	if !d.OK {
		abortWithError(c, decisionError(d))
		return
	}

	evs, total, err := h.GameEvents.List(c.Request.Context(), gid, limit, offset)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if evs == nil {
		evs = []events.Event{}
	}
	c.JSON(http.StatusOK, eventPage{Events: evs, Total: total, Limit: limit, Offset: offset})
}

// RoomEventLog is the room-log counterpart of GameEventLog.
func (h *Handler) RoomEventLog(c *gin.Context) {
	userID, err := h.Auth.UserFromRequest(c.Request)
	if err != nil {
		abortWithError(c, err)
		return
	}

	rid := c.Param("id")
	limit, offset, err := pageParams(c)
	if err != nil {
		abortWithError(c, err)
		return
	}

	d := authz.ForRoom(c.Request.Context(), h.RoomEvents, userID, rid)
	if !d.OK {
		abortWithError(c, decisionError(d))
		return
	}

	evs, total, err := h.RoomEvents.List(c.Request.Context(), rid, limit, offset)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if evs == nil {
		evs = []events.Event{}
	}
	c.JSON(http.StatusOK, eventPage{Events: evs, Total: total, Limit: limit, Offset: offset})
}

// GameInfo returns the info block from a game's create event.
func (h *Handler) GameInfo(c *gin.Context) {
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

	info, err := h.GameEvents.Info(c.Request.Context(), gid)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gid": gid, "info": info})
}

func pageParams(c *gin.Context) (limit, offset int, err error) {
	limit = maxPageSize
	if v := c.Query("limit"); v != "" {
		n, perr := strconv.Atoi(v)
		if perr != nil || n <= 0 {
			return 0, 0, apperr.Validation("limit must be a positive integer")
		}
		if n < limit {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		n, perr := strconv.Atoi(v)
		if perr != nil || n < 0 {
			return 0, 0, apperr.Validation("offset must be a non-negative integer")
		}
		offset = n
	}
	return limit, offset, nil
}

func decisionError(d authz.Decision) error {
	switch d.Reason {
	case authz.ReasonInvalidUser:
		return apperr.ErrUnauthenticated
	case authz.ReasonNotFound:
		return apperr.ErrNotFound
	default:
		return apperr.ErrForbidden
	}
}

// abortWithError maps an error kind to its HTTP status and writes the
// standard error body.
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, apperr.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, apperr.ErrTimeout):
		status = http.StatusGatewayTimeout
	}
	c.AbortWithStatusJSON(status, gin.H{"error": apperr.Code(err), "message": err.Error()})
}
