package handlers

import (
	"net/http"
	"time"

	"github.com/crossplay/backend/internal/auth"

	"github.com/gin-gonic/gin"
)

type tokenRequest struct {
	UserID string `json:"userId"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	UserID    string `json:"userId"`
	ExpiresAt string `json:"expiresAt"`
}

// IssueToken mints a bearer token for a user id. There is no password
// exchange; identity is self-asserted at issuance and the token binds all
// later requests to it.
func (h *Handler) IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "VALIDATION_ERROR", "message": "malformed body"})
		return
	}
	if !auth.ValidUserID(req.UserID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "VALIDATION_ERROR", "message": "invalid userId"})
		return
	}

	token, expiresAt, err := h.Auth.IssueToken(req.UserID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		Token:     token,
		UserID:    req.UserID,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	})
}
