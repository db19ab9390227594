package ws

import (
	"net/http"

	"github.com/crossplay/backend/internal/auth"
	"github.com/crossplay/backend/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Handler upgrades HTTP requests to websocket connections after resolving
// the caller's identity from the handshake.
type Handler struct {
	hub      *Hub
	auth     *auth.Service
	upgrader websocket.Upgrader
}

// NewHandler builds the upgrade handler. An empty allowedOrigins list
// accepts any origin, matching the development CORS posture.
func NewHandler(hub *Hub, authSvc *auth.Service, allowedOrigins []string) *Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}

	return &Handler{
		hub:  hub,
		auth: authSvc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				if origin == "" {
					// Non-browser clients send no Origin header.
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// Serve is the gin handler for the websocket endpoint.
func (h *Handler) Serve(c *gin.Context) {
	userID, err := h.auth.UserFromQueryAndHeader(c.Request.URL.Query(), c.Request.Header)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		logger.Warn("websocket upgrade failed", "error", err, "remote", c.ClientIP())
		return
	}

	client := newClient(userID, conn, h.hub)
	client.log.Info("client connected", "remote", c.ClientIP())
	client.Run()
}
