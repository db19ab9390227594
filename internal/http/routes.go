package http

import (
	"github.com/crossplay/backend/internal/auth"
	"github.com/crossplay/backend/internal/config"
	"github.com/crossplay/backend/internal/http/handlers"
	"github.com/crossplay/backend/internal/http/middleware"
	"github.com/crossplay/backend/internal/repository"
	"github.com/crossplay/backend/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes wires the REST surface, the probes, the metrics endpoint
// and the websocket upgrade onto the engine.
func RegisterRoutes(r *gin.Engine, db *pgxpool.Pool, cfg *config.Config, authSvc *auth.Service, version string) {
	h := handlers.NewHandler(db, authSvc, cfg.MemoRate)
	healthHandler := handlers.NewHealthHandler(db, version)

	r.Use(middleware.Metrics())

	// Probes and metrics, exempt from rate limiting.
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	limited := middleware.RateLimit(cfg.RateLimitMax, cfg.RateLimitWindow, cfg.RateLimitBypass)

	hub := ws.NewHub(
		repository.NewGameEvents(db),
		repository.NewRoomEvents(db),
		ws.Config{
			PingInterval: cfg.PingInterval,
			PingTimeout:  cfg.PingTimeout,
		},
	)

	v1 := r.Group("/api/v1")
	v1.Use(limited)
	v1.POST("/auth/token", h.IssueToken)
	v1.POST("/games", h.CreateGame(hub))
	v1.GET("/games/:id", h.GameInfo)
	v1.GET("/games/:id/state", h.GameState)
	v1.GET("/games/:id/events", h.GameEventLog)
	v1.GET("/rooms/:id/events", h.RoomEventLog)

	wsHandler := ws.NewHandler(hub, authSvc, cfg.CORSOrigins)
	r.GET("/ws", limited, wsHandler.Serve)
}
