package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crossplay/backend/internal/auth"
	"github.com/crossplay/backend/internal/config"
	"github.com/crossplay/backend/internal/db"
	"github.com/crossplay/backend/internal/game"
	httpServer "github.com/crossplay/backend/internal/http"
	"github.com/crossplay/backend/internal/logger"

	"github.com/gin-gonic/gin"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	game.SetMaxClockIncrement(cfg.MaxClockIncrement.Milliseconds())

	authSvc, err := auth.NewService(auth.Options{
		Secret:        cfg.AuthTokenSecret,
		LegacyAllowed: cfg.LegacyAuthAllowed(),
	})
	if err != nil {
		logger.Fatal("auth service init failed", "error", err)
	}

	dbPool := db.Connect(cfg)
	defer dbPool.Close()

	if err := db.Migrate(context.Background(), dbPool); err != nil {
		logger.Fatal("migrations failed", "error", err)
	}

	if cfg.Mode == config.ModeProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware(cfg))

	httpServer.RegisterRoutes(r, dbPool, cfg, authSvc, version)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "mode", cfg.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}

// corsMiddleware reflects allowed origins. Outside production an empty
// allowlist reflects any origin for local development.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(cfg.CORSOrigins))
	for _, o := range cfg.CORSOrigins {
		allowed[o] = struct{}{}
	}
	reflectAny := len(allowed) == 0 && cfg.Mode != config.ModeProduction

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			if _, ok := allowed[origin]; ok || reflectAny {
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
				c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
				c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			}
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
