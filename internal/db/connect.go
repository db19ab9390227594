package db

import (
	"context"
	"crypto/tls"

	"github.com/crossplay/backend/internal/config"
	"github.com/crossplay/backend/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens the pool and verifies connectivity. Failures are fatal;
// the server never starts without its store.
func Connect(cfg *config.Config) *pgxpool.Pool {
	pc, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("invalid DB_URL", "error", err)
	}

	// DB_SSL overrides whatever sslmode the URL carried, so a stale
	// connection string cannot downgrade a process that requires TLS.
	if tc := tlsConfig(pc.ConnConfig.Host, cfg.DBSSL, cfg.DBSSLRejectUnauthorized); tc != nil {
		pc.ConnConfig.TLSConfig = tc
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), pc)
	if err != nil {
		logger.Fatal("failed to create database pool", "error", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		logger.Fatal("failed to ping database", "error", err)
	}

	logger.Info("database connected")
	return pool
}

// tlsConfig builds the connection TLS settings for the DB_SSL knobs. A
// nil return leaves the URL's own sslmode in effect.
func tlsConfig(host string, ssl, verify bool) *tls.Config {
	if !ssl {
		return nil
	}
	if !verify {
		return &tls.Config{InsecureSkipVerify: true}
	}
	return &tls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	}
}
