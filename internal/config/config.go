package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/crossplay/backend/internal/logger"

	"github.com/joho/godotenv"
)

const (
	ModeDevelopment = "development"
	ModeStaging     = "staging"
	ModeProduction  = "production"
)

type Config struct {
	AppPort string
	Mode    string

	DatabaseURL             string
	DBSSL                   bool
	DBSSLRejectUnauthorized bool

	AuthTokenSecret string
	RequireAuth     bool

	RateLimitMax    int
	RateLimitWindow time.Duration
	RateLimitBypass []string

	CORSOrigins []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PingInterval time.Duration
	PingTimeout  time.Duration

	MemoRate          int
	MaxClockIncrement time.Duration

	LogLevel string
	LogJSON  bool
}

// Load reads the configuration from the environment. Production mode
// enforces the security invariants: a long auth secret, mandatory auth and
// SSL certificate verification. Violations are fatal before the server
// accepts traffic.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		AppPort:                 envOr("APP_PORT", "8080"),
		Mode:                    envOr("SERVER_MODE", ModeDevelopment),
		DatabaseURL:             os.Getenv("DB_URL"),
		DBSSL:                   envBool("DB_SSL", false),
		DBSSLRejectUnauthorized: envBool("DB_SSL_REJECT_UNAUTHORIZED", true),
		AuthTokenSecret:         os.Getenv("AUTH_TOKEN_SECRET"),
		RequireAuth:             envBool("REQUIRE_AUTH", false),
		RateLimitMax:            envInt("RATE_LIMIT_MAX", 1000),
		RateLimitWindow:         time.Duration(envInt("RATE_LIMIT_WINDOW_MS", 900000)) * time.Millisecond,
		RateLimitBypass:         []string{"/health", "/healthz", "/readyz", "/metrics"},
		RedisAddr:               os.Getenv("REDIS_ADDR"),
		RedisPassword:           os.Getenv("REDIS_PASSWORD"),
		RedisDB:                 envInt("REDIS_DB", 0),
		PingInterval:            time.Duration(envInt("PING_INTERVAL_MS", 2000)) * time.Millisecond,
		PingTimeout:             time.Duration(envInt("PING_TIMEOUT_MS", 5000)) * time.Millisecond,
		MemoRate:                envInt("MEMO_RATE", 10),
		MaxClockIncrement:       time.Duration(envInt("MAX_CLOCK_INCREMENT_MS", 30000)) * time.Millisecond,
		LogLevel:                envOr("LOG_LEVEL", "info"),
		LogJSON:                 envBool("LOG_JSON", false),
	}

	if cfg.Mode != ModeDevelopment && cfg.Mode != ModeStaging && cfg.Mode != ModeProduction {
		logger.Fatal("SERVER_MODE must be development, staging or production", "mode", cfg.Mode)
	}

	if cfg.DatabaseURL == "" {
		logger.Fatal("DB_URL is not set")
	}

	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	if cfg.Mode == ModeProduction {
		// Security invariants; these terminate the process.
		if len(cfg.AuthTokenSecret) < 32 {
			logger.Fatal("AUTH_TOKEN_SECRET must be at least 32 bytes in production")
		}
		if !cfg.RequireAuth {
			logger.Warn("REQUIRE_AUTH forced on in production")
			cfg.RequireAuth = true
		}
		if !cfg.DBSSLRejectUnauthorized {
			logger.Fatal("DB_SSL_REJECT_UNAUTHORIZED cannot be disabled in production")
		}
		cfg.DBSSL = true
		for _, o := range cfg.CORSOrigins {
			if o == "*" {
				logger.Fatal("CORS_ORIGINS wildcard is not allowed in production")
			}
		}
	}

	if cfg.AuthTokenSecret == "" {
		// Development fallback; tokens do not survive restarts.
		logger.Warn("AUTH_TOKEN_SECRET not set, using an ephemeral dev secret")
		cfg.AuthTokenSecret = "dev-secret-do-not-use-in-production!!"
	}

	return cfg
}

// LegacyAuthAllowed reports whether the ?user_id= / X-User-Id bypass is
// permitted for this process.
func (c *Config) LegacyAuthAllowed() bool {
	return c.Mode != ModeProduction && !c.RequireAuth
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	switch os.Getenv(key) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return def
}
