package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/crossplay/backend/internal/auth"
)

// tokengen mints a bearer token for local testing.
//
//	AUTH_TOKEN_SECRET=... go run ./cmd/tokengen -user alice -ttl 24h
func main() {
	userID := flag.String("user", "testuser", "user id to embed in the token")
	ttl := flag.Duration("ttl", auth.DefaultTokenTTL, "token lifetime")
	flag.Parse()

	secret := os.Getenv("AUTH_TOKEN_SECRET")
	if secret == "" {
		log.Fatal("AUTH_TOKEN_SECRET not set")
	}

	svc, err := auth.NewService(auth.Options{Secret: secret, TTL: *ttl})
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	token, expiresAt, err := svc.IssueToken(*userID)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}

	log.Printf("user=%s expires=%s\n", *userID, expiresAt.UTC().Format(time.RFC3339))
	log.Printf("token=%s\n", token)
}
