package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/crossplay/backend/internal/db"

	"github.com/jackc/pgx/v5/pgxpool"
)

// migrate lists or applies the embedded schema migrations.
func main() {
	apply := flag.Bool("apply", false, "apply pending migrations")
	flag.Parse()

	if !*apply {
		for _, m := range db.Migrations {
			fmt.Printf("%s  %s\n", m.Name, db.Checksum(m.SQL)[:12])
		}
		return
	}

	dsn := os.Getenv("DB_URL")
	if dsn == "" {
		log.Fatal("DB_URL not set")
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	if err := db.Migrate(context.Background(), pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	fmt.Println("migrations applied")
}
