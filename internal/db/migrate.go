package db

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/crossplay/backend/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migration is one named schema change. Names are applied in lexicographic
// order, so they carry a numeric prefix.
type Migration struct {
	Name string
	SQL  string
}

// Migrations is the full ordered registry.
var Migrations = []Migration{
	{
		Name: "0001_schema_migrations.sql",
		SQL: `
CREATE TABLE IF NOT EXISTS schema_migrations (
	name TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	checksum TEXT NOT NULL
);`,
	},
	{
		Name: "0002_game_events.sql",
		SQL: `
CREATE TABLE IF NOT EXISTS game_events (
	seq BIGSERIAL PRIMARY KEY,
	gid TEXT NOT NULL,
	usr TEXT,
	ts TIMESTAMPTZ NOT NULL,
	event_type TEXT NOT NULL,
	event_payload JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_game_events_gid_ts ON game_events (gid, ts);`,
	},
	{
		Name: "0003_room_events.sql",
		SQL: `
CREATE TABLE IF NOT EXISTS room_events (
	seq BIGSERIAL PRIMARY KEY,
	rid TEXT NOT NULL,
	usr TEXT,
	ts TIMESTAMPTZ NOT NULL,
	event_type TEXT NOT NULL,
	event_payload JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_room_events_rid_ts ON room_events (rid, ts);`,
	},
}

// Migrate applies every missing migration in order, each inside its own
// transaction, and records its sha256 checksum. A checksum mismatch on an
// already-applied migration is logged as a warning only; migrations are
// immutable in spirit but old deployments have drifted.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	// The registry table itself must exist before we can read it.
	if _, err := pool.Exec(ctx, Migrations[0].SQL); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied := map[string]string{}
	rows, err := pool.Query(ctx, `SELECT name, checksum FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("read schema_migrations: %w", err)
	}
	for rows.Next() {
		var name, sum string
		if err := rows.Scan(&name, &sum); err != nil {
			rows.Close()
			return err
		}
		applied[name] = sum
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	ordered := append([]Migration(nil), Migrations...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Name < ordered[j].Name })

	for _, m := range ordered {
		sum := Checksum(m.SQL)
		if prev, ok := applied[m.Name]; ok {
			if prev != sum {
				logger.Warn("migration checksum mismatch", "name", m.Name, "applied", prev, "current", sum)
			}
			continue
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin %s: %w", m.Name, err)
		}
		if _, err := tx.Exec(ctx, m.SQL); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("apply %s: %w", m.Name, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO schema_migrations (name, checksum) VALUES ($1, $2)`,
			m.Name, sum,
		); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("record %s: %w", m.Name, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit %s: %w", m.Name, err)
		}
		logger.Info("applied migration", "name", m.Name)
	}

	return nil
}

// Checksum returns the hex sha256 of a migration body.
func Checksum(sql string) string {
	sum := sha256.Sum256([]byte(sql))
	return hex.EncodeToString(sum[:])
}
