package db

import (
	"sort"
	"strings"
	"testing"
)

func TestMigrationsRegistry(t *testing.T) {
	if len(Migrations) == 0 {
		t.Fatal("no migrations registered")
	}
	if Migrations[0].Name != "0001_schema_migrations.sql" {
		t.Errorf("first migration = %q, must bootstrap the registry table", Migrations[0].Name)
	}

	names := make([]string, len(Migrations))
	seen := map[string]bool{}
	for i, m := range Migrations {
		names[i] = m.Name
		if seen[m.Name] {
			t.Errorf("duplicate migration name %q", m.Name)
		}
		seen[m.Name] = true
		if strings.TrimSpace(m.SQL) == "" {
			t.Errorf("migration %q has empty SQL", m.Name)
		}
	}
	if !sort.StringsAreSorted(names) {
		t.Errorf("migrations out of lexicographic order: %v", names)
	}
}

func TestChecksum(t *testing.T) {
	a := Checksum("CREATE TABLE x (id int);")
	b := Checksum("CREATE TABLE x (id int);")
	c := Checksum("CREATE TABLE y (id int);")

	if a != b {
		t.Error("checksum not deterministic")
	}
	if a == c {
		t.Error("different bodies share a checksum")
	}
	if len(a) != 64 {
		t.Errorf("checksum length = %d, want 64 hex chars", len(a))
	}
}
