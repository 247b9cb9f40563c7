package db

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeMigrations(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("failed to write test file %s: %v", name, err)
		}
	}
	return dir
}

func TestLoadMigrations(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"001_core.sql":         "CREATE TABLE clinics (id TEXT PRIMARY KEY);",
		"002_appointments.sql": "CREATE TABLE appointments (id UUID PRIMARY KEY);",
		"010_leads.sql":        "CREATE TABLE leads (id UUID PRIMARY KEY);",
	})

	migrations, err := NewMigrator(nil, dir).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[0].Name != "001_core.sql" {
		t.Errorf("unexpected first migration: %+v", migrations[0])
	}
	if migrations[0].SQL != "CREATE TABLE clinics (id TEXT PRIMARY KEY);" {
		t.Errorf("unexpected SQL content: %s", migrations[0].SQL)
	}
	if migrations[2].Version != 10 {
		t.Errorf("expected version 10 last, got %d", migrations[2].Version)
	}
}

func TestLoadMigrations_InvalidFilename(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"001_core.sql":     "SELECT 1;",
		"README.md":        "docs",
		"seed_data.sql":    "SELECT 2;",
		"nounderscore.sql": "SELECT 3;",
	})
	if err := os.Mkdir(filepath.Join(dir, "002_dir.sql"), 0755); err != nil {
		t.Fatal(err)
	}

	migrations, err := NewMigrator(nil, dir).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migrations) != 1 {
		t.Fatalf("expected 1 migration, got %d", len(migrations))
	}
}

func TestLoadMigrations_NonExistentDir(t *testing.T) {
	if _, err := NewMigrator(nil, "/nonexistent/path/that/does/not/exist").LoadMigrations(); err == nil {
		t.Error("expected error for non-existent directory")
	}
}

func TestPendingAndStatuses(t *testing.T) {
	migrations := []Migration{
		{Version: 1, Name: "001_core.sql"},
		{Version: 2, Name: "002_tags.sql"},
		{Version: 3, Name: "003_indexes.sql"},
	}
	at := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	done := map[int]time.Time{1: at}

	p := pending(migrations, done)
	if len(p) != 2 || p[0].Version != 2 {
		t.Fatalf("expected versions 2 and 3 pending, got %+v", p)
	}

	st := statuses(migrations, done)
	if !st[0].Applied || st[0].AppliedAt == nil || !st[0].AppliedAt.Equal(at) {
		t.Errorf("expected migration 001 applied at %v, got %+v", at, st[0])
	}
	if st[1].Applied || st[1].AppliedAt != nil {
		t.Errorf("expected migration 002 pending, got %+v", st[1])
	}
}

func TestWithSchema(t *testing.T) {
	m := NewMigrator(nil, "/some/path")
	if m.schema != DefaultSchema {
		t.Errorf("expected default schema %s, got %s", DefaultSchema, m.schema)
	}
	if _, err := m.WithSchema("agenda_test"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.schema != "agenda_test" {
		t.Errorf("expected agenda_test, got %s", m.schema)
	}
	for _, bad := range []string{"", "Public", "x; DROP TABLE clinics", "1abc"} {
		if _, err := m.WithSchema(bad); err == nil {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
}
