package catalog

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/services"
)

func TestJSONLoaderFormats(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name        string
		body        string
		override    string
		wantVersion string
		wantLen     int
	}{
		{"array", `[{"id":"a1","url":"https://mod.example.com/cool-pack","title":"Cool Pack"}]`, "", "", 1},
		{"document", `{"version":"2024-06","entries":[{"id":"a1"},{"id":"b2","last_modified_at":"2024-05-01T00:00:00Z"}]}`, "", "2024-06", 2},
		{"override", `{"version":"2024-06","entries":[{"id":"a1"}]}`, "pinned", "pinned", 1},
		{"empty file", ``, "", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatal(err)
			}
			idx, err := NewLoader(path, tt.override).Load(context.Background())
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if idx.Len() != tt.wantLen {
				t.Fatalf("Len = %d, want %d", idx.Len(), tt.wantLen)
			}
			if tt.wantVersion != "" && idx.Version() != tt.wantVersion {
				t.Fatalf("Version = %q, want %q", idx.Version(), tt.wantVersion)
			}
		})
	}
}

func TestJSONLoaderErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := (&JSONLoader{Path: filepath.Join(dir, "missing.json")}).Load(context.Background()); err == nil {
		t.Fatal("expected error for missing catalog")
	}
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"entries": [`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (&JSONLoader{Path: bad}).Load(context.Background()); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSQLiteLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	stmts := []string{
		`CREATE TABLE catalog_entries (id TEXT PRIMARY KEY, url TEXT, title TEXT, alternate_name TEXT, creator TEXT, created_at TEXT, last_modified_at TEXT)`,
		`CREATE TABLE catalog_meta (key TEXT PRIMARY KEY, value TEXT)`,
		`INSERT INTO catalog_meta (key, value) VALUES ('version', ' 2024-07 ')`,
		`INSERT INTO catalog_entries VALUES ('a1', 'https://mod.example.com/cool-pack', 'Cool Pack', NULL, 'Ana', '2024-01-02 03:04:05', '2024-06-01T10:00:00Z')`,
		`INSERT INTO catalog_entries VALUES ('b2', NULL, NULL, 'Hair Set', NULL, NULL, NULL)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(path, "")
	if _, ok := loader.(*SQLiteLoader); !ok {
		t.Fatalf("expected SQLite loader for .db path, got %T", loader)
	}
	idx, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if idx.Version() != "2024-07" {
		t.Fatalf("Version = %q", idx.Version())
	}
	a1, ok := idx.Get("a1")
	if !ok {
		t.Fatal("a1 missing")
	}
	if a1.Creator != "Ana" || !a1.LastModifiedAt.Equal(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected a1: %+v", a1)
	}
	if a1.CreatedAt.IsZero() {
		t.Fatal("expected created_at parsed from sqlite datetime format")
	}
	b2, _ := idx.Get("b2")
	if b2.DisplayName() != "Hair Set" || b2.URL != "" {
		t.Fatalf("unexpected b2: %+v", b2)
	}
}

func TestStaticLoader(t *testing.T) {
	idx, err := Static{Version: "fixture", Entries: []Entry{{ID: "a1"}}}.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if idx.Version() != "fixture" || idx.Len() != 1 {
		t.Fatalf("unexpected index: %+v", idx.Stats())
	}
}
