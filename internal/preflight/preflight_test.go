package preflight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCheckCatalog(t *testing.T) {
	ok := CheckCatalog(context.Background(), writeCatalog(t, `{"version":"v9","entries":[{"id":"a1","title":"Cool Pack"}]}`), "")
	if !ok.Passed || !strings.Contains(ok.Detail, "1 entries, version v9") {
		t.Fatalf("valid catalog: %+v", ok)
	}

	empty := CheckCatalog(context.Background(), writeCatalog(t, `[]`), "")
	if empty.Passed {
		t.Fatalf("empty catalog passed: %+v", empty)
	}

	missing := CheckCatalog(context.Background(), filepath.Join(t.TempDir(), "missing.json"), "")
	if missing.Passed {
		t.Fatalf("missing catalog passed: %+v", missing)
	}
}

func TestCheckLLM(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": `{"ok":true}`}}},
		})
	}))
	defer srv.Close()

	good := CheckLLM(context.Background(), "LLM oracle", config.LLMConfig{APIKey: "good-key", BaseURL: srv.URL, Model: "demo"})
	if !good.Passed {
		t.Fatalf("expected pass, got: %s", good.Detail)
	}
	bad := CheckLLM(context.Background(), "LLM oracle", config.LLMConfig{APIKey: "bad-key", BaseURL: srv.URL, Model: "demo"})
	if bad.Passed {
		t.Fatal("expected failure for bad key")
	}
	missing := CheckLLM(context.Background(), "LLM oracle", config.LLMConfig{BaseURL: srv.URL})
	if missing.Passed || missing.Detail != "API key missing" {
		t.Fatalf("missing key: %+v", missing)
	}
}

func TestCheckLiveSource(t *testing.T) {
	notFound := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer notFound.Close()
	if r := CheckLiveSource(context.Background(), notFound.URL, ""); !r.Passed {
		t.Fatalf("404 for the health request should pass, got: %s", r.Detail)
	}

	forbidden := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer forbidden.Close()
	if r := CheckLiveSource(context.Background(), forbidden.URL, "key"); r.Passed {
		t.Fatal("expected failure for 403")
	}

	if r := CheckLiveSource(context.Background(), "", ""); r.Passed {
		t.Fatal("expected failure for missing URL")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.CacheDir = t.TempDir()
	cfg.Paths.LogDir = ""
	cfg.Catalog.Path = writeCatalog(t, `[{"id":"a1","title":"Cool Pack"}]`)

	results := RunAll(context.Background(), &cfg)
	// cache directory, catalog, lexical oracle
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d: %+v", len(results), results)
	}
	if Failed(results) {
		t.Fatalf("unexpected failure: %+v", results)
	}
}

func TestRunAll_IncludesLiveSourceWhenEnabled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Paths.CacheDir = t.TempDir()
	cfg.Paths.LogDir = ""
	cfg.Catalog.Path = writeCatalog(t, `[{"id":"a1","title":"Cool Pack"}]`)
	cfg.LiveSource.Enabled = true
	cfg.LiveSource.BaseURL = srv.URL

	results := RunAll(context.Background(), &cfg)
	found := false
	for _, r := range results {
		if r.Name == "Live source" {
			found = true
			if r.Passed {
				t.Errorf("live source check passed against a 503 server")
			}
		}
	}
	if !found {
		t.Fatal("expected live source check in results")
	}
	if !Failed(results) {
		t.Fatal("Failed should report the live source failure")
	}
}
