package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/catalog"
)

// WriteCatalog writes entries as a {"version", "entries"} JSON catalog.
func WriteCatalog(t testing.TB, path, version string, entries []catalog.Entry) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	doc := struct {
		Version string          `json:"version,omitempty"`
		Entries []catalog.Entry `json:"entries"`
	}{Version: version, Entries: entries}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		t.Fatalf("encode catalog: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
