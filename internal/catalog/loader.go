package catalog

import (
	"context"
	"path/filepath"
	"strings"
)

// Loader reads the whole catalog and returns an Index.
type Loader interface {
	Load(ctx context.Context) (*Index, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context) (*Index, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context) (*Index, error) {
	return f(ctx)
}

// Static is a Loader over an in-memory entry list.
type Static struct {
	Version string
	Entries []Entry
}

// Load implements Loader.
func (s Static) Load(context.Context) (*Index, error) {
	return NewIndex(s.Version, s.Entries)
}

// NewLoader picks a loader by file extension: .db, .sqlite, and .sqlite3 use
// SQLite, anything else is read as JSON. A non-empty version overrides the
// stamp the source reports.
func NewLoader(path, version string) Loader {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return &SQLiteLoader{Path: path, Version: version}
	default:
		return &JSONLoader{Path: path, Version: version}
	}
}
