package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/services"
)

// JSONLoader reads a catalog stored either as a bare array of entries or as
// {"version": "...", "entries": [...]}.
type JSONLoader struct {
	Path    string
	Version string
}

type jsonDocument struct {
	Version string  `json:"version"`
	Entries []Entry `json:"entries"`
}

// Load implements Loader.
func (l *JSONLoader) Load(ctx context.Context) (*Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	version, entries, err := decodeJSON(data)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "catalog", "decode", l.Path, err)
	}
	if l.Version != "" {
		version = l.Version
	}
	return NewIndex(version, entries)
}

func decodeJSON(data []byte) (string, []Entry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return "", nil, nil
	}
	if trimmed[0] == '[' {
		var entries []Entry
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return "", nil, err
		}
		return "", entries, nil
	}
	var doc jsonDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return "", nil, err
	}
	return doc.Version, doc.Entries, nil
}
