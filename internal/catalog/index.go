package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/services"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/urlkey"
)

// Index is an immutable in-memory view of the catalog.
type Index struct {
	version string
	entries []Entry
	byID    map[string]int
	byKey   map[string]int
	bySlug  map[string][]int

	duplicateKeys int
}

// Stats summarizes an Index for diagnostics.
type Stats struct {
	Version          string `json:"version"`
	Entries          int    `json:"entries"`
	WithURL          int    `json:"with_url"`
	LookupKeys       int    `json:"lookup_keys"`
	DuplicateURLKeys int    `json:"duplicate_url_keys"`
	SharedSlugs      int    `json:"shared_slugs"`
}

// NewIndex validates entries and builds the lookup tables. Every entry needs a
// non-empty, unique ID. An empty version is replaced by a content hash.
// Entries are ordered by ID; when several entries share a URL lookup key the
// smallest ID owns it.
func NewIndex(version string, entries []Entry) (*Index, error) {
	sorted := make([]Entry, len(entries))
	for i, e := range entries {
		e.ID = strings.TrimSpace(e.ID)
		if e.ID == "" {
			return nil, services.Wrap(services.ErrValidation, "catalog", "index", fmt.Sprintf("entry %d has an empty id", i), nil)
		}
		e.URL = strings.TrimSpace(e.URL)
		sorted[i] = e
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	idx := &Index{
		entries: sorted,
		byID:    make(map[string]int, len(sorted)),
		byKey:   make(map[string]int, len(sorted)*3),
		bySlug:  make(map[string][]int, len(sorted)),
	}
	for i, e := range sorted {
		if _, dup := idx.byID[e.ID]; dup {
			return nil, services.Wrap(services.ErrValidation, "catalog", "index", fmt.Sprintf("duplicate entry id %q", e.ID), nil)
		}
		idx.byID[e.ID] = i
		if e.URL == "" {
			continue
		}
		for _, key := range urlkey.LookupKeys(e.URL) {
			if _, taken := idx.byKey[key]; taken {
				idx.duplicateKeys++
				continue
			}
			idx.byKey[key] = i
		}
		if slug := urlkey.Slug(e.URL); slug != "" {
			idx.bySlug[slug] = append(idx.bySlug[slug], i)
		}
	}

	version = strings.TrimSpace(version)
	if version == "" {
		version = contentVersion(sorted)
	}
	idx.version = version
	return idx, nil
}

// Version is the catalog snapshot stamp used to invalidate cached decisions.
func (idx *Index) Version() string {
	if idx == nil {
		return ""
	}
	return idx.version
}

// Len returns the number of entries.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.entries)
}

// Entries returns the entries ordered by ID. Callers must not modify the slice.
func (idx *Index) Entries() []Entry {
	if idx == nil {
		return nil
	}
	return idx.entries
}

// Get returns the entry with the given ID.
func (idx *Index) Get(id string) (Entry, bool) {
	if idx == nil {
		return Entry{}, false
	}
	i, ok := idx.byID[id]
	if !ok {
		return Entry{}, false
	}
	return idx.entries[i], true
}

// LookupURL returns the entry owning the first of keys found in the index.
func (idx *Index) LookupURL(keys ...string) (Entry, string, bool) {
	if idx == nil {
		return Entry{}, "", false
	}
	for _, key := range keys {
		if i, ok := idx.byKey[key]; ok {
			return idx.entries[i], key, true
		}
	}
	return Entry{}, "", false
}

// LookupSlug returns every entry whose URL slug compacts to slug.
func (idx *Index) LookupSlug(slug string) []Entry {
	if idx == nil || slug == "" {
		return nil
	}
	positions := idx.bySlug[slug]
	out := make([]Entry, 0, len(positions))
	for _, i := range positions {
		out = append(out, idx.entries[i])
	}
	return out
}

// Stats reports index counters.
func (idx *Index) Stats() Stats {
	if idx == nil {
		return Stats{}
	}
	s := Stats{
		Version:          idx.version,
		Entries:          len(idx.entries),
		LookupKeys:       len(idx.byKey),
		DuplicateURLKeys: idx.duplicateKeys,
	}
	for _, e := range idx.entries {
		if e.URL != "" {
			s.WithURL++
		}
	}
	for _, positions := range idx.bySlug {
		if len(positions) > 1 {
			s.SharedSlugs++
		}
	}
	return s
}

func contentVersion(entries []Entry) string {
	h := sha256.New()
	for _, e := range entries {
		fmt.Fprintf(h, "%s\x1f%s\x1f%s\x1f%s\x1f%s\x1f%s\x1e",
			e.ID, e.URL, e.Title, e.AlternateName, e.Creator, e.LastModifiedAt.UTC().Format(time.RFC3339Nano))
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil))[:16]
}
