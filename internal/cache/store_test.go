package cache

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/catalog"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/decision"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/services"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func openStore(t *testing.T, dir string, opts Options) *Store {
	t.Helper()
	store, err := Open(context.Background(), dir, opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func reopen(t *testing.T, s *Store, opts Options) *Store {
	t.Helper()
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return openStore(t, s.Dir(), opts)
}

func found(id string) Entry {
	return FromOutcome(decision.Found(decision.StageExact, id, "exact url match"), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

func TestStoreRoundTrip(t *testing.T) {
	opts := Options{CatalogVersion: "c1", PolicyVersion: "p1"}
	store := openStore(t, t.TempDir(), opts)

	if err := store.PutURL("https://mod.example.com/cool-pack", found("a1")); err != nil {
		t.Fatalf("PutURL: %v", err)
	}
	amb := FromOutcome(decision.Ambiguous(decision.StageFuzzy, "close", []decision.Candidate{{ID: "a1"}, {ID: "b2"}}), time.Now())
	if err := store.PutEvidence("k1", amb); err != nil {
		t.Fatalf("PutEvidence: %v", err)
	}

	store = reopen(t, store, opts)
	got, ok := store.LookupURL("https://mod.example.com/cool-pack")
	if !ok {
		t.Fatal("url entry lost across reopen")
	}
	out := got.Outcome(decision.CacheSourceURL)
	if out.Status != decision.StatusFound || out.ChosenID != "a1" || out.Stage != decision.StageExact || out.CacheSource != "url" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	ev, ok := store.LookupEvidence("k1")
	if !ok {
		t.Fatal("evidence entry lost across reopen")
	}
	if diff := cmp.Diff([]string{"a1", "b2"}, ev.CandidateIDs); diff != "" {
		t.Fatalf("candidate ids (-want +got):\n%s", diff)
	}
}

func TestOpenWritesEveryPartition(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := openStore(t, t.TempDir(), Options{CatalogVersion: "c1", PolicyVersion: "p1", Now: clock.Now})

	for _, st := range store.Stats() {
		if _, err := os.Stat(st.Path); err != nil {
			t.Fatalf("%s partition not written on open: %v", st.Partition, err)
		}
		if !st.SavedAt.Equal(clock.now) {
			t.Fatalf("%s saved at %v, want %v", st.Partition, st.SavedAt, clock.now)
		}
		if st.Entries != 0 {
			t.Fatalf("%s has %d entries on a fresh store", st.Partition, st.Entries)
		}
	}
}

func TestStoreVersionChangeWipesStampedPartitions(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)}
	store := openStore(t, t.TempDir(), Options{CatalogVersion: "c1", PolicyVersion: "p1", Now: clock.Now})
	if err := store.PutURL("u", found("a1")); err != nil {
		t.Fatal(err)
	}
	if err := store.PutEvidence("k", found("a1")); err != nil {
		t.Fatal(err)
	}
	if err := store.PutLiveEntity(catalog.LiveEntity{ID: "a1", Title: "Cool Pack"}); err != nil {
		t.Fatal(err)
	}

	for _, opts := range []Options{
		{CatalogVersion: "c2", PolicyVersion: "p1", Now: clock.Now},
		{CatalogVersion: "c2", PolicyVersion: "p2", Now: clock.Now},
	} {
		store = reopen(t, store, opts)
		if _, ok := store.LookupURL("u"); ok {
			t.Fatalf("url partition survived version change %+v", opts)
		}
		if _, ok := store.LookupEvidence("k"); ok {
			t.Fatalf("evidence partition survived version change %+v", opts)
		}
		if _, ok := store.LookupLiveEntity("a1", time.Time{}); !ok {
			t.Fatalf("live entity partition must survive version change %+v", opts)
		}
		if err := store.PutURL("u", found("a1")); err != nil {
			t.Fatal(err)
		}
	}
}

func TestStoreResetsCorruptPartition(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "url_cache.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	wrongSchema, _ := json.Marshal(map[string]any{"schema": "other", "entries": map[string]any{}})
	if err := os.WriteFile(filepath.Join(dir, "evidence_cache.json"), wrongSchema, 0o644); err != nil {
		t.Fatal(err)
	}

	store := openStore(t, dir, Options{CatalogVersion: "c", PolicyVersion: "p"})
	for _, s := range store.Stats()[:2] {
		if s.Entries != 0 {
			t.Fatalf("partition %s not reset: %+v", s.Partition, s)
		}
	}
	data, err := os.ReadFile(filepath.Join(dir, "url_cache.json"))
	if err != nil {
		t.Fatal(err)
	}
	var doc document[Entry]
	if err := json.Unmarshal(data, &doc); err != nil || doc.Schema != schemaURL {
		t.Fatalf("corrupt file was not replaced: %v %q", err, doc.Schema)
	}
}

func TestStoreRejectsInvalidEntries(t *testing.T) {
	dir := t.TempDir()
	doc := document[Entry]{Schema: schemaURL, CatalogVersion: "c", PolicyVersion: "p", Entries: map[string]Entry{
		"u": {Result: "MAYBE", Stage: decision.StageExact},
	}}
	data, _ := json.Marshal(doc)
	if err := os.WriteFile(filepath.Join(dir, "url_cache.json"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	store := openStore(t, dir, Options{CatalogVersion: "c", PolicyVersion: "p"})
	if _, ok := store.LookupURL("u"); ok {
		t.Fatal("entry with unknown status must not load")
	}
}

func TestEvidenceEvictionOldestFirst(t *testing.T) {
	store := openStore(t, t.TempDir(), Options{MaxEvidenceEntries: 2})
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, key := range []string{"old", "mid", "new"} {
		e := found("a1")
		e.Timestamp = base.Add(time.Duration(i) * time.Hour)
		if err := store.PutEvidence(key, e); err != nil {
			t.Fatal(err)
		}
	}
	if _, ok := store.LookupEvidence("old"); ok {
		t.Fatal("oldest entry should be evicted")
	}
	for _, key := range []string{"mid", "new"} {
		if _, ok := store.LookupEvidence(key); !ok {
			t.Fatalf("%s should be kept", key)
		}
	}
}

func TestLiveEntityFreshness(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	store := openStore(t, t.TempDir(), Options{LiveEntityTTL: time.Hour, Now: clock.Now})
	modified := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	if err := store.PutLiveEntity(catalog.LiveEntity{ID: "a1", Title: "Cool Pack", LastModifiedAt: modified}); err != nil {
		t.Fatal(err)
	}

	if _, ok := store.LookupLiveEntity("a1", modified); !ok {
		t.Fatal("fresh entity should be served")
	}
	if _, ok := store.LookupLiveEntity("a1", modified.Add(time.Minute)); ok {
		t.Fatal("catalog modified after the snapshot must invalidate it")
	}

	clock.now = clock.now.Add(time.Hour)
	if _, ok := store.LookupLiveEntity("a1", time.Time{}); ok {
		t.Fatal("entity at the TTL must be expired")
	}
	removed, err := store.PruneLiveEntities()
	if err != nil || removed != 1 {
		t.Fatalf("PruneLiveEntities = %d, %v", removed, err)
	}
}

func TestClearPartitions(t *testing.T) {
	store := openStore(t, t.TempDir(), Options{})
	_ = store.PutURL("u", found("a1"))
	_ = store.PutEvidence("k", found("a1"))
	_ = store.PutLiveEntity(catalog.LiveEntity{ID: "a1"})

	if err := store.Clear(PartitionURL); err != nil {
		t.Fatal(err)
	}
	stats := store.Stats()
	if stats[0].Entries != 0 || stats[1].Entries != 1 || stats[2].Entries != 1 {
		t.Fatalf("unexpected stats after clearing url: %+v", stats)
	}
	if err := store.Clear(); err != nil {
		t.Fatal(err)
	}
	for _, s := range store.Stats() {
		if s.Entries != 0 {
			t.Fatalf("partition %s not cleared", s.Partition)
		}
	}
}

func TestOpenTimesOutWhenLocked(t *testing.T) {
	dir := t.TempDir()
	openStore(t, dir, Options{})
	_, err := Open(context.Background(), dir, Options{LockTimeout: 100 * time.Millisecond})
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected lock timeout, got %v", err)
	}
}

func TestParsePartition(t *testing.T) {
	for in, want := range map[string]Partition{"URL": PartitionURL, "evidence": PartitionEvidence, "live": PartitionLiveEntity} {
		if got, ok := ParsePartition(in); !ok || got != want {
			t.Fatalf("ParsePartition(%q) = %q, %v", in, got, ok)
		}
	}
	if _, ok := ParsePartition("all"); ok {
		t.Fatal("unexpected partition")
	}
}
