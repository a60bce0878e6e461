package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/catalog"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/fileutil"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/logging"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/services"
)

// Partition names one of the three cache documents.
type Partition string

const (
	PartitionURL        Partition = "url"
	PartitionEvidence   Partition = "evidence"
	PartitionLiveEntity Partition = "live_entity"
)

// Partitions lists every partition in a stable order.
var Partitions = []Partition{PartitionURL, PartitionEvidence, PartitionLiveEntity}

// ParsePartition accepts the partition names used on the command line.
func ParsePartition(value string) (Partition, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "url":
		return PartitionURL, true
	case "evidence":
		return PartitionEvidence, true
	case "live", "live_entity", "live-entity":
		return PartitionLiveEntity, true
	}
	return "", false
}

const (
	schemaURL        = "modanalyzer.url_cache.v1"
	schemaEvidence   = "modanalyzer.evidence_cache.v1"
	schemaLiveEntity = "modanalyzer.live_entity_cache.v1"

	lockRetryDelay = 50 * time.Millisecond
)

// Options configures a Store. Zero values fall back to the canonical defaults.
type Options struct {
	CatalogVersion     string
	PolicyVersion      string
	MaxEvidenceEntries int
	LiveEntityTTL      time.Duration
	LockTimeout        time.Duration
	Logger             *slog.Logger
	Now                func() time.Time
}

type document[T any] struct {
	Schema         string       `json:"schema"`
	CatalogVersion string       `json:"catalog_version,omitempty"`
	PolicyVersion  string       `json:"policy_version,omitempty"`
	SavedAt        time.Time    `json:"saved_at"`
	Entries        map[string]T `json:"entries"`
}

// Store is the on-disk cache for one resolver. It is safe for concurrent use
// within a process; the directory lock serialises processes.
type Store struct {
	dir    string
	opts   Options
	logger *slog.Logger
	lock   *flock.Flock

	mu       sync.Mutex
	urls     document[Entry]
	evidence document[Entry]
	live     document[catalog.LiveEntity]
}

// Open locks dir and loads the three partitions. URL and evidence entries
// written under a different catalog or policy version are discarded.
func Open(ctx context.Context, dir string, opts Options) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "cache", "open", "cache directory required", nil)
	}
	if opts.MaxEvidenceEntries <= 0 {
		opts.MaxEvidenceEntries = 5000
	}
	if opts.LiveEntityTTL <= 0 {
		opts.LiveEntityTTL = 24 * time.Hour
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 10 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, ".lock"))
	lockCtx, cancel := context.WithTimeout(ctx, opts.LockTimeout)
	defer cancel()
	locked, err := lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil || !locked {
		return nil, services.Wrap(services.ErrTimeout, "cache", "open",
			fmt.Sprintf("cache directory %s is locked by another process", dir), err)
	}

	s := &Store{
		dir:    dir,
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "cache"),
		lock:   lock,
	}
	if err := s.load(); err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return s, nil
}

// Close releases the directory lock.
func (s *Store) Close() error {
	if s == nil || s.lock == nil {
		return nil
	}
	if err := s.lock.Unlock(); err != nil {
		return fmt.Errorf("release cache lock: %w", err)
	}
	return nil
}

// Dir returns the cache directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(p Partition) string {
	switch p {
	case PartitionURL:
		return filepath.Join(s.dir, "url_cache.json")
	case PartitionEvidence:
		return filepath.Join(s.dir, "evidence_cache.json")
	case PartitionLiveEntity:
		return filepath.Join(s.dir, "live_entity_cache.json")
	default:
		panic(fmt.Sprintf("cache: unknown partition %q", p))
	}
}

func (s *Store) load() error {
	var err error
	if s.urls, err = loadStamped[Entry](s, PartitionURL, schemaURL, Entry.valid); err != nil {
		return err
	}
	if s.evidence, err = loadStamped[Entry](s, PartitionEvidence, schemaEvidence, Entry.valid); err != nil {
		return err
	}
	s.live, err = loadDocument(s, PartitionLiveEntity, schemaLiveEntity, func(e catalog.LiveEntity) bool { return e.ID != "" })
	return err
}

// loadStamped loads a version-stamped partition and wipes it when the stamp
// differs from the store's versions.
func loadStamped[T any](s *Store, p Partition, schema string, valid func(T) bool) (document[T], error) {
	doc, err := loadDocument(s, p, schema, valid)
	if err != nil {
		return doc, err
	}
	if doc.CatalogVersion == s.opts.CatalogVersion && doc.PolicyVersion == s.opts.PolicyVersion {
		return doc, nil
	}
	if len(doc.Entries) > 0 {
		s.logger.Info("cache partition invalidated",
			logging.String("partition", string(p)),
			logging.Int("discarded", len(doc.Entries)),
			logging.String("stored_catalog_version", doc.CatalogVersion),
			logging.String("stored_policy_version", doc.PolicyVersion),
			logging.String("catalog_version", s.opts.CatalogVersion),
			logging.String("policy_version", s.opts.PolicyVersion))
	}
	doc = newDocument[T](schema)
	doc.CatalogVersion = s.opts.CatalogVersion
	doc.PolicyVersion = s.opts.PolicyVersion
	return doc, saveDocument(s, p, &doc)
}

// loadDocument reads one partition. A missing file is written as an empty
// partition; an unreadable one is reset with a warning.
func loadDocument[T any](s *Store, p Partition, schema string, valid func(T) bool) (document[T], error) {
	data, ok, err := fileutil.ReadFileIfExists(s.path(p))
	if err != nil {
		return document[T]{}, fmt.Errorf("read %s cache: %w", p, err)
	}
	if !ok {
		doc := newDocument[T](schema)
		doc.CatalogVersion, doc.PolicyVersion = s.stampFor(p)
		return doc, saveDocument(s, p, &doc)
	}

	var doc document[T]
	reason := ""
	switch err := json.Unmarshal(data, &doc); {
	case err != nil:
		reason = err.Error()
	case doc.Schema != schema:
		reason = fmt.Sprintf("schema %q, want %q", doc.Schema, schema)
	}
	if reason == "" {
		for key, entry := range doc.Entries {
			if key == "" || !valid(entry) {
				reason = fmt.Sprintf("invalid entry %q", key)
				break
			}
		}
	}
	if reason == "" {
		if doc.Entries == nil {
			doc.Entries = make(map[string]T)
		}
		return doc, nil
	}

	logging.WarnWithContext(s.logger, "cache partition reset", "cache_partition_reset",
		logging.String("partition", string(p)),
		logging.String("path", s.path(p)),
		logging.Error(services.Wrap(services.ErrCacheCorrupt, "cache", "load", reason, nil)),
		logging.String(logging.FieldErrorHint, "the file was replaced with an empty partition"),
		logging.String(logging.FieldImpact, "previously cached decisions will be recomputed"))
	doc = newDocument[T](schema)
	doc.CatalogVersion, doc.PolicyVersion = s.stampFor(p)
	return doc, saveDocument(s, p, &doc)
}

func (s *Store) stampFor(p Partition) (string, string) {
	if p == PartitionLiveEntity {
		return "", ""
	}
	return s.opts.CatalogVersion, s.opts.PolicyVersion
}

func newDocument[T any](schema string) document[T] {
	return document[T]{Schema: schema, Entries: make(map[string]T)}
}

func saveDocument[T any](s *Store, p Partition, doc *document[T]) error {
	doc.SavedAt = s.opts.Now().UTC()
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s cache: %w", p, err)
	}
	if err := fileutil.WriteFileAtomic(s.path(p), data, 0o644); err != nil {
		return fmt.Errorf("persist %s cache: %w", p, err)
	}
	return nil
}

// LookupURL returns the entry stored under a canonical URL key.
func (s *Store) LookupURL(key string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.urls.Entries[key]
	return e, ok
}

// PutURL stores e under a canonical URL key and persists the partition.
func (s *Store) PutURL(key string, e Entry) error {
	if key == "" {
		return errors.New("url cache key must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urls.Entries[key] = e
	return saveDocument(s, PartitionURL, &s.urls)
}

// LookupEvidence returns the entry stored under an evidence key.
func (s *Store) LookupEvidence(key string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.evidence.Entries[key]
	return e, ok
}

// PutEvidence stores e under an evidence key, evicts the oldest entries past
// the configured maximum, and persists the partition.
func (s *Store) PutEvidence(key string, e Entry) error {
	if key == "" {
		return errors.New("evidence cache key must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evidence.Entries[key] = e
	if evicted := s.evictEvidence(); evicted > 0 {
		s.logger.Debug("evidence cache pruned", logging.Int("evicted", evicted), logging.Int("max", s.opts.MaxEvidenceEntries))
	}
	return saveDocument(s, PartitionEvidence, &s.evidence)
}

func (s *Store) evictEvidence() int {
	excess := len(s.evidence.Entries) - s.opts.MaxEvidenceEntries
	if excess <= 0 {
		return 0
	}
	keys := make([]string, 0, len(s.evidence.Entries))
	for k := range s.evidence.Entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := s.evidence.Entries[keys[i]].Timestamp, s.evidence.Entries[keys[j]].Timestamp
		if !a.Equal(b) {
			return a.Before(b)
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys[:excess] {
		delete(s.evidence.Entries, k)
	}
	return excess
}

// LookupLiveEntity returns the cached snapshot of id while it is younger than
// the TTL and the catalog has not been modified after it.
func (s *Store) LookupLiveEntity(id string, catalogModified time.Time) (catalog.LiveEntity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live.Entries[id]
	if !ok || !s.liveValid(e, s.opts.Now()) {
		return catalog.LiveEntity{}, false
	}
	if !catalogModified.IsZero() && catalogModified.After(e.LastModifiedAt) {
		return catalog.LiveEntity{}, false
	}
	return e, true
}

func (s *Store) liveValid(e catalog.LiveEntity, now time.Time) bool {
	return now.Sub(e.FetchedAt) < s.opts.LiveEntityTTL
}

// PutLiveEntity stores a snapshot and persists the partition.
func (s *Store) PutLiveEntity(e catalog.LiveEntity) error {
	if e.ID == "" {
		return errors.New("live entity id must not be empty")
	}
	if e.FetchedAt.IsZero() {
		e.FetchedAt = s.opts.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live.Entries[e.ID] = e
	return saveDocument(s, PartitionLiveEntity, &s.live)
}

// PruneLiveEntities drops expired snapshots and returns how many were removed.
func (s *Store) PruneLiveEntities() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.opts.Now()
	removed := 0
	for id, e := range s.live.Entries {
		if !s.liveValid(e, now) {
			delete(s.live.Entries, id)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, saveDocument(s, PartitionLiveEntity, &s.live)
}

// Clear empties the named partitions, or all of them when none are given.
func (s *Store) Clear(partitions ...Partition) error {
	if len(partitions) == 0 {
		partitions = Partitions
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range partitions {
		var err error
		switch p {
		case PartitionURL:
			s.urls.Entries = make(map[string]Entry)
			err = saveDocument(s, p, &s.urls)
		case PartitionEvidence:
			s.evidence.Entries = make(map[string]Entry)
			err = saveDocument(s, p, &s.evidence)
		case PartitionLiveEntity:
			s.live.Entries = make(map[string]catalog.LiveEntity)
			err = saveDocument(s, p, &s.live)
		default:
			return fmt.Errorf("unknown cache partition %q", p)
		}
		if err != nil {
			return err
		}
		s.logger.Info("cache partition cleared", logging.String("partition", string(p)))
	}
	return nil
}

// PartitionStats describes one partition document.
type PartitionStats struct {
	Partition      Partition `json:"partition"`
	Path           string    `json:"path"`
	Entries        int       `json:"entries"`
	CatalogVersion string    `json:"catalog_version,omitempty"`
	PolicyVersion  string    `json:"policy_version,omitempty"`
	SavedAt        time.Time `json:"saved_at,omitzero"`
}

// Stats reports every partition in Partitions order.
func (s *Store) Stats() []PartitionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return []PartitionStats{
		statsOf(PartitionURL, s.path(PartitionURL), s.urls),
		statsOf(PartitionEvidence, s.path(PartitionEvidence), s.evidence),
		statsOf(PartitionLiveEntity, s.path(PartitionLiveEntity), s.live),
	}
}

func statsOf[T any](p Partition, path string, doc document[T]) PartitionStats {
	return PartitionStats{
		Partition:      p,
		Path:           path,
		Entries:        len(doc.Entries),
		CatalogVersion: doc.CatalogVersion,
		PolicyVersion:  doc.PolicyVersion,
		SavedAt:        doc.SavedAt,
	}
}
