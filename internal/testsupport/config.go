package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/catalog"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t              testing.TB
	baseDir        string
	cfg            *config.Config
	catalogVersion string
	entries        []catalog.Entry
}

// DefaultEntries is the catalog written by NewConfig unless WithCatalog is
// given: one standalone mod and two near-duplicate hair sets.
func DefaultEntries() []catalog.Entry {
	return []catalog.Entry{
		{ID: "a1", URL: "https://mod.example.com/cool-pack", Title: "Cool Pack", Creator: "Ann"},
		{ID: "h1", URL: "https://hair.example.net/winter-hair-alpha", Title: "Winter Hair Set"},
		{ID: "h2", URL: "https://hair.example.net/winter-hair-bravo", Title: "Winter Hair Sets"},
	}
}

// NewConfig produces a config seeded with unique temp directories per test and
// a JSON catalog file. It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Paths.LogDir = ""
	cfgVal.Catalog.Path = filepath.Join(base, "catalog.json")
	cfgVal.Logging.Level = "error"

	builder := &configBuilder{
		t:              t,
		baseDir:        base,
		cfg:            &cfgVal,
		catalogVersion: "test-catalog",
		entries:        DefaultEntries(),
	}

	for _, opt := range opts {
		opt(builder)
	}

	WriteCatalog(t, cfgVal.Catalog.Path, builder.catalogVersion, builder.entries)
	return builder.cfg
}

// WithCatalog replaces the fixture catalog. An empty version lets the loader
// derive one from the content.
func WithCatalog(version string, entries ...catalog.Entry) ConfigOption {
	return func(b *configBuilder) {
		b.catalogVersion = version
		b.entries = entries
	}
}

// WithOracle selects the similarity oracle provider.
func WithOracle(provider string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Oracle.Provider = provider
	}
}

// WithLiveSource enables live enrichment against baseURL.
func WithLiveSource(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LiveSource.Enabled = true
		b.cfg.LiveSource.BaseURL = baseURL
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Catalog.Path)
}

// WriteConfig encodes cfg as TOML next to its catalog and returns the path.
func WriteConfig(t testing.TB, cfg *config.Config) string {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	path := filepath.Join(BaseDir(cfg), "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
