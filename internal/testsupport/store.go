package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/cache"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/catalog"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/config"
)

// MustOpenStore loads cfg's catalog and opens its cache stamped with the
// catalog and policy versions. The store is closed on cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) (*catalog.Index, *cache.Store) {
	t.Helper()

	ctx := context.Background()
	index, err := catalog.NewLoader(cfg.Catalog.Path, cfg.Catalog.Version).Load(ctx)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	store, err := cache.Open(ctx, filepath.Join(cfg.Paths.CacheDir, "store"), cache.Options{
		CatalogVersion: index.Version(),
		PolicyVersion:  cfg.PolicyVersion(),
	})
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return index, store
}
