package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/arbitration"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/cache"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/catalog"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/config"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/identity"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/livesource"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/logging"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/matching"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/metrics"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/services"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/services/llm"
)

// Oracle provider names accepted in [oracle] provider.
const (
	ProviderLexical = "lexical"
	ProviderLLM     = "llm"
	ProviderGenAI   = "genai"
)

// Runtime owns a configured Resolver and the resources behind it.
type Runtime struct {
	Resolver *Resolver
	Index    *catalog.Index
	Store    *cache.Store
	Metrics  *metrics.Metrics
}

// RuntimeOptions adjusts Open for a single invocation.
type RuntimeOptions struct {
	// Producer replaces the URL-derived identity producer and with it the
	// [identity] blocked hosts.
	Producer identity.Producer
}

// Open loads the catalog, locks the cache directory, and builds the oracle and
// live source selected by cfg. Close releases the cache lock.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts RuntimeOptions) (*Runtime, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "open", "config required", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	index, store, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	policy := matching.PolicyFromConfig(cfg.Policy)

	m := metrics.New()
	gate, err := buildGate(ctx, cfg, index, policy, store, m, logger)
	if err != nil {
		return nil, errors.Join(err, store.Close())
	}

	producer := opts.Producer
	if producer == nil {
		producer = identity.NewURLProducer(cfg.Identity.BlockedHosts...)
	}
	resolver, err := New(Options{
		Index:          index,
		Policy:         policy,
		Cache:          store,
		Producer:       producer,
		Gate:           gate,
		QuantizeScores: cfg.Cache.QuantizeScores,
		Metrics:        m,
		Logger:         logger,
	})
	if err != nil {
		return nil, errors.Join(err, store.Close())
	}
	return &Runtime{Resolver: resolver, Index: index, Store: store, Metrics: m}, nil
}

// OpenStore loads the catalog and opens the cache stamped with its version and
// the configured policy version.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*catalog.Index, *cache.Store, error) {
	index, err := catalog.NewLoader(cfg.Catalog.Path, cfg.Catalog.Version).Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, nil, err
	}
	store, err := cache.Open(ctx, filepath.Join(cfg.Paths.CacheDir, "store"), cache.Options{
		CatalogVersion:     index.Version(),
		PolicyVersion:      cfg.PolicyVersion(),
		MaxEvidenceEntries: cfg.Cache.MaxEvidenceEntries,
		LiveEntityTTL:      cfg.LiveEntityTTL(),
		LockTimeout:        cfg.LockTimeout(),
		Logger:             logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open cache: %w", err)
	}
	return index, store, nil
}

// Close releases the cache lock.
func (rt *Runtime) Close() error {
	if rt == nil || rt.Store == nil {
		return nil
	}
	return rt.Store.Close()
}

func buildGate(ctx context.Context, cfg *config.Config, index *catalog.Index, policy matching.Policy, store *cache.Store, m *metrics.Metrics, logger *slog.Logger) (*arbitration.Gate, error) {
	oracle, name, err := buildOracle(ctx, cfg, index)
	if err != nil {
		return nil, err
	}
	opts := arbitration.Options{
		Oracle:        oracle,
		OracleName:    name,
		OracleTimeout: cfg.OracleTimeout(),
		FetchTimeout:  cfg.LiveTimeout(),
		Live:          store,
		Observer:      m,
		Logger:        logger,
	}
	if cfg.LiveSource.Enabled {
		fetcher, err := livesource.New(cfg.LiveSource.BaseURL, cfg.LiveSource.APIKey, cfg.LiveTimeout())
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "pipeline", "live source", "", err)
		}
		opts.Fetcher = fetcher
	}
	return arbitration.New(policy, opts)
}

func buildOracle(ctx context.Context, cfg *config.Config, index *catalog.Index) (arbitration.SimilarityOracle, string, error) {
	switch provider := strings.ToLower(strings.TrimSpace(cfg.Oracle.Provider)); provider {
	case "", ProviderLexical:
		return arbitration.NewLexicalOracle(index.Entries()), ProviderLexical, nil
	case ProviderLLM:
		client := NewLLMClient(cfg)
		return arbitration.OracleFunc(client.RateSimilarity), ProviderLLM + ":" + client.Model(), nil
	case ProviderGenAI:
		embedder, err := arbitration.NewGenAIEmbedder(ctx, cfg.GenAI.APIKey, cfg.GenAI.Model)
		if err != nil {
			return nil, "", services.Wrap(services.ErrConfiguration, "pipeline", "genai oracle", "", err)
		}
		return arbitration.NewEmbeddingOracle(embedder), ProviderGenAI + ":" + embedder.Name(), nil
	default:
		return nil, "", services.Wrap(services.ErrConfiguration, "pipeline", "oracle", fmt.Sprintf("unknown provider %q", provider), nil)
	}
}

// NewLLMClient builds the chat completion client from the [llm] section.
func NewLLMClient(cfg *config.Config) *llm.Client {
	lc := cfg.GetLLM()
	return llm.NewClient(llm.Config{
		APIKey:         lc.APIKey,
		BaseURL:        lc.BaseURL,
		Model:          lc.Model,
		Referer:        lc.Referer,
		Title:          lc.Title,
		TimeoutSeconds: lc.TimeoutSeconds,
	})
}
