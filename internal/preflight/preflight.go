package preflight

import (
	"context"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Cache directory (always checked)
	results = append(results, CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir))

	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}

	results = append(results, CheckCatalog(ctx, cfg.Catalog.Path, cfg.Catalog.Version))

	switch cfg.Oracle.Provider {
	case "llm":
		results = append(results, CheckLLM(ctx, "LLM oracle", cfg.GetLLM()))
	case "genai":
		results = append(results, CheckAPIKey("GenAI oracle", cfg.GenAI.APIKey))
	default:
		results = append(results, Result{Name: "Lexical oracle", Passed: true, Detail: "offline"})
	}

	if cfg.LiveSource.Enabled {
		results = append(results, CheckLiveSource(ctx, cfg.LiveSource.BaseURL, cfg.LiveSource.APIKey))
	}

	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
