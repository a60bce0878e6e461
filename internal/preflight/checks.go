package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/catalog"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/config"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/livesource"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/services"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/services/llm"
)

// liveProbeID is requested from the live source; a 404 proves the API answers.
const liveProbeID = "__modanalyzer_preflight__"

// CheckLLM verifies that the LLM API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt (no retries).
func CheckLLM(ctx context.Context, name string, cfg config.LLMConfig) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Referer: cfg.Referer,
		Title:   cfg.Title,
	}, llm.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeError("LLM API", err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("API reachable (%s)", client.Model())}
}

// CheckAPIKey only verifies that a key is configured; the provider is not contacted.
func CheckAPIKey(name, key string) Result {
	if strings.TrimSpace(key) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}
	return Result{Name: name, Passed: true, Detail: "API key set (not contacted)"}
}

// CheckLiveSource verifies that the live catalog API answers an entity lookup.
func CheckLiveSource(ctx context.Context, baseURL, apiKey string) Result {
	const name = "Live source"

	client, err := livesource.New(baseURL, apiKey, 5*time.Second)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err = client.FetchEntity(checkCtx, liveProbeID)
	switch {
	case err == nil, errors.Is(err, services.ErrNotFound):
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	default:
		return Result{Name: name, Detail: summarizeError("live source", err)}
	}
}

// CheckCatalog loads the catalog and reports its size and version.
func CheckCatalog(ctx context.Context, path, version string) Result {
	const name = "Catalog"

	index, err := catalog.NewLoader(path, version).Load(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s)", path, services.Cause(err))}
	}
	if index.Len() == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: no entries)", path)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d entries, version %s)", path, index.Len(), index.Version())}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// summarizeError produces a human-readable summary for a failed service check.
func summarizeError(service string, err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("health check timed out (%s unresponsive)", service)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("health check timed out (%s unreachable)", service)
	}
	return services.Cause(err)
}
