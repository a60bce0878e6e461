package config

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	CacheDir string `toml:"cache_dir"`
	LogDir   string `toml:"log_dir"`
}

// Catalog locates the reference catalog. Path ending in .db/.sqlite selects the
// SQLite loader; anything else is read as JSON.
type Catalog struct {
	Path    string `toml:"path"`
	Version string `toml:"version"` // overrides the version stamp reported by the loader
}

// Policy holds every tunable decision constant.
type Policy struct {
	Version              string              `toml:"version"`
	FoundThreshold       float64             `toml:"found_threshold"`
	AmbiguityGap         float64             `toml:"ambiguity_gap"`
	AdmissionFloor       float64             `toml:"admission_floor"`
	ExactTitleThreshold  float64             `toml:"exact_title_threshold"`
	TitleFallbackTrigger float64             `toml:"title_fallback_trigger"`
	TitleWeight          float64             `toml:"title_weight"`
	CreatorWeight        float64             `toml:"creator_weight"`
	SlugWeight           float64             `toml:"slug_weight"`
	DomainBonus          float64             `toml:"domain_bonus"`
	MaxCandidates        int                 `toml:"max_candidates"`
	MinNameLength        int                 `toml:"min_name_length"`
	MinAlphaRatio        float64             `toml:"min_alpha_ratio"`
	ConfirmThreshold     float64             `toml:"confirm_threshold"`
	AcceptThreshold      float64             `toml:"accept_threshold"`
	MinArbitrationGap    float64             `toml:"min_arbitration_gap"`
	ScoringWorkers       int                 `toml:"scoring_workers"`
	HostAliases          map[string][]string `toml:"host_aliases"`
}

// Cache contains configuration for the on-disk decision store.
type Cache struct {
	MaxEvidenceEntries int  `toml:"max_evidence_entries"`
	LiveEntityTTLHours int  `toml:"live_entity_ttl_hours"`
	QuantizeScores     bool `toml:"quantize_scores"`
	LockTimeoutSeconds int  `toml:"lock_timeout_seconds"`
}

// Oracle selects the similarity oracle used by arbitration.
type Oracle struct {
	Provider       string `toml:"provider"` // lexical, llm, genai
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// LLM contains OpenAI-compatible chat completion settings for the llm oracle.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// GenAI contains Gemini embedding settings for the genai oracle.
type GenAI struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// LiveSource configures the HTTP catalog API used for live enrichment.
type LiveSource struct {
	Enabled        bool   `toml:"enabled"`
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Identity configures how queried pages become identities. Pages on a
// blocked host are never scored against the catalog.
type Identity struct {
	BlockedHosts []string `toml:"blocked_hosts"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the analyzer.
//
// Configuration sections by subsystem:
//   - Paths: cache and log directories
//   - Catalog: reference catalog location and version override
//   - Policy: matching thresholds, weights, and host alias groups
//   - Cache: evidence bounds, live entity TTL, lock wait
//   - Oracle: similarity oracle provider and timeout
//   - LLM / GenAI: provider credentials
//   - LiveSource: live enrichment API
//   - Identity: hosts that are not mod sources
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Catalog    Catalog    `toml:"catalog"`
	Policy     Policy     `toml:"policy"`
	Cache      Cache      `toml:"cache"`
	Oracle     Oracle     `toml:"oracle"`
	LLM        LLM        `toml:"llm"`
	GenAI      GenAI      `toml:"genai"`
	LiveSource LiveSource `toml:"live_source"`
	Identity   Identity   `toml:"identity"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("modanalyzer.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the cache and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LiveEntityTTL returns the live entity freshness window.
func (c *Config) LiveEntityTTL() time.Duration {
	return time.Duration(c.Cache.LiveEntityTTLHours) * time.Hour
}

// LockTimeout returns how long cache.Open waits for the store lock.
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.Cache.LockTimeoutSeconds) * time.Second
}

// OracleTimeout bounds a single similarity oracle call.
func (c *Config) OracleTimeout() time.Duration {
	return time.Duration(c.Oracle.TimeoutSeconds) * time.Second
}

// LiveTimeout bounds a single live entity fetch.
func (c *Config) LiveTimeout() time.Duration {
	return time.Duration(c.LiveSource.TimeoutSeconds) * time.Second
}

// PolicyVersion combines the configured policy version with a short hash of every
// numeric constant and alias group, so retuning invalidates cached decisions.
func (c *Config) PolicyVersion() string {
	return PolicyVersion(c.Policy)
}

// PolicyVersion is the Config-free form of (*Config).PolicyVersion.
func PolicyVersion(p Policy) string {
	var b strings.Builder
	for _, v := range []float64{
		p.FoundThreshold, p.AmbiguityGap, p.AdmissionFloor, p.ExactTitleThreshold,
		p.TitleFallbackTrigger, p.TitleWeight, p.CreatorWeight, p.SlugWeight, p.DomainBonus,
		p.MinAlphaRatio, p.ConfirmThreshold, p.AcceptThreshold, p.MinArbitrationGap,
	} {
		b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
		b.WriteByte('|')
	}
	b.WriteString(strconv.Itoa(p.MaxCandidates))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(p.MinNameLength))

	groups := make([]string, 0, len(p.HostAliases))
	for name := range p.HostAliases {
		groups = append(groups, name)
	}
	sort.Strings(groups)
	for _, name := range groups {
		hosts := append([]string(nil), p.HostAliases[name]...)
		sort.Strings(hosts)
		b.WriteString("|" + name + "=" + strings.Join(hosts, ","))
	}

	sum := sha256.Sum256([]byte(b.String()))
	return p.Version + "+" + hex.EncodeToString(sum[:])[:8]
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "modanalyzer")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/modanalyzer"
	}
	return filepath.Join(home, ".cache", "modanalyzer")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains the trimmed LLM connection settings.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// GetLLM returns the LLM connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
}
