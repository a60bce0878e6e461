package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeCatalog(); err != nil {
		return err
	}
	c.normalizePolicy()
	c.normalizeCache()
	c.normalizeOracle()
	c.normalizeLLM()
	c.normalizeGenAI()
	c.normalizeLiveSource()
	c.normalizeIdentity()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir()
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCatalog() error {
	var err error
	if value, ok := os.LookupEnv("MODANALYZER_CATALOG"); ok && strings.TrimSpace(value) != "" && strings.TrimSpace(c.Catalog.Path) == "" {
		c.Catalog.Path = strings.TrimSpace(value)
	}
	if c.Catalog.Path, err = expandPath(strings.TrimSpace(c.Catalog.Path)); err != nil {
		return fmt.Errorf("catalog.path: %w", err)
	}
	c.Catalog.Version = strings.TrimSpace(c.Catalog.Version)
	return nil
}

func (c *Config) normalizePolicy() {
	c.Policy.Version = strings.TrimSpace(c.Policy.Version)
	if c.Policy.Version == "" {
		c.Policy.Version = defaultPolicyVersion
	}
	if c.Policy.ScoringWorkers <= 0 {
		c.Policy.ScoringWorkers = 1
	}
	if len(c.Policy.HostAliases) == 0 {
		c.Policy.HostAliases = DefaultHostAliases()
		return
	}
	aliases := make(map[string][]string, len(c.Policy.HostAliases))
	for group, hosts := range c.Policy.HostAliases {
		name := strings.ToLower(strings.TrimSpace(group))
		if name == "" {
			continue
		}
		seen := make(map[string]struct{}, len(hosts))
		for _, host := range hosts {
			normalized := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(host)), "www.")
			if normalized == "" {
				continue
			}
			if _, exists := seen[normalized]; exists {
				continue
			}
			seen[normalized] = struct{}{}
			aliases[name] = append(aliases[name], normalized)
		}
	}
	c.Policy.HostAliases = aliases
}

func (c *Config) normalizeCache() {
	if c.Cache.LockTimeoutSeconds < 0 {
		c.Cache.LockTimeoutSeconds = 0
	}
}

func (c *Config) normalizeOracle() {
	c.Oracle.Provider = strings.ToLower(strings.TrimSpace(c.Oracle.Provider))
	if c.Oracle.Provider == "" {
		c.Oracle.Provider = defaultOracleProvider
	}
	if c.Oracle.TimeoutSeconds <= 0 {
		c.Oracle.TimeoutSeconds = defaultOracleTimeout
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	if c.LLM.Referer == "" {
		c.LLM.Referer = defaultLLMReferer
	}
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("MODANALYZER_LLM_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeGenAI() {
	c.GenAI.Model = strings.TrimSpace(c.GenAI.Model)
	if c.GenAI.Model == "" {
		c.GenAI.Model = defaultGenAIModel
	}
	c.GenAI.APIKey = strings.TrimSpace(c.GenAI.APIKey)
	if c.GenAI.APIKey == "" {
		if value, ok := os.LookupEnv("GEMINI_API_KEY"); ok {
			c.GenAI.APIKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLiveSource() {
	c.LiveSource.BaseURL = strings.TrimRight(strings.TrimSpace(c.LiveSource.BaseURL), "/")
	if c.LiveSource.TimeoutSeconds <= 0 {
		c.LiveSource.TimeoutSeconds = defaultLiveTimeout
	}
	c.LiveSource.APIKey = strings.TrimSpace(c.LiveSource.APIKey)
	if c.LiveSource.APIKey == "" {
		if value, ok := os.LookupEnv("MODANALYZER_LIVE_API_KEY"); ok {
			c.LiveSource.APIKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeIdentity() {
	var hosts []string
	for _, host := range c.Identity.BlockedHosts {
		normalized := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(host)), "www.")
		if normalized == "" || slices.Contains(hosts, normalized) {
			continue
		}
		hosts = append(hosts, normalized)
	}
	c.Identity.BlockedHosts = hosts
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
