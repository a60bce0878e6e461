package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validatePolicy(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateOracle(); err != nil {
		return err
	}
	if err := c.validateLiveSource(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCatalog() error {
	if strings.TrimSpace(c.Catalog.Path) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("catalog.path is required. Set MODANALYZER_CATALOG env var or edit %s (create with 'modanalyzer config init')", defaultPath)
	}
	return nil
}

func (c *Config) validatePolicy() error {
	p := c.Policy
	if err := ensureUnitMap(map[string]float64{
		"policy.found_threshold":        p.FoundThreshold,
		"policy.ambiguity_gap":          p.AmbiguityGap,
		"policy.admission_floor":        p.AdmissionFloor,
		"policy.exact_title_threshold":  p.ExactTitleThreshold,
		"policy.title_fallback_trigger": p.TitleFallbackTrigger,
		"policy.title_weight":           p.TitleWeight,
		"policy.creator_weight":         p.CreatorWeight,
		"policy.slug_weight":            p.SlugWeight,
		"policy.domain_bonus":           p.DomainBonus,
		"policy.min_alpha_ratio":        p.MinAlphaRatio,
		"policy.confirm_threshold":      p.ConfirmThreshold,
		"policy.accept_threshold":       p.AcceptThreshold,
		"policy.min_arbitration_gap":    p.MinArbitrationGap,
	}); err != nil {
		return err
	}
	if p.AdmissionFloor > p.FoundThreshold {
		return errors.New("policy.admission_floor must not exceed policy.found_threshold")
	}
	if sum := p.TitleWeight + p.CreatorWeight + p.SlugWeight + p.DomainBonus; sum <= 0 {
		return errors.New("policy weights must not all be zero")
	}
	if p.MaxCandidates < 2 {
		return errors.New("policy.max_candidates must be at least 2")
	}
	if p.MinNameLength < 1 {
		return errors.New("policy.min_name_length must be positive")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.MaxEvidenceEntries <= 0 {
		return errors.New("cache.max_evidence_entries must be positive")
	}
	if c.Cache.LiveEntityTTLHours <= 0 {
		return errors.New("cache.live_entity_ttl_hours must be positive")
	}
	return nil
}

func (c *Config) validateOracle() error {
	switch c.Oracle.Provider {
	case "lexical":
	case "llm":
		if c.LLM.APIKey == "" {
			return errors.New("llm.api_key must be set when oracle.provider is llm (or set OPENROUTER_API_KEY)")
		}
	case "genai":
		if c.GenAI.APIKey == "" {
			return errors.New("genai.api_key must be set when oracle.provider is genai (or set GEMINI_API_KEY)")
		}
	default:
		return fmt.Errorf("oracle.provider: unsupported value %q (want lexical, llm, or genai)", c.Oracle.Provider)
	}
	return nil
}

func (c *Config) validateLiveSource() error {
	if c.LiveSource.Enabled && c.LiveSource.BaseURL == "" {
		return errors.New("live_source.base_url must be set when live_source.enabled is true")
	}
	return nil
}

func ensureUnitMap(values map[string]float64) error {
	for key, value := range values {
		if value < 0 || value > 1 {
			return fmt.Errorf("%s must be between 0 and 1", key)
		}
	}
	return nil
}
