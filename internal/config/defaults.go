package config

const (
	defaultConfigPath         = "~/.config/modanalyzer/config.toml"
	defaultLogDir             = "~/.local/share/modanalyzer/logs"
	defaultCatalogPath        = "~/.local/share/modanalyzer/catalog.json"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultPolicyVersion      = "v1"
	defaultMaxEvidenceEntries = 5000
	defaultLiveEntityTTLHours = 24
	defaultLockTimeoutSeconds = 30
	defaultOracleProvider     = "lexical"
	defaultOracleTimeout      = 20
	defaultLiveTimeout        = 10
	defaultLLMBaseURL         = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel           = "google/gemini-3-flash-preview"
	defaultLLMReferer         = "https://github.com/thebossrrpg/Thesims4modanalyzer"
	defaultLLMTitle           = "Sims 4 Mod Analyzer"
	defaultLLMTimeoutSeconds  = 60
	defaultGenAIModel         = "gemini-embedding-001"
	defaultScoringWorkers     = 4
)

// DefaultHostAliases groups hosts that serve the same mod platform.
func DefaultHostAliases() map[string][]string {
	return map[string][]string{
		"curseforge": {"curseforge.com", "legacy.curseforge.com", "beta.curseforge.com"},
		"modthesims": {"modthesims.info", "modthesims.com", "mts.com"},
		"patreon":    {"patreon.com", "patreon.co"},
		"tumblr":     {"tumblr.com", "tmblr.co"},
	}
}

// DefaultPolicy returns the canonical decision constants.
func DefaultPolicy() Policy {
	return Policy{
		Version:              defaultPolicyVersion,
		FoundThreshold:       0.48,
		AmbiguityGap:         0.15,
		AdmissionFloor:       0.30,
		ExactTitleThreshold:  0.98,
		TitleFallbackTrigger: 0.60,
		TitleWeight:          0.60,
		CreatorWeight:        0.05,
		SlugWeight:           0.20,
		DomainBonus:          0.05,
		MaxCandidates:        5,
		MinNameLength:        5,
		MinAlphaRatio:        0.30,
		ConfirmThreshold:     0.70,
		AcceptThreshold:      0.70,
		MinArbitrationGap:    0.10,
		ScoringWorkers:       defaultScoringWorkers,
		HostAliases:          DefaultHostAliases(),
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir: defaultCacheDir(),
			LogDir:   defaultLogDir,
		},
		Catalog: Catalog{
			Path: defaultCatalogPath,
		},
		Policy: DefaultPolicy(),
		Cache: Cache{
			MaxEvidenceEntries: defaultMaxEvidenceEntries,
			LiveEntityTTLHours: defaultLiveEntityTTLHours,
			LockTimeoutSeconds: defaultLockTimeoutSeconds,
		},
		Oracle: Oracle{
			Provider:       defaultOracleProvider,
			TimeoutSeconds: defaultOracleTimeout,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		GenAI: GenAI{
			Model: defaultGenAIModel,
		},
		LiveSource: LiveSource{
			TimeoutSeconds: defaultLiveTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
