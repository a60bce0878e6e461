// Package config loads, normalizes, and validates analyzer configuration data.
//
// It supplies repository defaults (including the canonical decision policy),
// expands user paths, reads TOML files, and honours environment fallbacks such
// as OPENROUTER_API_KEY and GEMINI_API_KEY. The Config type centralizes every
// knob the resolver and CLI need.
//
// PolicyVersion folds the numeric policy into a short hash so cached decisions
// are invalidated whenever a threshold or weight changes.
package config
