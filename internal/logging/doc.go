// Package logging assembles structured slog loggers and formatting helpers used
// across the resolver.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so stage code automatically tags
// log lines with the correlation ID, stage, and query URL. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component emits
// decision and warning records with the same shape.
package logging
