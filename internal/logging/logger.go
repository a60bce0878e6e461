package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/config"
)

// auditFileName is the JSON decision log written under paths.log_dir.
const auditFileName = "modanalyzer.log"

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string // console or json, applies to Writer
	// Writer receives operator output. Nil means stderr so stdout stays
	// reserved for command results.
	Writer io.Writer
	// AuditPath, when set, also appends every record at info or above as
	// JSON lines, regardless of Level.
	AuditPath string
	AddSource bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := new(slog.LevelVar)
	level.Set(parseLevel(opts.Level))
	addSource := opts.AddSource || level.Level() <= slog.LevelDebug

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	var primary slog.Handler
	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	case "", "console":
		primary = newConsoleHandler(w, level, addSource)
	case "json":
		primary = newJSONHandler(w, level, addSource)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	if opts.AuditPath == "" {
		return slog.New(primary), nil
	}
	file, err := openAuditFile(opts.AuditPath)
	if err != nil {
		return nil, err
	}
	auditLevel := new(slog.LevelVar)
	auditLevel.Set(min(level.Level(), slog.LevelInfo))
	return slog.New(newFanoutHandler(primary, newJSONHandler(file, auditLevel, addSource))), nil
}

// NewFromConfig creates the command logger: console or JSON on stderr, plus
// the audit file when a log directory is configured.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info"})
	}
	opts := Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format}
	if dir := strings.TrimSpace(cfg.Paths.LogDir); dir != "" {
		opts.AuditPath = filepath.Join(dir, auditFileName)
	}
	return New(opts)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openAuditFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}
