package config

import (
	"log/slog"
	"os"

	"git.home.luguber.info/inful/ftdocs/internal/foundation/normalization"
)

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

var logLevelNormalizer = normalization.NewNormalizer(map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}, slog.LevelInfo)

var logFormatNormalizer = normalization.NewNormalizer(map[string]LogFormat{
	"json": LogFormatJSON,
	"text": LogFormatText,
}, LogFormatText)

// ParseLogLevel resolves the effective level. Precedence: verbose flag >
// FTDOCS_LOG_LEVEL > configured level.
func ParseLogLevel(verbose bool, configured string) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	if env := os.Getenv("FTDOCS_LOG_LEVEL"); env != "" {
		return logLevelNormalizer.Normalize(env)
	}
	return logLevelNormalizer.Normalize(configured)
}

// NormalizeLogFormat maps a raw format string (text by default).
func NormalizeLogFormat(raw string) LogFormat {
	return logFormatNormalizer.Normalize(raw)
}
