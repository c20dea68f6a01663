package config

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogFormat selects the slog handler
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// parseLogLevel maps DEBUG, INFO, WARN(ING) and ERROR in any case; anything else is INFO
func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// parseLogFormat returns fallback for anything but "text" or "json"
func parseLogFormat(format string, fallback LogFormat) LogFormat {
	switch LogFormat(strings.ToLower(strings.TrimSpace(format))) {
	case LogFormatText:
		return LogFormatText
	case LogFormatJSON:
		return LogFormatJSON
	default:
		return fallback
	}
}

// GetLogLevel reads LOG_LEVEL
func GetLogLevel() slog.Level {
	return parseLogLevel(os.Getenv("LOG_LEVEL"))
}

// GetLogFormat returns the handler format from LOG_FORMAT, or fallback
func GetLogFormat(fallback LogFormat) LogFormat {
	return parseLogFormat(os.Getenv("LOG_FORMAT"), fallback)
}

// NewLogger creates a logger writing to output. The HTTP server passes
// stdout with JSON as the default format; stdio mode and the label commands
// pass stderr with text so stdout stays free for MCP messages and labels.
// LOG_FORMAT overrides the default.
func NewLogger(output io.Writer, defaultFormat LogFormat) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: GetLogLevel(),
	}

	if GetLogFormat(defaultFormat) == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(output, opts))
	}
	return slog.New(slog.NewTextHandler(output, opts))
}

// NewTextLogger is NewLogger with a text default
func NewTextLogger(output io.Writer) *slog.Logger {
	return NewLogger(output, LogFormatText)
}

// NewTestLogger writes text at level, or at LOG_LEVEL when level is empty
func NewTestLogger(output io.Writer, level string) *slog.Logger {
	lvl := GetLogLevel()
	if level != "" {
		lvl = parseLogLevel(level)
	}
	return slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: lvl}))
}
