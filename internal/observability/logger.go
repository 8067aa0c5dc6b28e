package observability

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LoggingConfig contains logger configuration options.
type LoggingConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	// Unknown levels fall back to info.
	Level string

	// Format is json, or console/pretty for human-readable output.
	Format string

	// Output is stdout or stderr. Ignored when Writer is set.
	Output string

	// Writer overrides Output.
	Writer io.Writer

	// AddSource adds the caller file and line to every entry.
	AddSource bool

	// TimeFormat is the timestamp layout, RFC 3339 by default.
	TimeFormat string
}

// DefaultLoggingConfig returns JSON info-level logging to stdout.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:      "info",
		Format:     "json",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// NewLogger creates a zerolog logger from cfg. It also sets zerolog's
// global level and time format, which are process-wide.
func NewLogger(cfg LoggingConfig) zerolog.Logger {
	output := cfg.Writer
	if output == nil {
		output = os.Stdout
		if strings.EqualFold(cfg.Output, "stderr") {
			output = os.Stderr
		}
	}

	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	}

	switch strings.ToLower(cfg.Format) {
	case "console", "pretty":
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: zerolog.TimeFieldFormat}
	}

	lc := zerolog.New(output).With().Timestamp().Str("service", "bibliometrics-service")
	if cfg.AddSource {
		lc = lc.Caller()
	}

	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)
	return lc.Logger().Level(level)
}

// parseLevel maps a level name to zerolog, accepting "warning" as warn.
func parseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || level == "" || parsed == zerolog.NoLevel || parsed == zerolog.Disabled {
		return zerolog.InfoLevel
	}
	return parsed
}

// LoggerFromContext enriches logger with whatever run context ctx carries.
func LoggerFromContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	rc := RunContextFromContext(ctx)
	lc := logger.With()
	if rc.RequestID != "" {
		lc = lc.Str("request_id", rc.RequestID)
	}
	if rc.Job != "" {
		lc = lc.Str("job", rc.Job)
	}
	if rc.RunID != "" {
		lc = lc.Str("run_id", rc.RunID)
	}
	return lc.Logger()
}
